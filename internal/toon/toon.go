// Package toon renders a class map in TOON (Token-Oriented Object Notation).
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/classgraph/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Options selects optional tables.
type Options struct {
	// Members adds the properties and methods of every class with their roles.
	Members bool
}

// Encode converts a class map into TOON.
func Encode(cm *model.ClassMap, opts Options) string {
	parts := []string{
		"project: " + encodeValue(cm.Name),
		"root: " + encodeValue(cm.Root),
	}

	var classRows [][]string
	for i := range cm.Classes {
		c := &cm.Classes[i]
		mixins := make([]string, len(c.Mixins))
		for j, m := range c.Mixins {
			mixins[j] = string(m)
		}
		x, y := "", ""
		if c.Position != nil {
			x = formatFloat(c.Position.X)
			y = formatFloat(c.Position.Y)
		}
		classRows = append(classRows, []string{
			c.ID,
			strings.Join(mixins, " "),
			fmt.Sprintf("%.4f", c.Rank),
			x,
			y,
		})
	}
	parts = append(parts, formatTabular("classes", []string{"class", "mixins", "rank", "x", "y"}, classRows))

	var injectorRows [][]string
	for i := range cm.Classes {
		c := &cm.Classes[i]
		for _, inj := range c.Injectors {
			injectorRows = append(injectorRows, []string{c.ID, inj.PropertyName, inj.ClassID, string(inj.Mode)})
		}
	}
	parts = append(parts, formatTabular("injectors", []string{"class", "property", "target", "mode"}, injectorRows))

	if opts.Members {
		var memberRows [][]string
		for i := range cm.Classes {
			c := &cm.Classes[i]
			for _, m := range c.Properties {
				memberRows = append(memberRows, []string{c.ID, m.Name, "property", string(m.Role)})
			}
			for _, m := range c.Methods {
				memberRows = append(memberRows, []string{c.ID, m.Name, "method", string(m.Role)})
			}
		}
		parts = append(parts, formatTabular("members", []string{"class", "name", "kind", "role"}, memberRows))
	}

	var depRows [][]string
	for i := range cm.Dependencies {
		d := &cm.Dependencies[i]
		depRows = append(depRows, []string{d.Source, d.Target, strings.Join(d.Properties, " ")})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target", "properties"}, depRows))

	return strings.Join(parts, "\n")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	switch {
	case value == "":
		return `""`
	case value != strings.TrimSpace(value), strings.ContainsAny(value, "\n\r\t"):
		return quote(value)
	}
	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}
	if looksNumeric.MatchString(value) {
		return value
	}
	if needsQuoting.MatchString(value) || strings.HasPrefix(value, "-") {
		return quote(value)
	}
	return value
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func quote(value string) string {
	return `"` + quoteReplacer.Replace(value) + `"`
}
