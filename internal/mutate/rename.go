package mutate

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/source"
)

// RenameClass renames the class from to `to` within one file: every
// identifier and type identifier spelled from, plus string literals equal to
// from (the static id and injection configuration values).
func RenameClass(doc *source.Document, from, to string) error {
	if from == to {
		return nil
	}
	if _, err := requireClass(doc, from); err != nil {
		return err
	}
	src := doc.Source()
	var edits []source.Edit
	source.Walk(doc.Root(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "identifier", "type_identifier", "shorthand_property_identifier":
			if doc.Text(n) == from {
				edits = append(edits, source.Edit{Start: n.StartByte(), End: n.EndByte(), Text: to})
			}
			return false
		case "string":
			if v, ok := lang.StringValue(n, src); ok && v == from {
				edits = append(edits, source.Edit{Start: n.StartByte(), End: n.EndByte(), Text: quote(to)})
			}
			return false
		}
		return true
	})
	return doc.Apply(edits...)
}
