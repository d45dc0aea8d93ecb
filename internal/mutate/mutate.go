// Package mutate implements structural edits on class source documents.
//
// Every primitive takes a *source.Document, edits it in place and leaves it
// parseable; the caller serializes once with Document.Bytes after chaining
// as many primitives as an intent needs. Primitives are idempotent: adding
// something already present or removing something absent changes nothing.
// Insertions use fixed layouts whose removal counterparts delete exactly the
// inserted bytes, so add followed by remove restores the original text.
package mutate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/framework"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/source"
)

// Editor applies framework-aware edits. Module is where mixin tags and
// helper functions are imported from.
type Editor struct {
	Module string
}

// New returns an Editor for the framework published as module.
func New(module string) *Editor {
	if module == "" {
		module = framework.DefaultModule
	}
	return &Editor{Module: module}
}

// PropertyName returns the conventional property name for injecting classID:
// camelCase for singletons, create<ClassID> for factories.
func PropertyName(classID string, mode model.InjectorMode) string {
	if mode == model.FactoryMode {
		return "create" + classID
	}
	r, size := utf8.DecodeRuneInString(classID)
	if r == utf8.RuneError {
		return classID
	}
	return string(unicode.ToLower(r)) + classID[size:]
}

func requireClass(doc *source.Document, name string) (*source.Class, error) {
	c, ok := doc.FindClass(name)
	if !ok {
		return nil, errors.Wrapf(errors.ErrClassNotFound, "class %q", name)
	}
	return c, nil
}

// indentBlock prefixes every non-empty line of text with indent.
func indentBlock(text, indent string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = indent + l
		}
	}
	return strings.Join(lines, "\n")
}

// unitIndent rewrites a template indented with two spaces per level to use unit.
func unitIndent(text, unit string) string {
	if unit == "  " {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		n := 0
		for n < len(l) && l[n] == ' ' {
			n++
		}
		lines[i] = strings.Repeat(unit, n/2) + l[n:]
	}
	return strings.Join(lines, "\n")
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
