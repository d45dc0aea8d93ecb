package mutate

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/source"
)

// AddObjectEntry appends entry (e.g. `count: "observable"` or a shorthand
// key) to the object literal obj. An empty object is expanded to one entry
// per line; a multi-line object gets a new line after its last entry; a
// single-line object gets ", entry".
func AddObjectEntry(doc *source.Document, obj *sitter.Node, entry string) error {
	kids := source.NamedChildren(obj)
	if len(kids) == 0 {
		base := doc.Indent(obj.StartByte())
		text := "{\n" + base + doc.IndentUnit() + entry + ",\n" + base + "}"
		return doc.Apply(source.Edit{Start: obj.StartByte(), End: obj.EndByte(), Text: text})
	}

	last := kids[len(kids)-1]
	if !doc.SpansLines(obj) {
		return doc.Apply(source.Insert(last.EndByte(), ", "+entry))
	}

	var edits []source.Edit
	if next := last.NextSibling(); next == nil || next.Type() != "," {
		edits = append(edits, source.Insert(last.EndByte(), ","))
	}
	indent := doc.Indent(last.StartByte())
	edits = append(edits, source.Insert(doc.LineEnd(last.EndByte()), indent+entry+",\n"))
	return doc.Apply(edits...)
}

// RemoveObjectEntry deletes prop from the object literal obj. Removing the
// only entry collapses the object to {}.
func RemoveObjectEntry(doc *source.Document, obj, prop *sitter.Node) error {
	kids := source.NamedChildren(obj)
	idx := -1
	for i, k := range kids {
		if k == prop {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if len(kids) == 1 {
		return doc.Apply(source.Edit{Start: obj.StartByte(), End: obj.EndByte(), Text: "{}"})
	}

	if doc.SpansLines(obj) && ownsLine(doc, prop) {
		return doc.Apply(doc.LineDeletion(prop, source.KeepBlanks))
	}
	if idx > 0 {
		return doc.Apply(source.Delete(kids[idx-1].EndByte(), prop.EndByte()))
	}
	return doc.Apply(source.Delete(prop.StartByte(), kids[1].StartByte()))
}

// ownsLine reports whether n is the first thing on its line and nothing but
// an optional comma follows it.
func ownsLine(doc *source.Document, n *sitter.Node) bool {
	src := doc.Source()
	before := src[doc.LineStart(n.StartByte()):n.StartByte()]
	after := strings.TrimSpace(string(src[n.EndByte():doc.LineEnd(n.EndByte())]))
	return strings.TrimSpace(string(before)) == "" && (after == "" || after == ",")
}

// FindProp returns the entry of obj keyed key.
func FindProp(doc *source.Document, obj *sitter.Node, key string) (source.Prop, bool) {
	for _, p := range doc.ObjectProps(obj) {
		if p.Key == key {
			return p, true
		}
	}
	return source.Prop{}, false
}
