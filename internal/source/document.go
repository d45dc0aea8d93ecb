// Package source holds a lossless, editable view of one class source file.
//
// A Document is the exact file bytes plus the tree-sitter tree parsed from
// them. Edits are byte-range replacements on the buffer followed by a
// re-parse, so every byte outside an edited range (comments, blank lines,
// formatting) survives unchanged.
package source

import (
	"bytes"
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/lang"
)

// Edit replaces source[Start:End] with Text.
type Edit struct {
	Start uint32
	End   uint32
	Text  string
}

// Insert returns an Edit inserting text at offset.
func Insert(offset uint32, text string) Edit {
	return Edit{Start: offset, End: offset, Text: text}
}

// Delete returns an Edit removing source[start:end].
func Delete(start, end uint32) Edit {
	return Edit{Start: start, End: end}
}

// Document is a parsed, mutable source file. It is not safe for concurrent use.
type Document struct {
	lang   *lang.Language
	parser *sitter.Parser
	src    []byte
	tree   *sitter.Tree
}

// Parse builds a Document from src. It fails with ErrParse when the source
// does not parse cleanly; such files are never edited.
func Parse(l *lang.Language, src []byte) (*Document, error) {
	d := &Document{
		lang:   l,
		parser: l.NewParser(),
		src:    bytes.Clone(src),
	}
	if err := d.reparse(); err != nil {
		return nil, err
	}
	if d.tree.RootNode().HasError() {
		d.Close()
		return nil, errors.Wrapf(errors.ErrParse, "%s source contains syntax errors", l.Name)
	}
	return d, nil
}

// Language returns the document's language.
func (d *Document) Language() *lang.Language {
	return d.lang
}

// Source returns the current buffer. Callers must not modify it.
func (d *Document) Source() []byte {
	return d.src
}

// Root returns the root node of the current tree. Nodes obtained before an
// Apply call are invalidated by it.
func (d *Document) Root() *sitter.Node {
	return d.tree.RootNode()
}

// Text returns the source text of n.
func (d *Document) Text(n *sitter.Node) string {
	return lang.NodeText(n, d.src)
}

// Apply performs edits against the current buffer and re-parses. Edits must
// not overlap; they are applied back to front so offsets refer to the
// buffer as it was before the call.
func (d *Document) Apply(edits ...Edit) error {
	if len(edits) == 0 {
		return nil
	}
	// Back to front; edits sharing an offset keep their given order in the output.
	sorted := make([]Edit, len(edits))
	for i := range edits {
		sorted[len(edits)-1-i] = edits[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})
	for i, e := range sorted {
		if e.Start > e.End || int(e.End) > len(d.src) {
			return errors.Mark(errors.AssertionFailedf("edit [%d,%d) out of range (len %d)", e.Start, e.End, len(d.src)), errors.ErrSerialization)
		}
		if i > 0 && e.End > sorted[i-1].Start {
			return errors.Mark(errors.AssertionFailedf("overlapping edits at %d", e.Start), errors.ErrSerialization)
		}
	}

	out := d.src
	for _, e := range sorted {
		next := make([]byte, 0, len(out)-int(e.End-e.Start)+len(e.Text))
		next = append(next, out[:e.Start]...)
		next = append(next, e.Text...)
		next = append(next, out[e.End:]...)
		out = next
	}
	d.src = out
	return d.reparse()
}

// Bytes serializes the document. It fails with ErrSerialization when the
// edited buffer no longer parses cleanly, in which case nothing must be
// written.
func (d *Document) Bytes() ([]byte, error) {
	if d.tree.RootNode().HasError() {
		return nil, errors.Wrap(errors.ErrSerialization, "edited source contains syntax errors")
	}
	return bytes.Clone(d.src), nil
}

// Close releases the tree-sitter tree.
func (d *Document) Close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}

func (d *Document) reparse() error {
	tree, err := d.parser.ParseCtx(context.Background(), nil, d.src)
	if err != nil {
		return errors.Wrap(errors.ErrParse, err.Error())
	}
	if d.tree != nil {
		d.tree.Close()
	}
	d.tree = tree
	return nil
}
