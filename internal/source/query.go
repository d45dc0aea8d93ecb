package source

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/lang"
)

// DeclKind is the kind of a top-level declaration found by the declaration query.
type DeclKind string

const (
	ClassDecl     DeclKind = "definition.class"
	InterfaceDecl DeclKind = "definition.interface"
	TypeDecl      DeclKind = "definition.type"
	ImportDecl    DeclKind = "reference.import"
)

// Decl is a top-level declaration. Node is the declaration itself, Stmt the
// enclosing top-level statement (an export_statement or Node).
type Decl struct {
	Kind DeclKind
	Name string
	Node *sitter.Node
	Stmt *sitter.Node
}

// Decls returns the top-level declarations of kind in source order.
func (d *Document) Decls(kind DeclKind) []Decl {
	q, err := d.lang.DeclQuery()
	if err != nil {
		return nil
	}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, d.Root())

	var decls []Decl
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		var nameNode, declNode *sitter.Node
		var captureName string
		for _, c := range match.Captures {
			cname := q.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
			} else {
				captureName = cname
				declNode = c.Node
			}
		}
		if nameNode == nil || declNode == nil || DeclKind(captureName) != kind {
			continue
		}
		stmt := topLevelStatement(declNode)
		if stmt == nil {
			continue
		}
		name := d.Text(nameNode)
		if kind == ImportDecl {
			name, _ = lang.StringValue(nameNode, d.src)
		}
		decls = append(decls, Decl{Kind: kind, Name: name, Node: declNode, Stmt: stmt})
	}
	return decls
}

// Find returns the first top-level declaration of kind named name.
func (d *Document) Find(kind DeclKind, name string) (Decl, bool) {
	for _, decl := range d.Decls(kind) {
		if decl.Name == name {
			return decl, true
		}
	}
	return Decl{}, false
}

func topLevelStatement(n *sitter.Node) *sitter.Node {
	parent := n.Parent()
	if parent == nil {
		return nil
	}
	switch parent.Type() {
	case "program":
		return n
	case "export_statement":
		if gp := parent.Parent(); gp != nil && gp.Type() == "program" {
			return parent
		}
	}
	return nil
}

// Statements returns the root's top-level statements, skipping comments.
func (d *Document) Statements() []*sitter.Node {
	root := d.Root()
	var out []*sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c := root.NamedChild(i)
		if c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// LeadingComments returns stmt extended backwards over directly adjacent
// comment siblings, so insertions before a declaration land above its doc comment.
func LeadingComments(stmt *sitter.Node) *sitter.Node {
	first := stmt
	for prev := first.PrevSibling(); prev != nil && prev.Type() == "comment"; prev = prev.PrevSibling() {
		if first.StartPoint().Row-prev.EndPoint().Row > 1 {
			break
		}
		first = prev
	}
	return first
}

// NamedChildren returns n's named children, skipping comments.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// HasChild reports whether n has a direct child (named or anonymous) of type typ.
func HasChild(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

// Walk calls fn for n and every descendant in document order. Returning
// false from fn skips that node's children.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		Walk(n.Child(i), fn)
	}
}
