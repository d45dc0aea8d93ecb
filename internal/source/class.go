package source

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/lang"
)

// Class is a top-level class declaration.
type Class struct {
	Decl
	Body *sitter.Node
}

// FindClass returns the first top-level class named name.
func (d *Document) FindClass(name string) (*Class, bool) {
	decl, ok := d.Find(ClassDecl, name)
	if !ok {
		return nil, false
	}
	body := decl.Node.ChildByFieldName("body")
	if body == nil {
		return nil, false
	}
	return &Class{Decl: decl, Body: body}, true
}

// Members returns the class body's members, skipping comments.
func (c *Class) Members() []*sitter.Node {
	return NamedChildren(c.Body)
}

// MemberName returns the declared name of a class member, or "".
func (d *Document) MemberName(member *sitter.Node) string {
	name := member.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	if s, ok := lang.StringValue(name, d.src); ok {
		return s
	}
	return d.Text(name)
}

// FindMember returns the first member of c named name.
func (d *Document) FindMember(c *Class, name string) *sitter.Node {
	for _, m := range c.Members() {
		if d.MemberName(m) == name {
			return m
		}
	}
	return nil
}

// IsStatic reports whether member carries the static modifier.
func IsStatic(member *sitter.Node) bool {
	return HasChild(member, "static")
}

// Constructor returns the class constructor, if declared.
func (d *Document) Constructor(c *Class) *sitter.Node {
	for _, m := range c.Members() {
		if m.Type() == "method_definition" && d.MemberName(m) == "constructor" {
			return m
		}
	}
	return nil
}

// ConfigCall is a `callee(this, { ... })` statement in a constructor body.
type ConfigCall struct {
	Stmt   *sitter.Node
	Call   *sitter.Node
	Object *sitter.Node
}

// ConstructorCall finds the first `callee(this, {...})` expression statement
// directly inside the constructor of c.
func (d *Document) ConstructorCall(c *Class, callee string) (*ConfigCall, bool) {
	ctor := d.Constructor(c)
	if ctor == nil {
		return nil, false
	}
	body := ctor.ChildByFieldName("body")
	for _, stmt := range NamedChildren(body) {
		if stmt.Type() != "expression_statement" {
			continue
		}
		call := firstNamed(stmt)
		if call == nil || call.Type() != "call_expression" {
			continue
		}
		fn := call.ChildByFieldName("function")
		if fn == nil || fn.Type() != "identifier" || d.Text(fn) != callee {
			continue
		}
		for _, arg := range NamedChildren(call.ChildByFieldName("arguments")) {
			if arg.Type() == "object" {
				return &ConfigCall{Stmt: stmt, Call: call, Object: arg}, true
			}
		}
	}
	return nil, false
}

// TopLevelCall is a top-level `callee(First, ...)` expression statement.
type TopLevelCall struct {
	Stmt *sitter.Node
	Call *sitter.Node
	Args []*sitter.Node
}

// FindTopLevelCall returns the first top-level statement calling callee
// whose first argument is the identifier first.
func (d *Document) FindTopLevelCall(callee, first string) (*TopLevelCall, bool) {
	for _, stmt := range d.Statements() {
		if stmt.Type() != "expression_statement" {
			continue
		}
		call := firstNamed(stmt)
		if call == nil || call.Type() != "call_expression" {
			continue
		}
		fn := call.ChildByFieldName("function")
		if fn == nil || d.Text(fn) != callee {
			continue
		}
		args := NamedChildren(call.ChildByFieldName("arguments"))
		if len(args) == 0 || args[0].Type() != "identifier" || d.Text(args[0]) != first {
			continue
		}
		return &TopLevelCall{Stmt: stmt, Call: call, Args: args}, true
	}
	return nil, false
}

func firstNamed(n *sitter.Node) *sitter.Node {
	kids := NamedChildren(n)
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}

// Prop is one entry of an object literal.
type Prop struct {
	Node  *sitter.Node
	Key   string
	Value *sitter.Node
}

// ObjectProps returns the pair and shorthand entries of an object literal.
func (d *Document) ObjectProps(obj *sitter.Node) []Prop {
	var props []Prop
	for _, c := range NamedChildren(obj) {
		switch c.Type() {
		case "pair":
			key := c.ChildByFieldName("key")
			if key == nil {
				continue
			}
			k, ok := lang.StringValue(key, d.src)
			if !ok {
				k = d.Text(key)
			}
			props = append(props, Prop{Node: c, Key: k, Value: c.ChildByFieldName("value")})
		case "shorthand_property_identifier":
			props = append(props, Prop{Node: c, Key: d.Text(c)})
		}
	}
	return props
}

// StringProps maps each pair key of obj with a string literal value to that value.
func (d *Document) StringProps(obj *sitter.Node) map[string]string {
	out := make(map[string]string)
	for _, p := range d.ObjectProps(obj) {
		if v, ok := lang.StringValue(p.Value, d.src); ok {
			out[p.Key] = v
		}
	}
	return out
}

// IdentifierUsed reports whether name appears as an identifier or type
// identifier anywhere outside import statements.
func (d *Document) IdentifierUsed(name string) bool {
	used := false
	Walk(d.Root(), func(n *sitter.Node) bool {
		if used || n.Type() == "import_statement" {
			return false
		}
		switch n.Type() {
		case "identifier", "type_identifier", "shorthand_property_identifier":
			if d.Text(n) == name {
				used = true
			}
		}
		return true
	})
	return used
}
