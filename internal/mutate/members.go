package mutate

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/source"
)

func memberIndent(doc *source.Document, c *source.Class) string {
	if members := c.Members(); len(members) > 0 {
		return doc.Indent(members[0].StartByte())
	}
	return doc.Indent(c.Stmt.StartByte()) + doc.IndentUnit()
}

// expandBody rewrites a single-line class or function body `{}` to hold block.
func expandBody(doc *source.Document, body *sitter.Node, block string) error {
	closing := doc.Indent(body.StartByte())
	return doc.Apply(source.Edit{
		Start: body.StartByte(),
		End:   body.EndByte(),
		Text:  "{\n" + block + "\n" + closing + "}",
	})
}

// insertMemberAt inserts text as the index'th member of c, directly below
// the member it follows and without blank lines.
func insertMemberAt(doc *source.Document, c *source.Class, index int, text string) error {
	members := c.Members()
	block := indentBlock(text, memberIndent(doc, c))
	if index > len(members) {
		index = len(members)
	}
	if index == 0 {
		if !doc.SpansLines(c.Body) {
			return expandBody(doc, c.Body, block)
		}
		return doc.Apply(source.Insert(doc.LineEnd(c.Body.StartByte()), block+"\n"))
	}
	prev := members[index-1]
	return doc.Apply(source.Insert(doc.LineEnd(prev.EndByte()), block+"\n"))
}

// appendMember adds text as the last member of c, separated from the
// previous member by a blank line.
func appendMember(doc *source.Document, c *source.Class, text string) error {
	block := indentBlock(text, memberIndent(doc, c))
	if !doc.SpansLines(c.Body) {
		return expandBody(doc, c.Body, block)
	}
	closing := doc.LineStart(c.Body.EndByte() - 1)
	if len(c.Members()) > 0 {
		block = "\n" + block
	}
	return doc.Apply(source.Insert(closing, block+"\n"))
}

// removeMember deletes member's lines, with the blank separator appendMember added.
func removeMember(doc *source.Document, member *sitter.Node) error {
	return doc.Apply(doc.LineDeletion(member, source.MemberBlanks))
}

// ensureConstructorStatement appends stmt to the constructor of c, creating
// a parameterless constructor at the end of the class when none exists.
func ensureConstructorStatement(doc *source.Document, c *source.Class, stmt string) error {
	unit := doc.IndentUnit()
	stmt = unitIndent(stmt, unit)

	ctor := doc.Constructor(c)
	if ctor == nil {
		return appendMember(doc, c, "constructor() {\n"+indentBlock(stmt, unit)+"\n}")
	}

	body := ctor.ChildByFieldName("body")
	stmts := source.NamedChildren(body)
	if len(stmts) > 0 {
		block := indentBlock(stmt, doc.Indent(stmts[0].StartByte()))
		last := stmts[len(stmts)-1]
		return doc.Apply(source.Insert(doc.LineEnd(last.EndByte()), block+"\n"))
	}
	block := indentBlock(stmt, doc.Indent(ctor.StartByte())+unit)
	if !doc.SpansLines(body) {
		return expandBody(doc, body, block)
	}
	return doc.Apply(source.Insert(doc.LineStart(body.EndByte()-1), block+"\n"))
}

// removeConstructorStatement deletes stmt from the constructor of the class
// named className, and the constructor itself when it is left empty and
// takes no parameters.
func removeConstructorStatement(doc *source.Document, className string, stmt *sitter.Node) error {
	if err := doc.Apply(doc.LineDeletion(stmt, source.KeepBlanks)); err != nil {
		return err
	}
	c, err := requireClass(doc, className)
	if err != nil {
		return err
	}
	ctor := doc.Constructor(c)
	if ctor == nil {
		return nil
	}
	params := ctor.ChildByFieldName("parameters")
	body := ctor.ChildByFieldName("body")
	if len(source.NamedChildren(params)) > 0 || len(source.NamedChildren(body)) > 0 {
		return nil
	}
	if strings.Contains(doc.Text(body), "//") || strings.Contains(doc.Text(body), "/*") {
		return nil
	}
	return removeMember(doc, ctor)
}
