package mutate

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/parse"
	"github.com/phobologic/classgraph/internal/source"
)

// ToggleHeritage flips whether interface iface extends typeExpr. A missing
// interface is created extending typeExpr; removing the only heritage entry
// of a body-less interface deletes the declaration.
func ToggleHeritage(doc *source.Document, iface, typeExpr string) error {
	return SetHeritage(doc, iface, typeExpr, !HasHeritage(doc, iface, typeExpr))
}

// HasHeritage reports whether interface iface extends a type whose base name
// matches typeExpr's.
func HasHeritage(doc *source.Document, iface, typeExpr string) bool {
	decl, ok := doc.Find(source.InterfaceDecl, iface)
	if !ok {
		return false
	}
	_, found := heritageEntry(doc, decl.Node, typeExpr)
	return found != nil
}

// SetHeritage makes interface iface extend typeExpr (present) or not.
// Entries are matched by base name, so `StateMachine` matches
// `StateMachine<Context, Message>`.
func SetHeritage(doc *source.Document, iface, typeExpr string, present bool) error {
	decl, ok := doc.Find(source.InterfaceDecl, iface)
	if !ok {
		if !present {
			return nil
		}
		return createInterface(doc, iface, typeExpr)
	}

	entries, found := heritageEntry(doc, decl.Node, typeExpr)
	if present {
		if found != nil {
			return nil
		}
		if len(entries) == 0 {
			anchor := decl.Node.ChildByFieldName("type_parameters")
			if anchor == nil {
				anchor = decl.Node.ChildByFieldName("name")
			}
			return doc.Apply(source.Insert(anchor.EndByte(), " extends "+typeExpr))
		}
		return doc.Apply(source.Insert(entries[len(entries)-1].EndByte(), ", "+typeExpr))
	}

	if found == nil {
		return nil
	}
	if len(entries) == 1 {
		if len(source.NamedChildren(decl.Node.ChildByFieldName("body"))) == 0 {
			return doc.Apply(doc.LineDeletion(decl.Stmt, source.StatementBlanks))
		}
		clause := found.Parent()
		anchor := clause.PrevNamedSibling()
		return doc.Apply(source.Delete(anchor.EndByte(), clause.EndByte()))
	}
	for i, e := range entries {
		if e != found {
			continue
		}
		if i > 0 {
			return doc.Apply(source.Delete(entries[i-1].EndByte(), e.EndByte()))
		}
		return doc.Apply(source.Delete(e.StartByte(), entries[1].StartByte()))
	}
	return nil
}

// heritageEntry returns the extends-clause entries of an interface
// declaration and the one matching typeExpr's base name, if any.
func heritageEntry(doc *source.Document, decl *sitter.Node, typeExpr string) ([]*sitter.Node, *sitter.Node) {
	want := parse.BaseName(typeExpr)
	entries := parse.HeritageEntries(decl)
	for _, e := range entries {
		if want != "" && parse.HeritageBaseName(doc, e) == want {
			return entries, e
		}
	}
	return entries, nil
}

// createInterface inserts `interface iface extends typeExpr {}` directly
// above the class of the same name (exported when the class is), or at the
// end of the file when there is no such class.
func createInterface(doc *source.Document, iface, typeExpr string) error {
	text := "interface " + iface + " extends " + typeExpr + " {}"
	c, ok := doc.FindClass(iface)
	if !ok {
		return appendStatement(doc, text)
	}
	if c.Stmt.Type() == "export_statement" {
		text = "export " + text
	}
	return insertStatementBefore(doc, c.Stmt, text)
}

// insertStatementBefore places text on its own lines above stmt (and above
// stmt's doc comment), followed by a blank line.
func insertStatementBefore(doc *source.Document, stmt *sitter.Node, text string) error {
	at := doc.LineStart(source.LeadingComments(stmt).StartByte())
	return doc.Apply(source.Insert(at, text+"\n\n"))
}

// appendStatement adds text at the end of the file after a blank line.
func appendStatement(doc *source.Document, text string) error {
	src := doc.Source()
	prefix := "\n"
	if len(src) > 0 && src[len(src)-1] != '\n' {
		prefix = "\n\n"
	}
	if len(src) == 0 {
		prefix = ""
	}
	return doc.Apply(source.Insert(uint32(len(src)), prefix+text+"\n"))
}
