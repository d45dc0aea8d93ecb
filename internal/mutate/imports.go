package mutate

import (
	"fmt"

	"github.com/phobologic/classgraph/internal/source"
)

// AddImport makes name available from module. An existing named import of
// module gains the name; otherwise a new declaration is added after the
// last import (or at the top of the file, followed by a blank line).
func AddImport(doc *source.Document, module, name string, typeOnly bool) error {
	for _, imp := range doc.Imports() {
		if imp.Module != module || imp.Named == nil {
			continue
		}
		if imp.Has(name) {
			return nil
		}
		if len(imp.Specs) == 0 {
			return doc.Apply(source.Edit{Start: imp.Named.StartByte(), End: imp.Named.EndByte(), Text: "{ " + name + " }"})
		}
		last := imp.Specs[len(imp.Specs)-1].Node
		return doc.Apply(source.Insert(last.EndByte(), ", "+name))
	}

	keyword := "import"
	if typeOnly {
		keyword = "import type"
	}
	line := fmt.Sprintf("%s { %s } from %s;", keyword, name, quote(module))

	src := doc.Source()
	imports := doc.Imports()
	if len(imports) == 0 {
		if len(src) == 0 {
			return doc.Apply(source.Insert(0, line+"\n"))
		}
		return doc.Apply(source.Insert(0, line+"\n\n"))
	}
	end := doc.LineEnd(imports[len(imports)-1].Stmt.EndByte())
	if int(end) == len(src) && (len(src) == 0 || src[len(src)-1] != '\n') {
		return doc.Apply(source.Insert(end, "\n"+line))
	}
	return doc.Apply(source.Insert(end, line+"\n"))
}

// RemoveImport drops name from the named imports of module, deleting the
// declaration once no binding is left. An empty name deletes every
// declaration of module.
func RemoveImport(doc *source.Document, module, name string) error {
	for {
		imp, ok := findImportFor(doc, module, name)
		if !ok {
			return nil
		}
		if name == "" || (len(imp.Specs) == 1 && onlyNamedClause(doc, imp)) {
			if err := deleteImport(doc, imp); err != nil {
				return err
			}
			if name != "" {
				return nil
			}
			continue
		}

		idx := 0
		for i, s := range imp.Specs {
			if s.Name == name {
				idx = i
			}
		}
		spec := imp.Specs[idx].Node
		if len(imp.Specs) == 1 {
			// Default import plus `{ name }`: drop the named clause and its comma.
			return doc.Apply(source.Delete(imp.Named.PrevNamedSibling().EndByte(), imp.Named.EndByte()))
		}
		if idx > 0 {
			return doc.Apply(source.Delete(imp.Specs[idx-1].Node.EndByte(), spec.EndByte()))
		}
		return doc.Apply(source.Delete(spec.StartByte(), imp.Specs[1].Node.StartByte()))
	}
}

// RemoveImportIfUnused removes name from module's import when nothing
// outside import declarations refers to it any more.
func RemoveImportIfUnused(doc *source.Document, module, name string) error {
	if doc.IdentifierUsed(name) {
		return nil
	}
	return RemoveImport(doc, module, name)
}

func findImportFor(doc *source.Document, module, name string) (source.Import, bool) {
	for _, imp := range doc.Imports() {
		if imp.Module != module {
			continue
		}
		if name == "" || imp.Has(name) {
			return imp, true
		}
	}
	return source.Import{}, false
}

// onlyNamedClause reports whether the named imports are the declaration's
// only bindings (no default or namespace import alongside).
func onlyNamedClause(doc *source.Document, imp source.Import) bool {
	if imp.Named == nil {
		return true
	}
	return imp.Named.PrevNamedSibling() == nil
}

func deleteImport(doc *source.Document, imp source.Import) error {
	rule := source.KeepBlanks
	if len(doc.Imports()) == 1 {
		rule = source.StatementBlanks
	}
	return doc.Apply(doc.LineDeletion(imp.Stmt, rule))
}
