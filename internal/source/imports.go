package source

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Import is a top-level import declaration.
type Import struct {
	Stmt     *sitter.Node
	Module   string
	TypeOnly bool
	// Named is the `{ ... }` clause, nil for default or namespace-only imports.
	Named *sitter.Node
	// Specs are the named import specifiers in source order.
	Specs []ImportSpec
}

// ImportSpec is one `name` or `name as alias` entry of a named import.
type ImportSpec struct {
	Node  *sitter.Node
	Name  string
	Local string
}

// Imports returns every top-level import declaration in source order.
func (d *Document) Imports() []Import {
	var out []Import
	for _, decl := range d.Decls(ImportDecl) {
		imp := Import{Stmt: decl.Node, Module: decl.Name, TypeOnly: HasChild(decl.Node, "type")}
		for _, c := range NamedChildren(decl.Node) {
			if c.Type() != "import_clause" {
				continue
			}
			for _, cc := range NamedChildren(c) {
				if cc.Type() != "named_imports" {
					continue
				}
				imp.Named = cc
				for _, spec := range NamedChildren(cc) {
					if spec.Type() != "import_specifier" {
						continue
					}
					s := ImportSpec{Node: spec}
					if n := spec.ChildByFieldName("name"); n != nil {
						s.Name = d.Text(n)
						s.Local = s.Name
					}
					if a := spec.ChildByFieldName("alias"); a != nil {
						s.Local = d.Text(a)
					}
					imp.Specs = append(imp.Specs, s)
				}
			}
		}
		out = append(out, imp)
	}
	return out
}

// FindImport returns the first import declaration of module.
func (d *Document) FindImport(module string) (Import, bool) {
	for _, imp := range d.Imports() {
		if imp.Module == module {
			return imp, true
		}
	}
	return Import{}, false
}

// Has reports whether the import binds name.
func (imp Import) Has(name string) bool {
	for _, s := range imp.Specs {
		if s.Name == name {
			return true
		}
	}
	return false
}
