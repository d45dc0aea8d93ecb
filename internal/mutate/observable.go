package mutate

import (
	"github.com/phobologic/classgraph/internal/framework"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/source"
)

// ToggleObservableRole sets member's entry in the makeObservable
// configuration of className to role, or removes it when role is empty.
// The configuration call (and a constructor to hold it) is created on first
// use and removed again with its last entry.
func (e *Editor) ToggleObservableRole(doc *source.Document, className, member string, role model.Role) error {
	c, err := requireClass(doc, className)
	if err != nil {
		return err
	}
	cfg, ok := doc.ConstructorCall(c, framework.MakeObservable)

	if role == "" {
		if !ok {
			return nil
		}
		p, found := FindProp(doc, cfg.Object, member)
		if !found {
			return nil
		}
		if len(doc.ObjectProps(cfg.Object)) > 1 {
			return RemoveObjectEntry(doc, cfg.Object, p.Node)
		}
		if err := removeConstructorStatement(doc, className, cfg.Stmt); err != nil {
			return err
		}
		return RemoveImportIfUnused(doc, e.Module, framework.MakeObservable)
	}

	entry := member + ": " + quote(string(role))
	if !ok {
		if err := ensureConstructorStatement(doc, c, framework.MakeObservable+"(this, {\n  "+entry+",\n});"); err != nil {
			return err
		}
		return AddImport(doc, e.Module, framework.MakeObservable, false)
	}
	if p, found := FindProp(doc, cfg.Object, member); found {
		if v, _ := lang.StringValue(p.Value, doc.Source()); v == string(role) || p.Value == nil {
			return nil
		}
		return doc.Apply(source.Edit{Start: p.Value.StartByte(), End: p.Value.EndByte(), Text: quote(string(role))})
	}
	return AddObjectEntry(doc, cfg.Object, entry)
}
