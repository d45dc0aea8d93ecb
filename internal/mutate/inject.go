package mutate

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/framework"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/parse"
	"github.com/phobologic/classgraph/internal/source"
)

func wrapperType(mode model.InjectorMode) string {
	if mode == model.FactoryMode {
		return framework.InjectFactoryType
	}
	return framework.InjectType
}

// InsertInjectionProperty declares `readonly prop: Inject<Dep>;` (or
// InjectFactory) as the second member of className and records
// `prop: "Dep"` in the constructor's injectFeatures configuration.
func InsertInjectionProperty(doc *source.Document, className, depID, prop string, mode model.InjectorMode) error {
	c, err := requireClass(doc, className)
	if err != nil {
		return err
	}
	if doc.FindMember(c, prop) == nil {
		text := fmt.Sprintf("readonly %s: %s<%s>;", prop, wrapperType(mode), depID)
		index := 1
		if len(c.Members()) == 0 {
			index = 0
		}
		if err := insertMemberAt(doc, c, index, text); err != nil {
			return err
		}
		if c, err = requireClass(doc, className); err != nil {
			return err
		}
	}

	entry := prop + ": " + quote(depID)
	cfg, ok := doc.ConstructorCall(c, framework.InjectFeatures)
	if !ok {
		return ensureConstructorStatement(doc, c, framework.InjectFeatures+"(this, {\n  "+entry+",\n});")
	}
	if p, ok := FindProp(doc, cfg.Object, prop); ok {
		if v, _ := lang.StringValue(p.Value, doc.Source()); v == depID {
			return nil
		}
		return doc.Apply(source.Edit{Start: p.Value.StartByte(), End: p.Value.EndByte(), Text: quote(depID)})
	}
	return AddObjectEntry(doc, cfg.Object, entry)
}

// RemoveInjectionProperty is the inverse of InsertInjectionProperty. The
// configuration entry is matched by its dependency id value, preferring the
// conventional key when several entries name depID; the property of the
// same name is then deleted. Entries whose property is declared with the
// other injector mode are left alone. Initializer-style `inject("Dep")`
// properties are removed as well.
func RemoveInjectionProperty(doc *source.Document, className, depID string, mode model.InjectorMode) error {
	return removeInjection(doc, className, depID, "", mode)
}

// removeInjection removes the injection of depID with mode. When prop is
// set only that property qualifies.
func removeInjection(doc *source.Document, className, depID, prop string, mode model.InjectorMode) error {
	c, err := requireClass(doc, className)
	if err != nil {
		return err
	}
	exact := prop != ""
	if !exact {
		prop = PropertyName(depID, mode)
	}

	// injected reports whether member carries an injection of mode; a
	// config entry without a typed member counts only under its
	// conventional key.
	injected := func(key string) bool {
		member := doc.FindMember(c, key)
		if member == nil {
			return key == prop
		}
		if got := parse.WrapperMode(doc, member); got != "" {
			return got == mode
		}
		return key == prop
	}

	if cfg, ok := doc.ConstructorCall(c, framework.InjectFeatures); ok {
		var match *source.Prop
		props := doc.ObjectProps(cfg.Object)
		for i := range props {
			v, _ := lang.StringValue(props[i].Value, doc.Source())
			if v != depID || (exact && props[i].Key != prop) || !injected(props[i].Key) {
				continue
			}
			if match == nil || props[i].Key == prop {
				match = &props[i]
			}
		}
		if match != nil {
			key := match.Key
			if len(props) == 1 {
				err = removeConstructorStatement(doc, className, cfg.Stmt)
			} else {
				err = RemoveObjectEntry(doc, cfg.Object, match.Node)
			}
			if err != nil {
				return err
			}
			if c, err = requireClass(doc, className); err != nil {
				return err
			}
			if member := doc.FindMember(c, key); member != nil && parse.WrapperMode(doc, member) == mode {
				return doc.Apply(doc.LineDeletion(member, source.KeepBlanks))
			}
			return nil
		}
	}

	member := doc.FindMember(c, prop)
	if member != nil && parse.WrapperMode(doc, member) != mode {
		member = nil
	}
	if member == nil {
		member = initializerInjection(doc, c, depID, mode)
		if member != nil && exact && doc.MemberName(member) != prop {
			member = nil
		}
	}
	if member == nil {
		return nil
	}
	return doc.Apply(doc.LineDeletion(member, source.KeepBlanks))
}

func initializerFunc(mode model.InjectorMode) string {
	if mode == model.FactoryMode {
		return framework.InjectFactory
	}
	return framework.Inject
}

// initializerInjection finds a `prop = inject("Dep")` style member.
func initializerInjection(doc *source.Document, c *source.Class, depID string, mode model.InjectorMode) *sitter.Node {
	want := initializerFunc(mode)
	for _, m := range c.Members() {
		if m.Type() != "public_field_definition" {
			continue
		}
		if id, fn, ok := parse.InitializerCall(doc, m); ok && id == depID && fn == want {
			return m
		}
	}
	return nil
}

// Inject wires depID into className: imports the dependency type and the
// framework helpers, then inserts the injection property.
func (e *Editor) Inject(doc *source.Document, className, depID string, mode model.InjectorMode) error {
	if _, err := requireClass(doc, className); err != nil {
		return err
	}
	steps := []func() error{
		func() error { return AddImport(doc, e.Module, wrapperType(mode), false) },
		func() error { return AddImport(doc, e.Module, framework.InjectFeatures, false) },
		func() error { return AddImport(doc, "./"+depID, depID, true) },
		func() error {
			return InsertInjectionProperty(doc, className, depID, PropertyName(depID, mode), mode)
		},
	}
	return run(steps)
}

// Uninject reverses Inject, dropping imports nothing refers to any more.
func (e *Editor) Uninject(doc *source.Document, className, depID string, mode model.InjectorMode) error {
	return e.uninject(doc, className, depID, "", mode)
}

func (e *Editor) uninject(doc *source.Document, className, depID, prop string, mode model.InjectorMode) error {
	if _, err := requireClass(doc, className); err != nil {
		return err
	}
	steps := []func() error{
		func() error { return removeInjection(doc, className, depID, prop, mode) },
		func() error { return RemoveImportIfUnused(doc, "./"+depID, depID) },
		func() error { return RemoveImportIfUnused(doc, e.Module, framework.InjectFeatures) },
		func() error { return RemoveImportIfUnused(doc, e.Module, wrapperType(mode)) },
		func() error { return RemoveImportIfUnused(doc, e.Module, initializerFunc(mode)) },
	}
	return run(steps)
}

// ReplaceInjection swaps the injector held in property prop for an
// injection of depID with mode.
func (e *Editor) ReplaceInjection(doc *source.Document, className, prop, depID string, mode model.InjectorMode) error {
	c, err := requireClass(doc, className)
	if err != nil {
		return err
	}
	old, ok := findInjector(doc, c, prop)
	if !ok {
		return errors.Wrapf(errors.ErrInvalidRequest, "class %q has no injected property %q", className, prop)
	}
	if old.ClassID == depID && old.Mode == mode {
		return nil
	}
	if err := e.uninject(doc, className, old.ClassID, prop, old.Mode); err != nil {
		return err
	}
	return e.Inject(doc, className, depID, mode)
}

// findInjector resolves the injector stored in property prop of c.
func findInjector(doc *source.Document, c *source.Class, prop string) (model.Injector, bool) {
	member := doc.FindMember(c, prop)
	if member == nil {
		return model.Injector{}, false
	}
	if id, fn, ok := parse.InitializerCall(doc, member); ok {
		mode := model.SingletonMode
		if fn == framework.InjectFactory {
			mode = model.FactoryMode
		}
		return model.Injector{ClassID: id, PropertyName: prop, Mode: mode}, true
	}
	cfg, ok := doc.ConstructorCall(c, framework.InjectFeatures)
	if !ok {
		return model.Injector{}, false
	}
	id, ok := doc.StringProps(cfg.Object)[prop]
	if !ok {
		return model.Injector{}, false
	}
	mode := model.SingletonMode
	if parse.WrapperMode(doc, member) == model.FactoryMode {
		mode = model.FactoryMode
	}
	return model.Injector{ClassID: id, PropertyName: prop, Mode: mode}, true
}

func run(steps []func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
