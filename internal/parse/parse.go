// Package parse extracts class records from class source files using tree-sitter.
//
// Extraction is a pure function of the file text. Shapes the analyzer does
// not recognise degrade to empty slices; only unparsable text and a missing
// class declaration are errors.
package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/framework"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/source"
)

// ExtractClass parses src and returns the record of the class named classID.
func ExtractClass(l *lang.Language, src []byte, classID string) (*model.ClassRecord, error) {
	doc, err := source.Parse(l, src)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return Extract(doc, classID)
}

// Extract returns the record of the class named classID in an already
// parsed document.
func Extract(doc *source.Document, classID string) (*model.ClassRecord, error) {
	c, ok := doc.FindClass(classID)
	if !ok {
		return nil, errors.Wrapf(errors.ErrClassNotFound, "class %q", classID)
	}

	rec := &model.ClassRecord{
		ID:         classID,
		Mixins:     extractMixins(doc, classID),
		Injectors:  extractInjectors(doc, c),
		Properties: []model.Member{},
		Methods:    []model.Member{},
	}

	injected := make(map[string]bool, len(rec.Injectors))
	for _, inj := range rec.Injectors {
		injected[inj.PropertyName] = true
	}
	roles := observableRoles(doc, c)

	seen := make(map[string]bool)
	for _, m := range c.Members() {
		name := doc.MemberName(m)
		if name == "" || name == "constructor" || seen[name] || injected[name] || source.IsStatic(m) {
			continue
		}
		switch m.Type() {
		case "method_definition":
			seen[name] = true
			role, configured := roles[name]
			if isAccessor(m) {
				if !configured {
					role = model.Getter
				}
				rec.Properties = append(rec.Properties, model.Member{Name: name, Role: role})
				continue
			}
			if !configured {
				role = model.Plain
			}
			rec.Methods = append(rec.Methods, model.Member{Name: name, Role: role})
		case "public_field_definition":
			seen[name] = true
			role, configured := roles[name]
			if !configured {
				role = model.Plain
			}
			member := model.Member{Name: name, Role: role}
			if isFunctionValue(m) {
				rec.Methods = append(rec.Methods, member)
			} else {
				rec.Properties = append(rec.Properties, member)
			}
		}
	}

	if rec.HasMixin(model.StateMachine) {
		synthesizeState(rec)
	}
	return rec, nil
}

// synthesizeState marks the runtime-provided state property observable.
func synthesizeState(rec *model.ClassRecord) {
	for i, p := range rec.Properties {
		if p.Name == framework.StateMember {
			rec.Properties[i].Role = model.Observable
			return
		}
	}
	rec.Properties = append([]model.Member{{Name: framework.StateMember, Role: model.Observable}}, rec.Properties...)
}

func extractMixins(doc *source.Document, classID string) []model.Mixin {
	mixins := []model.Mixin{}
	for _, name := range Heritage(doc, classID) {
		m, ok := model.ParseMixin(name)
		if !ok {
			continue
		}
		dup := false
		for _, have := range mixins {
			dup = dup || have == m
		}
		if !dup {
			mixins = append(mixins, m)
		}
	}
	return mixins
}

func extractInjectors(doc *source.Document, c *source.Class) []model.Injector {
	injectors := []model.Injector{}
	var features map[string]string
	if cfg, ok := doc.ConstructorCall(c, framework.InjectFeatures); ok {
		features = doc.StringProps(cfg.Object)
	}
	for _, m := range c.Members() {
		if m.Type() != "public_field_definition" || source.IsStatic(m) {
			continue
		}
		name := doc.MemberName(m)
		if id, fn, ok := InitializerCall(doc, m); ok {
			mode := model.SingletonMode
			if fn == framework.InjectFactory {
				mode = model.FactoryMode
			}
			injectors = append(injectors, model.Injector{ClassID: id, PropertyName: name, Mode: mode})
			continue
		}
		mode := WrapperMode(doc, m)
		if mode == "" {
			continue
		}
		if id, ok := features[name]; ok {
			injectors = append(injectors, model.Injector{ClassID: id, PropertyName: name, Mode: mode})
		}
	}
	return injectors
}

// observableRoles reads the makeObservable configuration of c.
func observableRoles(doc *source.Document, c *source.Class) map[string]model.Role {
	roles := make(map[string]model.Role)
	cfg, ok := doc.ConstructorCall(c, framework.MakeObservable)
	if !ok {
		return roles
	}
	for key, value := range doc.StringProps(cfg.Object) {
		if role, ok := model.ParseRole(value); ok {
			roles[key] = role
		}
	}
	return roles
}

func isAccessor(method *sitter.Node) bool {
	return source.HasChild(method, "get") || source.HasChild(method, "set")
}

func isFunctionValue(field *sitter.Node) bool {
	value := field.ChildByFieldName("value")
	if value == nil {
		return false
	}
	switch value.Type() {
	case "arrow_function", "function_expression", "function":
		return true
	}
	return false
}

// InitializerCall reports the dependency id and marker function of a
// member initialised with `inject("Dep")` or `injectFactory("Dep")`.
func InitializerCall(doc *source.Document, member *sitter.Node) (string, string, bool) {
	value := member.ChildByFieldName("value")
	if value == nil || value.Type() != "call_expression" {
		return "", "", false
	}
	fn := value.ChildByFieldName("function")
	if fn == nil {
		return "", "", false
	}
	name := doc.Text(fn)
	if name != framework.Inject && name != framework.InjectFactory {
		return "", "", false
	}
	args := source.NamedChildren(value.ChildByFieldName("arguments"))
	if len(args) == 0 {
		return "", "", false
	}
	id, ok := lang.StringValue(args[0], doc.Source())
	return id, name, ok
}

// WrapperMode returns the injector mode implied by a member's type
// annotation, or "" when the member is not typed with an injection wrapper.
func WrapperMode(doc *source.Document, member *sitter.Node) model.InjectorMode {
	ann := member.ChildByFieldName("type")
	if ann == nil {
		return ""
	}
	for _, t := range source.NamedChildren(ann) {
		if t.Type() != "generic_type" {
			continue
		}
		name := t.ChildByFieldName("name")
		if name == nil {
			continue
		}
		switch doc.Text(name) {
		case framework.InjectType:
			return model.SingletonMode
		case framework.InjectFactoryType:
			return model.FactoryMode
		}
	}
	return ""
}

// Heritage returns the base names of the types interface iface extends,
// in source order.
func Heritage(doc *source.Document, iface string) []string {
	decl, ok := doc.Find(source.InterfaceDecl, iface)
	if !ok {
		return nil
	}
	entries := HeritageEntries(decl.Node)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, HeritageBaseName(doc, e))
	}
	return names
}

// HeritageEntries returns the type nodes of an interface declaration's
// extends clause.
func HeritageEntries(decl *sitter.Node) []*sitter.Node {
	var entries []*sitter.Node
	for _, c := range source.NamedChildren(decl) {
		if c.Type() != "extends_type_clause" && c.Type() != "extends_clause" {
			continue
		}
		entries = append(entries, source.NamedChildren(c)...)
	}
	return entries
}

// HeritageBaseName returns the type name of a heritage entry without type arguments.
func HeritageBaseName(doc *source.Document, entry *sitter.Node) string {
	if entry.Type() == "generic_type" {
		if name := entry.ChildByFieldName("name"); name != nil {
			return doc.Text(name)
		}
	}
	return BaseName(doc.Text(entry))
}

// BaseName strips type arguments from a type expression.
func BaseName(typeExpr string) string {
	if i := strings.IndexByte(typeExpr, '<'); i >= 0 {
		typeExpr = typeExpr[:i]
	}
	return strings.TrimSpace(typeExpr)
}
