package mutate

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/framework"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/source"
)

// State machine scaffold templates.
const (
	contextAlias   = `type Context = { state: "IDLE" };`
	messageAlias   = `type Message = { type: "NOOP" };`
	contextProp    = `context: Context = { state: "IDLE" };`
	onMessageBlock = `onMessage(message: Message): Context | void {
  switch (message.type) {
    case "NOOP":
      return this.context;
  }
}`
)

// heritageExpr is how mixin appears in an interface heritage clause.
func heritageExpr(m model.Mixin) string {
	if m == model.StateMachine {
		return string(m) + "<" + framework.ContextType + ", " + framework.MessageType + ">"
	}
	return string(m)
}

func (e *Editor) mixCall(className string) ArrayCall {
	return ArrayCall{Callee: framework.Mix, Target: className, Module: e.Module}
}

// HasMixin reports whether mixin is declared for className in either the
// interface heritage clause or the mix(...) registration.
func (e *Editor) HasMixin(doc *source.Document, className string, mixin model.Mixin) bool {
	return HasHeritage(doc, className, string(mixin)) ||
		HasArrayElement(doc, e.mixCall(className), string(mixin))
}

// ToggleMixin adds or removes mixin on className. The heritage clause, the
// mix(...) array and the tag's import always move together, so a class
// whose two declarations disagree ends up with neither on toggle. The
// state machine tag carries its scaffold with it.
func (e *Editor) ToggleMixin(doc *source.Document, className string, mixin model.Mixin) error {
	if _, ok := model.ParseMixin(string(mixin)); !ok {
		return errors.Wrapf(errors.ErrInvalidRequest, "unknown mixin %q", mixin)
	}
	if mixin == model.StateMachine {
		return e.ToggleStateMachineScaffold(doc, className)
	}
	if _, err := requireClass(doc, className); err != nil {
		return err
	}
	return e.setMixin(doc, className, mixin, !e.HasMixin(doc, className, mixin))
}

// SetMixin is the non-toggling form of ToggleMixin.
func (e *Editor) SetMixin(doc *source.Document, className string, mixin model.Mixin, present bool) error {
	if e.HasMixin(doc, className, mixin) == present {
		return nil
	}
	return e.ToggleMixin(doc, className, mixin)
}

func (e *Editor) setMixin(doc *source.Document, className string, mixin model.Mixin, present bool) error {
	tag := string(mixin)
	if present {
		return run([]func() error{
			func() error { return SetHeritage(doc, className, heritageExpr(mixin), true) },
			func() error { return SetArrayElement(doc, e.mixCall(className), tag, true) },
			func() error { return AddImport(doc, e.Module, tag, false) },
		})
	}
	return run([]func() error{
		func() error { return SetArrayElement(doc, e.mixCall(className), tag, false) },
		func() error { return SetHeritage(doc, className, tag, false) },
		func() error { return RemoveImportIfUnused(doc, e.Module, tag) },
	})
}

// HasStateMachineScaffold reports whether className declares the state
// machine mixin, in its heritage clause or its mix(...) registration.
// Aliases or members that merely share the scaffold's names do not count.
func (e *Editor) HasStateMachineScaffold(doc *source.Document, className string) bool {
	return e.HasMixin(doc, className, model.StateMachine)
}

// ToggleStateMachineScaffold adds or removes, as one unit, the state
// machine mixin together with its Context/Message type aliases, the
// context property, the onMessage handler and context's observable entry.
// Only code that still matches the generated text is removed. Adding fails
// with ErrInvalidRequest, before any edit, when user code already claims
// one of the scaffold's names.
func (e *Editor) ToggleStateMachineScaffold(doc *source.Document, className string) error {
	if _, err := requireClass(doc, className); err != nil {
		return err
	}
	if e.HasStateMachineScaffold(doc, className) {
		return e.removeStateMachine(doc, className)
	}
	return e.addStateMachine(doc, className)
}

// sameCode compares source fragments ignoring layout and a trailing semicolon.
func sameCode(a, b string) bool {
	norm := func(s string) string {
		return strings.TrimSuffix(lang.CollapseWhitespace(s), ";")
	}
	return norm(a) == norm(b)
}

// scaffoldPiece is one named part of the generated state machine code.
type scaffoldPiece struct {
	name     string
	template string
	member   bool
}

var scaffoldPieces = []scaffoldPiece{
	{name: framework.ContextType, template: contextAlias},
	{name: framework.MessageType, template: messageAlias},
	{name: framework.ContextMember, template: contextProp, member: true},
	{name: framework.OnMessage, template: onMessageBlock, member: true},
}

// find returns the node currently holding p's name, if any. A top-level
// type name may be taken by an alias, an interface or a class.
func (p scaffoldPiece) find(doc *source.Document, className string) (*sitter.Node, bool) {
	if p.member {
		c, ok := doc.FindClass(className)
		if !ok {
			return nil, false
		}
		m := doc.FindMember(c, p.name)
		return m, m != nil
	}
	if decl, ok := doc.Find(source.TypeDecl, p.name); ok {
		return decl.Node, true
	}
	if decl, ok := doc.Find(source.InterfaceDecl, p.name); ok {
		return decl.Node, true
	}
	if decl, ok := doc.Find(source.ClassDecl, p.name); ok {
		return decl.Node, true
	}
	return nil, false
}

// generated reports whether p is present with exactly its generated text.
func (p scaffoldPiece) generated(doc *source.Document, className string) bool {
	n, ok := p.find(doc, className)
	return ok && sameCode(doc.Text(n), p.template)
}

func (e *Editor) addStateMachine(doc *source.Document, className string) error {
	reuse := make(map[string]bool, len(scaffoldPieces))
	for _, p := range scaffoldPieces {
		n, ok := p.find(doc, className)
		if !ok {
			continue
		}
		if !sameCode(doc.Text(n), p.template) {
			return errors.Wrapf(errors.ErrInvalidRequest,
				"class %q: %q is already declared and is not state machine scaffolding", className, p.name)
		}
		reuse[p.name] = true
	}

	var aliases []string
	if !reuse[framework.ContextType] {
		aliases = append(aliases, contextAlias)
	}
	if !reuse[framework.MessageType] {
		aliases = append(aliases, messageAlias)
	}
	steps := []func() error{
		func() error { return e.setMixin(doc, className, model.StateMachine, true) },
	}
	if len(aliases) > 0 {
		steps = append(steps, func() error {
			iface, ok := doc.Find(source.InterfaceDecl, className)
			if !ok {
				return errors.AssertionFailedf("interface %q missing after heritage edit", className)
			}
			return insertStatementBefore(doc, iface.Stmt, strings.Join(aliases, "\n\n"))
		})
	}
	if !reuse[framework.ContextMember] {
		steps = append(steps, func() error {
			c, err := requireClass(doc, className)
			if err != nil {
				return err
			}
			return appendMember(doc, c, contextProp)
		})
	}
	if !reuse[framework.OnMessage] {
		steps = append(steps, func() error {
			c, err := requireClass(doc, className)
			if err != nil {
				return err
			}
			return appendMember(doc, c, unitIndent(onMessageBlock, doc.IndentUnit()))
		})
	}
	steps = append(steps, func() error {
		return e.ToggleObservableRole(doc, className, framework.ContextMember, model.Observable)
	})
	return run(steps)
}

func (e *Editor) removeStateMachine(doc *source.Document, className string) error {
	removeGeneratedMember := func(p scaffoldPiece) func() error {
		return func() error {
			if !p.generated(doc, className) {
				return nil
			}
			m, _ := p.find(doc, className)
			return removeMember(doc, m)
		}
	}
	// An alias goes only while it is generated and nothing kept still
	// refers to it.
	removeGeneratedAlias := func(p scaffoldPiece) func() error {
		return func() error {
			decl, ok := doc.Find(source.TypeDecl, p.name)
			if !ok || !sameCode(doc.Text(decl.Node), p.template) {
				return nil
			}
			if typeUsedOutside(doc, p.name, decl.Stmt) {
				return nil
			}
			return doc.Apply(doc.LineDeletion(decl.Stmt, source.StatementBlanks))
		}
	}

	ctxPiece, msgPiece := scaffoldPieces[0], scaffoldPieces[1]
	propPiece, handlerPiece := scaffoldPieces[2], scaffoldPieces[3]
	steps := []func() error{}
	if propPiece.generated(doc, className) {
		steps = append(steps, func() error {
			return e.ToggleObservableRole(doc, className, framework.ContextMember, "")
		})
	}
	steps = append(steps,
		removeGeneratedMember(handlerPiece),
		removeGeneratedMember(propPiece),
		func() error { return e.setMixin(doc, className, model.StateMachine, false) },
		removeGeneratedAlias(ctxPiece),
		removeGeneratedAlias(msgPiece),
	)
	return run(steps)
}

// typeUsedOutside reports whether name is referenced anywhere except inside
// skip and import statements.
func typeUsedOutside(doc *source.Document, name string, skip *sitter.Node) bool {
	used := false
	source.Walk(doc.Root(), func(n *sitter.Node) bool {
		if used || n.Type() == "import_statement" {
			return false
		}
		if n.StartByte() == skip.StartByte() && n.EndByte() == skip.EndByte() {
			return false
		}
		switch n.Type() {
		case "identifier", "type_identifier":
			if doc.Text(n) == name {
				used = true
			}
		}
		return true
	})
	return used
}
