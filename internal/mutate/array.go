package mutate

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/classgraph/internal/source"
)

// ArrayCall identifies a top-level `Callee(Target, [ ... ])` statement whose
// callee is imported from Module.
type ArrayCall struct {
	Callee string
	Target string
	Module string
}

// ToggleArrayElement flips element's membership in the call's array
// argument. A missing call is created with a single-element array; emptying
// the array removes the statement and the callee's import if unused.
func ToggleArrayElement(doc *source.Document, call ArrayCall, element string) error {
	return SetArrayElement(doc, call, element, !HasArrayElement(doc, call, element))
}

// HasArrayElement reports whether element is in the call's array argument.
func HasArrayElement(doc *source.Document, call ArrayCall, element string) bool {
	_, elems, ok := arrayArg(doc, call)
	if !ok {
		return false
	}
	return findElement(doc, elems, element) >= 0
}

// ArrayElements returns the texts of the call's array elements.
func ArrayElements(doc *source.Document, call ArrayCall) []string {
	_, elems, _ := arrayArg(doc, call)
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, doc.Text(e))
	}
	return out
}

// SetArrayElement adds (present) or removes element from the call's array.
func SetArrayElement(doc *source.Document, call ArrayCall, element string, present bool) error {
	tc, found := doc.FindTopLevelCall(call.Callee, call.Target)
	if !found {
		if !present {
			return nil
		}
		if err := appendStatement(doc, call.Callee+"("+call.Target+", ["+element+"]);"); err != nil {
			return err
		}
		return AddImport(doc, call.Module, call.Callee, false)
	}

	arr, elems, ok := arrayArg(doc, call)
	if !ok {
		return nil
	}
	idx := findElement(doc, elems, element)
	if present {
		if idx >= 0 {
			return nil
		}
		if len(elems) == 0 {
			return doc.Apply(source.Edit{Start: arr.StartByte(), End: arr.EndByte(), Text: "[" + element + "]"})
		}
		return doc.Apply(source.Insert(elems[len(elems)-1].EndByte(), ", "+element))
	}

	if idx < 0 {
		return nil
	}
	if len(elems) == 1 {
		if err := doc.Apply(doc.LineDeletion(tc.Stmt, source.StatementBlanks)); err != nil {
			return err
		}
		return RemoveImportIfUnused(doc, call.Module, call.Callee)
	}
	if idx > 0 {
		return doc.Apply(source.Delete(elems[idx-1].EndByte(), elems[idx].EndByte()))
	}
	return doc.Apply(source.Delete(elems[0].StartByte(), elems[1].StartByte()))
}

func arrayArg(doc *source.Document, call ArrayCall) (*sitter.Node, []*sitter.Node, bool) {
	tc, ok := doc.FindTopLevelCall(call.Callee, call.Target)
	if !ok {
		return nil, nil, false
	}
	for _, a := range tc.Args[1:] {
		if a.Type() == "array" {
			return a, source.NamedChildren(a), true
		}
	}
	return nil, nil, false
}

func findElement(doc *source.Document, elems []*sitter.Node, element string) int {
	for i, e := range elems {
		if doc.Text(e) == element {
			return i
		}
	}
	return -1
}
