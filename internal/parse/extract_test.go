package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/mutate"
	"github.com/phobologic/classgraph/internal/parse"
	"github.com/phobologic/classgraph/internal/source"
)

// edit applies fn to src and returns the serialized result.
func edit(t *testing.T, src []byte, fn func(*source.Document) error) []byte {
	t.Helper()
	doc, err := source.Parse(lang.Languages["typescript"], src)
	require.NoError(t, err)
	defer doc.Close()
	require.NoError(t, fn(doc))
	out, err := doc.Bytes()
	require.NoError(t, err)
	return out
}

func TestExtractAfterInject(t *testing.T) {
	t.Parallel()
	e := mutate.New("")
	out := edit(t, mutate.NewClassSource("A"), func(doc *source.Document) error {
		return e.Inject(doc, "A", "B", model.SingletonMode)
	})

	rec, err := parse.ExtractClass(lang.Languages["typescript"], out, "A")
	require.NoError(t, err)
	assert.Equal(t, []model.Injector{{ClassID: "B", PropertyName: "b", Mode: model.SingletonMode}}, rec.Injectors)
	assert.Empty(t, rec.Properties)
}

func TestExtractAfterMixinAndRoles(t *testing.T) {
	t.Parallel()
	e := mutate.New("")
	out := edit(t, []byte("export class Foo {\n  static id = \"Foo\";\n  count = 0;\n\n  bump() {\n    this.count++;\n  }\n}\n"), func(doc *source.Document) error {
		if err := e.ToggleMixin(doc, "Foo", model.ObservableState); err != nil {
			return err
		}
		if err := e.ToggleObservableRole(doc, "Foo", "count", model.Observable); err != nil {
			return err
		}
		return e.ToggleObservableRole(doc, "Foo", "bump", model.Action)
	})

	rec, err := parse.ExtractClass(lang.Languages["typescript"], out, "Foo")
	require.NoError(t, err)
	assert.Equal(t, []model.Mixin{model.ObservableState}, rec.Mixins)
	assert.Equal(t, []model.Member{{Name: "count", Role: model.Observable}}, rec.Properties)
	assert.Equal(t, []model.Member{{Name: "bump", Role: model.Action}}, rec.Methods)
}

func TestExtractAfterStateMachineScaffold(t *testing.T) {
	t.Parallel()
	e := mutate.New("")
	out := edit(t, mutate.NewClassSource("Foo"), func(doc *source.Document) error {
		return e.ToggleMixin(doc, "Foo", model.StateMachine)
	})

	rec, err := parse.ExtractClass(lang.Languages["typescript"], out, "Foo")
	require.NoError(t, err)
	assert.Equal(t, []model.Mixin{model.StateMachine}, rec.Mixins)
	assert.Equal(t, []model.Member{
		{Name: "state", Role: model.Observable},
		{Name: "context", Role: model.Observable},
	}, rec.Properties)
	assert.Equal(t, []model.Member{{Name: "onMessage", Role: model.Plain}}, rec.Methods)
}
