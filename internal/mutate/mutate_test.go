package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/lang"
	"github.com/phobologic/classgraph/internal/model"
	"github.com/phobologic/classgraph/internal/source"
)

func parseDoc(t *testing.T, src string) *source.Document {
	t.Helper()
	doc, err := source.Parse(lang.Languages["typescript"], []byte(src))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

func render(t *testing.T, doc *source.Document) string {
	t.Helper()
	out, err := doc.Bytes()
	require.NoError(t, err)
	return string(out)
}

const plainClass = `export class Foo {
  static id = "Foo";
}
`

func TestPropertyName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		id   string
		mode model.InjectorMode
		want string
	}{
		{"Bar", model.SingletonMode, "bar"},
		{"HTTPClient", model.SingletonMode, "hTTPClient"},
		{"Bar", model.FactoryMode, "createBar"},
		{"", model.SingletonMode, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PropertyName(tt.id, tt.mode), "%s/%s", tt.id, tt.mode)
	}
}

func TestNewClassSource(t *testing.T) {
	t.Parallel()
	src := NewClassSource("Foo")
	assert.Equal(t, plainClass, string(src))

	doc := parseDoc(t, string(src))
	_, ok := doc.FindClass("Foo")
	assert.True(t, ok)
}

func TestClassNotFound(t *testing.T) {
	t.Parallel()
	e := New("")
	ops := map[string]func(*source.Document) error{
		"inject":     func(d *source.Document) error { return e.Inject(d, "Nope", "Bar", model.SingletonMode) },
		"uninject":   func(d *source.Document) error { return e.Uninject(d, "Nope", "Bar", model.SingletonMode) },
		"mixin":      func(d *source.Document) error { return e.ToggleMixin(d, "Nope", model.View) },
		"scaffold":   func(d *source.Document) error { return e.ToggleStateMachineScaffold(d, "Nope") },
		"observable": func(d *source.Document) error { return e.ToggleObservableRole(d, "Nope", "x", model.Observable) },
		"rename":     func(d *source.Document) error { return RenameClass(d, "Nope", "Other") },
		"replace": func(d *source.Document) error {
			return e.ReplaceInjection(d, "Nope", "bar", "Bar", model.SingletonMode)
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			doc := parseDoc(t, plainClass)
			err := op(doc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrClassNotFound), "got %v", err)
			assert.Equal(t, plainClass, render(t, doc))
		})
	}
}

func TestToggleMixinUnknownTag(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, plainClass)
	err := New("").ToggleMixin(doc, "Foo", model.Mixin("Serializable"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestToggleMixin(t *testing.T) {
	t.Parallel()
	e := New("")
	doc := parseDoc(t, plainClass)

	require.NoError(t, e.ToggleMixin(doc, "Foo", model.ObservableState))
	want := `import { mix, ObservableState } from "reactive-app";

export interface Foo extends ObservableState {}

export class Foo {
  static id = "Foo";
}

mix(Foo, [ObservableState]);
`
	assert.Equal(t, want, render(t, doc))
	assert.True(t, e.HasMixin(doc, "Foo", model.ObservableState))

	require.NoError(t, e.ToggleMixin(doc, "Foo", model.View))
	assert.Contains(t, render(t, doc), "export interface Foo extends ObservableState, View {}")
	assert.Contains(t, render(t, doc), "mix(Foo, [ObservableState, View]);")
	assert.Contains(t, render(t, doc), `import { mix, ObservableState, View } from "reactive-app";`)

	require.NoError(t, e.ToggleMixin(doc, "Foo", model.View))
	assert.Equal(t, want, render(t, doc))

	require.NoError(t, e.ToggleMixin(doc, "Foo", model.ObservableState))
	assert.Equal(t, plainClass, render(t, doc))
	assert.False(t, e.HasMixin(doc, "Foo", model.ObservableState))
}

func TestSetMixinIdempotent(t *testing.T) {
	t.Parallel()
	e := New("")
	doc := parseDoc(t, plainClass)

	require.NoError(t, e.SetMixin(doc, "Foo", model.Factory, true))
	once := render(t, doc)
	require.NoError(t, e.SetMixin(doc, "Foo", model.Factory, true))
	assert.Equal(t, once, render(t, doc))

	require.NoError(t, e.SetMixin(doc, "Foo", model.Factory, false))
	require.NoError(t, e.SetMixin(doc, "Foo", model.Factory, false))
	assert.Equal(t, plainClass, render(t, doc))
}

func TestRenameClass(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, `export interface Foo extends View {}

export class Foo {
  static id = "Foo";
  label = "Foo bar";
}

mix(Foo, [View]);
`)
	require.NoError(t, RenameClass(doc, "Foo", "Baz"))
	assert.Equal(t, `export interface Baz extends View {}

export class Baz {
  static id = "Baz";
  label = "Foo bar";
}

mix(Baz, [View]);
`, render(t, doc))

	require.NoError(t, RenameClass(doc, "Baz", "Baz"))
}

func TestCustomFrameworkModule(t *testing.T) {
	t.Parallel()
	e := New("@acme/runtime")
	doc := parseDoc(t, plainClass)
	require.NoError(t, e.ToggleMixin(doc, "Foo", model.EventEmitter))
	assert.Contains(t, render(t, doc), `import { mix, EventEmitter } from "@acme/runtime";`)
}
