package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/model"
)

const classA = `export class A {
  static id = "A";
}
`

func TestInjectSingleton(t *testing.T) {
	t.Parallel()
	e := New("")
	doc := parseDoc(t, classA)

	require.NoError(t, e.Inject(doc, "A", "B", model.SingletonMode))
	want := `import { Inject, injectFeatures } from "reactive-app";
import type { B } from "./B";

export class A {
  static id = "A";
  readonly b: Inject<B>;

  constructor() {
    injectFeatures(this, {
      b: "B",
    });
  }
}
`
	assert.Equal(t, want, render(t, doc))

	require.NoError(t, e.Inject(doc, "A", "B", model.SingletonMode))
	assert.Equal(t, want, render(t, doc), "inject is idempotent")

	require.NoError(t, e.Uninject(doc, "A", "B", model.SingletonMode))
	assert.Equal(t, classA, render(t, doc))

	require.NoError(t, e.Uninject(doc, "A", "B", model.SingletonMode))
	assert.Equal(t, classA, render(t, doc), "uninject is idempotent")
}

func TestInjectFactory(t *testing.T) {
	t.Parallel()
	e := New("")
	doc := parseDoc(t, classA)

	require.NoError(t, e.Inject(doc, "A", "B", model.FactoryMode))
	out := render(t, doc)
	assert.Contains(t, out, `import { InjectFactory, injectFeatures } from "reactive-app";`)
	assert.Contains(t, out, "  readonly createB: InjectFactory<B>;\n")
	assert.Contains(t, out, `      createB: "B",`)

	require.NoError(t, e.Uninject(doc, "A", "B", model.FactoryMode))
	assert.Equal(t, classA, render(t, doc))
}

func TestInjectTwoDependencies(t *testing.T) {
	t.Parallel()
	e := New("")
	doc := parseDoc(t, classA)

	require.NoError(t, e.Inject(doc, "A", "B", model.SingletonMode))
	require.NoError(t, e.Inject(doc, "A", "C", model.SingletonMode))
	want := `import { Inject, injectFeatures } from "reactive-app";
import type { B } from "./B";
import type { C } from "./C";

export class A {
  static id = "A";
  readonly c: Inject<C>;
  readonly b: Inject<B>;

  constructor() {
    injectFeatures(this, {
      b: "B",
      c: "C",
    });
  }
}
`
	assert.Equal(t, want, render(t, doc))

	require.NoError(t, e.Uninject(doc, "A", "B", model.SingletonMode))
	out := render(t, doc)
	assert.NotContains(t, out, "./B")
	assert.NotContains(t, out, "readonly b")
	assert.Contains(t, out, `import { Inject, injectFeatures } from "reactive-app";`)

	require.NoError(t, e.Uninject(doc, "A", "C", model.SingletonMode))
	assert.Equal(t, classA, render(t, doc))
}

func TestInjectIntoExistingConstructor(t *testing.T) {
	t.Parallel()
	e := New("")
	src := `import { makeObservable } from "reactive-app";

export class A {
  static id = "A";
  count = 0;

  constructor() {
    makeObservable(this, {
      count: "observable",
    });
  }
}
`
	doc := parseDoc(t, src)
	require.NoError(t, e.Inject(doc, "A", "B", model.SingletonMode))
	out := render(t, doc)
	assert.Contains(t, out, `import { makeObservable, Inject, injectFeatures } from "reactive-app";`)
	assert.Contains(t, out, "    });\n    injectFeatures(this, {\n      b: \"B\",\n    });\n  }\n")

	require.NoError(t, e.Uninject(doc, "A", "B", model.SingletonMode))
	assert.Equal(t, src, render(t, doc))
}

func TestUninjectInitializerForm(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, `import { inject } from "reactive-app";
import type { B } from "./B";

export class A {
  static id = "A";
  b = inject("B");
}
`)
	require.NoError(t, New("").Uninject(doc, "A", "B", model.SingletonMode))
	assert.Equal(t, classA, render(t, doc))
}

func TestReplaceInjection(t *testing.T) {
	t.Parallel()
	e := New("")

	doc := parseDoc(t, classA)
	require.NoError(t, e.Inject(doc, "A", "B", model.SingletonMode))
	require.NoError(t, e.ReplaceInjection(doc, "A", "b", "C", model.FactoryMode))

	fresh := parseDoc(t, classA)
	require.NoError(t, e.Inject(fresh, "A", "C", model.FactoryMode))
	assert.Equal(t, render(t, fresh), render(t, doc))

	err := e.ReplaceInjection(doc, "A", "missing", "C", model.SingletonMode)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestUninjectOtherModeIsNoop(t *testing.T) {
	t.Parallel()
	e := New("")
	doc := parseDoc(t, classA)

	require.NoError(t, e.Inject(doc, "A", "B", model.FactoryMode))
	want := render(t, doc)

	require.NoError(t, e.Uninject(doc, "A", "B", model.SingletonMode))
	assert.Equal(t, want, render(t, doc), "a factory injection survives removing the singleton one")

	require.NoError(t, e.Uninject(doc, "A", "B", model.FactoryMode))
	assert.Equal(t, classA, render(t, doc))
}

func TestReplaceInjectionTargetsProperty(t *testing.T) {
	t.Parallel()
	e := New("")
	doc := parseDoc(t, `import { Inject, injectFeatures } from "reactive-app";
import type { B } from "./B";

export class A {
  static id = "A";
  readonly b: Inject<B>;
  readonly backup: Inject<B>;

  constructor() {
    injectFeatures(this, {
      b: "B",
      backup: "B",
    });
  }
}
`)
	require.NoError(t, e.ReplaceInjection(doc, "A", "backup", "C", model.SingletonMode))
	out := render(t, doc)
	assert.Contains(t, out, "  readonly b: Inject<B>;\n")
	assert.Contains(t, out, `      b: "B",`)
	assert.NotContains(t, out, "backup")
	assert.Contains(t, out, "readonly c: Inject<C>;")
	assert.Contains(t, out, `import type { B } from "./B";`)
}
