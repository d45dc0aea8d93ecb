package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/lang"
)

const sample = `import { makeObservable } from "reactive-app";
import type { Bar } from "./Bar";

// Foo counts things.
export class Foo {
  static id = "Foo";
  readonly bar: Inject<Bar>;
  count = 0;

  constructor() {
    makeObservable(this, {
      count: "observable",
      "quoted": "action",
    });
  }
}

type Context = { state: "IDLE" };

mix(Foo, [ObservableState, View]);
`

func parse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(lang.Languages["typescript"], []byte(src))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

func TestParseRejectsSyntaxErrors(t *testing.T) {
	t.Parallel()
	_, err := Parse(lang.Languages["typescript"], []byte("export class Foo {\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrParse))
}

func TestParseEmptySource(t *testing.T) {
	t.Parallel()
	doc := parse(t, "")
	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestApplyKeepsUntouchedBytes(t *testing.T) {
	t.Parallel()
	doc := parse(t, sample)
	c, ok := doc.FindClass("Foo")
	require.True(t, ok)
	m := doc.FindMember(c, "count")
	require.NotNil(t, m)

	value := m.ChildByFieldName("value")
	require.NotNil(t, value)
	require.NoError(t, doc.Apply(Edit{Start: value.StartByte(), End: value.EndByte(), Text: "42"}))

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "  count = 42;\n")
	assert.Contains(t, string(out), "// Foo counts things.\n")
	assert.Equal(t, len(sample)+1, len(out))
}

func TestApplySameOffsetKeepsOrder(t *testing.T) {
	t.Parallel()
	doc := parse(t, "let a = 1;\n")
	require.NoError(t, doc.Apply(Insert(0, "let b = 2;\n"), Insert(0, "let c = 3;\n")))
	assert.Equal(t, "let b = 2;\nlet c = 3;\nlet a = 1;\n", string(doc.Source()))
}

func TestApplyRejectsBadEdits(t *testing.T) {
	t.Parallel()
	doc := parse(t, "let a = 1;\n")

	err := doc.Apply(Delete(4, 100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSerialization))

	err = doc.Apply(Delete(0, 5), Delete(3, 6))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSerialization))
	assert.Equal(t, "let a = 1;\n", string(doc.Source()))
}

func TestBytesFailsOnBrokenEdit(t *testing.T) {
	t.Parallel()
	doc := parse(t, "export class Foo {}\n")
	require.NoError(t, doc.Apply(Insert(0, "class {")))

	_, err := doc.Bytes()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSerialization))
}

func TestIndentUnit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"two spaces", "class A {\n  a = 1;\n}\n", "  "},
		{"four spaces", "class A {\n    a = 1;\n}\n", "    "},
		{"tabs", "class A {\n\ta = 1;\n}\n", "\t"},
		{"flat", "let a = 1;\n", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parse(t, tt.src).IndentUnit())
		})
	}
}

func TestLineDeletionRules(t *testing.T) {
	t.Parallel()
	src := "let a = 1;\n\nlet b = 2;\n\nlet c = 3;\n"
	tests := []struct {
		name string
		stmt int
		rule BlankRule
		want string
	}{
		{"keep", 1, KeepBlanks, "let a = 1;\n\n\nlet c = 3;\n"},
		{"statement takes following blank", 1, StatementBlanks, "let a = 1;\n\nlet c = 3;\n"},
		{"statement at end takes preceding blank", 2, StatementBlanks, "let a = 1;\n\nlet b = 2;\n"},
		{"member before blank takes preceding blank", 1, MemberBlanks, "let a = 1;\n\nlet c = 3;\n"},
		{"first statement has no preceding blank", 0, MemberBlanks, "\nlet b = 2;\n\nlet c = 3;\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := parse(t, src)
			stmt := doc.Statements()[tt.stmt]
			require.NoError(t, doc.Apply(doc.LineDeletion(stmt, tt.rule)))
			assert.Equal(t, tt.want, string(doc.Source()))
		})
	}
}

func TestDecls(t *testing.T) {
	t.Parallel()
	doc := parse(t, sample)

	classes := doc.Decls(ClassDecl)
	require.Len(t, classes, 1)
	assert.Equal(t, "Foo", classes[0].Name)
	assert.Equal(t, "export_statement", classes[0].Stmt.Type())

	types := doc.Decls(TypeDecl)
	require.Len(t, types, 1)
	assert.Equal(t, "Context", types[0].Name)

	imports := doc.Decls(ImportDecl)
	require.Len(t, imports, 2)
	assert.Equal(t, "reactive-app", imports[0].Name)
	assert.Equal(t, "./Bar", imports[1].Name)

	_, ok := doc.Find(InterfaceDecl, "Foo")
	assert.False(t, ok)
}

func TestNestedClassesAreNotTopLevel(t *testing.T) {
	t.Parallel()
	doc := parse(t, "function f() {\n  class Inner {}\n}\n")
	_, ok := doc.FindClass("Inner")
	assert.False(t, ok)
}

func TestLeadingComments(t *testing.T) {
	t.Parallel()
	doc := parse(t, sample)
	c, ok := doc.FindClass("Foo")
	require.True(t, ok)
	first := LeadingComments(c.Stmt)
	assert.Equal(t, "// Foo counts things.", doc.Text(first))
}
