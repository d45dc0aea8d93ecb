package lang

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".ts", "typescript"},
		{".tsx", "tsx"},
		{".py", ""},
		{".js", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	t.Parallel()
	if l := ForPath("src/classes/Foo.ts"); l == nil || l.Name != "typescript" {
		t.Errorf("ForPath(Foo.ts) = %v", l)
	}
	if l := ForPath("README.md"); l != nil {
		t.Errorf("ForPath(README.md) = %v, want nil", l)
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"typescript", "tsx"} {
		l, ok := Languages[name]
		if !ok {
			t.Fatalf("%s language not registered", name)
		}
		if l.GetLanguage() == nil {
			t.Errorf("%s language is nil", name)
		}
		if l.NewParser() == nil {
			t.Errorf("%s NewParser returned nil", name)
		}
	}
}

func TestDeclQuery(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"typescript", "tsx"} {
		q, err := Languages[name].DeclQuery()
		if err != nil {
			t.Fatalf("%s DeclQuery: %v", name, err)
		}
		if q == nil {
			t.Fatalf("%s query is nil", name)
		}
	}
}

func TestDeclQueryMatches(t *testing.T) {
	t.Parallel()

	l := Languages["typescript"]
	src := []byte(`import { mix } from "reactive-app";
export interface Foo extends Factory {}
type Context = { state: "IDLE" };
export class Foo {}
`)
	tree, err := l.NewParser().ParseCtx(context.Background(), nil, src)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	q, err := l.DeclQuery()
	if err != nil {
		t.Fatal(err)
	}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	got := map[string]string{}
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var name, kind string
		for _, c := range m.Captures {
			if cn := q.CaptureNameForId(c.Index); cn == "name" {
				name = NodeText(c.Node, src)
			} else {
				kind = cn
			}
		}
		got[kind+" "+name] = kind
	}

	for _, want := range []string{
		`reference.import "reactive-app"`,
		"definition.interface Foo",
		"definition.type Context",
		"definition.class Foo",
	} {
		if _, ok := got[want]; !ok {
			t.Errorf("missing match %q in %v", want, got)
		}
	}
}

func TestStringValue(t *testing.T) {
	t.Parallel()

	l := Languages["typescript"]
	src := []byte(`const a = "Bar"; const b = 'Baz';`)
	tree, err := l.NewParser().ParseCtx(context.Background(), nil, src)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	var values []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if v, ok := StringValue(n, src); ok {
			values = append(values, v)
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())

	if len(values) != 2 || values[0] != "Bar" || values[1] != "Baz" {
		t.Errorf("values = %v, want [Bar Baz]", values)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()
	if got := CollapseWhitespace("  a \n\t b  "); got != "a b" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}
