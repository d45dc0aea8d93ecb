package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMixin(t *testing.T) {
	t.Parallel()
	m, ok := ParseMixin("StateMachine")
	assert.True(t, ok)
	assert.Equal(t, StateMachine, m)

	_, ok = ParseMixin("Disposable")
	assert.False(t, ok)
}

func TestParseRole(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"observable", "computed", "action"} {
		r, ok := ParseRole(s)
		assert.True(t, ok, s)
		assert.Equal(t, Role(s), r)
	}
	for _, s := range []string{"plain", "getter", ""} {
		_, ok := ParseRole(s)
		assert.False(t, ok, s)
	}
}

func TestClassRecordEqual(t *testing.T) {
	t.Parallel()
	a := &ClassRecord{
		ID:        "Foo",
		Mixins:    []Mixin{Factory},
		Injectors: []Injector{{ClassID: "Bar", PropertyName: "bar", Mode: SingletonMode}},
	}
	b := a.Clone()
	assert.True(t, a.Equal(b))
	assert.NotSame(t, a, b)

	b.Injectors[0].Mode = FactoryMode
	assert.False(t, a.Equal(b))
	assert.Equal(t, SingletonMode, a.Injectors[0].Mode, "clone must not alias")

	var nilRec *ClassRecord
	assert.True(t, nilRec.Equal(nil))
	assert.False(t, nilRec.Equal(a))
	assert.True(t, a.HasMixin(Factory))
	assert.False(t, a.HasMixin(View))
}
