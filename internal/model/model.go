// Package model defines core data structures for classgraph.
package model

import "slices"

// Mixin is a capability tag from the closed set the runtime knows how to
// compose into a class.
type Mixin string

const (
	ObservableState Mixin = "ObservableState"
	Factory         Mixin = "Factory"
	StateMachine    Mixin = "StateMachine"
	EventEmitter    Mixin = "EventEmitter"
	View            Mixin = "View"
)

// Mixins lists every known tag in canonical order.
var Mixins = []Mixin{ObservableState, Factory, StateMachine, EventEmitter, View}

// ParseMixin reports whether name is a known mixin tag.
func ParseMixin(name string) (Mixin, bool) {
	for _, m := range Mixins {
		if string(m) == name {
			return m, true
		}
	}
	return "", false
}

// InjectorMode says how a dependency is provided to the injecting class.
type InjectorMode string

const (
	SingletonMode InjectorMode = "singleton"
	FactoryMode   InjectorMode = "factory"
)

// Role classifies a class member against the make-observable configuration.
type Role string

const (
	Plain      Role = "plain"
	Observable Role = "observable"
	Computed   Role = "computed"
	Action     Role = "action"
	Getter     Role = "getter"
)

// ParseRole maps a make-observable configuration value to a Role.
// Only observable, computed and action are valid configuration values.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case Observable, Computed, Action:
		return Role(s), true
	}
	return "", false
}

// Injector is a dependency edge declared by an injected property.
type Injector struct {
	ClassID      string       `json:"classId"`
	PropertyName string       `json:"propertyName"`
	Mode         InjectorMode `json:"mode"`
}

// Member is a property, accessor or method of a class.
type Member struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// ClassRecord is the structural extraction of one class source file.
type ClassRecord struct {
	ID         string     `json:"classId"`
	Mixins     []Mixin    `json:"mixins"`
	Injectors  []Injector `json:"injectors"`
	Properties []Member   `json:"properties"`
	Methods    []Member   `json:"methods"`
}

// HasMixin reports whether m is among the record's mixins.
func (r *ClassRecord) HasMixin(m Mixin) bool {
	return slices.Contains(r.Mixins, m)
}

// Equal compares two records by value.
func (r *ClassRecord) Equal(o *ClassRecord) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.ID == o.ID &&
		slices.Equal(r.Mixins, o.Mixins) &&
		slices.Equal(r.Injectors, o.Injectors) &&
		slices.Equal(r.Properties, o.Properties) &&
		slices.Equal(r.Methods, o.Methods)
}

// Clone returns a deep copy of the record.
func (r *ClassRecord) Clone() *ClassRecord {
	if r == nil {
		return nil
	}
	return &ClassRecord{
		ID:         r.ID,
		Mixins:     slices.Clone(r.Mixins),
		Injectors:  slices.Clone(r.Injectors),
		Properties: slices.Clone(r.Properties),
		Methods:    slices.Clone(r.Methods),
	}
}

// Position is a class node's canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClassNode is a record enriched with presentation data, as sent to the
// editor and rendered by the map command.
type ClassNode struct {
	ClassRecord
	Position *Position `json:"position,omitempty"`
	Rank     float64   `json:"-"`
}

// Dependency is an edge in the injection graph: Source injects Target
// through the listed properties.
type Dependency struct {
	Source     string
	Target     string
	Properties []string
}

// ClassMap is the analyzed class-source directory, ready for serialization.
type ClassMap struct {
	Name         string
	Root         string
	Classes      []ClassNode
	Dependencies []Dependency
}

// EntryFileState describes the bootstrap file: its named imports per module
// specifier and the keys registered with the container.
type EntryFileState struct {
	Imports map[string][]string
	Classes []string
}
