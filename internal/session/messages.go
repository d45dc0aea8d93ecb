package session

import "github.com/phobologic/classgraph/internal/model"

// Inbound intent types.
const (
	IntentInit             = "init"
	IntentClassNew         = "class-new"
	IntentClassUpdate      = "class-update"
	IntentInject           = "inject"
	IntentInjectReplace    = "inject-replace"
	IntentClassOpen        = "class-open"
	IntentToggleMixin      = "toggle-mixin"
	IntentClassDelete      = "class-delete"
	IntentClassRename      = "class-rename"
	IntentToggleObservable = "toggle-observable"
	IntentToggleComputed   = "toggle-computed"
	IntentToggleAction     = "toggle-action"
)

// Outbound notification types.
const (
	NotifyInit        = "init"
	NotifyClasses     = "classes"
	NotifyClassUpdate = "class-update"
	NotifyClassDelete = "class-delete"
	NotifyError       = "error"
)

// StatusReady is the init status once the class set has been scanned.
const StatusReady = "ready"

// Intent is an edit request from the editor. Only the fields of its Type
// are read.
type Intent struct {
	Type string `json:"type"`
	// ID correlates the intent with the notifications it causes. One is
	// assigned when empty.
	ID string `json:"id,omitempty"`

	ClassID string        `json:"classId,omitempty"`
	Mixins  []model.Mixin `json:"mixins,omitempty"`
	X       float64       `json:"x,omitempty"`
	Y       float64       `json:"y,omitempty"`

	// inject
	FromClassID string `json:"fromClassId,omitempty"`
	ToClassID   string `json:"toClassId,omitempty"`
	AsFactory   bool   `json:"asFactory,omitempty"`

	// inject-replace
	InjectClassID string             `json:"injectClassId,omitempty"`
	PropertyName  string             `json:"propertyName,omitempty"`
	InjectorType  model.InjectorMode `json:"injectorType,omitempty"`

	// toggle-mixin
	Mixin model.Mixin `json:"mixin,omitempty"`

	// toggle-observable, toggle-computed, toggle-action
	Name     string `json:"name,omitempty"`
	IsActive bool   `json:"isActive,omitempty"`
}

// Notification is a change or status message for the editor.
type Notification struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	Status  string                     `json:"status,omitempty"`
	Classes map[string]model.ClassNode `json:"classes,omitempty"`
	Class   *model.ClassNode           `json:"class,omitempty"`
	ClassID string                     `json:"classId,omitempty"`

	// error
	Intent  string `json:"intent,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}
