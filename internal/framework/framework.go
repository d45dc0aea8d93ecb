// Package framework names the runtime conventions class files follow: the
// helpers and wrapper types the runtime exports and the scaffold names of
// state machine classes.
package framework

// DefaultModule is the module specifier the runtime is imported from.
const DefaultModule = "reactive-app"

// Runtime helpers called from class files.
const (
	Mix            = "mix"
	InjectFeatures = "injectFeatures"
	MakeObservable = "makeObservable"
	Inject         = "inject"
	InjectFactory  = "injectFactory"
	Container      = "Container"
)

// Wrapper types of injected properties.
const (
	InjectType        = "Inject"
	InjectFactoryType = "InjectFactory"
)

// State machine scaffold names.
const (
	ContextType   = "Context"
	MessageType   = "Message"
	ContextMember = "context"
	OnMessage     = "onMessage"
	StateMember   = "state"
)

// EntryBase is the basename (without extension) of the bootstrap file.
const EntryBase = "index"
