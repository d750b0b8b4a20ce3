package action

import (
	"errors"
	"fmt"
	"sort"
)

// Registry errors.
var (
	// ErrDuplicateKind indicates a factory is already registered for the kind.
	ErrDuplicateKind = errors.New("action kind already registered")

	// ErrUnknownKind indicates no factory is registered for the kind.
	ErrUnknownKind = errors.New("unknown action kind")
)

// ConstructionError wraps a failure from a plugin factory.
type ConstructionError struct {
	Kind string
	Err  error
}

// Error returns the error message.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("constructing action %q: %v", e.Kind, e.Err)
}

// Unwrap returns the plugin's underlying error.
func (e *ConstructionError) Unwrap() error { return e.Err }

// Registry maps action-kind names to factories.
//
// Registration happens during daemon startup, strictly before the first
// Instantiate call; after that the registry is read-only and safe for
// concurrent lookups without locking.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under its kind name.
// Returns ErrDuplicateKind if the kind is already present.
func (r *Registry) Register(factory Factory) error {
	kind := factory.Kind()
	if kind == "" {
		return fmt.Errorf("factory has empty kind name")
	}
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKind, kind)
	}
	r.factories[kind] = factory
	return nil
}

// Instantiate constructs an instance of the named kind.
// Returns ErrUnknownKind if the kind is unregistered; factory failures are
// wrapped in a *ConstructionError.
func (r *Registry) Instantiate(kind string, params Params) (Instance, error) {
	factory, exists := r.factories[kind]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	inst, err := factory.New(params)
	if err != nil {
		return nil, &ConstructionError{Kind: kind, Err: err}
	}
	return inst, nil
}

// Has reports whether a factory is registered for the kind.
func (r *Registry) Has(kind string) bool {
	_, exists := r.factories[kind]
	return exists
}

// Kinds returns the registered kind names in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
