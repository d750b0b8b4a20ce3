package action

import (
	"image"

	"github.com/panelkit/paneld/pkg/model"
)

// Params is an instance-local parameter mapping. Values are the JSON
// scalar/collection types (string, float64, bool, []any, map[string]any).
type Params map[string]any

// Clone returns a shallow copy of the parameter map.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Instance is one bound occurrence of an action on a button. Instances own
// their runtime state; paneld never inspects it, only drives the hooks.
//
// Render and HandleEvent are called from different goroutines (the render
// worker pool and a device's command queue respectively); implementations
// must be safe for that.
type Instance interface {
	// Kind returns the registered action-kind name this instance was
	// created from.
	Kind() string

	// Params returns the parameters the instance was constructed with.
	// The result is treated as immutable and feeds the render cache hash.
	Params() Params

	// Render draws the instance's visual contribution at the given size.
	// Returning a nil image means the instance contributes nothing; the
	// compositor skips it.
	Render(size image.Point) (image.Image, error)

	// HandleEvent reacts to a trigger event and may request state effects.
	// Effects are applied by the runtime after the button's whole binding
	// chain has executed.
	HandleEvent(trigger model.Trigger) ([]Effect, error)

	// OnBind is invoked once after the instance is attached to a button.
	OnBind() error

	// OnUnbind is invoked once when the instance is removed; it is the
	// plugin's teardown hook.
	OnUnbind()
}

// Folder is the optional capability a folder-like action exposes. Enter
// navigation succeeds only when a button's top binding implements it.
type Folder interface {
	// FolderTarget returns the handle of the profile node this folder
	// opens, within the owning device's tree.
	FolderTarget() model.NodeID
}

// Factory constructs instances of one action kind.
type Factory interface {
	// Kind returns the action-kind name the factory registers under.
	Kind() string

	// New constructs an instance from parameters. Errors are wrapped in
	// a ConstructionError by the registry.
	New(params Params) (Instance, error)
}

// FactoryFunc adapts a construction function to the Factory interface.
type FactoryFunc struct {
	Name string
	Fn   func(params Params) (Instance, error)
}

// Kind returns the registered kind name.
func (f FactoryFunc) Kind() string { return f.Name }

// New constructs an instance.
func (f FactoryFunc) New(params Params) (Instance, error) { return f.Fn(params) }
