// Package dispatch runs trigger events through a button's ordered binding
// chain. A handler failure is captured against its own instance and the
// chain keeps going; requested state effects are collected and handed back
// for the device to apply after the chain completes, so every handler sees
// the same device state the chain started with.
package dispatch

import (
	"fmt"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/profile"
)

// ExecutionError is a captured failure of one instance's event handler.
type ExecutionError struct {
	InstanceID string
	Kind       string
	Err        error
}

// Error returns the error message.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("action %s instance %s: %v", e.Kind, e.InstanceID, e.Err)
}

// Unwrap returns the handler's underlying error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// InstanceResult reports one instance's outcome inside a dispatch chain.
type InstanceResult struct {
	InstanceID string `json:"instanceId"`
	Kind       string `json:"kind"`

	// Err is nil on success and an *ExecutionError on failure.
	Err error `json:"-"`

	// Error is the wire form of Err.
	Error string `json:"error,omitempty"`
}

// Result aggregates a full chain execution. The chain never aborts early:
// every instance gets its turn and reports success or its captured error.
type Result struct {
	Trigger   model.Trigger    `json:"trigger"`
	Instances []InstanceResult `json:"instances"`
}

// Failures returns the number of failed instances.
func (r Result) Failures() int {
	n := 0
	for _, ir := range r.Instances {
		if ir.Err != nil {
			n++
		}
	}
	return n
}

// Run invokes each binding's event handler in binding order and collects
// requested effects in request order. Bindings without a live instance
// are skipped. A panicking handler is captured like an error.
func Run(bindings []*profile.Binding, trigger model.Trigger) (Result, []action.Effect) {
	result := Result{Trigger: trigger}
	var effects []action.Effect

	for _, binding := range bindings {
		if binding.Instance == nil {
			continue
		}
		requested, err := invoke(binding, trigger)
		ir := InstanceResult{InstanceID: binding.ID, Kind: binding.Kind}
		if err != nil {
			ir.Err = &ExecutionError{InstanceID: binding.ID, Kind: binding.Kind, Err: err}
			ir.Error = err.Error()
		} else {
			effects = append(effects, requested...)
		}
		result.Instances = append(result.Instances, ir)
	}
	return result, effects
}

// invoke runs one handler with panic containment.
func invoke(binding *profile.Binding, trigger model.Trigger) (effects []action.Effect, err error) {
	defer func() {
		if r := recover(); r != nil {
			effects = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return binding.Instance.HandleEvent(trigger)
}
