package builtin

import (
	"image"
	"image/color"
	"sync"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/model"
)

// ToggleKind is the registered kind name of the toggle action.
const ToggleKind = "toggle"

var (
	defaultOnColor  = color.RGBA{R: 0x2e, G: 0xa0, B: 0x43, A: 0xff}
	defaultOffColor = color.RGBA{R: 0x3a, G: 0x3a, B: 0x3a, A: 0xff}
)

// Toggle is a stateful on/off action. A press flips the state and requests
// a re-render; the render is a solid fill in the on or off color.
type Toggle struct {
	params   action.Params
	onColor  color.RGBA
	offColor color.RGBA

	mu sync.Mutex
	on bool
}

// ToggleFactory returns the factory for the toggle kind.
//
// Parameters: "onColor" and "offColor" as "#rrggbb" strings, both optional.
func ToggleFactory() action.Factory {
	return action.FactoryFunc{
		Name: ToggleKind,
		Fn: func(params action.Params) (action.Instance, error) {
			onColor, err := parseColor(params, "onColor", defaultOnColor)
			if err != nil {
				return nil, err
			}
			offColor, err := parseColor(params, "offColor", defaultOffColor)
			if err != nil {
				return nil, err
			}
			return &Toggle{
				params:   params.Clone(),
				onColor:  onColor,
				offColor: offColor,
			}, nil
		},
	}
}

// Kind returns the action kind name.
func (t *Toggle) Kind() string { return ToggleKind }

// Params returns the construction parameters.
func (t *Toggle) Params() action.Params { return t.params }

// Render fills the button with the color of the current state.
func (t *Toggle) Render(size image.Point) (image.Image, error) {
	t.mu.Lock()
	on := t.on
	t.mu.Unlock()

	if on {
		return solid(size, t.onColor), nil
	}
	return solid(size, t.offColor), nil
}

// HandleEvent flips the state on press and asks for a re-render.
func (t *Toggle) HandleEvent(trigger model.Trigger) ([]action.Effect, error) {
	if trigger != model.TriggerPress {
		return nil, nil
	}
	t.mu.Lock()
	t.on = !t.on
	t.mu.Unlock()
	return []action.Effect{action.RenderEffect()}, nil
}

// On reports the current toggle state.
func (t *Toggle) On() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on
}

// OnBind is a no-op for toggles.
func (t *Toggle) OnBind() error { return nil }

// OnUnbind is a no-op for toggles.
func (t *Toggle) OnUnbind() {}
