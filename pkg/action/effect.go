package action

import "github.com/panelkit/paneld/pkg/model"

// EffectKind identifies a state effect requested by an event handler.
type EffectKind uint8

const (
	// EffectRender requests a re-render of the button the handler is
	// bound to.
	EffectRender EffectKind = 1

	// EffectNavigateEnter requests navigation into the node named by
	// Effect.Target.
	EffectNavigateEnter EffectKind = 2

	// EffectNavigateBack requests popping one level off the active stack.
	EffectNavigateBack EffectKind = 3
)

// Effect is a deferred state change requested by an instance's event
// handler. Effects are collected during chain execution and applied
// afterwards in request order, so the chain sees a consistent view of
// device state while it runs.
type Effect struct {
	Kind EffectKind

	// Target is the node handle for EffectNavigateEnter.
	Target model.NodeID
}

// RenderEffect requests a re-render of the handler's button.
func RenderEffect() Effect { return Effect{Kind: EffectRender} }

// EnterEffect requests navigation into the given node.
func EnterEffect(target model.NodeID) Effect {
	return Effect{Kind: EffectNavigateEnter, Target: target}
}

// BackEffect requests popping one level off the active stack.
func BackEffect() Effect { return Effect{Kind: EffectNavigateBack} }
