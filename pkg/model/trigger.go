package model

import "fmt"

// Trigger is a user interaction kind dispatched to a button's bindings.
type Trigger uint8

const (
	// TriggerPress fires when a button is pushed down.
	TriggerPress Trigger = 1

	// TriggerRelease fires when a button is released.
	TriggerRelease Trigger = 2
)

// Triggers lists all trigger kinds in dispatch order.
var Triggers = []Trigger{TriggerPress, TriggerRelease}

// IsValid reports whether t is a known trigger kind.
func (t Trigger) IsValid() bool {
	return t == TriggerPress || t == TriggerRelease
}

// String returns the trigger name used on the wire and in profiles.
func (t Trigger) String() string {
	switch t {
	case TriggerPress:
		return "press"
	case TriggerRelease:
		return "release"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseTrigger converts a wire/profile trigger name back to a Trigger.
func ParseTrigger(s string) (Trigger, error) {
	switch s {
	case "press":
		return TriggerPress, nil
	case "release":
		return TriggerRelease, nil
	default:
		return 0, fmt.Errorf("unknown trigger %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler so triggers serialize as
// their names in JSON documents and protocol messages.
func (t Trigger) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid trigger %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Trigger) UnmarshalText(text []byte) error {
	parsed, err := ParseTrigger(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
