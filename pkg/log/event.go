package log

import "time"

// Event is one captured protocol event. CBOR encoding uses integer keys
// for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the client session (UUID).
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates message flow relative to the daemon.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// DeviceID is set on device-scoped events.
	DeviceID string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload; exactly one is set.
	Frame       *FrameEvent       `cbor:"6,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"7,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`
	Error       *ErrorEvent       `cbor:"9,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn is a message arriving from a client.
	DirectionIn Direction = 0

	// DirectionOut is a message sent to a client.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame is a raw frame on the socket.
	CategoryFrame Category = 0

	// CategoryMessage is a decoded protocol message.
	CategoryMessage Category = 1

	// CategoryState is a session or device state change.
	CategoryState Category = 2

	// CategoryError is an error at any layer.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a raw frame.
type FrameEvent struct {
	// Size is the payload size in bytes, before truncation.
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload, truncated past MaxFrameCapture.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates Data was cut at MaxFrameCapture.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MaxFrameCapture bounds captured frame data (4 KB); larger frames are
// truncated in the event, never on the wire.
const MaxFrameCapture = 4096

// MessageEvent captures a decoded protocol message.
type MessageEvent struct {
	// Type is the message type string.
	Type string `cbor:"1,keyasint"`

	// CorrelationID ties requests to responses; empty on events.
	CorrelationID string `cbor:"2,keyasint,omitempty"`

	// Code is the error code on error responses.
	Code string `cbor:"3,keyasint,omitempty"`
}

// StateEntity identifies what changed state.
type StateEntity uint8

const (
	// StateEntitySession is a client session.
	StateEntitySession StateEntity = 0

	// StateEntityDevice is an attached device.
	StateEntityDevice StateEntity = 1

	// StateEntityDaemon is the daemon lifecycle.
	StateEntityDaemon StateEntity = 2
)

// StateChangeEvent captures a state transition.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
}

// ErrorEvent captures an error.
type ErrorEvent struct {
	Message string `cbor:"1,keyasint"`
}
