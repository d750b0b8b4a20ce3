package wire

import (
	"encoding/json"
	"fmt"

	"github.com/panelkit/paneld/pkg/dispatch"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/profile"
)

// Request message types.
const (
	TypeListDevices   = "listDevices"
	TypeGetProfile    = "getProfile"
	TypeNavigate      = "navigate"
	TypeBindAction    = "bindAction"
	TypeUnbind        = "unbind"
	TypeSetButton     = "setButton"
	TypeSubscribe     = "subscribe"
	TypeUnsubscribe   = "unsubscribe"
	TypeSetBrightness = "setBrightness"
	TypeDropToRoot    = "dropToRoot"
	TypePressButton   = "pressButton"
)

// Server-to-client message types.
const (
	// TypeResult is the success response to a request.
	TypeResult = "result"

	// TypeError is the failure response to a request.
	TypeError = "error"

	// TypeEvent is an unsolicited state-change push.
	TypeEvent = "event"
)

// RequestTypes lists every request type the server accepts.
var RequestTypes = []string{
	TypeListDevices, TypeGetProfile, TypeNavigate, TypeBindAction,
	TypeUnbind, TypeSetButton, TypeSubscribe, TypeUnsubscribe,
	TypeSetBrightness, TypeDropToRoot, TypePressButton,
}

// Message is the envelope every frame carries.
type Message struct {
	Type          string          `json:"type"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// IsRequest reports whether the message type is a known request.
func (m *Message) IsRequest() bool {
	for _, t := range RequestTypes {
		if m.Type == t {
			return true
		}
	}
	return false
}

// --- Request payloads ---

// NavigateOp selects the navigation direction.
type NavigateOp string

const (
	// NavigateEnter pushes a folder button's target node.
	NavigateEnter NavigateOp = "enter"

	// NavigateBack pops one level.
	NavigateBack NavigateOp = "back"
)

// NavigateRequest is the payload of a navigate request.
type NavigateRequest struct {
	DeviceID string     `json:"deviceId"`
	Op       NavigateOp `json:"op"`

	// Key is the folder button for NavigateEnter.
	Key uint8 `json:"key,omitempty"`
}

// GetProfileRequest is the payload of a getProfile request.
type GetProfileRequest struct {
	DeviceID string `json:"deviceId"`
}

// BindingSpec is the wire form of one binding in bind/set requests.
type BindingSpec struct {
	Trigger model.Trigger  `json:"trigger"`
	Kind    string         `json:"kind"`
	Params  map[string]any `json:"params,omitempty"`
}

// BindActionRequest is the payload of a bindAction request.
type BindActionRequest struct {
	DeviceID string         `json:"deviceId"`
	Key      uint8          `json:"key"`
	Trigger  model.Trigger  `json:"trigger"`
	Kind     string         `json:"kind"`
	Params   map[string]any `json:"params,omitempty"`
}

// UnbindRequest is the payload of an unbind request.
type UnbindRequest struct {
	DeviceID   string `json:"deviceId"`
	InstanceID string `json:"instanceId"`
}

// SetButtonRequest is the payload of a setButton request.
type SetButtonRequest struct {
	DeviceID string        `json:"deviceId"`
	Key      uint8         `json:"key"`
	Bindings []BindingSpec `json:"bindings"`
}

// SubscribeRequest is the payload of subscribe and unsubscribe requests.
type SubscribeRequest struct {
	Topic string `json:"topic"`
}

// SetBrightnessRequest is the payload of a setBrightness request.
type SetBrightnessRequest struct {
	DeviceID   string `json:"deviceId"`
	Brightness uint8  `json:"brightness"`
}

// DropToRootRequest is the payload of a dropToRoot request.
type DropToRootRequest struct {
	DeviceID string `json:"deviceId"`
}

// PressButtonRequest is the payload of a pressButton request.
type PressButtonRequest struct {
	DeviceID string `json:"deviceId"`
	Key      uint8  `json:"key"`
}

// --- Response payloads ---

// DeviceInfo describes one attached device in a listDevices result.
type DeviceInfo struct {
	ID         string           `json:"id"`
	Descriptor model.Descriptor `json:"descriptor"`
	Connected  bool             `json:"connected"`
}

// ListDevicesResult is the payload of a listDevices response.
type ListDevicesResult struct {
	Devices []DeviceInfo `json:"devices"`
}

// StackEntry names one level of a device's active stack.
type StackEntry struct {
	Node uint32 `json:"node"`
	Name string `json:"name"`
}

// GetProfileResult is the payload of a getProfile response. Document is
// the full tree snapshot; Stack is the active path, root first.
type GetProfileResult struct {
	Document   *profile.Document `json:"document"`
	Stack      []StackEntry      `json:"stack"`
	Brightness uint8             `json:"brightness"`
}

// BindActionResult is the payload of a bindAction response.
type BindActionResult struct {
	InstanceID string `json:"instanceId"`
}

// PressButtonResult is the payload of a pressButton response: one
// dispatch result per trigger, press then release.
type PressButtonResult struct {
	Results []dispatch.Result `json:"results"`
}

// OK is the empty success payload for requests with no result data.
type OK struct{}

// ErrorPayload is the payload of an error response.
type ErrorPayload struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Error makes ErrorPayload usable as an error value on the client side.
func (e *ErrorPayload) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
