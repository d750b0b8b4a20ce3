package model

import "strings"

// EventType identifies a state-change notification kind.
type EventType string

const (
	// EventDeviceConnected is sent when a device is attached and registered.
	EventDeviceConnected EventType = "deviceConnected"

	// EventDeviceDisconnected is sent when a device transport is lost or
	// the device is unregistered.
	EventDeviceDisconnected EventType = "deviceDisconnected"

	// EventButtonImageChanged is sent when a button render completes with
	// a new image. The event carries the wire-encoded image.
	EventButtonImageChanged EventType = "buttonImageChanged"

	// EventProfileNavigated is sent when a device's active stack changes
	// (enter, back, or drop to root).
	EventProfileNavigated EventType = "profileNavigated"

	// EventButtonUpdated is sent when a button's bindings change.
	EventButtonUpdated EventType = "buttonUpdated"
)

// Event is an immutable notification broadcast to subscribed sessions.
// DeviceID is set on every event; the remaining fields depend on Type.
type Event struct {
	Type     EventType `json:"type"`
	DeviceID string    `json:"deviceId"`

	// Key is the button index for button-scoped events.
	Key *uint8 `json:"key,omitempty"`

	// Image is the deflate-compressed, base64-encoded button image for
	// EventButtonImageChanged.
	Image string `json:"image,omitempty"`

	// StackDepth is the active stack depth after EventProfileNavigated.
	StackDepth int `json:"stackDepth,omitempty"`

	// Node is the name of the active profile node after navigation.
	Node string `json:"node,omitempty"`
}

// Topic returns the device topic this event belongs to.
func (e Event) Topic() string {
	return DeviceTopic(e.DeviceID)
}

// TopicAll subscribes a session to events from every device.
const TopicAll = "all"

// DeviceTopic returns the subscription topic for a single device.
func DeviceTopic(deviceID string) string {
	return "device:" + deviceID
}

// ValidTopic reports whether s is a well-formed subscription topic.
// Topics are either TopicAll or "device:<id>" with a non-empty id.
func ValidTopic(s string) bool {
	if s == TopicAll {
		return true
	}
	id, ok := strings.CutPrefix(s, "device:")
	return ok && id != ""
}

// TopicMatches reports whether an event published on eventTopic should be
// delivered to a session subscribed to subscribed.
func TopicMatches(subscribed, eventTopic string) bool {
	return subscribed == TopicAll || subscribed == eventTopic
}
