package device

import "github.com/panelkit/paneld/pkg/model"

// Transport is the consumed hardware capability: paneld pushes frames
// through it and reads the grid descriptor from it. The concrete driver
// lives outside this module.
//
// PushFrame is called from the daemon's render completion loop, never
// from a device's command queue, so slow hardware cannot stall state
// mutation. Implementations serialize their own I/O.
type Transport interface {
	// Descriptor returns the device's capability descriptor.
	Descriptor() model.Descriptor

	// PushFrame writes one button's raw native-format frame.
	PushFrame(key uint8, frame []byte) error

	// Close releases the transport.
	Close() error
}

// BrightnessSetter is the optional transport capability for hardware
// with controllable backlight.
type BrightnessSetter interface {
	SetBrightness(percent uint8) error
}

// Attachment is a hot-plug notification for a newly connected device.
type Attachment struct {
	DeviceID  string
	Transport Transport
}

// Watcher surfaces device hot-plug and unplug events. The concrete
// discovery mechanism (USB enumeration, simulation) is external; the
// lifecycle manager only consumes the channels.
type Watcher interface {
	// Attachments delivers newly connected devices.
	Attachments() <-chan Attachment

	// Detachments delivers the ids of devices whose transport was lost.
	Detachments() <-chan string

	// Close stops the watcher and closes both channels.
	Close() error
}
