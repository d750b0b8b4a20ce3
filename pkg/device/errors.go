package device

import "errors"

// Device state errors. Each maps to a typed control-plane status; none of
// them changes device state.
var (
	// ErrUnknownDevice indicates no attached device has the id.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrUnknownButton indicates a key outside the grid or an empty slot
	// where a populated one is required.
	ErrUnknownButton = errors.New("unknown button")

	// ErrUnknownInstance indicates no binding carries the instance id.
	ErrUnknownInstance = errors.New("unknown action instance")

	// ErrNotAFolder indicates Enter on a button whose top binding exposes
	// no folder capability.
	ErrNotAFolder = errors.New("button is not a folder")

	// ErrAtRoot indicates Back with only the root on the active stack.
	ErrAtRoot = errors.New("already at root profile")

	// ErrDeviceClosed indicates a command against a detached device.
	ErrDeviceClosed = errors.New("device is closed")
)
