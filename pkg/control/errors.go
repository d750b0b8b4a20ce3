package control

import (
	"errors"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/device"
	"github.com/panelkit/paneld/pkg/profile"
	"github.com/panelkit/paneld/pkg/wire"
)

// codeFor maps a daemon error onto its wire error code. Unrecognized
// errors become internal errors rather than leaking taxonomy guesses.
func codeFor(err error) wire.Code {
	var construction *action.ConstructionError
	var recoverable *profile.RecoverableError
	switch {
	case errors.As(err, &construction):
		return wire.CodeConstruction
	case errors.As(err, &recoverable):
		return wire.CodeRecoverable
	case errors.Is(err, action.ErrUnknownKind):
		return wire.CodeUnknownActionKind
	case errors.Is(err, device.ErrUnknownDevice), errors.Is(err, device.ErrDeviceClosed):
		return wire.CodeUnknownDevice
	case errors.Is(err, device.ErrUnknownButton):
		return wire.CodeUnknownButton
	case errors.Is(err, device.ErrUnknownInstance):
		return wire.CodeUnknownInstance
	case errors.Is(err, device.ErrNotAFolder):
		return wire.CodeNotAFolder
	case errors.Is(err, device.ErrAtRoot):
		return wire.CodeAtRoot
	default:
		return wire.CodeInternal
	}
}
