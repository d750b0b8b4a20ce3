package wire

// Code is a typed error code carried in error responses. Every code maps
// one-to-one onto the daemon's error taxonomy; none of them implies any
// state change on the server.
type Code string

const (
	// CodeValidation marks a malformed request (bad JSON, missing
	// fields, unknown type).
	CodeValidation Code = "validationError"

	// CodeUnknownActionKind marks a bind against an unregistered kind.
	CodeUnknownActionKind Code = "unknownActionKind"

	// CodeUnknownDevice marks a request against a detached device.
	CodeUnknownDevice Code = "unknownDevice"

	// CodeUnknownButton marks a key outside the grid or an empty slot.
	CodeUnknownButton Code = "unknownButton"

	// CodeUnknownInstance marks an unbind of a nonexistent instance.
	CodeUnknownInstance Code = "unknownInstance"

	// CodeUnknownTopic marks a subscribe to a malformed topic.
	CodeUnknownTopic Code = "unknownTopic"

	// CodeNotAFolder marks Enter on a non-folder button.
	CodeNotAFolder Code = "notAFolder"

	// CodeAtRoot marks Back at the bottom of the stack.
	CodeAtRoot Code = "atRoot"

	// CodeConstruction marks a plugin factory failure.
	CodeConstruction Code = "constructionError"

	// CodeRecoverable marks a profile store failure the daemon absorbed.
	CodeRecoverable Code = "recoverableError"

	// CodeInternal marks a failure with no more specific code.
	CodeInternal Code = "internalError"
)
