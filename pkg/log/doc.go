// Package log captures control-plane protocol events for debugging and
// replay: frames on the socket, decoded messages, and session/device
// state changes.
//
// Events are written as a CBOR stream (integer keys, canonical encoding)
// by FileLogger, mirrored to console via SlogAdapter, or fanned out with
// MultiLogger. Reader filters a captured stream back into events.
//
// This is protocol capture, not operational logging; the daemon's
// operational logging is plain log/slog.
package log
