package log

// Logger is the interface components implement to receive protocol
// events. Pass nil or NoopLogger to disable capture.
type Logger interface {
	// Log records a protocol event. Implementations must be thread-safe
	// and quick; blocking here slows the session read/write loops.
	Log(event *Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(*Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
