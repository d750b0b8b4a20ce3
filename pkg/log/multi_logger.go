package log

// MultiLogger fans events out to several loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger wraps the given loggers. Nil entries are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	kept := make([]Logger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			kept = append(kept, l)
		}
	}
	return &MultiLogger{loggers: kept}
}

// Log forwards the event to every wrapped logger.
func (m *MultiLogger) Log(ev *Event) {
	for _, l := range m.loggers {
		l.Log(ev)
	}
}

// Close closes every wrapped logger that supports closing, returning
// the first error.
func (m *MultiLogger) Close() error {
	var first error
	for _, l := range m.loggers {
		if c, ok := l.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

var _ Logger = (*MultiLogger)(nil)
