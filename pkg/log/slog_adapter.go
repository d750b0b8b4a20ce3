package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors protocol events into a slog.Logger at debug
// level, so a single -v run shows both operational and protocol logs.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger; a nil logger uses slog.Default.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Log emits the event as a structured debug record.
func (a *SlogAdapter) Log(ev *Event) {
	attrs := []slog.Attr{
		slog.String("direction", ev.Direction.String()),
		slog.String("category", ev.Category.String()),
	}
	if ev.SessionID != "" {
		attrs = append(attrs, slog.String("session", ev.SessionID))
	}
	if ev.DeviceID != "" {
		attrs = append(attrs, slog.String("device", ev.DeviceID))
	}
	switch {
	case ev.Frame != nil:
		attrs = append(attrs, slog.Int("size", ev.Frame.Size))
	case ev.Message != nil:
		attrs = append(attrs, slog.String("type", ev.Message.Type))
		if ev.Message.CorrelationID != "" {
			attrs = append(attrs, slog.String("correlation_id", ev.Message.CorrelationID))
		}
		if ev.Message.Code != "" {
			attrs = append(attrs, slog.String("code", ev.Message.Code))
		}
	case ev.StateChange != nil:
		attrs = append(attrs,
			slog.String("old", ev.StateChange.OldState),
			slog.String("new", ev.StateChange.NewState))
	case ev.Error != nil:
		attrs = append(attrs, slog.String("error", ev.Error.Message))
	}
	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol event", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
