package log

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Filter selects events while reading a capture file. Zero-value fields
// match everything.
type Filter struct {
	SessionID string
	DeviceID  string
	Category  *Category
	Direction *Direction
}

func (f *Filter) matches(ev *Event) bool {
	if f == nil {
		return true
	}
	if f.SessionID != "" && ev.SessionID != f.SessionID {
		return false
	}
	if f.DeviceID != "" && ev.DeviceID != f.DeviceID {
		return false
	}
	if f.Category != nil && ev.Category != *f.Category {
		return false
	}
	if f.Direction != nil && ev.Direction != *f.Direction {
		return false
	}
	return true
}

// ReadFile reads all events from a capture file, applying the filter.
func ReadFile(path string, filter *Filter) ([]*Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()
	return ReadAll(f, filter)
}

// ReadAll decodes events from r until EOF, applying the filter.
func ReadAll(r io.Reader, filter *Filter) ([]*Event, error) {
	dec := NewDecoder(r)
	var events []*Event
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, fmt.Errorf("decoding event: %w", err)
		}
		if filter.matches(&ev) {
			events = append(events, &ev)
		}
	}
}
