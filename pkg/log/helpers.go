package log

import "time"

// NewFrameEvent builds a frame capture event, truncating data at
// MaxFrameCapture.
func NewFrameEvent(sessionID string, dir Direction, data []byte) *Event {
	fe := &FrameEvent{Size: len(data)}
	if len(data) > MaxFrameCapture {
		fe.Data = append([]byte(nil), data[:MaxFrameCapture]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return &Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: dir,
		Category:  CategoryFrame,
		Frame:     fe,
	}
}

// NewMessageEvent builds a decoded-message event.
func NewMessageEvent(sessionID string, dir Direction, msgType, correlationID, code string) *Event {
	return &Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: dir,
		Category:  CategoryMessage,
		Message: &MessageEvent{
			Type:          msgType,
			CorrelationID: correlationID,
			Code:          code,
		},
	}
}

// NewStateEvent builds a state-change event.
func NewStateEvent(entity StateEntity, sessionID, deviceID, oldState, newState string) *Event {
	return &Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		DeviceID:  deviceID,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
		},
	}
}

// NewErrorEvent builds an error event.
func NewErrorEvent(sessionID, deviceID, message string) *Event {
	return &Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		DeviceID:  deviceID,
		Category:  CategoryError,
		Error:     &ErrorEvent{Message: message},
	}
}
