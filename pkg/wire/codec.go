package wire

import (
	"encoding/json"
	"fmt"

	"github.com/panelkit/paneld/pkg/model"
)

// Encode serializes a message for framing.
func Encode(msg *Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return data, nil
}

// Decode parses one framed message.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	return &msg, nil
}

// DecodePayload parses a message's payload into a typed request struct.
func DecodePayload[T any](msg *Message) (*T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return &payload, nil
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", msg.Type, err)
	}
	return &payload, nil
}

// NewRequest builds a request message with the given payload.
func NewRequest(msgType, correlationID string, payload any) (*Message, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, CorrelationID: correlationID, Payload: raw}, nil
}

// NewResult builds the success response for a request.
func NewResult(correlationID string, payload any) (*Message, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: TypeResult, CorrelationID: correlationID, Payload: raw}, nil
}

// NewError builds the failure response for a request.
func NewError(correlationID string, code Code, message string) *Message {
	raw, _ := json.Marshal(ErrorPayload{Code: code, Message: message})
	return &Message{Type: TypeError, CorrelationID: correlationID, Payload: raw}
}

// NewEvent builds an event push message.
func NewEvent(event model.Event) (*Message, error) {
	raw, err := marshalPayload(event)
	if err != nil {
		return nil, err
	}
	return &Message{Type: TypeEvent, Payload: raw}, nil
}

func marshalPayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return raw, nil
}
