// Package wire defines the JSON envelopes exchanged with the chat service.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// KindChatMessage tags outbound chat requests.
const KindChatMessage = "chat_message"

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Errors
var (
	ErrMissingPayload = errors.New("missing payload")
	ErrMissingID      = errors.New("missing payload id")
)

// Envelope is one wire frame, in either direction.
type Envelope struct {
	Kind    string  `json:"kind"`
	Payload Payload `json:"payload"`
}

// Payload carries the correlated chat content.
type Payload struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"` // ISO-8601
	UserID    string `json:"userId,omitempty"`
}

// NewChatMessage builds an outbound chat envelope.
func NewChatMessage(id, message, userID string, at time.Time) Envelope {
	return Envelope{
		Kind: KindChatMessage,
		Payload: Payload{
			ID:        id,
			Message:   message,
			Timestamp: FormatTimestamp(at),
			UserID:    userID,
		},
	}
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the payload timestamp. It accepts TimestampLayout and RFC 3339.
func (p Payload) Time() (time.Time, bool) {
	if p.Timestamp == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(TimestampLayout, p.Timestamp); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Encode marshals an envelope into a text frame.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// ProtocolError describes an inbound frame that cannot be routed.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return "protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// inbound uses a pointer payload so that a missing object is detectable.
type inbound struct {
	Kind    string   `json:"kind"`
	Payload *Payload `json:"payload"`
}

// Decode parses an inbound frame. Any frame without a payload id is
// rejected with a *ProtocolError.
func Decode(data []byte) (Envelope, error) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Envelope{}, &ProtocolError{Reason: "malformed json", Err: err}
	}
	if in.Payload == nil {
		return Envelope{}, &ProtocolError{Reason: "unroutable frame", Err: ErrMissingPayload}
	}
	if in.Payload.ID == "" {
		return Envelope{}, &ProtocolError{Reason: "unroutable frame", Err: ErrMissingID}
	}
	return Envelope{Kind: in.Kind, Payload: *in.Payload}, nil
}
