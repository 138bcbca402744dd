// Package queue carries auth events between the API and downstream
// consumers over RabbitMQ or Kafka.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Auth event types.
const (
	EventSignedUp       = "user.signed_up"
	EventLoggedIn       = "user.logged_in"
	EventSessionRotated = "session.rotated"
	EventLoggedOut      = "user.logged_out"
)

// ErrMalformed marks a payload that can never be processed and should be
// dropped rather than redelivered.
var ErrMalformed = errors.New("malformed event")

// AuthEvent is published after every successful auth state change. It
// carries enough context for an audit trail without querying the database.
type AuthEvent struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id"`
	Handle     string `json:"handle,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	IP         string `json:"ip,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewAuthEvent stamps an event with the given time in RFC 3339.
func NewAuthEvent(typ, userID string, at time.Time) AuthEvent {
	return AuthEvent{Type: typ, UserID: userID, OccurredAt: at.UTC().Format(time.RFC3339)}
}

// Encode serializes ev for the wire.
func (ev AuthEvent) Encode() ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeAuthEvent parses a wire payload. Undecodable bodies and events
// without a type or user wrap ErrMalformed.
func DecodeAuthEvent(body []byte) (AuthEvent, error) {
	var ev AuthEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return AuthEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.Type == "" || ev.UserID == "" {
		return AuthEvent{}, fmt.Errorf("%w: missing type or user_id", ErrMalformed)
	}
	return ev, nil
}

// AuditLine renders ev as one line of the audit log.
func (ev AuthEvent) AuditLine() string {
	line := fmt.Sprintf("[%s] %s | user_id=%s", ev.OccurredAt, ev.Type, ev.UserID)
	if ev.Handle != "" {
		line += " | handle=" + ev.Handle
	}
	if ev.SessionID != "" {
		line += " | session_id=" + ev.SessionID
	}
	if ev.IP != "" {
		line += " | ip=" + ev.IP
	}
	if ev.UserAgent != "" {
		line += fmt.Sprintf(" | ua=%q", ev.UserAgent)
	}
	return line + "\n"
}
