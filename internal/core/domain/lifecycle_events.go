package domain

import (
	"time"
)

// EventType identifies the kind of lifecycle event emitted by the server core.
type EventType string

const (
	EventRequest  EventType = "request"
	EventResponse EventType = "response"
	EventError    EventType = "error"
)

// RequestEvent is emitted once a raw message has been translated.
type RequestEvent struct {
	Request   *Request
	Timestamp time.Time
}

// ResponseEvent is emitted after a response has been handed to the transport.
type ResponseEvent struct {
	Request   *Request
	Alias     string
	Response  Response
	Duration  time.Duration
	Timestamp time.Time
}

// ErrorEvent is emitted when a pipeline fails at any step.
// Request is nil when the failure happened before translation completed.
type ErrorEvent struct {
	Request     *Request
	Alias       string
	Description string
	Err         error
	Timestamp   time.Time
}

// EventRecord is the persisted, transport-neutral form of any lifecycle event.
type EventRecord struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	RequestID   string    `json:"request_id"`
	Alias       string    `json:"alias,omitempty"`
	Description string    `json:"description,omitempty"`
	Payload     string    `json:"payload,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
