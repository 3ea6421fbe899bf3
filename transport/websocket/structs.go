package websocket

import "encoding/json"

const (
	EventRead   = "read"
	EventUpdate = "update"
)

// Message is an inbound socket message: the event kind plus an optional
// value, carrying the partial room update for EventUpdate.
type Message struct {
	Event string          `json:"event"`
	Value json.RawMessage `json:"value,omitempty"`
}

// ErrorPayload is sent back on a rejected message; accepted messages are
// answered with the full room document instead.
type ErrorPayload struct {
	Error string `json:"error"`
}
