package domain

// WebSocket event types from client.
const (
	EventSend = "send"
	EventPing = "ping"
)

// WebSocket event types to client.
const (
	EventDelivered = "delivered"
	EventPresence  = "presence"
	EventError     = "error"
	EventPong      = "pong"
)

// Error codes carried on error events.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeEmptyIntent   = "EMPTY_INTENT"
	ErrCodeNoRecipient   = "NO_RECIPIENT"
	ErrCodePersistFailed = "PERSIST_FAILED"
)

// BaseEvent is the envelope shared by all WebSocket events.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server events

// SendEvent carries a send intent.
type SendEvent struct {
	Type string `json:"type"`
	SendIntent
}

// Server -> Client events

// DeliveredEvent pushes an enriched persisted message to a connection.
type DeliveredEvent struct {
	Type    string            `json:"type"`
	Message *DeliveredMessage `json:"message"`
}

// PresenceEvent pushes the full online-identity snapshot.
type PresenceEvent struct {
	Type       string   `json:"type"`
	Identities []string `json:"identities"`
}

// ErrorEvent is the negative acknowledgment for a rejected or failed intent.
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewDeliveredEvent wraps an enriched message for the wire.
func NewDeliveredEvent(msg *DeliveredMessage) *DeliveredEvent {
	return &DeliveredEvent{Type: EventDelivered, Message: msg}
}

// NewPresenceEvent wraps an online-identity snapshot for the wire.
func NewPresenceEvent(ids []string) *PresenceEvent {
	return &PresenceEvent{Type: EventPresence, Identities: ids}
}

// NewErrorEvent builds an error event.
func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{Type: EventError, Code: code, Message: message}
}
