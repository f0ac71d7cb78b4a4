package channel

import (
	"context"
	"encoding/json"
	"errors"

	"ride-chat/internal/models"
)

// Role-partitioned event names. Messages are published under the author's
// event and delivered under the counterpart's emit event, so a sender never
// receives an echo of its own message over the live channel.
const (
	EventDriverMessage = "chat_message_driver"
	EventClientMessage = "chat_message_client"
	EventEmitClient    = "chat_message_emit_client"
	EventEmitDriver    = "chat_message_emit_driver"
)

// OutgoingEvent returns the event name a sender of the given role publishes on.
func OutgoingEvent(role models.Role) string {
	if role == models.RoleDriver {
		return EventDriverMessage
	}
	return EventClientMessage
}

// IncomingEvent returns the event name a viewer of the given role listens on.
func IncomingEvent(role models.Role) string {
	if role == models.RoleDriver {
		return EventEmitDriver
	}
	return EventEmitClient
}

// ErrNotConnected is returned by Emit when no transport is established.
var ErrNotConnected = errors.New("live channel not connected")

// Handler receives the raw payload of a named event.
type Handler func(payload json.RawMessage)

// Subscription identifies one handler registration so it can be released
// without tearing down the whole channel.
type Subscription struct {
	event string
	id    int
}

// LiveChannel manages one bidirectional live connection and named-event
// pub/sub over it. It knows nothing about message semantics.
type LiveChannel interface {
	// Connect establishes the transport. Calling it while connected is a no-op.
	Connect(ctx context.Context) error
	// Disconnect tears down the transport and releases every handler
	// registered through this instance. Idempotent.
	Disconnect()
	// On registers a handler for a named event. All handlers registered for
	// an event fire on delivery.
	On(event string, fn Handler) Subscription
	// Off releases exactly the registration identified by sub.
	Off(sub Subscription)
	// Emit publishes the payload under the named event, fire-and-forget.
	Emit(event string, payload interface{}) error
}
