package store

import (
	"context"
	"errors"

	"ride-chat/internal/models"
)

// ErrUnavailable wraps transport-level failures so callers can tell a dead
// network apart from a contract error. The store never retries; retry policy
// belongs to the caller.
var ErrUnavailable = errors.New("chat backend unavailable")

// ErrNoActiveConversation is returned when the user has no open ride to chat on.
var ErrNoActiveConversation = errors.New("no active conversation")

// MessageStore is the durable request/response boundary of the pipeline.
type MessageStore interface {
	// Create persists a draft and returns the stored message carrying the
	// durably assigned id and created-at.
	Create(ctx context.Context, draft models.MessageDraft) (models.Message, error)
	// ListByConversation returns the conversation history oldest-first.
	ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error)
	// ActiveConversation resolves the open ride for a user/role pair.
	ActiveConversation(ctx context.Context, userID int, role models.Role) (models.ClientRequest, error)
}
