package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"ride-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for ride chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, draft models.MessageDraft, status models.DeliveryState) (models.Message, error)
	ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message and returns it with the assigned id.
func (r *MessageRepo) CreateMessage(ctx context.Context, draft models.MessageDraft, status models.DeliveryState) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO chat_messages (id_client_request, id_sender, id_receiver, text, is_driver, status)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id, id_client_request, id_sender, id_receiver, text, is_driver, status, created_at`,
		draft.ConversationID, draft.SenderID, draft.ReceiverID, draft.Body, draft.SenderRole == models.RoleDriver, status).
		Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID, &msg.Body, &msg.SenderIsDriver, &msg.Status, &msg.CreatedAt)
	return msg, err
}

// ListByConversation returns a conversation's messages newest-first, the
// order the chat API contract serves them in.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	query := `SELECT id, id_client_request, id_sender, id_receiver, text, is_driver, status, created_at
        FROM chat_messages
        WHERE id_client_request=$1
        ORDER BY created_at DESC, id DESC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, conversationID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, id_client_request, id_sender, id_receiver, text, is_driver, status, created_at FROM chat_messages WHERE id=$1`,
		messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
