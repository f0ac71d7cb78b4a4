package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"

	"ride-chat/internal/models"
)

// HTTPStore talks to the chat API over HTTP. It owns no retry or caching
// behavior; it translates the wire contract and nothing else.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore constructs an HTTPStore for the given API base URL.
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPStore{baseURL: baseURL, client: client}
}

// Create persists the draft via POST /chat.
func (s *HTTPStore) Create(ctx context.Context, draft models.MessageDraft) (models.Message, error) {
	ctx, span := otel.Tracer("ride-chat/store").Start(ctx, "store.create")
	defer span.End()

	payload := map[string]interface{}{
		"text":              draft.Body,
		"timestamp":         time.Now().UTC().Format(time.RFC3339Nano),
		"isMe":              true,
		"status":            models.StateSent,
		"type":              "text",
		"id_user":           draft.SenderID,
		"id_sender":         draft.SenderID,
		"id_receiver":       draft.ReceiverID,
		"id_client_request": draft.ConversationID,
		"is_driver":         draft.SenderRole == models.RoleDriver,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Message{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return models.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return models.Message{}, fmt.Errorf("create message: unexpected status %d", resp.StatusCode)
	}

	var msg models.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return models.Message{}, fmt.Errorf("create message: decode response: %w", err)
	}
	return msg, nil
}

// ListByConversation fetches the history via GET /chat/messages/{id}. The API
// returns newest-first; the result is reversed to oldest-first because display
// order is oldest-at-top.
func (s *HTTPStore) ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	ctx, span := otel.Tracer("ride-chat/store").Start(ctx, "store.list")
	defer span.End()

	url := fmt.Sprintf("%s/chat/messages/%d", s.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list messages: unexpected status %d", resp.StatusCode)
	}

	var wrapper struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("list messages: decode response: %w", err)
	}

	msgs := wrapper.Messages
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ActiveConversation resolves the open ride via GET /chat/client_request/{user}/{role}.
func (s *HTTPStore) ActiveConversation(ctx context.Context, userID int, role models.Role) (models.ClientRequest, error) {
	url := fmt.Sprintf("%s/chat/client_request/%d/%s", s.baseURL, userID, role)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ClientRequest{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.ClientRequest{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.ClientRequest{}, ErrNoActiveConversation
	}
	if resp.StatusCode != http.StatusOK {
		return models.ClientRequest{}, fmt.Errorf("active conversation: unexpected status %d", resp.StatusCode)
	}

	var request models.ClientRequest
	if err := json.NewDecoder(resp.Body).Decode(&request); err != nil {
		return models.ClientRequest{}, fmt.Errorf("active conversation: decode response: %w", err)
	}
	return request, nil
}

var _ MessageStore = (*HTTPStore)(nil)
