package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"ride-chat/internal/models"
	"ride-chat/internal/observability"
	"ride-chat/internal/repositories"
	"ride-chat/internal/telemetry"
	"ride-chat/internal/ws"
)

const maxMessageLength = 1000

// ChatHandler serves the chat API consumed by the mobile clients.
type ChatHandler struct {
	messageRepo repositories.MessageRepository
	requestRepo repositories.RequestRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(messageRepo repositories.MessageRepository, requestRepo repositories.RequestRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		messageRepo: messageRepo,
		requestRepo: requestRepo,
		hub:         hub,
		audit:       audit,
	}
}

// PostChat stores a chat message and relays it to the counterpart role.
// POST /chat
func (h *ChatHandler) PostChat(c *gin.Context) {
	var req struct {
		Text            string `json:"text" binding:"required"`
		SenderID        int    `json:"id_sender" binding:"required"`
		ReceiverID      int    `json:"id_receiver" binding:"required"`
		ClientRequestID int    `json:"id_client_request" binding:"required"`
		IsDriver        bool   `json:"is_driver"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body := strings.TrimSpace(req.Text)
	if body == "" || utf8.RuneCountInString(body) > maxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text must be 1-1000 characters"})
		return
	}

	request, err := h.requestRepo.GetRequest(c.Request.Context(), req.ClientRequestID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "client request not found"})
		return
	}
	if !isParticipant(request, req.SenderID) || !isParticipant(request, req.ReceiverID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "sender or receiver not on this ride"})
		return
	}

	role := models.RoleClient
	if req.IsDriver {
		role = models.RoleDriver
	}
	draft := models.MessageDraft{
		ConversationID: req.ClientRequestID,
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Body:           body,
		SenderRole:     role,
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), draft, models.StateSent)
	if err != nil {
		if h.audit != nil {
			h.audit.EmitError(c.Request.Context(), "failed to store chat message", requestIDFromContext(c), userIDFromContext(c))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	// Server-side fan-out duplicates the author's own socket emit on purpose:
	// receivers dedup by durable id, and the extra path covers authors whose
	// socket dropped between persist and emit.
	h.hub.RelayMessage(msg.ConversationID, role, models.ChatEvent{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Body:           msg.Body,
		SenderIsDriver: msg.SenderIsDriver,
		Timestamp:      msg.CreatedAt,
	})

	observability.IncMessageStored()
	if h.audit != nil {
		h.audit.EmitInfo(c.Request.Context(), "chat message stored", requestIDFromContext(c), userIDFromContext(c))
	}
	c.JSON(http.StatusCreated, msg)
}

// ListMessages returns a conversation's messages newest-first.
// GET /chat/messages/:conversation_id
func (h *ChatHandler) ListMessages(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	if _, err := h.requestRepo.GetRequest(c.Request.Context(), conversationID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "client request not found"})
		return
	}

	msgs, err := h.messageRepo.ListByConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ActiveClientRequest resolves the open ride for a user/role pair.
// GET /chat/client_request/:user_id/:role
func (h *ChatHandler) ActiveClientRequest(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	role := models.Role(c.Param("role"))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	request, err := h.requestRepo.ActiveForUser(c.Request.Context(), userID, role)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "no active client request"})
		return
	}

	c.JSON(http.StatusOK, request)
}

func isParticipant(request models.ClientRequest, userID int) bool {
	return request.ClientID == userID || request.DriverID == userID
}
