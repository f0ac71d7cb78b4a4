package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"ride-chat/internal/channel"
	"ride-chat/internal/models"
	"ride-chat/internal/observability"
	"ride-chat/internal/repositories"
)

// ChatSocketHandler upgrades chat socket connections and relays frames
// between the two sides of a ride conversation.
type ChatSocketHandler struct {
	hub         *Hub
	requestRepo repositories.RequestRepository
}

// NewChatSocketHandler constructs a ChatSocketHandler.
func NewChatSocketHandler(hub *Hub, requestRepo repositories.RequestRepository) *ChatSocketHandler {
	return &ChatSocketHandler{hub: hub, requestRepo: requestRepo}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers the client in its conversation
// room, then relays author frames to the counterpart role until the
// connection drops.
func (h *ChatSocketHandler) Handle(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("ride-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := strconv.Atoi(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	role := models.Role(c.Query("role"))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	member, err := h.requestRepo.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		Role:        role,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conversationID, conn, info)

	observability.IncWSActive("chat")
	observability.IncWSEvent("chat", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   lifecyclePayload(conversationID, "ws_connect", info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(conversationID, conn)
			observability.DecWSActive("chat")
			observability.IncWSEvent("chat", "ws_disconnect")
			_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   lifecyclePayload(conversationID, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()

		outgoing := channel.OutgoingEvent(role)
		for {
			var frame channel.Frame
			if err := conn.ReadJSON(&frame); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("chat", "ws_error")
				}
				return
			}
			if frame.Event != outgoing {
				// Only author-role frames are relayed; anything else is noise.
				continue
			}
			var ev models.ChatEvent
			if err := json.Unmarshal(frame.Payload, &ev); err != nil {
				continue
			}
			if ev.ConversationID != conversationID {
				continue
			}
			h.hub.RelayMessage(conversationID, role, ev)
		}
	}()
}

func lifecyclePayload(conversationID int, event string, info ConnInfo, durationMS int64, reason string) observability.WSEventPayload {
	return observability.WSEventPayload{
		WS: observability.WSEventInfo{
			ConversationID: conversationID,
			Event:          event,
			ConnID:         info.ConnID,
			DurationMS:     durationMS,
			Reason:         reason,
		},
		Identity: observability.Identity{
			UserID: info.UserID,
			Role:   string(info.Role),
			IP:     info.IP,
		},
	}
}
