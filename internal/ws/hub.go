package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ride-chat/internal/channel"
	"ride-chat/internal/models"
	"ride-chat/internal/observability"
)

// Hub maintains the active socket connections per conversation. Delivery is
// role-partitioned: a driver-authored message fans out to client-role
// connections under the client emit event and symmetrically, so an author
// never receives an echo of its own message.
type Hub struct {
	rooms map[int]map[*websocket.Conn]ConnInfo
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int]map[*websocket.Conn]ConnInfo)}
}

// AddClient registers a connection to a conversation room.
func (h *Hub) AddClient(conversationID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[conversationID][conn] = info
}

// RemoveClient removes a connection from a conversation room.
func (h *Hub) RemoveClient(conversationID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[conversationID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// RelayMessage delivers an author's message to every counterpart-role
// connection in the conversation under the matching emit event.
func (h *Hub) RelayMessage(conversationID int, authorRole models.Role, ev models.ChatEvent) {
	targetRole := authorRole.Counterpart()
	event := channel.IncomingEvent(targetRole)

	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	frame, _ := json.Marshal(channel.Frame{Event: event, Payload: payload})

	h.mu.RLock()
	targets := make([]*websocket.Conn, 0)
	for conn, info := range h.rooms[conversationID] {
		if info.Role == targetRole {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveClient(conversationID, conn)
			h.publishWSError(conversationID, conn, err)
		}
	}
}

func (h *Hub) publishWSError(conversationID int, conn *websocket.Conn, err error) {
	info, ok := h.connInfo(conversationID, conn)
	if !ok {
		return
	}

	payload := observability.WSEventPayload{
		WS: observability.WSEventInfo{
			ConversationID: conversationID,
			Event:          "ws_error",
			ConnID:         info.ConnID,
			DurationMS:     time.Since(info.ConnectedAt).Milliseconds(),
			Reason:         err.Error(),
		},
		Identity: observability.Identity{
			UserID: info.UserID,
			Role:   string(info.Role),
			IP:     info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("chat", "ws_error")
}

func (h *Hub) connInfo(conversationID int, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.rooms[conversationID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
