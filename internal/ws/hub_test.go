package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ride-chat/internal/channel"
	"ride-chat/internal/models"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(1, nil, ConnInfo{})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected conversation room to be created")
	}

	hub.RemoveClient(1, nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected conversation room to be removed")
	}
}

func TestRelayMessageIsRolePartitioned(t *testing.T) {
	hub := NewHub()
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		role := models.Role(r.URL.Query().Get("role"))
		hub.AddClient(9, conn, ConnInfo{ConnID: newConnID(), Role: role, ConnectedAt: time.Now()})
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL+"?role=client", nil)
	if err != nil {
		t.Fatalf("dial client: %v", err)
	}
	defer clientConn.Close()

	driverConn, _, err := websocket.DefaultDialer.Dial(wsURL+"?role=driver", nil)
	if err != nil {
		t.Fatalf("dial driver: %v", err)
	}
	defer driverConn.Close()

	// Give the server handlers time to register both connections.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.rooms[9])
		hub.mu.RUnlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("connections not registered in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.RelayMessage(9, models.RoleDriver, models.ChatEvent{ID: 1, ConversationID: 9, SenderID: 7, Body: "arriving"})

	// The client-role connection receives the client emit event.
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame channel.Frame
	if err := clientConn.ReadJSON(&frame); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if frame.Event != channel.EventEmitClient {
		t.Fatalf("expected %s, got %s", channel.EventEmitClient, frame.Event)
	}

	// The driver-role (author side) connection receives nothing.
	driverConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := driverConn.ReadJSON(&frame); err == nil {
		t.Fatalf("driver unexpectedly received its own echo: %+v", frame)
	}
}
