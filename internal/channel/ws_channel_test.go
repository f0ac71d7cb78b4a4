package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsTestServer accepts websocket upgrades, records received frames and can
// push frames to every connected client.
type wsTestServer struct {
	*httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	upgrades int
	received []Frame
	conns    []*websocket.Conn
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	s := &wsTestServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.upgrades++
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		for {
			var frame Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, frame)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *wsTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsTestServer) push(t *testing.T, event string, payload interface{}) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)
	for _, conn := range s.conns {
		// Stale connections from a prior disconnect are expected to fail.
		_ = conn.WriteJSON(Frame{Event: event, Payload: body})
	}
}

func (s *wsTestServer) upgradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upgrades
}

func (s *wsTestServer) receivedFrames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.received...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestConnectIsIdempotent(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewWSChannel(srv.wsURL())
	defer ch.Disconnect()

	require.NoError(t, ch.Connect(context.Background()))
	require.NoError(t, ch.Connect(context.Background()))
	require.NoError(t, ch.Connect(context.Background()))

	assert.Equal(t, 1, srv.upgradeCount())
}

func TestEmitWritesFrame(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewWSChannel(srv.wsURL())
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background()))

	require.NoError(t, ch.Emit(EventClientMessage, map[string]int{"id": 3}))

	waitFor(t, func() bool { return len(srv.receivedFrames()) == 1 })
	frames := srv.receivedFrames()
	assert.Equal(t, EventClientMessage, frames[0].Event)
}

func TestEmitWithoutConnection(t *testing.T) {
	ch := NewWSChannel("ws://localhost:0")
	err := ch.Emit(EventClientMessage, map[string]int{"id": 1})
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestOnDispatchesNamedEvents(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewWSChannel(srv.wsURL())
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background()))

	var mu sync.Mutex
	var clientEvents, driverEvents int
	ch.On(EventEmitClient, func(json.RawMessage) {
		mu.Lock()
		clientEvents++
		mu.Unlock()
	})
	ch.On(EventEmitDriver, func(json.RawMessage) {
		mu.Lock()
		driverEvents++
		mu.Unlock()
	})

	srv.push(t, EventEmitClient, map[string]int{"id": 1})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return clientEvents == 1
	})

	mu.Lock()
	assert.Equal(t, 0, driverEvents, "handlers fire only for their own event name")
	mu.Unlock()
}

func TestOffReleasesSingleSubscription(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewWSChannel(srv.wsURL())
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background()))

	var mu sync.Mutex
	var first, second int
	sub := ch.On(EventEmitClient, func(json.RawMessage) {
		mu.Lock()
		first++
		mu.Unlock()
	})
	ch.On(EventEmitClient, func(json.RawMessage) {
		mu.Lock()
		second++
		mu.Unlock()
	})

	ch.Off(sub)
	srv.push(t, EventEmitClient, map[string]int{"id": 1})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return second == 1
	})
	mu.Lock()
	assert.Equal(t, 0, first, "released subscription must not fire")
	mu.Unlock()
}

func TestDisconnectReleasesHandlers(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewWSChannel(srv.wsURL())
	require.NoError(t, ch.Connect(context.Background()))

	ch.On(EventEmitClient, func(json.RawMessage) {
		t.Error("handler fired after disconnect")
	})
	ch.Disconnect()
	ch.Disconnect() // idempotent

	// A fresh connection must start with a clean registry.
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Disconnect()
	srv.push(t, EventEmitClient, map[string]int{"id": 1})
	time.Sleep(100 * time.Millisecond)
}

func TestRoleEventNames(t *testing.T) {
	assert.Equal(t, EventClientMessage, OutgoingEvent("client"))
	assert.Equal(t, EventDriverMessage, OutgoingEvent("driver"))
	assert.Equal(t, EventEmitClient, IncomingEvent("client"))
	assert.Equal(t, EventEmitDriver, IncomingEvent("driver"))
}
