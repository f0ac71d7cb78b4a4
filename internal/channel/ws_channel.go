package channel

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

// Frame is the wire envelope for one named event.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// WSChannel is a websocket-backed LiveChannel. One instance owns at most one
// connection; the controller re-invokes Connect after a drop if it wants the
// channel back (no automatic reconnect, no buffering across disconnects).
type WSChannel struct {
	url    string
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]map[int]Handler
	nextID   int
}

// NewWSChannel builds a channel that dials the given websocket URL.
func NewWSChannel(url string) *WSChannel {
	return &WSChannel{
		url:      url,
		dialer:   websocket.DefaultDialer,
		handlers: make(map[string]map[int]Handler),
	}
}

// Connect dials the transport and starts the read loop. No-op when already
// connected.
func (c *WSChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	ctx, span := otel.Tracer("ride-chat/channel").Start(ctx, "channel.connect")
	defer span.End()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	go c.readLoop(conn)
	return nil
}

// Disconnect closes the transport and drops every registered handler.
func (c *WSChannel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.handlers = make(map[string]map[int]Handler)
}

// On registers a handler for a named event and returns its subscription token.
func (c *WSChannel) On(event string, fn Handler) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.handlers[event]; !ok {
		c.handlers[event] = make(map[int]Handler)
	}
	c.nextID++
	c.handlers[event][c.nextID] = fn
	return Subscription{event: event, id: c.nextID}
}

// Off releases the registration identified by sub.
func (c *WSChannel) Off(sub Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fns, ok := c.handlers[sub.event]; ok {
		delete(fns, sub.id)
		if len(fns) == 0 {
			delete(c.handlers, sub.event)
		}
	}
}

// Emit writes one frame under the named event. Fire-and-forget: there is no
// delivery acknowledgement at this layer.
func (c *WSChannel) Emit(event string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame := Frame{Event: event, Payload: body}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(frame)
}

func (c *WSChannel) readLoop(conn *websocket.Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("live channel read error: %v", err)
			}
			c.mu.Lock()
			if c.conn == conn {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()
			return
		}
		c.dispatch(frame)
	}
}

func (c *WSChannel) dispatch(frame Frame) {
	c.mu.Lock()
	fns := make([]Handler, 0, len(c.handlers[frame.Event]))
	for _, fn := range c.handlers[frame.Event] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(frame.Payload)
	}
}

var _ LiveChannel = (*WSChannel)(nil)
