package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"ride-chat/internal/channel"
	"ride-chat/internal/models"
	"ride-chat/internal/store"
)

// State is the lifecycle phase of a conversation session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLive    State = "live"
)

const maxBodyLength = 1000

var (
	// ErrEmptyBody rejects a send whose body is empty after trimming.
	ErrEmptyBody = errors.New("message body is empty")
	// ErrBodyTooLong rejects a body over the length bound.
	ErrBodyTooLong = errors.New("message body exceeds 1000 characters")
	// ErrNotLive is returned by Send outside a live session.
	ErrNotLive = errors.New("conversation is not live")
	// ErrSessionActive is returned by Enter while a different conversation
	// is already open. Exit first.
	ErrSessionActive = errors.New("another conversation session is active")
)

// Controller owns one conversation's ordered log and coordinates the message
// store with the live channel. All log mutation, whether from the send path
// or from live dispatch, is serialized through one mutex so an echo of an id
// observed mid-send waits for the append and then dedups.
type Controller struct {
	store   store.MessageStore
	channel channel.LiveChannel
	notify  func()

	mu             sync.Mutex
	state          State
	session        int
	conversationID int
	viewerID       int
	receiverID     int
	viewerRole     models.Role
	logEntries     []models.Message
	sub            channel.Subscription
}

// NewController wires a controller to its store and channel. notify, when
// non-nil, is invoked after every append so the view can scroll to the
// newest entry; it runs outside the controller lock.
func NewController(st store.MessageStore, ch channel.LiveChannel, notify func()) *Controller {
	return &Controller{
		store:   st,
		channel: ch,
		notify:  notify,
		state:   StateIdle,
	}
}

// Enter opens a session for the ride's conversation: loads durable history
// oldest-first, then connects the live channel and subscribes to the
// viewer-role incoming event. A second Enter for the same conversation while
// one is open is a no-op. On history failure the controller returns to idle
// and Enter may be retried; no automatic retry loop.
func (c *Controller) Enter(ctx context.Context, request models.ClientRequest, viewerID int, viewerRole models.Role) error {
	if !viewerRole.Valid() {
		return fmt.Errorf("unknown viewer role %q", viewerRole)
	}

	c.mu.Lock()
	if c.state != StateIdle {
		defer c.mu.Unlock()
		if c.conversationID == request.ID {
			return nil
		}
		return ErrSessionActive
	}
	c.state = StateLoading
	c.session++
	session := c.session
	c.conversationID = request.ID
	c.viewerID = viewerID
	c.receiverID = request.ParticipantFor(viewerRole.Counterpart())
	c.viewerRole = viewerRole
	c.logEntries = nil
	c.mu.Unlock()

	history, err := c.store.ListByConversation(ctx, request.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session {
		// Exited while the load was in flight; the response is void.
		return nil
	}
	if err != nil {
		c.state = StateIdle
		return fmt.Errorf("load history: %w", err)
	}

	for i := range history {
		history[i].ViewerIsSender = history[i].SenderID == viewerID
	}
	c.logEntries = history

	if err := c.channel.Connect(ctx); err != nil {
		// Live delivery is a side channel; history is already on screen.
		// The next Enter after an Exit retries the connection.
		log.Printf("live channel connect failed: %v", err)
	} else {
		c.sub = c.channel.On(channel.IncomingEvent(viewerRole), c.handleIncoming)
	}
	c.state = StateLive
	return nil
}

// Send validates the body, writes it through the store and only then appends
// it locally and publishes the live notification. A store failure leaves the
// log untouched so the view keeps the composed text for a manual retry.
func (c *Controller) Send(ctx context.Context, body string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return models.Message{}, ErrBodyTooLong
	}

	c.mu.Lock()
	if c.state != StateLive {
		c.mu.Unlock()
		return models.Message{}, ErrNotLive
	}
	draft := models.MessageDraft{
		ConversationID: c.conversationID,
		SenderID:       c.viewerID,
		ReceiverID:     c.receiverID,
		Body:           body,
		SenderRole:     c.viewerRole,
	}
	session := c.session
	c.mu.Unlock()

	msg, err := c.store.Create(ctx, draft)
	if err != nil {
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}

	msg.ViewerIsSender = true
	msg.Status = models.StateSent

	c.mu.Lock()
	if c.session != session {
		// The view blurred while the write was in flight. The message is
		// durable; history will carry it on the next entry.
		c.mu.Unlock()
		return msg, nil
	}
	if !c.containsLocked(msg.ID) {
		c.logEntries = append(c.logEntries, msg)
	}
	outgoing := channel.OutgoingEvent(c.viewerRole)
	c.mu.Unlock()

	// The durable write is the success condition; a failed emit is silent
	// and compensated by history reconciliation on the receiver's side.
	if err := c.channel.Emit(outgoing, eventFromMessage(msg)); err != nil {
		log.Printf("live emit failed for message %d: %v", msg.ID, err)
	}

	c.notifyView()
	return msg, nil
}

// Exit tears down the live subscription and discards the in-memory log.
// Durable history is re-fetched on the next Enter.
func (c *Controller) Exit() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.session++
	c.state = StateIdle
	c.logEntries = nil
	sub := c.sub
	c.sub = channel.Subscription{}
	c.mu.Unlock()

	// Release exactly the handler this session registered, then drop the
	// transport.
	c.channel.Off(sub)
	c.channel.Disconnect()
}

// Messages returns a copy of the ordered log, oldest first.
func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.logEntries))
	copy(out, c.logEntries)
	return out
}

// State reports the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// handleIncoming reconciles one live event into the log. The durable id is
// the only trustworthy dedup key: identical bodies are legal and must not be
// merged, so the check is by id alone against the whole log.
func (c *Controller) handleIncoming(payload json.RawMessage) {
	var ev models.ChatEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("discarding malformed live event: %v", err)
		return
	}

	c.mu.Lock()
	if c.state != StateLive || ev.ConversationID != c.conversationID {
		c.mu.Unlock()
		return
	}
	if c.containsLocked(ev.ID) {
		c.mu.Unlock()
		return
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	c.logEntries = append(c.logEntries, models.Message{
		ID:             ev.ID,
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		ReceiverID:     ev.ReceiverID,
		Body:           ev.Body,
		SenderIsDriver: ev.SenderIsDriver,
		Status:         models.StateDelivered,
		CreatedAt:      ts,
		ViewerIsSender: false,
	})
	c.mu.Unlock()

	c.notifyView()
}

func (c *Controller) containsLocked(id int) bool {
	for _, m := range c.logEntries {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (c *Controller) notifyView() {
	if c.notify != nil {
		c.notify()
	}
}

func eventFromMessage(msg models.Message) models.ChatEvent {
	return models.ChatEvent{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Body:           msg.Body,
		SenderIsDriver: msg.SenderIsDriver,
		Timestamp:      msg.CreatedAt,
	}
}
