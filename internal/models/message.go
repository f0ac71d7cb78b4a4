package models

import "time"

// DeliveryState tracks how far a message has progressed from the viewer's
// perspective. It only ever advances.
type DeliveryState string

const (
	StateComposing DeliveryState = "composing"
	StateSent      DeliveryState = "sent"
	StateDelivered DeliveryState = "delivered"
	StateRead      DeliveryState = "read"
)

// Role identifies which side of a ride a participant is on.
type Role string

const (
	RoleClient Role = "client"
	RoleDriver Role = "driver"
)

// Valid reports whether the role is one of the two known sides.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleDriver
}

// Counterpart returns the opposite side of the conversation.
func (r Role) Counterpart() Role {
	if r == RoleDriver {
		return RoleClient
	}
	return RoleDriver
}

// Message is the atomic unit of a ride conversation. JSON tags follow the
// chat API wire contract; db tags follow the chat_messages schema.
type Message struct {
	ID             int           `db:"id" json:"id"`
	ConversationID int           `db:"id_client_request" json:"id_client_request"`
	SenderID       int           `db:"id_sender" json:"id_sender"`
	ReceiverID     int           `db:"id_receiver" json:"id_receiver"`
	Body           string        `db:"text" json:"text"`
	SenderIsDriver bool          `db:"is_driver" json:"is_driver"`
	Status         DeliveryState `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"timestamp"`

	// ViewerIsSender is derived locally from the viewer identity and is
	// never trusted from the wire.
	ViewerIsSender bool `db:"-" json:"isMe"`
}

// SenderRole maps the is_driver flag back to a Role.
func (m Message) SenderRole() Role {
	if m.SenderIsDriver {
		return RoleDriver
	}
	return RoleClient
}

// MessageDraft is the input for creating a message. The backend assigns the
// durable id and created-at on persistence.
type MessageDraft struct {
	ConversationID int    `json:"id_client_request"`
	SenderID       int    `json:"id_sender"`
	ReceiverID     int    `json:"id_receiver"`
	Body           string `json:"text"`
	SenderRole     Role   `json:"-"`
}

// ChatEvent is the payload carried on the live channel for one message.
type ChatEvent struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"id_client_request"`
	SenderID       int       `json:"id_sender"`
	ReceiverID     int       `json:"id_receiver"`
	Body           string    `json:"text"`
	SenderIsDriver bool      `json:"is_driver"`
	Timestamp      time.Time `json:"timestamp"`
}
