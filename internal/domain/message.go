package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecipientAll is the sentinel recipient of a broadcast message.
const RecipientAll = "all"

// MessageType classifies how a message is delivered.
type MessageType string

const (
	MessageDirect       MessageType = "direct"
	MessageBroadcast    MessageType = "broadcast"
	MessageNotification MessageType = "notification"
)

// Priority is the sender-assigned urgency of a message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Message is a single routed message. Only Read ever changes after creation.
type Message struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Read      bool        `json:"read"`
	Priority  Priority    `json:"priority"`
}

// IsBroadcast reports whether the message fans out to every connection.
func (m Message) IsBroadcast() bool {
	return m.Type == MessageBroadcast
}

// InboundFrame is what a client sends over its connection.
type InboundFrame struct {
	To       string      `json:"to,omitempty" validate:"max=128"`
	Content  string      `json:"content" validate:"required,max=4000"`
	Type     MessageType `json:"type,omitempty" validate:"omitempty,oneof=direct broadcast"`
	Priority Priority    `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
}

// ParseInboundFrame decodes and validates a raw client frame.
func ParseInboundFrame(raw []byte) (InboundFrame, error) {
	var in InboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		return InboundFrame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := in.Validate(); err != nil {
		return InboundFrame{}, err
	}
	return in, nil
}

// Validate checks the frame against its tags.
func (in InboundFrame) Validate() error {
	if err := validatorInstance.Struct(&in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return nil
}

// Normalize applies the delivery defaults: a missing recipient or an explicit
// broadcast type means "all", and the type always follows the recipient.
func (in InboundFrame) Normalize() (to string, typ MessageType, priority Priority) {
	to = in.To
	if to == "" || in.Type == MessageBroadcast {
		to = RecipientAll
	}
	typ = MessageDirect
	if to == RecipientAll {
		typ = MessageBroadcast
	}
	priority = in.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	return to, typ, priority
}
