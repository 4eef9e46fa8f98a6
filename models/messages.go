package models

import (
	"time"
)

// MessageState closes the set of states a chat message can be in. A message
// is pending from the moment it is created locally until the server echoes it
// back; it never goes back to pending once confirmed.
type MessageState int

const (
	MessageConfirmed MessageState = iota
	MessagePending
	MessageFailed
)

// UserSnapshot is the author identity captured at send time. It is a snapshot,
// not a live join; later profile edits do not rewrite old messages.
type UserSnapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FamilyName string `json:"family_name"`
	AvatarURL  string `json:"avatar_url,omitempty"`
}

// ChatMessage represents one message in a conversation.
type ChatMessage struct {
	ID             string       `json:"id"`
	ClientKey      string       `json:"client_key,omitempty"`
	ConversationID string       `json:"conversation_id"`
	SenderID       string       `json:"sender_id"`
	Sender         UserSnapshot `json:"sender"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"created_at"`
	ParentID       string       `json:"parent_id,omitempty"`
	State          MessageState `json:"-"`
	FromPush       bool         `json:"-"`
}

// Pending reports whether the message is a local optimistic entry that has
// not been confirmed by the server yet. Failed sends stay in the list and
// still count as pending for reconciliation purposes.
func (m *ChatMessage) Pending() bool {
	return m.State == MessagePending || m.State == MessageFailed
}

type SendMessageRequest struct {
	Content   string `json:"content" validate:"required,max=500"`
	ParentID  string `json:"parent_id,omitempty"`
	ClientKey string `json:"client_key" validate:"required"`
}
