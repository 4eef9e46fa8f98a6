package models

import (
	"time"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

type Conversation struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ImageURL    string    `json:"image_url,omitempty"`
	LastMessage string    `json:"last_message"`
	Role        Role      `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member is one entry of a conversation's membership relation, fetched
// independently of the conversation itself and cached by conversation id.
type Member struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	FamilyName string `json:"family_name"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	Role       Role   `json:"role"`
}

type CreateConversationRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids" validate:"required,min=1"`
	ImageURL  string   `json:"image_url,omitempty"`
}

type UpdateConversationRequest struct {
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}
