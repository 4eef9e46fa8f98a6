package models

import (
	"time"
)

type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
)

// Friend is one edge of the viewer's friend relation.
type Friend struct {
	User      User         `json:"user"`
	Status    FriendStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
