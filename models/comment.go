package models

import (
	"time"
)

// Comment represents a user's comment on a post.
type Comment struct {
	ID        string       `json:"id"`
	PostID    string       `json:"post_id"`
	Author    UserSnapshot `json:"author"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

type AddCommentRequest struct {
	Content string `json:"content" validate:"required"`
}
