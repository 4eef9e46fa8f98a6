package models

import (
	"time"
)

// Post represents one feed entry.
type Post struct {
	ID           string       `json:"id"`
	Author       UserSnapshot `json:"author"`
	Content      string       `json:"content"`
	ImageURL     string       `json:"image_url,omitempty"`
	LikeCount    int          `json:"like_count"`
	CommentCount int          `json:"comment_count"`
	Liked        bool         `json:"liked"`
	CreatedAt    time.Time    `json:"created_at"`
}

type CreatePostRequest struct {
	Content  string `json:"content" validate:"required"`
	ImageURL string `json:"image_url,omitempty"`
}
