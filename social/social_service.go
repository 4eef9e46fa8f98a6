// Package social covers the non-chat product surface: feed, posts, likes,
// comments and friends. It is direct REST plumbing with no local state.
package social

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/socialitehq/socialite/config"
	"github.com/socialitehq/socialite/models"
	"github.com/socialitehq/socialite/transport"
)

// Service interface
type Service interface {
	Feed(ctx context.Context, page int) ([]models.Post, *models.Paging, error)
	CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error)
	LikePost(ctx context.Context, postID string) error
	UnlikePost(ctx context.Context, postID string) error
	Comments(ctx context.Context, postID string) ([]models.Comment, error)
	AddComment(ctx context.Context, postID string, req models.AddCommentRequest) (*models.Comment, error)
	Friends(ctx context.Context) ([]models.Friend, error)
	SendFriendRequest(ctx context.Context, userID string) error
	AcceptFriendRequest(ctx context.Context, userID string) error
	RemoveFriend(ctx context.Context, userID string) error
}

type socialService struct {
	Config    *config.Config
	transport transport.Transport
	validate  *validator.Validate
}

// NewService creates a new instance of Service
func NewService(t transport.Transport, conf *config.Config) Service {
	return &socialService{
		Config:    conf,
		transport: t,
		validate:  validator.New(),
	}
}

func (ss *socialService) Feed(ctx context.Context, page int) ([]models.Post, *models.Paging, error) {
	if page < 1 {
		page = 1
	}
	var posts []models.Post
	env, err := ss.transport.Get(ctx, fmt.Sprintf("/feed?page=%d&limit=%d", page, ss.Config.PageSize), &posts)
	if err != nil {
		return nil, nil, err
	}
	return posts, env.Paging, nil
}

func (ss *socialService) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	if err := ss.validate.Struct(req); err != nil {
		return nil, err
	}
	var post models.Post
	if _, err := ss.transport.Post(ctx, "/posts", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (ss *socialService) LikePost(ctx context.Context, postID string) error {
	_, err := ss.transport.Post(ctx, "/posts/"+postID+"/like", nil, nil)
	return err
}

func (ss *socialService) UnlikePost(ctx context.Context, postID string) error {
	_, err := ss.transport.Delete(ctx, "/posts/"+postID+"/like", nil)
	return err
}

func (ss *socialService) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if _, err := ss.transport.Get(ctx, "/posts/"+postID+"/comments", &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (ss *socialService) AddComment(ctx context.Context, postID string, req models.AddCommentRequest) (*models.Comment, error) {
	if err := ss.validate.Struct(req); err != nil {
		return nil, err
	}
	var comment models.Comment
	if _, err := ss.transport.Post(ctx, "/posts/"+postID+"/comments", req, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (ss *socialService) Friends(ctx context.Context) ([]models.Friend, error) {
	var friends []models.Friend
	if _, err := ss.transport.Get(ctx, "/friends", &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

func (ss *socialService) SendFriendRequest(ctx context.Context, userID string) error {
	_, err := ss.transport.Post(ctx, "/friends/"+userID+"/request", nil, nil)
	return err
}

func (ss *socialService) AcceptFriendRequest(ctx context.Context, userID string) error {
	_, err := ss.transport.Post(ctx, "/friends/"+userID+"/accept", nil, nil)
	return err
}

func (ss *socialService) RemoveFriend(ctx context.Context, userID string) error {
	_, err := ss.transport.Delete(ctx, "/friends/"+userID, nil)
	return err
}
