// Package conversations drives the conversation lifecycle: create, rename,
// delete, and membership changes, with a membership cache per conversation.
package conversations

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/socialitehq/socialite/config"
	"github.com/socialitehq/socialite/errors"
	"github.com/socialitehq/socialite/models"
	"github.com/socialitehq/socialite/transport"
)

// Service interface
type Service interface {
	List(ctx context.Context) ([]models.Conversation, error)
	Create(ctx context.Context, req models.CreateConversationRequest) (*models.Conversation, error)
	Update(ctx context.Context, conversationID string, req models.UpdateConversationRequest) (*models.Conversation, error)
	Delete(ctx context.Context, conversationID string) error
	Members(ctx context.Context, conversationID string) ([]models.Member, error)
	AddMember(ctx context.Context, conversationID, userID string) error
	RemoveMember(ctx context.Context, conversationID, userID string) error
	Leave(ctx context.Context, conversationID string) error
	TransferOwnership(ctx context.Context, conversationID, userID string) error
}

type conversationService struct {
	Config    *config.Config
	transport transport.Transport
	session   *transport.Session
	cache     *memberCache
	validate  *validator.Validate
}

// NewService creates a new instance of Service
func NewService(t transport.Transport, session *transport.Session, conf *config.Config) Service {
	return &conversationService{
		Config:    conf,
		transport: t,
		session:   session,
		cache:     newMemberCache(),
		validate:  validator.New(),
	}
}

func (cs *conversationService) List(ctx context.Context) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if _, err := cs.transport.Get(ctx, "/conversations", &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (cs *conversationService) Create(ctx context.Context, req models.CreateConversationRequest) (*models.Conversation, error) {
	if err := cs.validate.Struct(req); err != nil {
		return nil, errors.New("at least one member is required", 400)
	}
	// one-to-one threads get a derived name; groups must be named
	if len(req.MemberIDs) > 1 && strings.TrimSpace(req.Name) == "" {
		return nil, errors.ErrNameRequired
	}

	var conversation models.Conversation
	_, err := cs.transport.Post(ctx, "/conversations", req, &conversation)
	if err != nil {
		if upgraded := upgradeConflict(err); upgraded != nil {
			return nil, upgraded
		}
		return nil, err
	}
	return &conversation, nil
}

func (cs *conversationService) Update(ctx context.Context, conversationID string, req models.UpdateConversationRequest) (*models.Conversation, error) {
	var conversation models.Conversation
	if _, err := cs.transport.Patch(ctx, "/conversations/"+conversationID, req, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (cs *conversationService) Delete(ctx context.Context, conversationID string) error {
	if _, err := cs.transport.Delete(ctx, "/conversations/"+conversationID, nil); err != nil {
		return err
	}
	cs.cache.invalidate(conversationID)
	return nil
}

func (cs *conversationService) Members(ctx context.Context, conversationID string) ([]models.Member, error) {
	if members, ok := cs.cache.get(conversationID); ok {
		return members, nil
	}
	var members []models.Member
	if _, err := cs.transport.Get(ctx, "/conversations/"+conversationID+"/members", &members); err != nil {
		return nil, err
	}
	cs.cache.put(conversationID, members)
	return members, nil
}

func (cs *conversationService) AddMember(ctx context.Context, conversationID, userID string) error {
	body := map[string]string{"user_id": userID}
	if _, err := cs.transport.Post(ctx, "/conversations/"+conversationID+"/members", body, nil); err != nil {
		return err
	}
	cs.cache.invalidate(conversationID)
	return nil
}

func (cs *conversationService) RemoveMember(ctx context.Context, conversationID, userID string) error {
	if userID == cs.session.UserID {
		return errors.ErrCannotRemoveSelf
	}
	_, err := cs.transport.Delete(ctx, "/conversations/"+conversationID+"/members/"+userID, nil)
	if err != nil {
		if apiErr, ok := err.(*errors.Error); ok && errors.MatchesCannotRemoveSelf(apiErr.Message) {
			return errors.ErrCannotRemoveSelf
		}
		return err
	}
	cs.cache.invalidate(conversationID)
	return nil
}

func (cs *conversationService) Leave(ctx context.Context, conversationID string) error {
	if _, err := cs.transport.Post(ctx, "/conversations/"+conversationID+"/leave", nil, nil); err != nil {
		return err
	}
	cs.cache.invalidate(conversationID)
	return nil
}

func (cs *conversationService) TransferOwnership(ctx context.Context, conversationID, userID string) error {
	body := map[string]string{"user_id": userID}
	if _, err := cs.transport.Post(ctx, "/conversations/"+conversationID+"/transfer", body, nil); err != nil {
		return err
	}
	cs.cache.invalidate(conversationID)
	return nil
}

// upgradeConflict turns the server's "conversation already exists" response
// into a typed error carrying the existing conversation id, so callers can
// navigate there instead of showing a generic failure.
func upgradeConflict(err error) error {
	apiErr, ok := err.(*errors.Error)
	if !ok || !errors.MatchesConversationExists(apiErr.Message) {
		return nil
	}
	return &errors.ConversationExistsError{ConversationID: conflictConversationID(apiErr)}
}

func conflictConversationID(apiErr *errors.Error) string {
	// the conflict message carries the existing id after the last colon,
	// e.g. "conversation already exists: <id>"
	parts := strings.Split(apiErr.Message, ":")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-1])
}
