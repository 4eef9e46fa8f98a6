package conversations

import (
	"context"
	"testing"

	"github.com/socialitehq/socialite/config"
	"github.com/socialitehq/socialite/errors"
	"github.com/socialitehq/socialite/models"
	"github.com/socialitehq/socialite/transport"
)

type stubTransport struct {
	get    func(path string, out interface{}) (*models.Envelope, error)
	post   func(path string, body, out interface{}) (*models.Envelope, error)
	delete func(path string, out interface{}) (*models.Envelope, error)
}

func (s *stubTransport) Get(_ context.Context, path string, out interface{}) (*models.Envelope, error) {
	if s.get == nil {
		return &models.Envelope{Code: 200}, nil
	}
	return s.get(path, out)
}

func (s *stubTransport) Post(_ context.Context, path string, body, out interface{}) (*models.Envelope, error) {
	if s.post == nil {
		return &models.Envelope{Code: 200}, nil
	}
	return s.post(path, body, out)
}

func (s *stubTransport) Patch(_ context.Context, path string, body, out interface{}) (*models.Envelope, error) {
	return &models.Envelope{Code: 200}, nil
}

func (s *stubTransport) Delete(_ context.Context, path string, out interface{}) (*models.Envelope, error) {
	if s.delete == nil {
		return &models.Envelope{Code: 200}, nil
	}
	return s.delete(path, out)
}

func newTestService(t *stubTransport) Service {
	session := &transport.Session{UserID: "u1", Username: "ana"}
	return NewService(t, session, &config.Config{PageSize: 20})
}

func TestCreateRequiresMembers(t *testing.T) {
	svc := newTestService(&stubTransport{})
	_, err := svc.Create(context.Background(), models.CreateConversationRequest{})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCreateGroupRequiresName(t *testing.T) {
	svc := newTestService(&stubTransport{})
	_, err := svc.Create(context.Background(), models.CreateConversationRequest{
		MemberIDs: []string{"u2", "u3"},
		Name:      "   ",
	})
	if err != errors.ErrNameRequired {
		t.Errorf("got %v, want ErrNameRequired", err)
	}
}

func TestCreateOneToOneNeedsNoName(t *testing.T) {
	st := &stubTransport{post: func(path string, body, out interface{}) (*models.Envelope, error) {
		*(out.(*models.Conversation)) = models.Conversation{ID: "c1"}
		return &models.Envelope{Code: 201}, nil
	}}
	svc := newTestService(st)
	conv, err := svc.Create(context.Background(), models.CreateConversationRequest{MemberIDs: []string{"u2"}})
	if err != nil {
		t.Fatal(err)
	}
	if conv.ID != "c1" {
		t.Errorf("got %q", conv.ID)
	}
}

func TestCreateConflictCarriesExistingConversation(t *testing.T) {
	st := &stubTransport{post: func(path string, body, out interface{}) (*models.Envelope, error) {
		return nil, errors.New("conversation already exists: conv-9", 409)
	}}
	svc := newTestService(st)
	_, err := svc.Create(context.Background(), models.CreateConversationRequest{MemberIDs: []string{"u2"}})

	conflict, ok := err.(*errors.ConversationExistsError)
	if !ok {
		t.Fatalf("expected ConversationExistsError, got %T: %v", err, err)
	}
	if conflict.ConversationID != "conv-9" {
		t.Errorf("got conversation id %q, want conv-9", conflict.ConversationID)
	}
	if id, ok := errors.IsConversationExists(err); !ok || id != "conv-9" {
		t.Errorf("IsConversationExists should match the upgraded error, got %q %v", id, ok)
	}
}

func TestMembersAreCachedUntilMembershipChanges(t *testing.T) {
	gets := 0
	st := &stubTransport{get: func(path string, out interface{}) (*models.Envelope, error) {
		gets++
		*(out.(*[]models.Member)) = []models.Member{{UserID: "u2", Name: "Bea"}}
		return &models.Envelope{Code: 200}, nil
	}}
	svc := newTestService(st)

	for i := 0; i < 3; i++ {
		members, err := svc.Members(context.Background(), "c1")
		if err != nil {
			t.Fatal(err)
		}
		if len(members) != 1 {
			t.Fatalf("expected 1 member, got %d", len(members))
		}
	}
	if gets != 1 {
		t.Errorf("expected a single fetch for repeated reads, got %d", gets)
	}

	if err := svc.AddMember(context.Background(), "c1", "u3"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Members(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if gets != 2 {
		t.Errorf("membership change should invalidate the cache, got %d fetches", gets)
	}
}

func TestRemoveMemberRejectsSelfLocally(t *testing.T) {
	called := false
	st := &stubTransport{delete: func(path string, out interface{}) (*models.Envelope, error) {
		called = true
		return &models.Envelope{Code: 200}, nil
	}}
	svc := newTestService(st)

	if err := svc.RemoveMember(context.Background(), "c1", "u1"); err != errors.ErrCannotRemoveSelf {
		t.Errorf("got %v, want ErrCannotRemoveSelf", err)
	}
	if called {
		t.Error("self-removal must not reach the server")
	}
}

func TestRemoveMemberMapsServerSelfRule(t *testing.T) {
	st := &stubTransport{delete: func(path string, out interface{}) (*models.Envelope, error) {
		return nil, errors.New("cannot remove self from conversation", 400)
	}}
	svc := newTestService(st)
	if err := svc.RemoveMember(context.Background(), "c1", "u9"); err != errors.ErrCannotRemoveSelf {
		t.Errorf("got %v, want ErrCannotRemoveSelf", err)
	}
}
