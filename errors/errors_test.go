package errors

import (
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New("something broke", 500)
	if err.Error() != "something broke: 500" {
		t.Errorf("got %q", err.Error())
	}
}

func TestIsConversationExists(t *testing.T) {
	err := &ConversationExistsError{ConversationID: "conv-1"}
	id, ok := IsConversationExists(err)
	if !ok || id != "conv-1" {
		t.Errorf("got %q %v", id, ok)
	}
	if _, ok := IsConversationExists(New("other", 400)); ok {
		t.Error("plain errors must not match")
	}
}

func TestMessagePatternMatching(t *testing.T) {
	if !MatchesConversationExists("Conversation Already Exists: abc") {
		t.Error("matching is case-insensitive")
	}
	if MatchesConversationExists("conversation not found") {
		t.Error("unrelated message matched")
	}
	if !MatchesCannotRemoveSelf("Cannot remove self from conversation") {
		t.Error("self-removal rule did not match")
	}
}
