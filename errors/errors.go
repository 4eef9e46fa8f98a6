package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// Error is the error shape surfaced by the Socialite API envelope.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %d", e.Message, e.Status)
}

// New creates a new Error
func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
	}
}

var (
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)
	ErrNotFound            = New("not found", http.StatusNotFound)

	// validation failures, rejected before any network call
	ErrEmptyMessage     = New("message content is empty", http.StatusBadRequest)
	ErrMessageTooLong   = New("message content exceeds 500 characters", http.StatusBadRequest)
	ErrNameRequired     = New("conversation name is required", http.StatusBadRequest)
	ErrCannotRemoveSelf = New("cannot remove self from conversation", http.StatusBadRequest)
)

// ConversationExistsError is returned when the server rejects a create because
// a conversation with the same member set already exists. ConversationID
// points at the existing one so callers can navigate to it instead.
type ConversationExistsError struct {
	ConversationID string
}

func (e *ConversationExistsError) Error() string {
	return fmt.Sprintf("conversation already exists: %s", e.ConversationID)
}

// IsConversationExists reports whether err carries an existing-conversation
// conflict, returning the existing conversation id when it does.
func IsConversationExists(err error) (string, bool) {
	if e, ok := err.(*ConversationExistsError); ok {
		return e.ConversationID, true
	}
	return "", false
}

// MatchesConversationExists pattern-matches the server's conflict message.
// The backend does not use a dedicated code for this case.
func MatchesConversationExists(message string) bool {
	return strings.Contains(strings.ToLower(message), "already exists")
}

// MatchesCannotRemoveSelf pattern-matches the membership business rule.
func MatchesCannotRemoveSelf(message string) bool {
	return strings.Contains(strings.ToLower(message), "cannot remove self")
}
