package transport

import (
	"github.com/golang-jwt/jwt"
	pkgerrors "github.com/pkg/errors"
	"github.com/socialitehq/socialite/models"
)

// Session is the current user's identity as carried in the access token.
// It is read-only from the client's perspective; the server owns the claims.
type Session struct {
	UserID     string
	Username   string
	Name       string
	FamilyName string
	AvatarURL  string
	Token      string
}

// NewSession decodes the access token's claims without verifying the
// signature. Verification is the server's job; the client only needs the
// identity fields for optimistic sends and signaling.
func NewSession(token string) (*Session, error) {
	claims := jwt.MapClaims{}
	parser := &jwt.Parser{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, pkgerrors.Wrap(err, "parse access token")
	}

	s := &Session{Token: token}
	s.UserID = stringClaim(claims, "id")
	s.Username = stringClaim(claims, "username")
	s.Name = stringClaim(claims, "name")
	s.FamilyName = stringClaim(claims, "family_name")
	s.AvatarURL = stringClaim(claims, "profile_image")
	if s.UserID == "" {
		return nil, pkgerrors.New("access token has no user id claim")
	}
	return s, nil
}

// Snapshot is the author identity stamped on optimistic messages.
func (s *Session) Snapshot() models.UserSnapshot {
	return models.UserSnapshot{
		ID:         s.UserID,
		Name:       s.Name,
		FamilyName: s.FamilyName,
		AvatarURL:  s.AvatarURL,
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
