package transport

import (
	"testing"

	"github.com/golang-jwt/jwt"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestNewSessionReadsIdentityClaims(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"id":            "u1",
		"username":      "ana",
		"name":          "Ana",
		"family_name":   "Silva",
		"profile_image": "https://cdn.example/a.png",
	})
	s, err := NewSession(token)
	if err != nil {
		t.Fatal(err)
	}
	if s.UserID != "u1" || s.Username != "ana" || s.FamilyName != "Silva" {
		t.Errorf("claims not decoded: %+v", s)
	}
	snap := s.Snapshot()
	if snap.ID != "u1" || snap.AvatarURL != "https://cdn.example/a.png" {
		t.Errorf("snapshot mismatch: %+v", snap)
	}
}

func TestNewSessionRequiresUserID(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"username": "ana"})
	if _, err := NewSession(token); err == nil {
		t.Fatal("token without id claim must be rejected")
	}
}

func TestNewSessionRejectsGarbage(t *testing.T) {
	if _, err := NewSession("not-a-token"); err == nil {
		t.Fatal("malformed token must be rejected")
	}
}
