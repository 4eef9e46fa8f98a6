package models

// User represents a user profile as returned by the API.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	Online     bool   `json:"online"`
}

// Snapshot captures the display identity used on outgoing messages.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:         u.ID,
		Name:       u.Name,
		FamilyName: u.FamilyName,
		AvatarURL:  u.AvatarURL,
	}
}
