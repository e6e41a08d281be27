package models

import "time"

// Session is the server-side record proving a token is currently valid.
// Permissions are a snapshot taken at login and never follow later user edits.
type Session struct {
	Username    string       `json:"username"`
	Token       string       `json:"-"`
	Permissions []Permission `json:"permissions"`
	Role        Role         `json:"role"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Expired reports whether the session's expiry lies strictly before now.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
