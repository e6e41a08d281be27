package models

import "time"

// User captures application-facing fields for an authenticated identity.
type User struct {
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"`
	Role         Role         `json:"role"`
	Permissions  []Permission `json:"permissions"`
	CreatedAt    time.Time    `json:"created_at"`
}
