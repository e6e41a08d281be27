package dto

import "time"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type KillSessionRequest struct {
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

type CSRFTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}
