package sessions

import "errors"

var (
	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenNotFound means no session holds the token.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired means the session existed but had expired; it has been deleted.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionNotFound is returned by the kill operations when nothing was deleted.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownPermission rejects a session carrying a permission outside the catalog.
	ErrUnknownPermission = errors.New("unknown permission")
)
