package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hongminglow/portfolio-be/internal/models"
)

var (
	// ErrTokenMalformed is returned for strings that are not a JWT at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature is returned when the signature does not match the payload.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenExpired is returned when exp lies in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other rejected token (algorithm, issuer, nbf).
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the identity carried inside every issued token.
type Claims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 JWTs for authenticated users.
type TokenManager struct {
	secret []byte
	issuer string
}

// NewTokenManager creates a manager with the provided secret and issuer.
// Token lifetimes are chosen per call by the session manager.
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Sign issues a token for user with explicit issue and expiry times.
func (t *TokenManager) Sign(user models.User, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's structure, signature, issuer and expiry.
func (t *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
