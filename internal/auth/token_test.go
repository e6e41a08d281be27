package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/portfolio-be/internal/models"
)

var alice = models.User{Username: "alice", Role: models.RoleUser}

func signHour(t *testing.T, tm *TokenManager, user models.User) string {
	t.Helper()
	now := time.Now()
	tok, err := tm.Sign(user, now, now.Add(time.Hour))
	require.NoError(t, err)
	return tok
}

func TestSignAndVerify(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager("super-secret", "portfolio")
	now := time.Now()

	tok, err := tm.Sign(alice, now, now.Add(time.Hour))
	require.NoError(t, err)

	claims, err := tm.Verify(tok)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, 2*time.Second)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestSignProducesDistinctTokens(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager("secret", "portfolio")
	now := time.Now()

	a, err := tm.Sign(alice, now, now.Add(time.Hour))
	require.NoError(t, err)
	b, err := tm.Sign(alice, now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager("secret", "portfolio")
	past := time.Now().Add(-2 * time.Hour)

	tok, err := tm.Sign(alice, past, past.Add(time.Hour))
	require.NoError(t, err)

	_, err = tm.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	t.Parallel()
	tok := signHour(t, NewTokenManager("right-secret", "portfolio"), alice)

	_, err := NewTokenManager("wrong-secret", "portfolio").Verify(tok)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager("k", "portfolio")

	for _, in := range []string{"", "garbage", "not.a.jwt"} {
		_, err := tm.Verify(in)
		assert.ErrorIs(t, err, ErrTokenMalformed, in)
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager("secret", "portfolio")
	tok := signHour(t, tm, alice)
	other := signHour(t, tm, models.User{Username: "mallory", Role: models.RoleAdmin})

	parts := strings.Split(tok, ".")
	otherParts := strings.Split(other, ".")
	forged := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, err := tm.Verify(forged)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestVerifyRejectsOtherIssuer(t *testing.T) {
	t.Parallel()
	tok := signHour(t, NewTokenManager("secret", "someone-else"), alice)

	_, err := NewTokenManager("secret", "portfolio").Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	t.Parallel()
	claims := jwt.MapClaims{"sub": "alice", "iss": "portfolio", "exp": time.Now().Add(time.Hour).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "portfolio").Verify(tok)
	assert.Error(t, err)
}
