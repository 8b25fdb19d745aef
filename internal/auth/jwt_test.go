package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-chars!"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(sub string) Claims {
	now := time.Now()
	return Claims{
		Email: "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "grocery-auth",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	}
}

func TestVerifier_Valid(t *testing.T) {
	v := NewVerifier(testSecret, "grocery-auth")
	tok := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("7"))

	claims, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier(testSecret, "grocery-auth")

	expired := validClaims("7")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims("7")
	noExpiry.ExpiresAt = nil

	wrongIssuer := validClaims("7")
	wrongIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("another-secret-of-sufficient-size!!"), validClaims("7"))},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("7"))},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"no expiry", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)},
		{"non-numeric subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("ana"))},
		{"zero subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("0"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestVerifier_NoIssuerCheck(t *testing.T) {
	v := NewVerifier(testSecret, "")
	c := validClaims("3")
	c.Issuer = ""
	claims, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), c))
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
}

func TestNewAccessToken_RoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "grocery-auth", 42, "dev@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := NewVerifier(testSecret, "grocery-auth").Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "dev@example.com", claims.Email)

	_, err = NewVerifier("another-secret-of-sufficient-length!!", "").Verify(tok)
	assert.Error(t, err)
}
