package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("jc", "secret", time.Hour)
	require.NoError(t, err)

	payload, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "jc", payload.UserID)
	assert.Equal(t, TokenIssuer, payload.Issuer)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestExpiredTokenIsDetected(t *testing.T) {
	payload := &Payload{
		StandardClaims: jwtlib.StandardClaims{ExpiresAt: time.Now().Add(-time.Minute).Unix()},
		UserID:         "jc",
	}
	expired, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, payload).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseToken(expired, "secret")
	require.Error(t, err)
	assert.True(t, IsExpired(err))
}

func TestUserIDWithoutVerification(t *testing.T) {
	token, err := GenerateToken("jc", "secret-the-client-does-not-know", 0)
	require.NoError(t, err)

	userID, err := UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "jc", userID)

	_, err = UserID("not-a-token")
	assert.Error(t, err)
}

func TestDevToken(t *testing.T) {
	token, err := DevToken("!anon")
	require.NoError(t, err)

	assert.True(t, IsDevToken(token))
	assert.Equal(t, "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9", token[:36])

	userID, err := UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "!anon", userID)

	payload, err := Authenticate(token, "secret", true)
	require.NoError(t, err)
	assert.Equal(t, "!anon", payload.UserID)

	_, err = Authenticate(token, "secret", false)
	assert.Error(t, err)
}
