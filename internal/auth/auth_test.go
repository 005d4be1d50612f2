package auth

import (
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiiaren/kiiaren-server/internal/domain"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	assert.True(t, VerifyPassword(hash, "correct horse battery staple"))
	assert.False(t, VerifyPassword(hash, "wrong password"))
	assert.False(t, VerifyPassword("not-a-hash", "whatever"))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestHashPasswordRejectsOversized(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", maxPasswordLength+1))
	assert.Error(t, err)
}

func newTokenService(t *testing.T) *TokenService {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	svc, err := NewTokenService(key, 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)
	return svc
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTokenService(t)

	user := &domain.User{Email: "jo@acme.com"}
	user.ID = "usr-1"

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, "jo@acme.com", claims.Email)
	assert.Equal(t, "usr-1", claims.Subject)
}

func TestVerifyAccessTokenWrongKey(t *testing.T) {
	svc := newTokenService(t)
	other := newTokenService(t)

	user := &domain.User{Email: "jo@acme.com"}
	user.ID = "usr-1"
	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestNewTokenServiceRejectsShortKey(t *testing.T) {
	_, err := NewTokenService([]byte("too short"), time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestRefreshTokenHashing(t *testing.T) {
	svc := newTokenService(t)

	tok1, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	tok2, err := svc.GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, tok1, tok2)
	assert.Equal(t, HashRefreshToken(tok1), HashRefreshToken(tok1))
	assert.NotEqual(t, HashRefreshToken(tok1), HashRefreshToken(tok2))
	assert.NotContains(t, HashRefreshToken(tok1), tok1)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := t.TempDir()

	key1, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, key1, 32)

	// Second load returns the same key.
	key2, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}
