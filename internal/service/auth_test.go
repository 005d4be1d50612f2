package service

import (
	"context"
	"crypto/rand"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiiaren/kiiaren-server/internal/auth"
	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
	"github.com/kiiaren/kiiaren-server/internal/store/badgerdb"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	st, err := badgerdb.Open(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	return NewAuthService(st, tokens, slog.New(slog.DiscardHandler))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Email:       "Dev@Acme.com",
		Password:    "correct horse battery",
		DisplayName: "Dev",
	})
	require.NoError(t, err)
	assert.Equal(t, "dev@acme.com", resp.User.Email)
	assert.Empty(t, resp.User.PasswordHash)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	login, err := svc.Login(ctx, LoginRequest{
		Email:    "dev@acme.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Email:    "dev@acme.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{
		Email:    "dev@acme.com",
		Password: "another password",
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Email:    "dev@acme.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "dev@acme.com", Password: "wrong"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@acme.com", Password: "wrong"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Email:    "dev@acme.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, resp.SessionID, refreshed.SessionID)

	// The old token died with the rotation; reusing it kills the session.
	_, err = svc.Refresh(ctx, resp.RefreshToken)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	_, err = svc.Refresh(ctx, refreshed.RefreshToken)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestLogout(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Email:    "dev@acme.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.SessionID))
	_, err = svc.Refresh(ctx, resp.RefreshToken)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	// Logging out an unknown session is fine.
	require.NoError(t, svc.Logout(ctx, "ses-missing"))
}
