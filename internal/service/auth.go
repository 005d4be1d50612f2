package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiiaren/kiiaren-server/internal/auth"
	"github.com/kiiaren/kiiaren-server/internal/domain"
	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
	"github.com/kiiaren/kiiaren-server/internal/id"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// AuthService handles account registration, login and session lifecycle.
type AuthService struct {
	store  store.Store
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(st store.Store, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{store: st, tokens: tokens, logger: logger}
}

// RegisterRequest contains the data needed to create an account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"max=100"`
	IPAddress   string `json:"-"` // Extracted from the request by the handler
	UserAgent   string `json:"-"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// AuthResponse is returned after registration, login or refresh.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	SessionID    string       `json:"session_id"`
}

// Register creates a new account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "hash password")
	}

	user := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
		LastLoginAt:  time.Now(),
	}
	user.ID, err = id.Generate("usr")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate user ID")
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("an account with this email already exists")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create user")
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return s.openSession(ctx, user, req.IPAddress, req.UserAgent)
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load user")
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}

	return s.openSession(ctx, user, req.IPAddress, req.UserAgent)
}

// Refresh exchanges a refresh token for a fresh token pair. The token
// is rotated: the old one stops working immediately.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	sessionID, opaque, ok := strings.Cut(refreshToken, ".")
	if !ok {
		return nil, domainerrors.Unauthorized("malformed refresh token")
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("session not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load session")
	}

	if session.IsExpired() {
		_ = s.store.DeleteSession(ctx, session.ID)
		return nil, &domainerrors.Error{Code: domainerrors.CodeTokenExpired, Message: "session expired"}
	}
	if auth.HashRefreshToken(opaque) != session.RefreshTokenHash {
		// A mismatch can mean token theft; kill the session.
		_ = s.store.DeleteSession(ctx, session.ID)
		return nil, domainerrors.Unauthorized("refresh token mismatch")
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load user")
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate access token")
	}
	newOpaque, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate refresh token")
	}

	session.RefreshTokenHash = auth.HashRefreshToken(newOpaque)
	session.ExpiresAt = time.Now().Add(s.tokens.RefreshTokenDuration())
	session.Touch()
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "update session")
	}

	return &AuthResponse{
		User:         sanitizeUser(user),
		AccessToken:  accessToken,
		RefreshToken: session.ID + "." + newOpaque,
		ExpiresAt:    time.Now().Add(s.tokens.AccessTokenDuration()),
		SessionID:    session.ID,
	}, nil
}

// VerifyAccessToken validates a bearer token and loads its user. Used by
// the HTTP layer to authenticate requests.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid or expired token")
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("user not found")
	}
	return sanitizeUser(user), claims, nil
}

// Logout deletes a single session. Unknown sessions are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	err := s.store.DeleteSession(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "delete session")
	}
	return nil
}

// LogoutAll deletes every session of a user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.store.DeleteUserSessions(ctx, userID); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "delete sessions")
	}
	return nil
}

// GetUser loads a user by ID with the password hash stripped.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load user")
	}
	return sanitizeUser(user), nil
}

// openSession creates a session record and issues a token pair.
func (s *AuthService) openSession(ctx context.Context, user *domain.User, ipAddress, userAgent string) (*AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate access token")
	}
	opaque, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate refresh token")
	}

	sessionID, err := id.Generate("ses")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate session ID")
	}

	now := time.Now()
	session := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(opaque),
		ExpiresAt:        now.Add(s.tokens.RefreshTokenDuration()),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create session")
	}

	return &AuthResponse{
		User:         sanitizeUser(user),
		AccessToken:  accessToken,
		RefreshToken: fmt.Sprintf("%s.%s", sessionID, opaque),
		ExpiresAt:    now.Add(s.tokens.AccessTokenDuration()),
		SessionID:    sessionID,
	}, nil
}

// sanitizeUser returns a copy safe to hand to API responses.
func sanitizeUser(u *domain.User) *domain.User {
	clean := *u
	clean.PasswordHash = ""
	return &clean
}
