package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kiiaren.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestUserEmailUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &domain.User{Email: "jo@acme.com", DisplayName: "Jo"}
	u.ID = "usr-1"
	u.InitTimestamps()
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByEmail(ctx, "JO@ACME.COM")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", got.ID)

	dup := &domain.User{Email: "Jo@Acme.com"}
	dup.ID = "usr-2"
	dup.InitTimestamps()
	assert.ErrorIs(t, s.CreateUser(ctx, dup), store.ErrAlreadyExists)
}

func TestDomainClaimUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	claim := &domain.DomainClaim{
		ID: "dom-1", WorkspaceID: "wrk-1", Domain: "acme.com",
		VerificationToken: "tok", Status: domain.ClaimStatusPending,
		CreatedAt: now, UpdatedAt: now, CreatedBy: "usr-1",
	}
	require.NoError(t, s.CreateDomainClaim(ctx, claim))

	other := &domain.DomainClaim{
		ID: "dom-2", WorkspaceID: "wrk-2", Domain: "acme.com",
		VerificationToken: "tok2", Status: domain.ClaimStatusPending,
		CreatedAt: now, UpdatedAt: now, CreatedBy: "usr-2",
	}
	assert.ErrorIs(t, s.CreateDomainClaim(ctx, other), store.ErrDomainClaimed)
}

func TestSaveVerificationResultRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	ws := &domain.Workspace{Name: "Acme", Slug: "acme", OwnerID: "usr-1", JoinCodeEnabled: true}
	ws.ID = "wrk-1"
	ws.InitTimestamps()
	require.NoError(t, s.CreateWorkspace(ctx, ws))

	claim := &domain.DomainClaim{
		ID: "dom-1", WorkspaceID: ws.ID, Domain: "acme.com",
		VerificationToken: "tok", Status: domain.ClaimStatusPending,
		CreatedAt: now, UpdatedAt: now, CreatedBy: "usr-1",
	}
	require.NoError(t, s.CreateDomainClaim(ctx, claim))

	claim.Status = domain.ClaimStatusVerified
	claim.VerifiedAt = &now
	claim.UpdatedAt = now
	ws.DomainVerified = true
	ws.JoinCodeEnabled = false
	ws.Touch()
	require.NoError(t, s.SaveVerificationResult(ctx, claim, ws))

	gotClaim, err := s.GetDomainClaim(ctx, "dom-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusVerified, gotClaim.Status)
	require.NotNil(t, gotClaim.VerifiedAt)

	gotWs, err := s.GetWorkspace(ctx, "wrk-1")
	require.NoError(t, err)
	assert.True(t, gotWs.DomainVerified)
	assert.False(t, gotWs.JoinCodeEnabled)
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mkSession := func(id string, expiresAt time.Time) *domain.Session {
		return &domain.Session{
			ID: id, UserID: "usr-1", ExpiresAt: expiresAt,
			CreatedAt: now, LastSeenAt: now,
		}
	}
	require.NoError(t, s.CreateSession(ctx, mkSession("ses-old", now.Add(-time.Hour))))
	require.NoError(t, s.CreateSession(ctx, mkSession("ses-live", now.Add(time.Hour))))

	deleted, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = s.GetSession(ctx, "ses-old")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetSession(ctx, "ses-live")
	assert.NoError(t, err)
}

func newTestLink(maxUses *int, expiresAt time.Time) *domain.InviteLink {
	return &domain.InviteLink{
		ID:          "invl-1",
		WorkspaceID: "wrk-1",
		Code:        "code-x",
		Scope:       domain.InviteScope{Kind: domain.ScopeWorkspace},
		CreatedBy:   "usr-admin",
		CreatedAt:   time.Now(),
		ExpiresAt:   expiresAt,
		MaxUses:     maxUses,
	}
}

func newTestMember(id, userID string) *domain.Membership {
	m := &domain.Membership{WorkspaceID: "wrk-1", UserID: userID, Role: domain.WorkspaceRoleMember}
	m.ID = "mbr-" + id
	m.InitTimestamps()
	return m
}

func TestRedeemFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	one := 1
	require.NoError(t, s.CreateInviteLink(ctx, newTestLink(&one, now.Add(time.Hour))))

	link, err := s.RedeemInviteLink(ctx, "code-x", newTestMember("1", "usr-1"), now)
	require.NoError(t, err)
	assert.Equal(t, 1, link.UsedCount)

	m, err := s.GetMembership(ctx, "wrk-1", "usr-1")
	require.NoError(t, err)
	assert.Equal(t, "usr-admin", m.InvitedBy)

	// Limit reached.
	_, err = s.RedeemInviteLink(ctx, "code-x", newTestMember("2", "usr-2"), now)
	assert.ErrorIs(t, err, store.ErrInviteMaxUses)
}

func TestRedeemAlreadyMemberKeepsCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateInviteLink(ctx, newTestLink(nil, now.Add(time.Hour))))
	require.NoError(t, s.CreateMembership(ctx, newTestMember("1", "usr-1")))

	_, err := s.RedeemInviteLink(ctx, "code-x", newTestMember("2", "usr-1"), now)
	assert.ErrorIs(t, err, store.ErrAlreadyMember)

	link, err := s.GetInviteLinkByCode(ctx, "code-x")
	require.NoError(t, err)
	assert.Equal(t, 0, link.UsedCount)
}

func TestRevokeInviteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateInviteLink(ctx, newTestLink(nil, now.Add(time.Hour))))

	first, err := s.RevokeInviteLink(ctx, "invl-1", now)
	require.NoError(t, err)
	require.NotNil(t, first.RevokedAt)

	second, err := s.RevokeInviteLink(ctx, "invl-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, second.RevokedAt.Equal(*first.RevokedAt))

	_, err = s.RedeemInviteLink(ctx, "code-x", newTestMember("1", "usr-1"), now)
	assert.ErrorIs(t, err, store.ErrInviteRevoked)
}
