// Package store defines the persistence interface of the Kiiaren server
// and the sentinel errors its backends share. Implementations live in
// the badgerdb and sqlite subpackages and are selected at startup by
// configuration.
package store

import (
	"context"
	"time"

	"github.com/kiiaren/kiiaren-server/internal/domain"
)

// Store is the full persistence surface. Backends must satisfy every
// sub-interface; callers should depend on the narrowest one they need.
type Store interface {
	Users
	Sessions
	Workspaces
	Memberships
	Channels
	DomainClaims
	InviteLinks

	// Close flushes and releases the underlying database.
	Close() error
}

// Users persists user accounts. Email addresses are unique.
type Users interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
}

// Sessions persists refresh-token sessions.
type Sessions interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes every session whose expiry is at or
	// before now, returning how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// Workspaces persists workspaces. Slugs are unique.
type Workspaces interface {
	CreateWorkspace(ctx context.Context, ws *domain.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error)
	GetWorkspaceBySlug(ctx context.Context, slug string) (*domain.Workspace, error)
	UpdateWorkspace(ctx context.Context, ws *domain.Workspace) error
}

// Memberships links users to workspaces. At most one membership per
// (workspace, user) pair.
type Memberships interface {
	// CreateMembership inserts a membership, failing with
	// ErrAlreadyMember when one already exists for the pair.
	CreateMembership(ctx context.Context, m *domain.Membership) error
	GetMembership(ctx context.Context, workspaceID, userID string) (*domain.Membership, error)
	ListMemberships(ctx context.Context, workspaceID string) ([]*domain.Membership, error)
	ListUserMemberships(ctx context.Context, userID string) ([]*domain.Membership, error)
}

// Channels persists channels within a workspace.
type Channels interface {
	CreateChannel(ctx context.Context, ch *domain.Channel) error
	GetChannel(ctx context.Context, id string) (*domain.Channel, error)
	ListChannels(ctx context.Context, workspaceID string) ([]*domain.Channel, error)
}

// DomainClaims persists domain-ownership claims. The normalized domain
// value is unique across all workspaces; the claim record holds the slot
// for its whole lifetime, whatever its status.
type DomainClaims interface {
	// CreateDomainClaim atomically inserts the claim if no claim for
	// the same normalized domain exists, failing with ErrDomainClaimed
	// otherwise. Two concurrent calls for one domain see exactly one
	// success.
	CreateDomainClaim(ctx context.Context, claim *domain.DomainClaim) error
	GetDomainClaim(ctx context.Context, id string) (*domain.DomainClaim, error)
	GetDomainClaimByDomain(ctx context.Context, dom string) (*domain.DomainClaim, error)
	ListDomainClaims(ctx context.Context, workspaceID string) ([]*domain.DomainClaim, error)

	// SaveVerificationResult writes the claim's new status together
	// with the workspace trust flags in a single transaction, so a
	// crash can never record one without the other.
	SaveVerificationResult(ctx context.Context, claim *domain.DomainClaim, ws *domain.Workspace) error

	// DeleteDomainClaim removes the claim, frees its domain slot and
	// updates the workspace trust flags, all in one transaction.
	DeleteDomainClaim(ctx context.Context, claim *domain.DomainClaim, ws *domain.Workspace) error
}

// InviteLinks persists invite links. Codes are unique across all
// workspaces. Links are revoked, never deleted.
type InviteLinks interface {
	CreateInviteLink(ctx context.Context, link *domain.InviteLink) error
	GetInviteLink(ctx context.Context, id string) (*domain.InviteLink, error)
	GetInviteLinkByCode(ctx context.Context, code string) (*domain.InviteLink, error)
	ListInviteLinks(ctx context.Context, workspaceID string) ([]*domain.InviteLink, error)

	// RevokeInviteLink sets RevokedAt. Revoking an already revoked
	// link is a no-op, not an error.
	RevokeInviteLink(ctx context.Context, id string, at time.Time) (*domain.InviteLink, error)

	// RedeemInviteLink atomically re-checks the link (revocation,
	// expiry against now, use limit), verifies the user is not yet a
	// member, then increments UsedCount and inserts the membership.
	// Either everything commits or nothing does. Failures surface as
	// ErrNotFound, ErrInviteRevoked, ErrInviteExpired,
	// ErrInviteMaxUses or ErrAlreadyMember.
	RedeemInviteLink(ctx context.Context, code string, m *domain.Membership, now time.Time) (*domain.InviteLink, error)
}
