package domain

import "time"

// InviteScopeKind distinguishes workspace-wide invites from channel invites.
type InviteScopeKind string

const (
	// ScopeWorkspace admits the redeemer to the whole workspace.
	ScopeWorkspace InviteScopeKind = "workspace"
	// ScopeChannel admits the redeemer to the workspace via a specific channel.
	ScopeChannel InviteScopeKind = "channel"
)

// InviteScope is a tagged variant: workspace-wide, or bound to a channel.
type InviteScope struct {
	Kind      InviteScopeKind `json:"kind"`
	ChannelID string          `json:"channel_id,omitempty"`
}

// DenyReason explains why an invite redemption was refused. These are
// user-displayable reason codes, not errors.
type DenyReason string

const (
	DenyNotFound      DenyReason = "not_found"
	DenyRevoked       DenyReason = "revoked"
	DenyExpired       DenyReason = "expired"
	DenyMaxUses       DenyReason = "max_uses"
	DenyAlreadyMember DenyReason = "already_member"
)

// InviteLink is a time- and usage-bounded admission token for a
// workspace. Links are never physically deleted; revocation keeps them
// around for audit.
type InviteLink struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspace_id"`
	Code        string      `json:"code"` // URL-safe, globally unique
	Scope       InviteScope `json:"scope"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	MaxUses     *int        `json:"max_uses,omitempty"` // nil means unlimited
	UsedCount   int         `json:"used_count"`
	RevokedAt   *time.Time  `json:"revoked_at,omitempty"`
}

// IsRevoked returns true once the link has been explicitly revoked.
func (l *InviteLink) IsRevoked() bool {
	return l.RevokedAt != nil
}

// IsExpired returns true when now is at or past the expiry time.
func (l *InviteLink) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// IsExhausted returns true when a use limit is set and reached.
func (l *InviteLink) IsExhausted() bool {
	return l.MaxUses != nil && l.UsedCount >= *l.MaxUses
}

// IsRedeemable reports whether the link can currently admit a new member.
func (l *InviteLink) IsRedeemable(now time.Time) bool {
	return !l.IsRevoked() && !l.IsExpired(now) && !l.IsExhausted()
}

// Deny returns the first reason the link cannot be redeemed right now,
// or "" when it is redeemable. Checks run in the same order redemption
// applies them: revoked, expired, max uses.
func (l *InviteLink) Deny(now time.Time) DenyReason {
	switch {
	case l.IsRevoked():
		return DenyRevoked
	case l.IsExpired(now):
		return DenyExpired
	case l.IsExhausted():
		return DenyMaxUses
	default:
		return ""
	}
}

// Status returns a human-readable status string for admin listings.
func (l *InviteLink) Status(now time.Time) string {
	switch {
	case l.IsRevoked():
		return "revoked"
	case l.IsExpired(now):
		return "expired"
	case l.IsExhausted():
		return "exhausted"
	default:
		return "active"
	}
}
