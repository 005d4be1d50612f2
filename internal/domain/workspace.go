package domain

// Workspace is a tenant: a named space holding channels, members and
// domain claims.
type Workspace struct {
	Record
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	OwnerID string `json:"owner_id"`

	// JoinCode is a shared secret members can use to join when
	// JoinCodeEnabled is true.
	JoinCode string `json:"join_code,omitempty"`

	// DomainVerified is true iff the workspace holds at least one
	// verified domain claim. Mutated only by the domain verification
	// and removal flow.
	DomainVerified bool `json:"domain_verified"`

	// JoinCodeEnabled is switched off automatically when DomainVerified
	// becomes true and restored when the last verified claim is removed.
	JoinCodeEnabled bool `json:"join_code_enabled"`
}

// WorkspaceRole represents a member's permission level inside a workspace.
type WorkspaceRole string

const (
	// WorkspaceRoleAdmin can manage domains, invites and members.
	WorkspaceRoleAdmin WorkspaceRole = "admin"
	// WorkspaceRoleMember is a regular participant.
	WorkspaceRoleMember WorkspaceRole = "member"
)

// MembershipOrigin records which admission path created a membership.
type MembershipOrigin string

const (
	JoinedViaCreated  MembershipOrigin = "created"
	JoinedViaInvite   MembershipOrigin = "invite"
	JoinedViaJoinCode MembershipOrigin = "join_code"
	JoinedViaAutoJoin MembershipOrigin = "auto_join"
)

// Membership links a user to a workspace with a role.
type Membership struct {
	Record
	WorkspaceID string        `json:"workspace_id"`
	UserID      string        `json:"user_id"`
	Role        WorkspaceRole `json:"role"`

	// JoinedVia and InvitedBy record provenance for audit. InvitedBy is
	// the creator of the redeemed invite link, set only for invite joins.
	JoinedVia MembershipOrigin `json:"joined_via,omitempty"`
	InvitedBy string           `json:"invited_by,omitempty"`
}

// IsAdmin returns true if the membership carries the admin role.
func (m *Membership) IsAdmin() bool {
	return m.Role == WorkspaceRoleAdmin
}
