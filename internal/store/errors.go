package store

import "errors"

// Sentinel errors shared by all backends. Services translate these into
// domain errors or structured deny reasons; backends never wrap them in
// anything that would break errors.Is.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned on a uniqueness violation other than
	// the ones below.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrDomainClaimed is returned when another claim already holds the
	// normalized domain.
	ErrDomainClaimed = errors.New("domain already claimed")
	// ErrInviteCodeExists is returned when an invite code collides.
	ErrInviteCodeExists = errors.New("invite code already exists")
	// ErrAlreadyMember is returned when a membership for the
	// (workspace, user) pair already exists.
	ErrAlreadyMember = errors.New("user is already a member")
	// ErrInviteRevoked is returned when redeeming a revoked link.
	ErrInviteRevoked = errors.New("invite link revoked")
	// ErrInviteExpired is returned when redeeming past the expiry time.
	ErrInviteExpired = errors.New("invite link expired")
	// ErrInviteMaxUses is returned when the use limit is exhausted.
	ErrInviteMaxUses = errors.New("invite link use limit reached")
)
