package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
	"github.com/kiiaren/kiiaren-server/internal/id"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

const (
	inviteCodeLength = 10
	// codeRetries bounds the collision retry loop when minting codes.
	codeRetries = 5
)

// InviteService manages invite links: creation, listing, revocation and
// the redemption flow that turns a code into a membership.
type InviteService struct {
	store         store.Store
	defaultExpiry time.Duration
	logger        *slog.Logger
}

// NewInviteService creates a new invite service. defaultExpiry is used
// when a create request does not name its own expiry.
func NewInviteService(st store.Store, defaultExpiry time.Duration, logger *slog.Logger) *InviteService {
	if defaultExpiry <= 0 {
		defaultExpiry = 24 * time.Hour
	}
	return &InviteService{store: st, defaultExpiry: defaultExpiry, logger: logger}
}

// CreateInviteRequest asks for a new invite link.
type CreateInviteRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
	// Scope is "workspace" or "channel".
	Scope     string `json:"scope" validate:"required,oneof=workspace channel"`
	ChannelID string `json:"channel_id" validate:"required_if=Scope channel"`
	// ExpiresIn overrides the default link lifetime when positive.
	ExpiresIn time.Duration `json:"expires_in" validate:"omitempty,min=0"`
	// MaxUses caps redemptions; nil means unlimited.
	MaxUses *int   `json:"max_uses" validate:"omitempty,min=1"`
	UserID  string `json:"-"`
}

// RedeemResult reports the outcome of a redemption attempt. Exactly one
// of Membership or Reason is set.
type RedeemResult struct {
	Link       *domain.InviteLink `json:"link,omitempty"`
	Membership *domain.Membership `json:"membership,omitempty"`
	Reason     domain.DenyReason  `json:"reason,omitempty"`
}

// Redeemed returns true when the attempt produced a membership.
func (r *RedeemResult) Redeemed() bool {
	return r.Reason == ""
}

// CreateInviteLink mints a new invite link. Channel-scoped links require
// an existing channel in the same workspace.
func (s *InviteService) CreateInviteLink(ctx context.Context, req CreateInviteRequest) (*domain.InviteLink, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, req.WorkspaceID, req.UserID); err != nil {
		return nil, err
	}

	scope := domain.InviteScope{Kind: domain.InviteScopeKind(req.Scope)}
	if scope.Kind == domain.ScopeChannel {
		ch, err := s.store.GetChannel(ctx, req.ChannelID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domainerrors.NotFound("channel not found")
			}
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load channel")
		}
		if ch.WorkspaceID != req.WorkspaceID {
			return nil, domainerrors.NotFound("channel not found")
		}
		scope.ChannelID = ch.ID
	}

	expiry := s.defaultExpiry
	if req.ExpiresIn > 0 {
		expiry = req.ExpiresIn
	}

	linkID, err := id.Generate("inv")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate invite ID")
	}

	now := time.Now()
	link := &domain.InviteLink{
		ID:          linkID,
		WorkspaceID: req.WorkspaceID,
		Scope:       scope,
		CreatedBy:   req.UserID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(expiry),
		MaxUses:     req.MaxUses,
	}

	// Codes are short enough that collisions, while rare, do happen.
	for attempt := 0; ; attempt++ {
		link.Code, err = id.Token(inviteCodeLength)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate invite code")
		}
		err = s.store.CreateInviteLink(ctx, link)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrInviteCodeExists) || attempt >= codeRetries {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create invite link")
		}
	}

	s.logger.Info("invite link created",
		"workspace_id", req.WorkspaceID, "invite_id", link.ID, "scope", scope.Kind)
	return link, nil
}

// GetInviteLink returns a single link for an admin of its workspace.
func (s *InviteService) GetInviteLink(ctx context.Context, workspaceID, linkID, userID string) (*domain.InviteLink, error) {
	if _, err := requireAdmin(ctx, s.store, workspaceID, userID); err != nil {
		return nil, err
	}
	link, err := s.getWorkspaceLink(ctx, workspaceID, linkID)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// GetInviteLinkByCode returns the raw link for a code without any
// validity filtering, so callers can tell an expired link from a revoked
// or exhausted one.
func (s *InviteService) GetInviteLinkByCode(ctx context.Context, code string) (*domain.InviteLink, error) {
	link, err := s.store.GetInviteLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("invite link not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load invite link")
	}
	return link, nil
}

// ListInviteLinks returns every link of a workspace, revoked and expired
// ones included.
func (s *InviteService) ListInviteLinks(ctx context.Context, workspaceID, userID string) ([]*domain.InviteLink, error) {
	if _, err := requireAdmin(ctx, s.store, workspaceID, userID); err != nil {
		return nil, err
	}
	links, err := s.store.ListInviteLinks(ctx, workspaceID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list invite links")
	}
	return links, nil
}

// RevokeInviteLink marks a link revoked. Revoking twice is a no-op and
// the original revocation time is kept.
func (s *InviteService) RevokeInviteLink(ctx context.Context, workspaceID, linkID, userID string) (*domain.InviteLink, error) {
	if _, err := requireAdmin(ctx, s.store, workspaceID, userID); err != nil {
		return nil, err
	}
	if _, err := s.getWorkspaceLink(ctx, workspaceID, linkID); err != nil {
		return nil, err
	}

	link, err := s.store.RevokeInviteLink(ctx, linkID, time.Now())
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "revoke invite link")
	}

	s.logger.Info("invite link revoked", "workspace_id", workspaceID, "invite_id", linkID)
	return link, nil
}

// RedeemInviteLink attempts to join the calling user via an invite code.
// A denied attempt is not an error: the result carries the reason, and
// nothing about the link changes.
func (s *InviteService) RedeemInviteLink(ctx context.Context, code, userID string) (*RedeemResult, error) {
	if code == "" {
		return &RedeemResult{Reason: domain.DenyNotFound}, nil
	}

	memberID, err := id.Generate("mem")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate membership ID")
	}

	m := &domain.Membership{
		UserID:    userID,
		Role:      domain.WorkspaceRoleMember,
		JoinedVia: domain.JoinedViaInvite,
	}
	m.ID = memberID
	m.InitTimestamps()

	link, err := s.store.RedeemInviteLink(ctx, code, m, time.Now())
	if err != nil {
		if reason := denyReason(err); reason != "" {
			return &RedeemResult{Reason: reason}, nil
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "redeem invite link")
	}

	s.logger.Info("invite link redeemed",
		"workspace_id", link.WorkspaceID, "invite_id", link.ID, "user_id", userID)
	return &RedeemResult{Link: link, Membership: m}, nil
}

// denyReason maps store redemption errors onto deny reasons. Unknown
// errors map to "" and are treated as internal failures.
func denyReason(err error) domain.DenyReason {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.DenyNotFound
	case errors.Is(err, store.ErrInviteRevoked):
		return domain.DenyRevoked
	case errors.Is(err, store.ErrInviteExpired):
		return domain.DenyExpired
	case errors.Is(err, store.ErrInviteMaxUses):
		return domain.DenyMaxUses
	case errors.Is(err, store.ErrAlreadyMember):
		return domain.DenyAlreadyMember
	default:
		return ""
	}
}

func (s *InviteService) getWorkspaceLink(ctx context.Context, workspaceID, linkID string) (*domain.InviteLink, error) {
	link, err := s.store.GetInviteLink(ctx, linkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("invite link not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load invite link")
	}
	if link.WorkspaceID != workspaceID {
		return nil, domainerrors.NotFound("invite link not found")
	}
	return link, nil
}
