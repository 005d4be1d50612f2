package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kiiaren/kiiaren-server/internal/dns"
	"github.com/kiiaren/kiiaren-server/internal/domain"
	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
	"github.com/kiiaren/kiiaren-server/internal/id"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// DomainService manages domain-ownership claims: adding a claim, running
// the DNS challenge, and keeping the workspace trust flags in step with
// the set of verified claims.
type DomainService struct {
	store    store.Store
	resolver dns.Resolver
	logger   *slog.Logger
}

// NewDomainService creates a new domain service.
func NewDomainService(st store.Store, resolver dns.Resolver, logger *slog.Logger) *DomainService {
	return &DomainService{store: st, resolver: resolver, logger: logger}
}

// AddDomainRequest asks for a new domain claim in a workspace.
type AddDomainRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
	Domain      string `json:"domain" validate:"required"`
	UserID      string `json:"-"`
}

// AddDomainResponse carries the new claim plus the challenge the admin
// must publish in DNS before verification can succeed.
type AddDomainResponse struct {
	Claim          *domain.DomainClaim `json:"claim"`
	ChallengeName  string              `json:"challenge_name"`
	ExpectedRecord string              `json:"expected_record"`
}

// VerifyDomainResult is always returned by VerifyDomain when the claim
// exists and the caller is authorized, whether or not the DNS challenge
// matched. Message tells the admin what to do next.
type VerifyDomainResult struct {
	Claim        *domain.DomainClaim `json:"claim"`
	Verified     bool                `json:"verified"`
	Message      string              `json:"message"`
	FoundRecords []string            `json:"found_records,omitempty"`
}

// AddDomain claims an email domain for a workspace. The domain is
// normalized first; a claim by any workspace, in any status, blocks the
// domain for everyone else.
func (s *DomainService) AddDomain(ctx context.Context, req AddDomainRequest) (*AddDomainResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, s.store, req.WorkspaceID, req.UserID); err != nil {
		return nil, err
	}

	normalized := domain.NormalizeDomain(req.Domain)
	if normalized == "" {
		return nil, domainerrors.Validationf("%q is not a valid domain name", req.Domain)
	}

	claimID, err := id.Generate("dom")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate claim ID")
	}
	token, err := id.Token(32)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate verification token")
	}

	now := time.Now()
	claim := &domain.DomainClaim{
		ID:                claimID,
		WorkspaceID:       req.WorkspaceID,
		Domain:            normalized,
		VerificationToken: token,
		Status:            domain.ClaimStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
		CreatedBy:         req.UserID,
	}

	if err := s.store.CreateDomainClaim(ctx, claim); err != nil {
		if errors.Is(err, store.ErrDomainClaimed) {
			return nil, domainerrors.AlreadyClaimed(fmt.Sprintf("domain %q is already claimed", normalized))
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create domain claim")
	}

	s.logger.Info("domain claimed", "workspace_id", req.WorkspaceID, "domain", normalized)
	return &AddDomainResponse{
		Claim:          claim,
		ChallengeName:  claim.ChallengeName(),
		ExpectedRecord: claim.ExpectedRecord(),
	}, nil
}

// VerifyDomain runs the DNS challenge for a claim. It never fails just
// because the record is absent or wrong; absence of proof is a result,
// reported in the returned diagnostics. Verified claims short-circuit
// without touching DNS.
func (s *DomainService) VerifyDomain(ctx context.Context, workspaceID, claimID, userID string) (*VerifyDomainResult, error) {
	if _, err := requireAdmin(ctx, s.store, workspaceID, userID); err != nil {
		return nil, err
	}

	claim, err := s.getWorkspaceClaim(ctx, workspaceID, claimID)
	if err != nil {
		return nil, err
	}

	if claim.IsVerified() {
		return &VerifyDomainResult{
			Claim:    claim,
			Verified: true,
			Message:  fmt.Sprintf("domain %q is already verified", claim.Domain),
		}, nil
	}

	records := s.resolver.LookupTXT(ctx, claim.ChallengeName())
	expected := claim.ExpectedRecord()
	matched := slices.ContainsFunc(records, func(r string) bool {
		// Some DNS hosting panels pad TXT values with stray whitespace.
		return strings.TrimSpace(r) == expected
	})

	now := time.Now()
	claim.UpdatedAt = now
	if matched {
		claim.Status = domain.ClaimStatusVerified
		if claim.VerifiedAt == nil {
			claim.VerifiedAt = &now
		}
	} else {
		claim.Status = domain.ClaimStatusFailed
	}

	ws, err := s.loadWorkspaceWithFlags(ctx, workspaceID, claim)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveVerificationResult(ctx, claim, ws); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "save verification result")
	}

	result := &VerifyDomainResult{Claim: claim, Verified: matched, FoundRecords: records}
	switch {
	case matched:
		result.Message = fmt.Sprintf("domain %q verified", claim.Domain)
		s.logger.Info("domain verified", "workspace_id", workspaceID, "domain", claim.Domain)
	case len(records) == 0:
		result.Message = fmt.Sprintf(
			"no TXT records found at %s; if you just published the record, DNS propagation can take 5-15 minutes",
			claim.ChallengeName())
	default:
		result.Message = fmt.Sprintf(
			"found %d TXT record(s) at %s but none matches the expected value",
			len(records), claim.ChallengeName())
	}
	return result, nil
}

// ListDomains returns the workspace's claims. Admin only: claims carry
// verification tokens.
func (s *DomainService) ListDomains(ctx context.Context, workspaceID, userID string) ([]*domain.DomainClaim, error) {
	if _, err := requireAdmin(ctx, s.store, workspaceID, userID); err != nil {
		return nil, err
	}
	claims, err := s.store.ListDomainClaims(ctx, workspaceID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list domain claims")
	}
	return claims, nil
}

// RemoveDomain deletes a claim, freeing the domain for other workspaces,
// and recomputes the workspace trust flags from the remaining claims.
func (s *DomainService) RemoveDomain(ctx context.Context, workspaceID, claimID, userID string) error {
	if _, err := requireAdmin(ctx, s.store, workspaceID, userID); err != nil {
		return err
	}

	claim, err := s.getWorkspaceClaim(ctx, workspaceID, claimID)
	if err != nil {
		return err
	}

	ws, err := s.loadWorkspaceWithFlags(ctx, workspaceID, nil, claim.ID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDomainClaim(ctx, claim, ws); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "delete domain claim")
	}

	s.logger.Info("domain claim removed", "workspace_id", workspaceID, "domain", claim.Domain)
	return nil
}

// CheckEmailDomain reports whether an email address would qualify for
// auto-join into the given workspace. It reveals nothing about other
// workspaces' claims.
func (s *DomainService) CheckEmailDomain(ctx context.Context, workspaceID, email string) (bool, error) {
	emailDomain := domain.EmailDomain(email)
	if emailDomain == "" {
		return false, nil
	}

	claim, err := s.store.GetDomainClaimByDomain(ctx, emailDomain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "look up domain claim")
	}
	return claim.WorkspaceID == workspaceID && claim.IsVerified(), nil
}

// getWorkspaceClaim loads a claim and confirms it belongs to the
// workspace. Claims of other workspaces look like not-found.
func (s *DomainService) getWorkspaceClaim(ctx context.Context, workspaceID, claimID string) (*domain.DomainClaim, error) {
	claim, err := s.store.GetDomainClaim(ctx, claimID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("domain claim not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load domain claim")
	}
	if claim.WorkspaceID != workspaceID {
		return nil, domainerrors.NotFound("domain claim not found")
	}
	return claim, nil
}

// loadWorkspaceWithFlags loads the workspace and recomputes its trust
// flags as if updated (and any excluded) claims were already applied.
// Becoming verified disables the join code; losing the last verified
// claim re-enables it.
func (s *DomainService) loadWorkspaceWithFlags(ctx context.Context, workspaceID string, updated *domain.DomainClaim, exclude ...string) (*domain.Workspace, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load workspace")
	}

	claims, err := s.store.ListDomainClaims(ctx, workspaceID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list domain claims")
	}

	anyVerified := false
	for _, c := range claims {
		if slices.Contains(exclude, c.ID) {
			continue
		}
		if updated != nil && c.ID == updated.ID {
			c = updated
		}
		if c.IsVerified() {
			anyVerified = true
			break
		}
	}
	wasVerified := ws.DomainVerified
	ws.DomainVerified = anyVerified
	if anyVerified && !wasVerified {
		ws.JoinCodeEnabled = false
	}
	if !anyVerified && wasVerified {
		ws.JoinCodeEnabled = true
	}
	ws.Touch()
	return ws, nil
}
