package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
	"github.com/kiiaren/kiiaren-server/internal/id"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

const joinCodeLength = 8

// WorkspaceService manages workspaces, their memberships and the
// join-code flow.
type WorkspaceService struct {
	store   store.Store
	domains *DomainService
	logger  *slog.Logger
}

// NewWorkspaceService creates a new workspace service.
func NewWorkspaceService(st store.Store, domains *DomainService, logger *slog.Logger) *WorkspaceService {
	return &WorkspaceService{store: st, domains: domains, logger: logger}
}

// CreateWorkspaceRequest asks for a new workspace.
type CreateWorkspaceRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	Slug   string `json:"slug" validate:"required,min=2,max=50,lowercase"`
	UserID string `json:"-"`
}

// CreateWorkspace creates a workspace with the caller as owner and sole
// admin. The join code starts enabled; domain verification later turns
// it off.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, req CreateWorkspaceRequest) (*domain.Workspace, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	joinCode, err := id.Token(joinCodeLength)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate join code")
	}

	ws := &domain.Workspace{
		Name:            req.Name,
		Slug:            strings.TrimSpace(req.Slug),
		OwnerID:         req.UserID,
		JoinCode:        joinCode,
		JoinCodeEnabled: true,
	}
	ws.ID, err = id.Generate("ws")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate workspace ID")
	}
	ws.InitTimestamps()

	if err := s.store.CreateWorkspace(ctx, ws); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("a workspace with this slug already exists")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create workspace")
	}

	m := &domain.Membership{
		WorkspaceID: ws.ID,
		UserID:      req.UserID,
		Role:        domain.WorkspaceRoleAdmin,
		JoinedVia:   domain.JoinedViaCreated,
	}
	m.ID, err = id.Generate("mem")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate membership ID")
	}
	m.InitTimestamps()
	if err := s.store.CreateMembership(ctx, m); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create owner membership")
	}

	s.logger.Info("workspace created", "workspace_id", ws.ID, "slug", ws.Slug)
	return ws, nil
}

// GetWorkspace returns a workspace to one of its members. The join code
// is stripped for non-admins.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, workspaceID, userID string) (*domain.Workspace, error) {
	m, err := requireMember(ctx, s.store, workspaceID, userID)
	if err != nil {
		return nil, err
	}

	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("workspace not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load workspace")
	}
	if !m.IsAdmin() {
		ws.JoinCode = ""
	}
	return ws, nil
}

// ListUserWorkspaces returns every workspace the user belongs to, join
// codes stripped.
func (s *WorkspaceService) ListUserWorkspaces(ctx context.Context, userID string) ([]*domain.Workspace, error) {
	memberships, err := s.store.ListUserMemberships(ctx, userID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list memberships")
	}

	workspaces := make([]*domain.Workspace, 0, len(memberships))
	for _, m := range memberships {
		ws, err := s.store.GetWorkspace(ctx, m.WorkspaceID)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load workspace")
		}
		if !m.IsAdmin() {
			ws.JoinCode = ""
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, nil
}

// ListMembers returns the workspace's memberships to any member.
func (s *WorkspaceService) ListMembers(ctx context.Context, workspaceID, userID string) ([]*domain.Membership, error) {
	if _, err := requireMember(ctx, s.store, workspaceID, userID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMemberships(ctx, workspaceID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list memberships")
	}
	return members, nil
}

// JoinByCode joins the caller to a workspace via its join code. Fails
// when the code is wrong or the workspace has disabled join codes after
// domain verification.
func (s *WorkspaceService) JoinByCode(ctx context.Context, slug, joinCode, userID string) (*domain.Membership, error) {
	ws, err := s.store.GetWorkspaceBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("workspace not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load workspace")
	}

	if !ws.JoinCodeEnabled {
		return nil, domainerrors.Forbidden("this workspace does not accept join codes")
	}
	if joinCode == "" || joinCode != ws.JoinCode {
		return nil, domainerrors.InvalidCredentials("invalid join code")
	}

	return s.addMember(ctx, ws.ID, userID, domain.JoinedViaJoinCode)
}

// RegenerateJoinCode replaces the workspace's join code with a fresh
// one, invalidating the old code immediately. Admin only.
func (s *WorkspaceService) RegenerateJoinCode(ctx context.Context, workspaceID, userID string) (*domain.Workspace, error) {
	if _, err := requireAdmin(ctx, s.store, workspaceID, userID); err != nil {
		return nil, err
	}

	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("workspace not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load workspace")
	}

	ws.JoinCode, err = id.Token(joinCodeLength)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate join code")
	}
	ws.Touch()

	if err := s.store.UpdateWorkspace(ctx, ws); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "update workspace")
	}

	s.logger.Info("join code regenerated", "workspace_id", ws.ID)
	return ws, nil
}

// CheckAutoJoin reports whether the caller's email domain would admit
// them to the workspace, without joining.
func (s *WorkspaceService) CheckAutoJoin(ctx context.Context, workspaceID, userID string) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, domainerrors.NotFound("user not found")
		}
		return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "load user")
	}
	return s.domains.CheckEmailDomain(ctx, workspaceID, user.Email)
}

// AutoJoin joins the caller to a workspace on the strength of a verified
// email domain. The user's email domain must match a verified claim held
// by this workspace.
func (s *WorkspaceService) AutoJoin(ctx context.Context, workspaceID, userID string) (*domain.Membership, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load user")
	}

	eligible, err := s.domains.CheckEmailDomain(ctx, workspaceID, user.Email)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, domainerrors.Forbidden("your email domain does not qualify for auto-join")
	}

	return s.addMember(ctx, workspaceID, userID, domain.JoinedViaAutoJoin)
}

func (s *WorkspaceService) addMember(ctx context.Context, workspaceID, userID string, via domain.MembershipOrigin) (*domain.Membership, error) {
	m := &domain.Membership{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        domain.WorkspaceRoleMember,
		JoinedVia:   via,
	}
	var err error
	m.ID, err = id.Generate("mem")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate membership ID")
	}
	m.InitTimestamps()

	if err := s.store.CreateMembership(ctx, m); err != nil {
		if errors.Is(err, store.ErrAlreadyMember) {
			return nil, domainerrors.Conflict("you are already a member of this workspace")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create membership")
	}

	s.logger.Info("member joined", "workspace_id", workspaceID, "user_id", userID)
	return m, nil
}
