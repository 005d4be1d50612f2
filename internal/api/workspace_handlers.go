package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/service"
)

func (s *Server) registerWorkspaceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createWorkspace",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces",
		Summary:     "Create workspace",
		Description: "Creates a workspace with the caller as owner and admin",
		Tags:        []string{"Workspaces"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateWorkspace)

	huma.Register(s.api, huma.Operation{
		OperationID: "listWorkspaces",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces",
		Summary:     "List my workspaces",
		Description: "Returns all workspaces the caller belongs to",
		Tags:        []string{"Workspaces"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListWorkspaces)

	huma.Register(s.api, huma.Operation{
		OperationID: "getWorkspace",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspaceID}",
		Summary:     "Get workspace",
		Tags:        []string{"Workspaces"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetWorkspace)

	huma.Register(s.api, huma.Operation{
		OperationID: "listWorkspaceMembers",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspaceID}/members",
		Summary:     "List members",
		Tags:        []string{"Workspaces"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMembers)

	huma.Register(s.api, huma.Operation{
		OperationID: "joinWorkspaceByCode",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/join",
		Summary:     "Join by code",
		Description: "Joins a workspace using its slug and join code",
		Tags:        []string{"Workspaces"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleJoinByCode)

	huma.Register(s.api, huma.Operation{
		OperationID: "checkAutoJoin",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspaceID}/auto-join",
		Summary:     "Check auto-join eligibility",
		Description: "Reports whether the caller's email domain would admit them, without joining",
		Tags:        []string{"Workspaces"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCheckAutoJoin)

	huma.Register(s.api, huma.Operation{
		OperationID: "autoJoinWorkspace",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{workspaceID}/auto-join",
		Summary:     "Auto-join by email domain",
		Description: "Joins a workspace when the caller's email domain is verified for it",
		Tags:        []string{"Workspaces"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAutoJoin)

	huma.Register(s.api, huma.Operation{
		OperationID: "regenerateJoinCode",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{workspaceID}/join-code/regenerate",
		Summary:     "Regenerate join code",
		Description: "Replaces the workspace join code, invalidating the old one immediately",
		Tags:        []string{"Workspaces"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRegenerateJoinCode)
}

// === DTOs ===

// WorkspaceResponse contains workspace information in API responses.
type WorkspaceResponse struct {
	ID              string    `json:"id" doc:"Workspace ID"`
	Name            string    `json:"name" doc:"Display name"`
	Slug            string    `json:"slug" doc:"URL-safe identifier"`
	OwnerID         string    `json:"owner_id" doc:"Owning user ID"`
	JoinCode        string    `json:"join_code,omitempty" doc:"Join code (admins only)"`
	DomainVerified  bool      `json:"domain_verified" doc:"Whether a verified domain claim exists"`
	JoinCodeEnabled bool      `json:"join_code_enabled" doc:"Whether join codes are accepted"`
	CreatedAt       time.Time `json:"created_at" doc:"Creation timestamp"`
}

// WorkspaceOutput wraps a workspace response for Huma.
type WorkspaceOutput struct {
	Body WorkspaceResponse
}

// WorkspaceListOutput wraps a workspace list for Huma.
type WorkspaceListOutput struct {
	Body struct {
		Workspaces []WorkspaceResponse `json:"workspaces" doc:"Workspaces"`
	}
}

// MembershipResponse contains membership information in API responses.
type MembershipResponse struct {
	ID          string    `json:"id" doc:"Membership ID"`
	WorkspaceID string    `json:"workspace_id" doc:"Workspace ID"`
	UserID      string    `json:"user_id" doc:"User ID"`
	Role        string    `json:"role" doc:"Member role (admin or member)"`
	JoinedVia   string    `json:"joined_via,omitempty" doc:"Admission path: created, invite, join_code or auto_join"`
	InvitedBy   string    `json:"invited_by,omitempty" doc:"Creator of the redeemed invite link"`
	CreatedAt   time.Time `json:"created_at" doc:"Join timestamp"`
}

// MembershipOutput wraps a membership response for Huma.
type MembershipOutput struct {
	Body MembershipResponse
}

// MembershipListOutput wraps a membership list for Huma.
type MembershipListOutput struct {
	Body struct {
		Members []MembershipResponse `json:"members" doc:"Workspace members"`
	}
}

// CreateWorkspaceInput wraps the create request for Huma.
type CreateWorkspaceInput struct {
	AuthHeaderInput
	Body struct {
		Name string `json:"name" validate:"required,min=1,max=100" doc:"Workspace name"`
		Slug string `json:"slug" validate:"required,min=2,max=50" doc:"URL-safe identifier"`
	}
}

// WorkspaceIDInput identifies a workspace by path parameter.
type WorkspaceIDInput struct {
	AuthHeaderInput
	WorkspaceID string `path:"workspaceID" doc:"Workspace ID"`
}

// AutoJoinCheckOutput reports auto-join eligibility for Huma.
type AutoJoinCheckOutput struct {
	Body struct {
		Eligible bool `json:"eligible" doc:"Whether the caller's email domain admits them"`
	}
}

// JoinByCodeInput wraps the join-by-code request for Huma.
type JoinByCodeInput struct {
	AuthHeaderInput
	Body struct {
		Slug     string `json:"slug" validate:"required" doc:"Workspace slug"`
		JoinCode string `json:"join_code" validate:"required" doc:"Join code"`
	}
}

func mapWorkspace(ws *domain.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:              ws.ID,
		Name:            ws.Name,
		Slug:            ws.Slug,
		OwnerID:         ws.OwnerID,
		JoinCode:        ws.JoinCode,
		DomainVerified:  ws.DomainVerified,
		JoinCodeEnabled: ws.JoinCodeEnabled,
		CreatedAt:       ws.CreatedAt,
	}
}

func mapMembership(m *domain.Membership) MembershipResponse {
	return MembershipResponse{
		ID:          m.ID,
		WorkspaceID: m.WorkspaceID,
		UserID:      m.UserID,
		Role:        string(m.Role),
		JoinedVia:   string(m.JoinedVia),
		InvitedBy:   m.InvitedBy,
		CreatedAt:   m.CreatedAt,
	}
}

// === Handlers ===

func (s *Server) handleCreateWorkspace(ctx context.Context, input *CreateWorkspaceInput) (*WorkspaceOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	ws, err := s.services.Workspace.CreateWorkspace(ctx, service.CreateWorkspaceRequest{
		Name:   input.Body.Name,
		Slug:   input.Body.Slug,
		UserID: userID,
	})
	if err != nil {
		return nil, err
	}
	return &WorkspaceOutput{Body: mapWorkspace(ws)}, nil
}

func (s *Server) handleListWorkspaces(ctx context.Context, input *AuthHeaderInput) (*WorkspaceListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	workspaces, err := s.services.Workspace.ListUserWorkspaces(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &WorkspaceListOutput{}
	out.Body.Workspaces = make([]WorkspaceResponse, 0, len(workspaces))
	for _, ws := range workspaces {
		out.Body.Workspaces = append(out.Body.Workspaces, mapWorkspace(ws))
	}
	return out, nil
}

func (s *Server) handleGetWorkspace(ctx context.Context, input *WorkspaceIDInput) (*WorkspaceOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	ws, err := s.services.Workspace.GetWorkspace(ctx, input.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}
	return &WorkspaceOutput{Body: mapWorkspace(ws)}, nil
}

func (s *Server) handleListMembers(ctx context.Context, input *WorkspaceIDInput) (*MembershipListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	members, err := s.services.Workspace.ListMembers(ctx, input.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}

	out := &MembershipListOutput{}
	out.Body.Members = make([]MembershipResponse, 0, len(members))
	for _, m := range members {
		out.Body.Members = append(out.Body.Members, mapMembership(m))
	}
	return out, nil
}

func (s *Server) handleJoinByCode(ctx context.Context, input *JoinByCodeInput) (*MembershipOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	m, err := s.services.Workspace.JoinByCode(ctx, input.Body.Slug, input.Body.JoinCode, userID)
	if err != nil {
		return nil, err
	}
	return &MembershipOutput{Body: mapMembership(m)}, nil
}

func (s *Server) handleCheckAutoJoin(ctx context.Context, input *WorkspaceIDInput) (*AutoJoinCheckOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	eligible, err := s.services.Workspace.CheckAutoJoin(ctx, input.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}

	out := &AutoJoinCheckOutput{}
	out.Body.Eligible = eligible
	return out, nil
}

func (s *Server) handleAutoJoin(ctx context.Context, input *WorkspaceIDInput) (*MembershipOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	m, err := s.services.Workspace.AutoJoin(ctx, input.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}
	return &MembershipOutput{Body: mapMembership(m)}, nil
}

func (s *Server) handleRegenerateJoinCode(ctx context.Context, input *WorkspaceIDInput) (*WorkspaceOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	ws, err := s.services.Workspace.RegenerateJoinCode(ctx, input.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}
	return &WorkspaceOutput{Body: mapWorkspace(ws)}, nil
}
