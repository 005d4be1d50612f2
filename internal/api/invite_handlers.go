package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/service"
)

func (s *Server) registerInviteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createInviteLink",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{workspaceID}/invites",
		Summary:     "Create invite link",
		Tags:        []string{"Invites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateInviteLink)

	huma.Register(s.api, huma.Operation{
		OperationID: "listInviteLinks",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspaceID}/invites",
		Summary:     "List invite links",
		Description: "Returns all invite links of the workspace, including revoked and expired ones",
		Tags:        []string{"Invites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListInviteLinks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getInviteLink",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspaceID}/invites/{inviteID}",
		Summary:     "Get invite link",
		Tags:        []string{"Invites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetInviteLink)

	huma.Register(s.api, huma.Operation{
		OperationID: "revokeInviteLink",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{workspaceID}/invites/{inviteID}/revoke",
		Summary:     "Revoke invite link",
		Description: "Revokes a link so it can no longer be redeemed. Idempotent.",
		Tags:        []string{"Invites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRevokeInviteLink)

	huma.Register(s.api, huma.Operation{
		OperationID: "getInviteLinkByCode",
		Method:      http.MethodGet,
		Path:        "/api/v1/invites/{code}",
		Summary:     "Look up invite link by code",
		Description: "Public. Returns the link whatever its validity, so clients can show why a code no longer works.",
		Tags:        []string{"Invites"},
	}, s.handleGetInviteLinkByCode)

	huma.Register(s.api, huma.Operation{
		OperationID: "redeemInviteLink",
		Method:      http.MethodPost,
		Path:        "/api/v1/invites/{code}/redeem",
		Summary:     "Redeem invite link",
		Description: "Joins the caller to the inviting workspace. A denied attempt returns a reason, not an error.",
		Tags:        []string{"Invites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRedeemInviteLink)
}

// === DTOs ===

// InviteLinkResponse contains invite link information in API responses.
type InviteLinkResponse struct {
	ID          string     `json:"id" doc:"Invite link ID"`
	WorkspaceID string     `json:"workspace_id" doc:"Workspace ID"`
	Code        string     `json:"code" doc:"Redeemable code"`
	ScopeKind   string     `json:"scope_kind" doc:"Scope: workspace or channel"`
	ChannelID   string     `json:"channel_id,omitempty" doc:"Channel for channel-scoped links"`
	Status      string     `json:"status" doc:"active, expired, exhausted or revoked"`
	MaxUses     *int       `json:"max_uses,omitempty" doc:"Use limit, absent when unlimited"`
	UsedCount   int        `json:"used_count" doc:"Successful redemptions so far"`
	ExpiresAt   time.Time  `json:"expires_at" doc:"Expiry timestamp"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty" doc:"Revocation timestamp"`
	CreatedAt   time.Time  `json:"created_at" doc:"Creation timestamp"`
}

// InviteLinkOutput wraps an invite link response for Huma.
type InviteLinkOutput struct {
	Body InviteLinkResponse
}

// InviteLinkListOutput wraps an invite link list for Huma.
type InviteLinkListOutput struct {
	Body struct {
		Invites []InviteLinkResponse `json:"invites" doc:"Invite links"`
	}
}

// CreateInviteLinkInput wraps the create request for Huma.
type CreateInviteLinkInput struct {
	AuthHeaderInput
	WorkspaceID string `path:"workspaceID" doc:"Workspace ID"`
	Body        struct {
		Scope            string `json:"scope" validate:"required,oneof=workspace channel" doc:"Invite scope"`
		ChannelID        string `json:"channel_id,omitempty" doc:"Channel for channel-scoped invites"`
		ExpiresInMinutes int    `json:"expires_in_minutes,omitempty" validate:"omitempty,min=1" doc:"Lifetime override in minutes"`
		MaxUses          *int   `json:"max_uses,omitempty" validate:"omitempty,min=1" doc:"Use limit, omit for unlimited"`
	}
}

// InviteIDInput identifies an invite link within a workspace.
type InviteIDInput struct {
	AuthHeaderInput
	WorkspaceID string `path:"workspaceID" doc:"Workspace ID"`
	InviteID    string `path:"inviteID" doc:"Invite link ID"`
}

// InviteCodeInput identifies an invite link by code, no auth required.
type InviteCodeInput struct {
	Code string `path:"code" doc:"Invite code"`
}

// RedeemInviteInput identifies an invite link by code.
type RedeemInviteInput struct {
	AuthHeaderInput
	Code string `path:"code" doc:"Invite code"`
}

// RedeemInviteResponse reports the outcome of a redemption attempt.
type RedeemInviteResponse struct {
	Redeemed   bool                `json:"redeemed" doc:"Whether a membership was created"`
	Reason     string              `json:"reason,omitempty" doc:"Denial reason when not redeemed"`
	Membership *MembershipResponse `json:"membership,omitempty" doc:"Created membership"`
}

// RedeemInviteOutput wraps the redemption response for Huma.
type RedeemInviteOutput struct {
	Body RedeemInviteResponse
}

func mapInviteLink(l *domain.InviteLink) InviteLinkResponse {
	return InviteLinkResponse{
		ID:          l.ID,
		WorkspaceID: l.WorkspaceID,
		Code:        l.Code,
		ScopeKind:   string(l.Scope.Kind),
		ChannelID:   l.Scope.ChannelID,
		Status:      l.Status(time.Now()),
		MaxUses:     l.MaxUses,
		UsedCount:   l.UsedCount,
		ExpiresAt:   l.ExpiresAt,
		RevokedAt:   l.RevokedAt,
		CreatedAt:   l.CreatedAt,
	}
}

// === Handlers ===

func (s *Server) handleCreateInviteLink(ctx context.Context, input *CreateInviteLinkInput) (*InviteLinkOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	link, err := s.services.Invite.CreateInviteLink(ctx, service.CreateInviteRequest{
		WorkspaceID: input.WorkspaceID,
		Scope:       input.Body.Scope,
		ChannelID:   input.Body.ChannelID,
		ExpiresIn:   time.Duration(input.Body.ExpiresInMinutes) * time.Minute,
		MaxUses:     input.Body.MaxUses,
		UserID:      userID,
	})
	if err != nil {
		return nil, err
	}
	return &InviteLinkOutput{Body: mapInviteLink(link)}, nil
}

func (s *Server) handleListInviteLinks(ctx context.Context, input *WorkspaceIDInput) (*InviteLinkListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	links, err := s.services.Invite.ListInviteLinks(ctx, input.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}

	out := &InviteLinkListOutput{}
	out.Body.Invites = make([]InviteLinkResponse, 0, len(links))
	for _, l := range links {
		out.Body.Invites = append(out.Body.Invites, mapInviteLink(l))
	}
	return out, nil
}

func (s *Server) handleGetInviteLink(ctx context.Context, input *InviteIDInput) (*InviteLinkOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	link, err := s.services.Invite.GetInviteLink(ctx, input.WorkspaceID, input.InviteID, userID)
	if err != nil {
		return nil, err
	}
	return &InviteLinkOutput{Body: mapInviteLink(link)}, nil
}

func (s *Server) handleRevokeInviteLink(ctx context.Context, input *InviteIDInput) (*InviteLinkOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	link, err := s.services.Invite.RevokeInviteLink(ctx, input.WorkspaceID, input.InviteID, userID)
	if err != nil {
		return nil, err
	}
	return &InviteLinkOutput{Body: mapInviteLink(link)}, nil
}

func (s *Server) handleGetInviteLinkByCode(ctx context.Context, input *InviteCodeInput) (*InviteLinkOutput, error) {
	link, err := s.services.Invite.GetInviteLinkByCode(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	return &InviteLinkOutput{Body: mapInviteLink(link)}, nil
}

func (s *Server) handleRedeemInviteLink(ctx context.Context, input *RedeemInviteInput) (*RedeemInviteOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Invite.RedeemInviteLink(ctx, input.Code, userID)
	if err != nil {
		return nil, err
	}

	resp := RedeemInviteResponse{
		Redeemed: result.Redeemed(),
		Reason:   string(result.Reason),
	}
	if result.Membership != nil {
		m := mapMembership(result.Membership)
		resp.Membership = &m
	}
	return &RedeemInviteOutput{Body: resp}, nil
}
