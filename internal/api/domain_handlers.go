package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/service"
)

func (s *Server) registerDomainRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "addDomain",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{workspaceID}/domains",
		Summary:     "Claim a domain",
		Description: "Claims an email domain for the workspace and returns the DNS challenge to publish",
		Tags:        []string{"Domains"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddDomain)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDomains",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspaceID}/domains",
		Summary:     "List domain claims",
		Tags:        []string{"Domains"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListDomains)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyDomain",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{workspaceID}/domains/{claimID}/verify",
		Summary:     "Verify a domain claim",
		Description: "Runs the DNS TXT challenge and reports the outcome with diagnostics",
		Tags:        []string{"Domains"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleVerifyDomain)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeDomain",
		Method:      http.MethodDelete,
		Path:        "/api/v1/workspaces/{workspaceID}/domains/{claimID}",
		Summary:     "Remove a domain claim",
		Description: "Deletes the claim and frees the domain for other workspaces",
		Tags:        []string{"Domains"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveDomain)

	huma.Register(s.api, huma.Operation{
		OperationID: "checkEmailDomain",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspaceID}/domains/check",
		Summary:     "Check email eligibility",
		Description: "Reports whether an email address qualifies for auto-join into this workspace",
		Tags:        []string{"Domains"},
	}, s.handleCheckEmailDomain)
}

// === DTOs ===

// DomainClaimResponse contains domain claim information in API responses.
type DomainClaimResponse struct {
	ID             string     `json:"id" doc:"Claim ID"`
	WorkspaceID    string     `json:"workspace_id" doc:"Workspace ID"`
	Domain         string     `json:"domain" doc:"Normalized domain name"`
	Status         string     `json:"status" doc:"Claim status: pending, verified or failed"`
	ChallengeName  string     `json:"challenge_name" doc:"DNS name to publish the challenge TXT record under"`
	ExpectedRecord string     `json:"expected_record" doc:"Exact TXT record value that proves ownership"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty" doc:"First successful verification time"`
	CreatedAt      time.Time  `json:"created_at" doc:"Creation timestamp"`
}

// DomainClaimOutput wraps a claim response for Huma.
type DomainClaimOutput struct {
	Body DomainClaimResponse
}

// DomainClaimListOutput wraps a claim list for Huma.
type DomainClaimListOutput struct {
	Body struct {
		Claims []DomainClaimResponse `json:"claims" doc:"Domain claims"`
	}
}

// AddDomainInput wraps the claim request for Huma.
type AddDomainInput struct {
	AuthHeaderInput
	WorkspaceID string `path:"workspaceID" doc:"Workspace ID"`
	Body        struct {
		Domain string `json:"domain" validate:"required,max=253" doc:"Domain to claim"`
	}
}

// ClaimIDInput identifies a claim within a workspace.
type ClaimIDInput struct {
	AuthHeaderInput
	WorkspaceID string `path:"workspaceID" doc:"Workspace ID"`
	ClaimID     string `path:"claimID" doc:"Domain claim ID"`
}

// VerifyDomainResponse reports the outcome of a verification attempt.
type VerifyDomainResponse struct {
	Verified     bool                `json:"verified" doc:"Whether the claim is now verified"`
	Message      string              `json:"message" doc:"What happened and what to do next"`
	FoundRecords []string            `json:"found_records,omitempty" doc:"TXT records found at the challenge name"`
	Claim        DomainClaimResponse `json:"claim" doc:"Claim after the attempt"`
}

// VerifyDomainOutput wraps the verification response for Huma.
type VerifyDomainOutput struct {
	Body VerifyDomainResponse
}

// CheckEmailDomainInput wraps the eligibility query for Huma.
type CheckEmailDomainInput struct {
	WorkspaceID string `path:"workspaceID" doc:"Workspace ID"`
	Email       string `query:"email" required:"true" doc:"Email address to check"`
}

// CheckEmailDomainOutput wraps the eligibility response for Huma.
type CheckEmailDomainOutput struct {
	Body struct {
		Eligible bool `json:"eligible" doc:"Whether the email qualifies for auto-join"`
	}
}

func mapDomainClaim(c *domain.DomainClaim) DomainClaimResponse {
	return DomainClaimResponse{
		ID:             c.ID,
		WorkspaceID:    c.WorkspaceID,
		Domain:         c.Domain,
		Status:         string(c.Status),
		ChallengeName:  c.ChallengeName(),
		ExpectedRecord: c.ExpectedRecord(),
		VerifiedAt:     c.VerifiedAt,
		CreatedAt:      c.CreatedAt,
	}
}

// === Handlers ===

func (s *Server) handleAddDomain(ctx context.Context, input *AddDomainInput) (*DomainClaimOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	resp, err := s.services.Domain.AddDomain(ctx, service.AddDomainRequest{
		WorkspaceID: input.WorkspaceID,
		Domain:      input.Body.Domain,
		UserID:      userID,
	})
	if err != nil {
		return nil, err
	}
	return &DomainClaimOutput{Body: mapDomainClaim(resp.Claim)}, nil
}

func (s *Server) handleListDomains(ctx context.Context, input *WorkspaceIDInput) (*DomainClaimListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	claims, err := s.services.Domain.ListDomains(ctx, input.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}

	out := &DomainClaimListOutput{}
	out.Body.Claims = make([]DomainClaimResponse, 0, len(claims))
	for _, c := range claims {
		out.Body.Claims = append(out.Body.Claims, mapDomainClaim(c))
	}
	return out, nil
}

func (s *Server) handleVerifyDomain(ctx context.Context, input *ClaimIDInput) (*VerifyDomainOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Domain.VerifyDomain(ctx, input.WorkspaceID, input.ClaimID, userID)
	if err != nil {
		return nil, err
	}
	return &VerifyDomainOutput{Body: VerifyDomainResponse{
		Verified:     result.Verified,
		Message:      result.Message,
		FoundRecords: result.FoundRecords,
		Claim:        mapDomainClaim(result.Claim),
	}}, nil
}

func (s *Server) handleRemoveDomain(ctx context.Context, input *ClaimIDInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Domain.RemoveDomain(ctx, input.WorkspaceID, input.ClaimID, userID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Domain claim removed"}}, nil
}

func (s *Server) handleCheckEmailDomain(ctx context.Context, input *CheckEmailDomainInput) (*CheckEmailDomainOutput, error) {
	eligible, err := s.services.Domain.CheckEmailDomain(ctx, input.WorkspaceID, input.Email)
	if err != nil {
		return nil, err
	}

	out := &CheckEmailDomainOutput{}
	out.Body.Eligible = eligible
	return out, nil
}
