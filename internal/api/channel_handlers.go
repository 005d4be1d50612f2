package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/service"
)

func (s *Server) registerChannelRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createChannel",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{workspaceID}/channels",
		Summary:     "Create channel",
		Tags:        []string{"Channels"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateChannel)

	huma.Register(s.api, huma.Operation{
		OperationID: "listChannels",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspaceID}/channels",
		Summary:     "List channels",
		Tags:        []string{"Channels"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListChannels)
}

// ChannelResponse contains channel information in API responses.
type ChannelResponse struct {
	ID          string    `json:"id" doc:"Channel ID"`
	WorkspaceID string    `json:"workspace_id" doc:"Workspace ID"`
	Name        string    `json:"name" doc:"Channel name"`
	CreatedBy   string    `json:"created_by" doc:"Creating user ID"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation timestamp"`
}

// ChannelOutput wraps a channel response for Huma.
type ChannelOutput struct {
	Body ChannelResponse
}

// ChannelListOutput wraps a channel list for Huma.
type ChannelListOutput struct {
	Body struct {
		Channels []ChannelResponse `json:"channels" doc:"Workspace channels"`
	}
}

// CreateChannelInput wraps the create request for Huma.
type CreateChannelInput struct {
	AuthHeaderInput
	WorkspaceID string `path:"workspaceID" doc:"Workspace ID"`
	Body        struct {
		Name string `json:"name" validate:"required,min=1,max=80" doc:"Channel name"`
	}
}

func mapChannel(ch *domain.Channel) ChannelResponse {
	return ChannelResponse{
		ID:          ch.ID,
		WorkspaceID: ch.WorkspaceID,
		Name:        ch.Name,
		CreatedBy:   ch.CreatedBy,
		CreatedAt:   ch.CreatedAt,
	}
}

func (s *Server) handleCreateChannel(ctx context.Context, input *CreateChannelInput) (*ChannelOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	ch, err := s.services.Channel.CreateChannel(ctx, service.CreateChannelRequest{
		WorkspaceID: input.WorkspaceID,
		Name:        input.Body.Name,
		UserID:      userID,
	})
	if err != nil {
		return nil, err
	}
	return &ChannelOutput{Body: mapChannel(ch)}, nil
}

func (s *Server) handleListChannels(ctx context.Context, input *WorkspaceIDInput) (*ChannelListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	channels, err := s.services.Channel.ListChannels(ctx, input.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}

	out := &ChannelListOutput{}
	out.Body.Channels = make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		out.Body.Channels = append(out.Body.Channels, mapChannel(ch))
	}
	return out, nil
}
