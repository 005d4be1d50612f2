package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
	"github.com/kiiaren/kiiaren-server/internal/id"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// ChannelService manages channels within a workspace.
type ChannelService struct {
	store  store.Store
	logger *slog.Logger
}

// NewChannelService creates a new channel service.
func NewChannelService(st store.Store, logger *slog.Logger) *ChannelService {
	return &ChannelService{store: st, logger: logger}
}

// CreateChannelRequest asks for a new channel.
type CreateChannelRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
	Name        string `json:"name" validate:"required,min=1,max=80"`
	UserID      string `json:"-"`
}

// CreateChannel creates a channel. Any member may create channels.
func (s *ChannelService) CreateChannel(ctx context.Context, req CreateChannelRequest) (*domain.Channel, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.store, req.WorkspaceID, req.UserID); err != nil {
		return nil, err
	}

	ch := &domain.Channel{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		CreatedBy:   req.UserID,
	}
	var err error
	ch.ID, err = id.Generate("ch")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate channel ID")
	}
	ch.InitTimestamps()

	if err := s.store.CreateChannel(ctx, ch); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create channel")
	}

	s.logger.Info("channel created", "workspace_id", req.WorkspaceID, "channel_id", ch.ID)
	return ch, nil
}

// GetChannel returns a channel to a member of its workspace.
func (s *ChannelService) GetChannel(ctx context.Context, workspaceID, channelID, userID string) (*domain.Channel, error) {
	if _, err := requireMember(ctx, s.store, workspaceID, userID); err != nil {
		return nil, err
	}

	ch, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("channel not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load channel")
	}
	if ch.WorkspaceID != workspaceID {
		return nil, domainerrors.NotFound("channel not found")
	}
	return ch, nil
}

// ListChannels returns the workspace's channels to any member.
func (s *ChannelService) ListChannels(ctx context.Context, workspaceID, userID string) ([]*domain.Channel, error) {
	if _, err := requireMember(ctx, s.store, workspaceID, userID); err != nil {
		return nil, err
	}
	channels, err := s.store.ListChannels(ctx, workspaceID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list channels")
	}
	return channels, nil
}
