package api

import (
	"github.com/kiiaren/kiiaren-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth      *service.AuthService
	Workspace *service.WorkspaceService
	Channel   *service.ChannelService
	Domain    *service.DomainService
	Invite    *service.InviteService
}
