package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/kiiaren/kiiaren-server/internal/api"
	"github.com/kiiaren/kiiaren-server/internal/config"
	"github.com/kiiaren/kiiaren-server/internal/logger"
	"github.com/kiiaren/kiiaren-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	authService := do.MustInvoke[*service.AuthService](i)
	workspaceService := do.MustInvoke[*service.WorkspaceService](i)
	channelService := do.MustInvoke[*service.ChannelService](i)
	domainService := do.MustInvoke[*service.DomainService](i)
	inviteService := do.MustInvoke[*service.InviteService](i)

	services := &api.Services{
		Auth:      authService,
		Workspace: workspaceService,
		Channel:   channelService,
		Domain:    domainService,
		Invite:    inviteService,
	}

	handler := api.NewServer(storeHandle.Store, services, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
