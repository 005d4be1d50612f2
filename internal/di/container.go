// Package di provides dependency injection configuration for the Kiiaren server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/kiiaren/kiiaren-server/internal/auth"
	"github.com/kiiaren/kiiaren-server/internal/config"
	"github.com/kiiaren/kiiaren-server/internal/di/providers"
	"github.com/kiiaren/kiiaren-server/internal/dns"
	"github.com/kiiaren/kiiaren-server/internal/logger"
	"github.com/kiiaren/kiiaren-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// DNS layer
	do.Provide(injector, providers.ProvideDNSResolver)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideDomainService)
	do.Provide(injector, providers.ProvideWorkspaceService)
	do.Provide(injector, providers.ProvideChannelService)
	do.Provide(injector, providers.ProvideInviteService)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[dns.Resolver](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.DomainService](injector)
	_ = do.MustInvoke[*service.WorkspaceService](injector)
	_ = do.MustInvoke[*service.ChannelService](injector)
	_ = do.MustInvoke[*service.InviteService](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
