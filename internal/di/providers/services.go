package providers

import (
	"github.com/samber/do/v2"

	"github.com/kiiaren/kiiaren-server/internal/auth"
	"github.com/kiiaren/kiiaren-server/internal/config"
	"github.com/kiiaren/kiiaren-server/internal/dns"
	"github.com/kiiaren/kiiaren-server/internal/logger"
	"github.com/kiiaren/kiiaren-server/internal/service"
)

func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokens, log.Logger), nil
}

func ProvideDomainService(i do.Injector) (*service.DomainService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	resolver := do.MustInvoke[dns.Resolver](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDomainService(storeHandle.Store, resolver, log.Logger), nil
}

func ProvideWorkspaceService(i do.Injector) (*service.WorkspaceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	domains := do.MustInvoke[*service.DomainService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewWorkspaceService(storeHandle.Store, domains, log.Logger), nil
}

func ProvideChannelService(i do.Injector) (*service.ChannelService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewChannelService(storeHandle.Store, log.Logger), nil
}

func ProvideInviteService(i do.Injector) (*service.InviteService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInviteService(storeHandle.Store, cfg.Invite.DefaultExpiry, log.Logger), nil
}
