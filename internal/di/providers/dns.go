package providers

import (
	"github.com/samber/do/v2"

	"github.com/kiiaren/kiiaren-server/internal/config"
	"github.com/kiiaren/kiiaren-server/internal/dns"
	"github.com/kiiaren/kiiaren-server/internal/logger"
)

// ProvideDNSResolver provides the DNS-over-HTTPS TXT resolver used by
// domain verification.
func ProvideDNSResolver(i do.Injector) (dns.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := dns.NewClient(cfg.DNS.ResolverURL, cfg.DNS.Timeout, log.Logger)

	log.Info("DNS resolver configured", "endpoint", cfg.DNS.ResolverURL)
	return client, nil
}
