// Package dns queries TXT records through a DNS-over-HTTPS JSON endpoint.
//
// The resolver is deliberately forgiving: transport failures, bad status
// codes and malformed JSON all fold into an empty record list. Domain
// verification treats "could not resolve" the same as "no record
// published yet", so a flaky resolver can never wedge a claim.
package dns

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// TXT records carry DNS record type 16 in DoH JSON answers.
const typeTXT = 16

// Public DoH endpoints are a shared resource; keep outbound query volume
// modest even if many workspaces hammer the verify button at once.
const (
	queriesPerSecond = 10
	queryBurst       = 20
)

// Resolver looks up TXT records for a fully-qualified name.
type Resolver interface {
	// LookupTXT returns the normalized TXT record values published at
	// name. It never returns an error; failures yield an empty list.
	LookupTXT(ctx context.Context, name string) []string
}

// Client is a Resolver backed by a DNS-over-HTTPS JSON endpoint such as
// https://cloudflare-dns.com/dns-query or https://dns.google/resolve.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a DoH client against the given resolver endpoint.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(queriesPerSecond), queryBurst),
		logger:  logger,
	}
}

// dohResponse is the JSON shape shared by Cloudflare and Google DoH.
type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer,omitzero"`
}

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

// LookupTXT queries the resolver for TXT records at name. Any failure
// along the way logs a warning and returns an empty list.
func (c *Client) LookupTXT(ctx context.Context, name string) []string {
	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("dns: rate limit wait aborted", "name", name, "error", err)
		return nil
	}

	params := url.Values{}
	params.Set("name", name)
	params.Set("type", "TXT")
	queryURL := c.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		c.logger.Warn("dns: building request failed", "name", name, "error", err)
		return nil
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("dns: lookup failed", "name", name, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("dns: resolver returned non-OK status", "name", name, "status", resp.StatusCode)
		return nil
	}

	var parsed dohResponse
	if err := json.UnmarshalRead(resp.Body, &parsed); err != nil {
		c.logger.Warn("dns: parsing response failed", "name", name, "error", err)
		return nil
	}

	records := make([]string, 0, len(parsed.Answer))
	for _, ans := range parsed.Answer {
		if ans.Type != typeTXT {
			continue
		}
		records = append(records, UnquoteTXT(ans.Data))
	}

	c.logger.Debug("dns: TXT lookup", "name", name, "records", len(records))
	return records
}

// UnquoteTXT strips one pair of surrounding double quotes, unescapes
// internal escaped quotes, and trims surrounding whitespace, matching how
// DoH providers encode TXT data. Values without surrounding quotes pass
// through unchanged apart from the trim.
func UnquoteTXT(data string) string {
	data = strings.TrimSpace(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	return strings.TrimSpace(strings.ReplaceAll(data, `\"`, `"`))
}
