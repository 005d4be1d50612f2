package dns

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, slog.New(slog.DiscardHandler))
}

func TestLookupTXT(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/dns-json", r.Header.Get("Accept"))
		assert.Equal(t, "_kiiaren-verification.acme.com", r.URL.Query().Get("name"))
		assert.Equal(t, "TXT", r.URL.Query().Get("type"))

		w.Write([]byte(`{
			"Status": 0,
			"Answer": [
				{"name": "_kiiaren-verification.acme.com", "type": 16, "TTL": 300, "data": "\"kiiaren-verification=abc123\""},
				{"name": "_kiiaren-verification.acme.com", "type": 5, "TTL": 300, "data": "alias.acme.com."}
			]
		}`))
	})

	records := c.LookupTXT(context.Background(), "_kiiaren-verification.acme.com")
	require.Len(t, records, 1, "non-TXT answers must be ignored")
	assert.Equal(t, "kiiaren-verification=abc123", records[0])
}

func TestLookupTXTNoAnswer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Status": 3}`))
	})

	assert.Empty(t, c.LookupTXT(context.Background(), "_kiiaren-verification.acme.com"))
}

func TestLookupTXTServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	assert.Empty(t, c.LookupTXT(context.Background(), "acme.com"))
}

func TestLookupTXTMalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	})

	assert.Empty(t, c.LookupTXT(context.Background(), "acme.com"))
}

func TestLookupTXTUnreachableResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on
	c := NewClient(srv.URL, time.Second, slog.New(slog.DiscardHandler))

	assert.Empty(t, c.LookupTXT(context.Background(), "acme.com"))
}

func TestLookupTXTRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"Status": 0,
			"Answer": [{"name": "acme.com", "type": 16, "TTL": 300, "data": "\"v=1\""}]
		}`))
	})
	// One token, refilled far too slowly for this test to ever see another.
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	require.Equal(t, []string{"v=1"}, c.LookupTXT(context.Background(), "acme.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Empty(t, c.LookupTXT(ctx, "acme.com"), "out-of-budget query must fold to an empty result")
}

func TestUnquoteTXT(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"kiiaren-verification=abc123"`, "kiiaren-verification=abc123"},
		{`kiiaren-verification=abc123`, "kiiaren-verification=abc123"},
		{`"say \"hi\""`, `say "hi"`},
		{`"  kiiaren-verification=abc123  "`, "kiiaren-verification=abc123"},
		{`  "kiiaren-verification=abc123"  `, "kiiaren-verification=abc123"},
		{`""`, ""},
		{`"`, `"`}, // lone quote passes through
		{``, ``},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UnquoteTXT(tc.in), "input %q", tc.in)
	}
}
