package api

import (
	"context"
	"crypto/rand"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiiaren/kiiaren-server/internal/auth"
	"github.com/kiiaren/kiiaren-server/internal/service"
	"github.com/kiiaren/kiiaren-server/internal/store/badgerdb"
)

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	V       int       `json:"v"`
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Error   *APIError `json:"error"`
}

// fakeResolver serves canned TXT answers keyed by DNS name.
type fakeResolver struct {
	records map[string][]string
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) []string {
	return f.records[name]
}

// testServer wraps the API server for handler testing.
type testServer struct {
	*Server
	api      humatest.TestAPI
	resolver *fakeResolver
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := badgerdb.Open(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	tokenService, err := auth.NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	resolver := &fakeResolver{records: map[string][]string{}}
	domainService := service.NewDomainService(st, resolver, logger)

	services := &Services{
		Auth:      service.NewAuthService(st, tokenService, logger),
		Workspace: service.NewWorkspaceService(st, domainService, logger),
		Channel:   service.NewChannelService(st, logger),
		Domain:    domainService,
		Invite:    service.NewInviteService(st, 24*time.Hour, logger),
	}

	s := NewServer(st, services, logger)

	return &testServer{
		Server:   s,
		api:      humatest.Wrap(t, s.api),
		resolver: resolver,
	}
}

// registerUser creates an account via the API and returns its token and ID.
func (ts *testServer) registerUser(t *testing.T, email string) (token, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    email,
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, "register failed: %s", resp.Body.String())

	var env testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	require.True(t, env.Success)
	return env.Data.AccessToken, env.Data.User.ID
}

// createWorkspace creates a workspace via the API.
func (ts *testServer) createWorkspace(t *testing.T, token, slug string) WorkspaceResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/workspaces",
		"Authorization: Bearer "+token,
		map[string]any{"name": slug, "slug": slug})
	require.Equal(t, http.StatusOK, resp.Code, "create workspace failed: %s", resp.Body.String())

	var env testEnvelope[WorkspaceResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env.Data
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var env testEnvelope[HealthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", env.Data.Status)
}

func TestAuthFlow(t *testing.T) {
	ts := setupTestServer(t)

	token, userID := ts.registerUser(t, "dev@acme.com")
	require.NotEmpty(t, token)
	require.NotEmpty(t, userID)

	resp := ts.api.Get("/api/v1/users/me", "Authorization: Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.Code)

	var env testEnvelope[UserResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Equal(t, "dev@acme.com", env.Data.Email)

	// Wrong password is rejected with the envelope error shape.
	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "dev@acme.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	var errEnv testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errEnv))
	assert.False(t, errEnv.Success)
	require.NotNil(t, errEnv.Error)
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/workspaces")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestDomainVerificationFlow(t *testing.T) {
	ts := setupTestServer(t)

	token, _ := ts.registerUser(t, "admin@acme.com")
	ws := ts.createWorkspace(t, token, "acme")

	// Claim the domain.
	resp := ts.api.Post("/api/v1/workspaces/"+ws.ID+"/domains",
		"Authorization: Bearer "+token,
		map[string]any{"domain": "ACME.com"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var claimEnv testEnvelope[DomainClaimResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &claimEnv))
	claim := claimEnv.Data
	assert.Equal(t, "acme.com", claim.Domain)
	assert.Equal(t, "pending", claim.Status)
	assert.Equal(t, "_kiiaren-verification.acme.com", claim.ChallengeName)

	// First verification attempt fails with diagnostics.
	resp = ts.api.Post("/api/v1/workspaces/"+ws.ID+"/domains/"+claim.ID+"/verify",
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	var verifyEnv testEnvelope[VerifyDomainResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &verifyEnv))
	assert.False(t, verifyEnv.Data.Verified)
	assert.Contains(t, verifyEnv.Data.Message, "5-15 minutes")

	// Publish the record and retry.
	ts.resolver.records[claim.ChallengeName] = []string{claim.ExpectedRecord}
	resp = ts.api.Post("/api/v1/workspaces/"+ws.ID+"/domains/"+claim.ID+"/verify",
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &verifyEnv))
	assert.True(t, verifyEnv.Data.Verified)
	assert.Equal(t, "verified", verifyEnv.Data.Claim.Status)

	// The workspace flags flipped.
	resp = ts.api.Get("/api/v1/workspaces/"+ws.ID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	var wsEnv testEnvelope[WorkspaceResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &wsEnv))
	assert.True(t, wsEnv.Data.DomainVerified)
	assert.False(t, wsEnv.Data.JoinCodeEnabled)

	// The public eligibility check works without a token.
	resp = ts.api.Get("/api/v1/workspaces/" + ws.ID + "/domains/check?email=dev@acme.com")
	require.Equal(t, http.StatusOK, resp.Code)

	var checkEnv testEnvelope[struct {
		Eligible bool `json:"eligible"`
	}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &checkEnv))
	assert.True(t, checkEnv.Data.Eligible)
}

func TestAddDomainConflict(t *testing.T) {
	ts := setupTestServer(t)

	token1, _ := ts.registerUser(t, "admin@acme.com")
	ws1 := ts.createWorkspace(t, token1, "acme")
	resp := ts.api.Post("/api/v1/workspaces/"+ws1.ID+"/domains",
		"Authorization: Bearer "+token1,
		map[string]any{"domain": "acme.com"})
	require.Equal(t, http.StatusOK, resp.Code)

	token2, _ := ts.registerUser(t, "admin@rival.com")
	ws2 := ts.createWorkspace(t, token2, "rival")
	resp = ts.api.Post("/api/v1/workspaces/"+ws2.ID+"/domains",
		"Authorization: Bearer "+token2,
		map[string]any{"domain": "acme.com"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	var env testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ALREADY_CLAIMED", env.Error.Code)
}

func TestInviteFlow(t *testing.T) {
	ts := setupTestServer(t)

	adminToken, _ := ts.registerUser(t, "admin@acme.com")
	ws := ts.createWorkspace(t, adminToken, "acme")

	one := 1
	resp := ts.api.Post("/api/v1/workspaces/"+ws.ID+"/invites",
		"Authorization: Bearer "+adminToken,
		map[string]any{"scope": "workspace", "max_uses": one})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var linkEnv testEnvelope[InviteLinkResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &linkEnv))
	link := linkEnv.Data
	require.NotEmpty(t, link.Code)
	assert.Equal(t, "active", link.Status)

	// First redemption succeeds.
	joinerToken, joinerID := ts.registerUser(t, "joiner@example.com")
	resp = ts.api.Post("/api/v1/invites/"+link.Code+"/redeem",
		"Authorization: Bearer "+joinerToken)
	require.Equal(t, http.StatusOK, resp.Code)

	var redeemEnv testEnvelope[RedeemInviteResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &redeemEnv))
	assert.True(t, redeemEnv.Data.Redeemed)
	require.NotNil(t, redeemEnv.Data.Membership)
	assert.Equal(t, joinerID, redeemEnv.Data.Membership.UserID)

	// Second redemption is denied, not an error.
	otherToken, _ := ts.registerUser(t, "late@example.com")
	resp = ts.api.Post("/api/v1/invites/"+link.Code+"/redeem",
		"Authorization: Bearer "+otherToken)
	require.Equal(t, http.StatusOK, resp.Code)

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &redeemEnv))
	assert.False(t, redeemEnv.Data.Redeemed)
	assert.Equal(t, "max_uses", redeemEnv.Data.Reason)

	// Revoke twice; both calls succeed.
	for range 2 {
		resp = ts.api.Post("/api/v1/workspaces/"+ws.ID+"/invites/"+link.ID+"/revoke",
			"Authorization: Bearer "+adminToken)
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp = ts.api.Get("/api/v1/workspaces/"+ws.ID+"/invites",
		"Authorization: Bearer "+adminToken)
	require.Equal(t, http.StatusOK, resp.Code)

	var listEnv testEnvelope[struct {
		Invites []InviteLinkResponse `json:"invites"`
	}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listEnv))
	require.Len(t, listEnv.Data.Invites, 1)
	assert.Equal(t, "revoked", listEnv.Data.Invites[0].Status)
}

func TestMemberCannotManageDomains(t *testing.T) {
	ts := setupTestServer(t)

	adminToken, _ := ts.registerUser(t, "admin@acme.com")
	ws := ts.createWorkspace(t, adminToken, "acme")

	// Join a second user via an invite.
	resp := ts.api.Post("/api/v1/workspaces/"+ws.ID+"/invites",
		"Authorization: Bearer "+adminToken,
		map[string]any{"scope": "workspace"})
	require.Equal(t, http.StatusOK, resp.Code)
	var linkEnv testEnvelope[InviteLinkResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &linkEnv))

	memberToken, _ := ts.registerUser(t, "member@example.com")
	resp = ts.api.Post("/api/v1/invites/"+linkEnv.Data.Code+"/redeem",
		"Authorization: Bearer "+memberToken)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/workspaces/"+ws.ID+"/domains",
		"Authorization: Bearer "+memberToken,
		map[string]any{"domain": "acme.com"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Get("/api/v1/workspaces/"+ws.ID+"/domains",
		"Authorization: Bearer "+memberToken)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestPublicInviteLookup(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerUser(t, "admin@acme.com")
	ws := ts.createWorkspace(t, token, "acme")

	resp := ts.api.Post("/api/v1/workspaces/"+ws.ID+"/invites",
		"Authorization: Bearer "+token,
		map[string]any{"scope": "workspace"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var created testEnvelope[InviteLinkResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	// No Authorization header: the lookup is public.
	resp = ts.api.Get("/api/v1/invites/" + created.Data.Code)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var env testEnvelope[InviteLinkResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Equal(t, created.Data.ID, env.Data.ID)
	assert.Equal(t, "active", env.Data.Status)

	resp = ts.api.Get("/api/v1/invites/nosuchcode")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestJoinCodeRegeneration(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerUser(t, "admin@acme.com")
	ws := ts.createWorkspace(t, token, "acme")
	require.NotEmpty(t, ws.JoinCode)

	resp := ts.api.Post("/api/v1/workspaces/"+ws.ID+"/join-code/regenerate",
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var env testEnvelope[WorkspaceResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Data.JoinCode)
	assert.NotEqual(t, ws.JoinCode, env.Data.JoinCode)

	// The old code no longer admits anyone.
	guestToken, _ := ts.registerUser(t, "guest@example.com")
	resp = ts.api.Post("/api/v1/workspaces/join",
		"Authorization: Bearer "+guestToken,
		map[string]any{"slug": "acme", "join_code": ws.JoinCode})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post("/api/v1/workspaces/join",
		"Authorization: Bearer "+guestToken,
		map[string]any{"slug": "acme", "join_code": env.Data.JoinCode})
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestAutoJoinCheck(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerUser(t, "admin@acme.com")
	ws := ts.createWorkspace(t, token, "acme")

	resp := ts.api.Post("/api/v1/workspaces/"+ws.ID+"/domains",
		"Authorization: Bearer "+token,
		map[string]any{"domain": "acme.com"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var claim testEnvelope[DomainClaimResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &claim))
	ts.resolver.records[claim.Data.ChallengeName] = []string{claim.Data.ExpectedRecord}

	resp = ts.api.Post("/api/v1/workspaces/"+ws.ID+"/domains/"+claim.Data.ID+"/verify",
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	devToken, _ := ts.registerUser(t, "dev@acme.com")
	resp = ts.api.Get("/api/v1/workspaces/"+ws.ID+"/auto-join",
		"Authorization: Bearer "+devToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var check testEnvelope[struct {
		Eligible bool `json:"eligible"`
	}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &check))
	assert.True(t, check.Data.Eligible)

	outsiderToken, _ := ts.registerUser(t, "dev@elsewhere.com")
	resp = ts.api.Get("/api/v1/workspaces/"+ws.ID+"/auto-join",
		"Authorization: Bearer "+outsiderToken)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &check))
	assert.False(t, check.Data.Eligible)

	// Eligible user can actually join.
	resp = ts.api.Post("/api/v1/workspaces/"+ws.ID+"/auto-join",
		"Authorization: Bearer "+devToken)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}
