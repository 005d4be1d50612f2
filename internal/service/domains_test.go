package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
)

func addClaim(t *testing.T, f *fixture, wsID, adminID, dom string) *AddDomainResponse {
	t.Helper()
	resp, err := f.domains.AddDomain(context.Background(), AddDomainRequest{
		WorkspaceID: wsID,
		Domain:      dom,
		UserID:      adminID,
	})
	require.NoError(t, err)
	return resp
}

func TestAddDomainNormalizes(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")

	resp := addClaim(t, f, ws.ID, adminID, "  ACME.Com. ")
	assert.Equal(t, "acme.com", resp.Claim.Domain)
	assert.Equal(t, domain.ClaimStatusPending, resp.Claim.Status)
	assert.Equal(t, "_kiiaren-verification.acme.com", resp.ChallengeName)
	assert.Equal(t, "kiiaren-verification="+resp.Claim.VerificationToken, resp.ExpectedRecord)
}

func TestAddDomainRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")

	for _, bad := range []string{"", "localhost", "-bad.com", "exa mple.com"} {
		_, err := f.domains.AddDomain(context.Background(), AddDomainRequest{
			WorkspaceID: ws.ID,
			Domain:      bad,
			UserID:      adminID,
		})
		require.Error(t, err, "domain %q", bad)
	}
}

func TestAddDomainBlockedAcrossWorkspaces(t *testing.T) {
	f := newFixture(t)
	ws1, admin1 := f.newWorkspace(t, "acme")
	ws2, admin2 := f.newWorkspace(t, "rival")

	addClaim(t, f, ws1.ID, admin1, "acme.com")

	// An unverified claim still blocks everyone else.
	_, err := f.domains.AddDomain(context.Background(), AddDomainRequest{
		WorkspaceID: ws2.ID,
		Domain:      "acme.com",
		UserID:      admin2,
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyClaimed)
}

func TestAddDomainRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ws, _ := f.newWorkspace(t, "acme")
	memberID := f.addMember(t, ws.ID, "member@example.com")

	_, err := f.domains.AddDomain(context.Background(), AddDomainRequest{
		WorkspaceID: ws.ID,
		Domain:      "acme.com",
		UserID:      memberID,
	})
	require.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestVerifyDomainSuccess(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	resp := addClaim(t, f, ws.ID, adminID, "acme.com")

	f.resolver.records[resp.ChallengeName] = []string{
		"some-other-record",
		resp.ExpectedRecord,
	}

	result, err := f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, domain.ClaimStatusVerified, result.Claim.Status)
	require.NotNil(t, result.Claim.VerifiedAt)

	// Verification flips the workspace trust flags.
	got, err := f.store.GetWorkspace(context.Background(), ws.ID)
	require.NoError(t, err)
	assert.True(t, got.DomainVerified)
	assert.False(t, got.JoinCodeEnabled)
}

func TestVerifyDomainNoRecords(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	resp := addClaim(t, f, ws.ID, adminID, "acme.com")

	result, err := f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, domain.ClaimStatusFailed, result.Claim.Status)
	assert.Empty(t, result.FoundRecords)
	assert.Contains(t, result.Message, "_kiiaren-verification.acme.com")
	assert.Contains(t, result.Message, "5-15 minutes")

	got, err := f.store.GetWorkspace(context.Background(), ws.ID)
	require.NoError(t, err)
	assert.False(t, got.DomainVerified)
	assert.True(t, got.JoinCodeEnabled)
}

func TestVerifyDomainWrongRecords(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	resp := addClaim(t, f, ws.ID, adminID, "acme.com")

	f.resolver.records[resp.ChallengeName] = []string{"kiiaren-verification=wrong-token"}

	result, err := f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, []string{"kiiaren-verification=wrong-token"}, result.FoundRecords)
	assert.Contains(t, result.Message, "none matches")
}

func TestVerifyDomainToleratesPaddedRecord(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	resp := addClaim(t, f, ws.ID, adminID, "acme.com")

	// DNS panels sometimes save TXT values with stray whitespace around
	// them. The token itself is still exact, so this must verify.
	f.resolver.records[resp.ChallengeName] = []string{"  " + resp.ExpectedRecord + "  "}

	result, err := f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, domain.ClaimStatusVerified, result.Claim.Status)
}

func TestVerifyDomainMatchIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	resp := addClaim(t, f, ws.ID, adminID, "acme.com")

	// Same token, wrong case in the key part.
	f.resolver.records[resp.ChallengeName] = []string{
		"KIIAREN-VERIFICATION=" + resp.Claim.VerificationToken,
	}

	result, err := f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)
	assert.False(t, result.Verified)
}

func TestVerifyDomainFailedRetrySucceeds(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	resp := addClaim(t, f, ws.ID, adminID, "acme.com")

	result, err := f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)
	require.Equal(t, domain.ClaimStatusFailed, result.Claim.Status)

	// Record shows up later; the same claim verifies without re-adding.
	f.resolver.records[resp.ChallengeName] = []string{resp.ExpectedRecord}
	result, err = f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)
	assert.True(t, result.Verified)
}

func TestVerifyDomainAlreadyVerifiedShortCircuits(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	resp := addClaim(t, f, ws.ID, adminID, "acme.com")

	f.resolver.records[resp.ChallengeName] = []string{resp.ExpectedRecord}
	first, err := f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)
	require.True(t, first.Verified)

	// Remove the record; a second verify must not fail the claim, and
	// the original verification time must survive.
	delete(f.resolver.records, resp.ChallengeName)
	second, err := f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)
	assert.True(t, second.Verified)
	assert.Equal(t, domain.ClaimStatusVerified, second.Claim.Status)
	require.NotNil(t, second.Claim.VerifiedAt)
	assert.True(t, second.Claim.VerifiedAt.Equal(*first.Claim.VerifiedAt))
}

func TestVerifyDomainOtherWorkspaceClaimNotFound(t *testing.T) {
	f := newFixture(t)
	ws1, admin1 := f.newWorkspace(t, "acme")
	ws2, admin2 := f.newWorkspace(t, "rival")
	resp := addClaim(t, f, ws1.ID, admin1, "acme.com")

	_, err := f.domains.VerifyDomain(context.Background(), ws2.ID, resp.Claim.ID, admin2)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestRemoveDomainRestoresJoinCode(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	resp := addClaim(t, f, ws.ID, adminID, "acme.com")

	f.resolver.records[resp.ChallengeName] = []string{resp.ExpectedRecord}
	_, err := f.domains.VerifyDomain(context.Background(), ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)

	require.NoError(t, f.domains.RemoveDomain(context.Background(), ws.ID, resp.Claim.ID, adminID))

	got, err := f.store.GetWorkspace(context.Background(), ws.ID)
	require.NoError(t, err)
	assert.False(t, got.DomainVerified)
	assert.True(t, got.JoinCodeEnabled)

	// The slot is free for another workspace now.
	other, otherAdmin := f.newWorkspace(t, "rival")
	_, err = f.domains.AddDomain(context.Background(), AddDomainRequest{
		WorkspaceID: other.ID,
		Domain:      "acme.com",
		UserID:      otherAdmin,
	})
	require.NoError(t, err)
}

func TestRemoveDomainKeepsFlagsWhileAnotherVerifiedClaimRemains(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")

	first := addClaim(t, f, ws.ID, adminID, "acme.com")
	second := addClaim(t, f, ws.ID, adminID, "acme.io")
	f.resolver.records[first.ChallengeName] = []string{first.ExpectedRecord}
	f.resolver.records[second.ChallengeName] = []string{second.ExpectedRecord}

	for _, claim := range []*AddDomainResponse{first, second} {
		_, err := f.domains.VerifyDomain(context.Background(), ws.ID, claim.Claim.ID, adminID)
		require.NoError(t, err)
	}

	require.NoError(t, f.domains.RemoveDomain(context.Background(), ws.ID, first.Claim.ID, adminID))

	got, err := f.store.GetWorkspace(context.Background(), ws.ID)
	require.NoError(t, err)
	assert.True(t, got.DomainVerified)
	assert.False(t, got.JoinCodeEnabled)
}

func TestListDomainsRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	addClaim(t, f, ws.ID, adminID, "acme.com")
	memberID := f.addMember(t, ws.ID, "member@example.com")

	_, err := f.domains.ListDomains(context.Background(), ws.ID, memberID)
	require.ErrorIs(t, err, domainerrors.ErrForbidden)

	claims, err := f.domains.ListDomains(context.Background(), ws.ID, adminID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
}

func TestCheckEmailDomain(t *testing.T) {
	f := newFixture(t)
	ws, adminID := f.newWorkspace(t, "acme")
	other, _ := f.newWorkspace(t, "rival")
	resp := addClaim(t, f, ws.ID, adminID, "acme.com")

	ctx := context.Background()

	// Pending claims never qualify.
	ok, err := f.domains.CheckEmailDomain(ctx, ws.ID, "dev@acme.com")
	require.NoError(t, err)
	assert.False(t, ok)

	f.resolver.records[resp.ChallengeName] = []string{resp.ExpectedRecord}
	_, err = f.domains.VerifyDomain(ctx, ws.ID, resp.Claim.ID, adminID)
	require.NoError(t, err)

	ok, err = f.domains.CheckEmailDomain(ctx, ws.ID, "dev@acme.com")
	require.NoError(t, err)
	assert.True(t, ok)

	// Case-insensitive on the domain part.
	ok, err = f.domains.CheckEmailDomain(ctx, ws.ID, "dev@ACME.COM")
	require.NoError(t, err)
	assert.True(t, ok)

	// Another workspace learns nothing from the claim.
	ok, err = f.domains.CheckEmailDomain(ctx, other.ID, "dev@acme.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.domains.CheckEmailDomain(ctx, ws.ID, "not-an-email")
	require.NoError(t, err)
	assert.False(t, ok)
}
