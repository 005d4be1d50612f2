package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
)

type claimRequest struct {
	Domain string `json:"domain" validate:"required,domain"`
	Email  string `json:"email"  validate:"omitempty,email"`
}

func TestValidateOK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(claimRequest{Domain: "acme.com"}))
	assert.NoError(t, v.Validate(claimRequest{Domain: "sub.acme.co.uk", Email: "a@acme.com"}))
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	v := New()
	err := v.Validate(claimRequest{Domain: "", Email: "not-an-email"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

	fields, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["domain"])
	assert.Equal(t, "must be a valid email address", fields["email"])
}

func TestValidateRejectsBadDomain(t *testing.T) {
	v := New()
	err := v.Validate(claimRequest{Domain: "not a domain"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	fields := domainErr.Details.(map[string]string)
	assert.Equal(t, "must be a valid domain name", fields["domain"])
}

func TestVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.Var("user@acme.com", "email"))
	assert.Error(t, v.Var("nope", "email"))
}
