package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIs(t *testing.T) {
	err := NotFound("workspace not found")
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrForbidden))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, CodeInternal, "failed to persist claim")

	assert.Equal(t, stderrors.Unwrap(err), cause)
	assert.True(t, stderrors.Is(err, ErrInternal))
	assert.Contains(t, err.Error(), "disk full")
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeAlreadyClaimed, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeInvalidCredentials, http.StatusUnauthorized},
		{CodeTokenExpired, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeValidation, http.StatusBadRequest},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.code.HTTPStatus(), string(tc.code))
	}
}

func TestWithDetails(t *testing.T) {
	base := Validation("invalid input")
	detailed := base.WithDetails(map[string]string{"domain": "required"})

	require.NotNil(t, detailed.Details)
	assert.Nil(t, base.Details, "original error must not be mutated")
	assert.Equal(t, base.Code, detailed.Code)
}

func TestAs(t *testing.T) {
	var domainErr *Error
	err := Forbiddenf("user %s is not an admin", "usr-abc")

	require.True(t, stderrors.As(err, &domainErr))
	assert.Equal(t, CodeForbidden, domainErr.Code)
	assert.Equal(t, http.StatusForbidden, domainErr.HTTPStatus())
}
