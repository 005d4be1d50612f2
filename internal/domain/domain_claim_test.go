package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"acme.com", "acme.com"},
		{"  ACME.Com  ", "acme.com"},
		{"acme.com.", "acme.com"},
		{"sub.acme.co.uk", "sub.acme.co.uk"},
		{"my-team.acme.com", "my-team.acme.com"},
		{"", ""},
		{"   ", ""},
		{"acme", ""},         // single label
		{"-acme.com", ""},    // leading hyphen
		{"acme-.com", ""},    // trailing hyphen
		{"ac me.com", ""},    // space
		{"acme..com", ""},    // empty label
		{"acme.com/path", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeDomain(tc.in), "input %q", tc.in)
	}
}

func TestChallengeName(t *testing.T) {
	c := DomainClaim{Domain: "acme.com"}
	assert.Equal(t, "_kiiaren-verification.acme.com", c.ChallengeName())
}

func TestExpectedRecord(t *testing.T) {
	c := DomainClaim{VerificationToken: "abc123"}
	assert.Equal(t, "kiiaren-verification=abc123", c.ExpectedRecord())
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "acme.com", EmailDomain("user@ACME.com"))
	assert.Equal(t, "acme.com", EmailDomain(`weird@address@acme.com`))
	assert.Equal(t, "", EmailDomain("no-at-sign"))
	assert.Equal(t, "", EmailDomain("dangling@"))
}
