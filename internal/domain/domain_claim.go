package domain

import (
	"strings"
	"time"
)

// ClaimStatus is the verification state of a domain claim.
type ClaimStatus string

const (
	// ClaimStatusPending means the claim exists but ownership is unproven.
	ClaimStatusPending ClaimStatus = "pending"
	// ClaimStatusVerified means a matching DNS challenge record was found.
	ClaimStatusVerified ClaimStatus = "verified"
	// ClaimStatusFailed means the last verification attempt found no match.
	// Failed claims may be re-verified without creating a new claim.
	ClaimStatusFailed ClaimStatus = "failed"
)

// ChallengePrefix is prepended to a claimed domain to form the DNS name
// that must carry the challenge TXT record.
const ChallengePrefix = "_kiiaren-verification."

// ChallengeValuePrefix is the key part of the expected TXT record value.
const ChallengeValuePrefix = "kiiaren-verification="

// DomainClaim is a workspace's assertion of ownership over an email
// domain. At most one claim per normalized domain exists across all
// workspaces; the claim record itself reserves the slot.
type DomainClaim struct {
	ID                string      `json:"id"`
	WorkspaceID       string      `json:"workspace_id"`
	Domain            string      `json:"domain"` // normalized, lower-case
	VerificationToken string      `json:"verification_token"`
	Status            ClaimStatus `json:"status"`
	VerifiedAt        *time.Time  `json:"verified_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	CreatedBy         string      `json:"created_by"`
}

// IsVerified returns true once ownership has been proven.
func (c *DomainClaim) IsVerified() bool {
	return c.Status == ClaimStatusVerified
}

// ChallengeName returns the DNS name the admin must publish the
// challenge TXT record under, e.g. "_kiiaren-verification.acme.com".
func (c *DomainClaim) ChallengeName() string {
	return ChallengePrefix + c.Domain
}

// ExpectedRecord returns the exact TXT record value that proves
// ownership, e.g. "kiiaren-verification=<token>".
func (c *DomainClaim) ExpectedRecord() string {
	return ChallengeValuePrefix + c.VerificationToken
}

// NormalizeDomain trims, lower-cases and validates a domain name.
// Returns "" when the input is empty or does not look like a DNS host.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimSuffix(d, ".")
	if d == "" || len(d) > 253 {
		return ""
	}

	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return ""
	}
	for _, label := range labels {
		if !validLabel(label) {
			return ""
		}
	}
	return d
}

func validLabel(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}
