// Package id generates prefixed unique identifiers for all persisted records.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed NanoID, e.g. "ws-V1StGXR8_Z5jdHi6B-myT".
//
// NanoIDs are URL-safe and shorter than UUIDs (21 characters), which keeps
// record keys compact. The prefix makes IDs self-describing in logs and
// database dumps.
//
// Returns an error only when the system entropy source fails.
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// Token generates a random lowercase-alphanumeric string of the given
// length. Used for verification tokens, invite codes and join codes,
// where a prefix would leak into user-visible values.
func Token(length int) (string, error) {
	tok, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", length)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return tok, nil
}

// MustGenerate is Generate but panics on entropy failure. Reserved for
// initialization paths where there is no caller to hand the error to.
func MustGenerate(prefix string) string {
	nid, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return nid
}
