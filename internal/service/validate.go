// Package service implements the application logic of the Kiiaren
// server: accounts and sessions, workspaces and channels, domain
// verification, and invite link admission.
package service

import "github.com/kiiaren/kiiaren-server/internal/validation"

// validate is the shared request validator for all services.
var validate = validation.New()
