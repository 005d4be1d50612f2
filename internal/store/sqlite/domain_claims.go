package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

const claimColumns = `id, workspace_id, domain, verification_token, status, verified_at, created_at, updated_at, created_by`

func scanClaim(scanner interface{ Scan(dest ...any) error }) (*domain.DomainClaim, error) {
	var c domain.DomainClaim
	var (
		status     string
		verifiedAt sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&c.ID,
		&c.WorkspaceID,
		&c.Domain,
		&c.VerificationToken,
		&status,
		&verifiedAt,
		&createdAt,
		&updatedAt,
		&c.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.ClaimStatus(status)
	if c.VerifiedAt, err = parseNullableTime(verifiedAt); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateDomainClaim inserts a claim. The unique index on the domain
// column makes the insert-if-absent atomic: a concurrent claim for the
// same domain fails with store.ErrDomainClaimed.
func (s *Store) CreateDomainClaim(ctx context.Context, claim *domain.DomainClaim) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO domain_claims (id, workspace_id, domain, verification_token, status, verified_at, created_at, updated_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		claim.ID,
		claim.WorkspaceID,
		claim.Domain,
		claim.VerificationToken,
		string(claim.Status),
		nullTimeString(claim.VerifiedAt),
		formatTime(claim.CreatedAt),
		formatTime(claim.UpdatedAt),
		claim.CreatedBy,
	)
	if isUniqueViolation(err, "domain_claims.domain") {
		return store.ErrDomainClaimed
	}
	return err
}

// GetDomainClaim retrieves a claim by ID.
func (s *Store) GetDomainClaim(ctx context.Context, id string) (*domain.DomainClaim, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM domain_claims WHERE id = ?`, id)
	claim, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return claim, err
}

// GetDomainClaimByDomain retrieves whichever claim holds the domain.
func (s *Store) GetDomainClaimByDomain(ctx context.Context, dom string) (*domain.DomainClaim, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM domain_claims WHERE domain = ?`, dom)
	claim, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return claim, err
}

// ListDomainClaims returns all claims of a workspace, any status.
func (s *Store) ListDomainClaims(ctx context.Context, workspaceID string) ([]*domain.DomainClaim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM domain_claims WHERE workspace_id = ? ORDER BY created_at`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query domain claims: %w", err)
	}
	defer rows.Close()

	var claims []*domain.DomainClaim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// SaveVerificationResult writes the claim status and the workspace
// trust flags in one transaction.
func (s *Store) SaveVerificationResult(ctx context.Context, claim *domain.DomainClaim, ws *domain.Workspace) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE domain_claims SET status = ?, verified_at = ?, updated_at = ? WHERE id = ?`,
		string(claim.Status),
		nullTimeString(claim.VerifiedAt),
		formatTime(claim.UpdatedAt),
		claim.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE workspaces SET updated_at = ?, domain_verified = ?, join_code_enabled = ? WHERE id = ?`,
		formatTime(ws.UpdatedAt),
		ws.DomainVerified,
		ws.JoinCodeEnabled,
		ws.ID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteDomainClaim removes the claim and writes the recomputed
// workspace flags atomically. The unique domain slot frees with the row.
func (s *Store) DeleteDomainClaim(ctx context.Context, claim *domain.DomainClaim, ws *domain.Workspace) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM domain_claims WHERE id = ?`, claim.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE workspaces SET updated_at = ?, domain_verified = ?, join_code_enabled = ? WHERE id = ?`,
		formatTime(ws.UpdatedAt),
		ws.DomainVerified,
		ws.JoinCodeEnabled,
		ws.ID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}
