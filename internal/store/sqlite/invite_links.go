package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

const inviteColumns = `id, workspace_id, code, scope_kind, scope_channel_id,
	created_by, created_at, expires_at, max_uses, used_count, revoked_at`

func scanInvite(scanner interface{ Scan(dest ...any) error }) (*domain.InviteLink, error) {
	var link domain.InviteLink
	var (
		scopeKind      string
		scopeChannelID sql.NullString
		createdAt      string
		expiresAt      string
		maxUses        sql.NullInt64
		revokedAt      sql.NullString
	)

	err := scanner.Scan(
		&link.ID,
		&link.WorkspaceID,
		&link.Code,
		&scopeKind,
		&scopeChannelID,
		&link.CreatedBy,
		&createdAt,
		&expiresAt,
		&maxUses,
		&link.UsedCount,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}

	link.Scope = domain.InviteScope{
		Kind:      domain.InviteScopeKind(scopeKind),
		ChannelID: scopeChannelID.String,
	}
	if link.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if link.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if maxUses.Valid {
		v := int(maxUses.Int64)
		link.MaxUses = &v
	}
	if link.RevokedAt, err = parseNullableTime(revokedAt); err != nil {
		return nil, err
	}
	return &link, nil
}

// CreateInviteLink inserts a link. Returns store.ErrInviteCodeExists on
// a code collision.
func (s *Store) CreateInviteLink(ctx context.Context, link *domain.InviteLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invite_links (id, workspace_id, code, scope_kind, scope_channel_id, created_by, created_at, expires_at, max_uses, used_count, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		link.ID,
		link.WorkspaceID,
		link.Code,
		string(link.Scope.Kind),
		nullString(link.Scope.ChannelID),
		link.CreatedBy,
		formatTime(link.CreatedAt),
		formatTime(link.ExpiresAt),
		nullInt(link.MaxUses),
		link.UsedCount,
		nullTimeString(link.RevokedAt),
	)
	if isUniqueViolation(err, "invite_links.code") {
		return store.ErrInviteCodeExists
	}
	return err
}

// GetInviteLink retrieves a link by ID.
func (s *Store) GetInviteLink(ctx context.Context, id string) (*domain.InviteLink, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM invite_links WHERE id = ?`, id)
	link, err := scanInvite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return link, err
}

// GetInviteLinkByCode retrieves a link by code, whatever its validity.
func (s *Store) GetInviteLinkByCode(ctx context.Context, code string) (*domain.InviteLink, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM invite_links WHERE code = ?`, code)
	link, err := scanInvite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return link, err
}

// ListInviteLinks returns all links of a workspace.
func (s *Store) ListInviteLinks(ctx context.Context, workspaceID string) ([]*domain.InviteLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+inviteColumns+` FROM invite_links WHERE workspace_id = ? ORDER BY created_at`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query invite links: %w", err)
	}
	defer rows.Close()

	var links []*domain.InviteLink
	for rows.Next() {
		link, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// RevokeInviteLink sets RevokedAt unless already set, keeping the
// operation idempotent, and returns the current record.
func (s *Store) RevokeInviteLink(ctx context.Context, id string, at time.Time) (*domain.InviteLink, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invite_links SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		formatTime(at), id)
	if err != nil {
		return nil, err
	}
	if _, err := res.RowsAffected(); err != nil {
		return nil, err
	}
	return s.GetInviteLink(ctx, id)
}

// RedeemInviteLink runs the full check-increment-insert sequence in a
// single transaction. The conditional UPDATE re-applies the use-limit
// bound at write time, so concurrent redemptions can never push
// used_count past max_uses.
func (s *Store) RedeemInviteLink(ctx context.Context, code string, m *domain.Membership, now time.Time) (*domain.InviteLink, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM invite_links WHERE code = ?`, code)
	link, err := scanInvite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	switch link.Deny(now) {
	case domain.DenyRevoked:
		return nil, store.ErrInviteRevoked
	case domain.DenyExpired:
		return nil, store.ErrInviteExpired
	case domain.DenyMaxUses:
		return nil, store.ErrInviteMaxUses
	}

	m.WorkspaceID = link.WorkspaceID
	m.InvitedBy = link.CreatedBy
	if err := insertMembership(ctx, tx, m); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE invite_links SET used_count = used_count + 1
		WHERE id = ? AND (max_uses IS NULL OR used_count < max_uses)`,
		link.ID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, store.ErrInviteMaxUses
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	link.UsedCount++
	return link, nil
}
