package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

const membershipColumns = `id, created_at, updated_at, deleted_at, workspace_id, user_id, role, joined_via, invited_by`

func scanMembership(scanner interface{ Scan(dest ...any) error }) (*domain.Membership, error) {
	var m domain.Membership
	var (
		createdAt string
		updatedAt string
		deletedAt sql.NullString
		role      string
		joinedVia string
		invitedBy sql.NullString
	)

	err := scanner.Scan(
		&m.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&m.WorkspaceID,
		&m.UserID,
		&role,
		&joinedVia,
		&invitedBy,
	)
	if err != nil {
		return nil, err
	}

	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if m.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	m.Role = domain.WorkspaceRole(role)
	m.JoinedVia = domain.MembershipOrigin(joinedVia)
	m.InvitedBy = invitedBy.String
	return &m, nil
}

// insertMembership runs the membership INSERT against db or a tx.
func insertMembership(ctx context.Context, db interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, m *domain.Membership) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO memberships (id, created_at, updated_at, deleted_at, workspace_id, user_id, role, joined_via, invited_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
		nullTimeString(m.DeletedAt),
		m.WorkspaceID,
		m.UserID,
		string(m.Role),
		string(m.JoinedVia),
		nullString(m.InvitedBy),
	)
	if isUniqueViolation(err, "memberships.workspace_id") {
		return store.ErrAlreadyMember
	}
	return err
}

// CreateMembership inserts a membership, failing with ErrAlreadyMember
// when the user already belongs to the workspace.
func (s *Store) CreateMembership(ctx context.Context, m *domain.Membership) error {
	return insertMembership(ctx, s.db, m)
}

// GetMembership retrieves the membership for a (workspace, user) pair.
func (s *Store) GetMembership(ctx context.Context, workspaceID, userID string) (*domain.Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE workspace_id = ? AND user_id = ?`,
		workspaceID, userID)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return m, err
}

// ListMemberships returns all memberships of a workspace.
func (s *Store) ListMemberships(ctx context.Context, workspaceID string) ([]*domain.Membership, error) {
	return s.queryMemberships(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE workspace_id = ? ORDER BY created_at`,
		workspaceID)
}

// ListUserMemberships returns all memberships of a user.
func (s *Store) ListUserMemberships(ctx context.Context, userID string) ([]*domain.Membership, error) {
	return s.queryMemberships(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = ? ORDER BY created_at`,
		userID)
}

func (s *Store) queryMemberships(ctx context.Context, query string, args ...any) ([]*domain.Membership, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var members []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
