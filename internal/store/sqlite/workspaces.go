package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

const workspaceColumns = `id, created_at, updated_at, deleted_at,
	name, slug, owner_id, join_code, domain_verified, join_code_enabled`

func scanWorkspace(scanner interface{ Scan(dest ...any) error }) (*domain.Workspace, error) {
	var ws domain.Workspace
	var (
		createdAt string
		updatedAt string
		deletedAt sql.NullString
	)

	err := scanner.Scan(
		&ws.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&ws.Name,
		&ws.Slug,
		&ws.OwnerID,
		&ws.JoinCode,
		&ws.DomainVerified,
		&ws.JoinCodeEnabled,
	)
	if err != nil {
		return nil, err
	}

	if ws.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if ws.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if ws.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	return &ws, nil
}

// CreateWorkspace inserts a new workspace. Returns store.ErrAlreadyExists
// if the slug is taken.
func (s *Store) CreateWorkspace(ctx context.Context, ws *domain.Workspace) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, created_at, updated_at, deleted_at, name, slug, owner_id, join_code, domain_verified, join_code_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ws.ID,
		formatTime(ws.CreatedAt),
		formatTime(ws.UpdatedAt),
		nullTimeString(ws.DeletedAt),
		ws.Name,
		ws.Slug,
		ws.OwnerID,
		ws.JoinCode,
		ws.DomainVerified,
		ws.JoinCodeEnabled,
	)
	if isUniqueViolation(err, "workspaces.slug") {
		return store.ErrAlreadyExists
	}
	return err
}

// GetWorkspace retrieves a workspace by ID.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*domain.Workspace, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id)
	ws, err := scanWorkspace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return ws, err
}

// GetWorkspaceBySlug retrieves a workspace by slug.
func (s *Store) GetWorkspaceBySlug(ctx context.Context, slug string) (*domain.Workspace, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE slug = ?`, slug)
	ws, err := scanWorkspace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return ws, err
}

// UpdateWorkspace overwrites a workspace's mutable fields.
func (s *Store) UpdateWorkspace(ctx context.Context, ws *domain.Workspace) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workspaces SET updated_at = ?, deleted_at = ?, name = ?, join_code = ?, domain_verified = ?, join_code_enabled = ?
		WHERE id = ?`,
		formatTime(ws.UpdatedAt),
		nullTimeString(ws.DeletedAt),
		ws.Name,
		ws.JoinCode,
		ws.DomainVerified,
		ws.JoinCodeEnabled,
		ws.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
