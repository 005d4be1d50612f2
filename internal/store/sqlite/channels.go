package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

const channelColumns = `id, created_at, updated_at, deleted_at, workspace_id, name, created_by`

func scanChannel(scanner interface{ Scan(dest ...any) error }) (*domain.Channel, error) {
	var ch domain.Channel
	var (
		createdAt string
		updatedAt string
		deletedAt sql.NullString
	)

	err := scanner.Scan(
		&ch.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&ch.WorkspaceID,
		&ch.Name,
		&ch.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	if ch.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if ch.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if ch.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	return &ch, nil
}

// CreateChannel inserts a new channel.
func (s *Store) CreateChannel(ctx context.Context, ch *domain.Channel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (id, created_at, updated_at, deleted_at, workspace_id, name, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ch.ID,
		formatTime(ch.CreatedAt),
		formatTime(ch.UpdatedAt),
		nullTimeString(ch.DeletedAt),
		ch.WorkspaceID,
		ch.Name,
		ch.CreatedBy,
	)
	return err
}

// GetChannel retrieves a channel by ID.
func (s *Store) GetChannel(ctx context.Context, id string) (*domain.Channel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return ch, err
}

// ListChannels returns all channels of a workspace.
func (s *Store) ListChannels(ctx context.Context, workspaceID string) ([]*domain.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE workspace_id = ? ORDER BY created_at`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []*domain.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
