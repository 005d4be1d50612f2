package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// CreateWorkspace inserts a workspace, enforcing slug uniqueness.
func (s *Store) CreateWorkspace(_ context.Context, ws *domain.Workspace) error {
	key := []byte(workspacePrefix + ws.ID)
	slugKey := []byte(workspaceBySlugPrefix + ws.Slug)

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(slugKey); err == nil {
			return store.ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check slug exists: %w", err)
		}

		if err := setJSON(txn, key, ws); err != nil {
			return err
		}
		return txn.Set(slugKey, []byte(ws.ID))
	})
}

// GetWorkspace retrieves a workspace by ID.
func (s *Store) GetWorkspace(_ context.Context, id string) (*domain.Workspace, error) {
	var ws domain.Workspace
	if err := s.view([]byte(workspacePrefix+id), &ws); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return &ws, nil
}

// GetWorkspaceBySlug retrieves a workspace through the slug index.
func (s *Store) GetWorkspaceBySlug(_ context.Context, slug string) (*domain.Workspace, error) {
	var ws domain.Workspace
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := lookupIndex(txn, []byte(workspaceBySlugPrefix+slug))
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(workspacePrefix+id), &ws)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get workspace by slug: %w", err)
	}
	return &ws, nil
}

// UpdateWorkspace overwrites a workspace record. The slug is treated as
// immutable; callers must not change it.
func (s *Store) UpdateWorkspace(_ context.Context, ws *domain.Workspace) error {
	key := []byte(workspacePrefix + ws.ID)

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		return setJSON(txn, key, ws)
	})
}
