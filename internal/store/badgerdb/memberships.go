package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// pairKey is the uniqueness index for (workspace, user).
func pairKey(workspaceID, userID string) []byte {
	return []byte(memberByPairPrefix + workspaceID + ":" + userID)
}

// createMembershipTxn inserts a membership inside an existing
// transaction. Shared with invite redemption, which needs the insert to
// commit together with the invite counter.
func createMembershipTxn(txn *badger.Txn, m *domain.Membership) error {
	if _, err := txn.Get(pairKey(m.WorkspaceID, m.UserID)); err == nil {
		return store.ErrAlreadyMember
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("check membership exists: %w", err)
	}

	if err := setJSON(txn, []byte(memberPrefix+m.ID), m); err != nil {
		return err
	}
	if err := txn.Set(pairKey(m.WorkspaceID, m.UserID), []byte(m.ID)); err != nil {
		return err
	}
	return txn.Set([]byte(memberByUserPrefix+m.UserID+":"+m.ID), []byte(m.ID))
}

// CreateMembership inserts a membership, failing with ErrAlreadyMember
// when the user already belongs to the workspace.
func (s *Store) CreateMembership(_ context.Context, m *domain.Membership) error {
	return s.update(func(txn *badger.Txn) error {
		return createMembershipTxn(txn, m)
	})
}

// GetMembership retrieves the membership for a (workspace, user) pair.
func (s *Store) GetMembership(_ context.Context, workspaceID, userID string) (*domain.Membership, error) {
	var m domain.Membership
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := lookupIndex(txn, pairKey(workspaceID, userID))
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(memberPrefix+id), &m)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

// ListMemberships returns all memberships of a workspace.
func (s *Store) ListMemberships(_ context.Context, workspaceID string) ([]*domain.Membership, error) {
	return s.listMemberships([]byte(memberByPairPrefix + workspaceID + ":"))
}

// ListUserMemberships returns all memberships of a user across
// workspaces.
func (s *Store) ListUserMemberships(_ context.Context, userID string) ([]*domain.Membership, error) {
	return s.listMemberships([]byte(memberByUserPrefix + userID + ":"))
}

func (s *Store) listMemberships(prefix []byte) ([]*domain.Membership, error) {
	var members []*domain.Membership
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := iterateIDs(txn, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			var m domain.Membership
			if err := getJSON(txn, []byte(memberPrefix+id), &m); err != nil {
				return fmt.Errorf("load membership %s: %w", id, err)
			}
			members = append(members, &m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return members, nil
}
