package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// CreateInviteLink inserts a link, enforcing code uniqueness through
// the code index.
func (s *Store) CreateInviteLink(_ context.Context, link *domain.InviteLink) error {
	key := []byte(invitePrefix + link.ID)
	codeKey := []byte(inviteByCodePrefix + link.Code)
	wsKey := []byte(inviteByWsPrefix + link.WorkspaceID + ":" + link.ID)

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(codeKey); err == nil {
			return store.ErrInviteCodeExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check code exists: %w", err)
		}

		if err := setJSON(txn, key, link); err != nil {
			return err
		}
		if err := txn.Set(codeKey, []byte(link.ID)); err != nil {
			return err
		}
		return txn.Set(wsKey, []byte(link.ID))
	})
}

// GetInviteLink retrieves a link by ID.
func (s *Store) GetInviteLink(_ context.Context, id string) (*domain.InviteLink, error) {
	var link domain.InviteLink
	if err := s.view([]byte(invitePrefix+id), &link); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get invite link: %w", err)
	}
	return &link, nil
}

// GetInviteLinkByCode retrieves a link through the code index. The raw
// record comes back whatever its validity; callers decide redeemability.
func (s *Store) GetInviteLinkByCode(_ context.Context, code string) (*domain.InviteLink, error) {
	var link domain.InviteLink
	err := s.db.View(func(txn *badger.Txn) error {
		return getInviteByCodeTxn(txn, code, &link)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get invite by code: %w", err)
	}
	return &link, nil
}

func getInviteByCodeTxn(txn *badger.Txn, code string, link *domain.InviteLink) error {
	id, err := lookupIndex(txn, []byte(inviteByCodePrefix+code))
	if err != nil {
		return err
	}
	return getJSON(txn, []byte(invitePrefix+id), link)
}

// ListInviteLinks returns all links of a workspace regardless of
// validity.
func (s *Store) ListInviteLinks(_ context.Context, workspaceID string) ([]*domain.InviteLink, error) {
	prefix := []byte(inviteByWsPrefix + workspaceID + ":")

	var links []*domain.InviteLink
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := iterateIDs(txn, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			var link domain.InviteLink
			if err := getJSON(txn, []byte(invitePrefix+id), &link); err != nil {
				return fmt.Errorf("load invite %s: %w", id, err)
			}
			links = append(links, &link)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list invite links: %w", err)
	}
	return links, nil
}

// RevokeInviteLink sets RevokedAt, leaving an already revoked link
// untouched so revocation stays idempotent.
func (s *Store) RevokeInviteLink(_ context.Context, id string, at time.Time) (*domain.InviteLink, error) {
	key := []byte(invitePrefix + id)

	var link domain.InviteLink
	err := s.update(func(txn *badger.Txn) error {
		if err := getJSON(txn, key, &link); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		if link.RevokedAt != nil {
			return nil
		}
		link.RevokedAt = &at
		return setJSON(txn, key, &link)
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// RedeemInviteLink re-reads the link inside the transaction, applies
// the full check sequence and, on success, increments UsedCount and
// inserts the membership. The counter increment and the membership
// insert commit together or not at all; concurrent redemptions conflict
// on the link record, retry, and re-check against the committed count,
// so UsedCount can never exceed MaxUses.
func (s *Store) RedeemInviteLink(_ context.Context, code string, m *domain.Membership, now time.Time) (*domain.InviteLink, error) {
	var link domain.InviteLink
	err := s.update(func(txn *badger.Txn) error {
		if err := getInviteByCodeTxn(txn, code, &link); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}

		switch link.Deny(now) {
		case domain.DenyRevoked:
			return store.ErrInviteRevoked
		case domain.DenyExpired:
			return store.ErrInviteExpired
		case domain.DenyMaxUses:
			return store.ErrInviteMaxUses
		}

		// Membership insert runs its own already-member check, before
		// the counter moves.
		m.WorkspaceID = link.WorkspaceID
		m.InvitedBy = link.CreatedBy
		if err := createMembershipTxn(txn, m); err != nil {
			return err
		}

		link.UsedCount++
		return setJSON(txn, []byte(invitePrefix+link.ID), &link)
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}
