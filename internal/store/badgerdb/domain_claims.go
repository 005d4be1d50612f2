package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// CreateDomainClaim inserts a claim if no claim for the same normalized
// domain exists. The check and the insert happen in one transaction
// keyed on the domain index, so two concurrent claims for one domain
// conflict at commit and exactly one succeeds.
func (s *Store) CreateDomainClaim(_ context.Context, claim *domain.DomainClaim) error {
	key := []byte(claimPrefix + claim.ID)
	domainKey := []byte(claimByDomainPrefix + claim.Domain)
	wsKey := []byte(claimByWsPrefix + claim.WorkspaceID + ":" + claim.ID)

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(domainKey); err == nil {
			return store.ErrDomainClaimed
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check domain claimed: %w", err)
		}

		if err := setJSON(txn, key, claim); err != nil {
			return err
		}
		if err := txn.Set(domainKey, []byte(claim.ID)); err != nil {
			return err
		}
		return txn.Set(wsKey, []byte(claim.ID))
	})
}

// GetDomainClaim retrieves a claim by ID.
func (s *Store) GetDomainClaim(_ context.Context, id string) (*domain.DomainClaim, error) {
	var claim domain.DomainClaim
	if err := s.view([]byte(claimPrefix+id), &claim); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get domain claim: %w", err)
	}
	return &claim, nil
}

// GetDomainClaimByDomain retrieves whichever claim currently holds the
// normalized domain, regardless of workspace.
func (s *Store) GetDomainClaimByDomain(_ context.Context, dom string) (*domain.DomainClaim, error) {
	var claim domain.DomainClaim
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := lookupIndex(txn, []byte(claimByDomainPrefix+dom))
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(claimPrefix+id), &claim)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get claim by domain: %w", err)
	}
	return &claim, nil
}

// ListDomainClaims returns all claims of a workspace, any status.
func (s *Store) ListDomainClaims(_ context.Context, workspaceID string) ([]*domain.DomainClaim, error) {
	prefix := []byte(claimByWsPrefix + workspaceID + ":")

	var claims []*domain.DomainClaim
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := iterateIDs(txn, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			var claim domain.DomainClaim
			if err := getJSON(txn, []byte(claimPrefix+id), &claim); err != nil {
				return fmt.Errorf("load claim %s: %w", id, err)
			}
			claims = append(claims, &claim)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list domain claims: %w", err)
	}
	return claims, nil
}

// SaveVerificationResult writes the claim status and the workspace
// trust flags in a single transaction.
func (s *Store) SaveVerificationResult(_ context.Context, claim *domain.DomainClaim, ws *domain.Workspace) error {
	return s.update(func(txn *badger.Txn) error {
		if err := setJSON(txn, []byte(claimPrefix+claim.ID), claim); err != nil {
			return err
		}
		return setJSON(txn, []byte(workspacePrefix+ws.ID), ws)
	})
}

// DeleteDomainClaim removes the claim, frees its domain slot and writes
// the recomputed workspace flags, all atomically.
func (s *Store) DeleteDomainClaim(_ context.Context, claim *domain.DomainClaim, ws *domain.Workspace) error {
	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(claimPrefix + claim.ID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}

		if err := txn.Delete([]byte(claimPrefix + claim.ID)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(claimByDomainPrefix + claim.Domain)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(claimByWsPrefix + claim.WorkspaceID + ":" + claim.ID)); err != nil {
			return err
		}
		return setJSON(txn, []byte(workspacePrefix+ws.ID), ws)
	})
}
