package badgerdb

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// CreateSession inserts a session and indexes it by user for bulk
// revocation.
func (s *Store) CreateSession(_ context.Context, session *domain.Session) error {
	key := []byte(sessionPrefix + session.ID)
	userKey := []byte(sessionByUserPrefix + session.UserID + ":" + session.ID)

	return s.update(func(txn *badger.Txn) error {
		if err := setJSON(txn, key, session); err != nil {
			return err
		}
		return txn.Set(userKey, []byte(session.ID))
	})
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(_ context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	if err := s.view([]byte(sessionPrefix+id), &session); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

// UpdateSession overwrites a session record.
func (s *Store) UpdateSession(_ context.Context, session *domain.Session) error {
	key := []byte(sessionPrefix + session.ID)

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		return setJSON(txn, key, session)
	})
}

// DeleteSession removes a session and its user index entry.
func (s *Store) DeleteSession(_ context.Context, id string) error {
	key := []byte(sessionPrefix + id)

	return s.update(func(txn *badger.Txn) error {
		var session domain.Session
		if err := getJSON(txn, key, &session); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete([]byte(sessionByUserPrefix + session.UserID + ":" + id))
	})
}

// DeleteExpiredSessions removes every session whose expiry is at or
// before now and reports how many were removed.
func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	var deleted int

	err := s.update(func(txn *badger.Txn) error {
		deleted = 0

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		type expired struct{ id, userID string }
		var victims []expired

		for it.Rewind(); it.Valid(); it.Next() {
			var session domain.Session
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			})
			if err != nil {
				return err
			}
			if !session.ExpiresAt.After(now) {
				victims = append(victims, expired{id: session.ID, userID: session.UserID})
			}
		}

		for _, v := range victims {
			if err := txn.Delete([]byte(sessionPrefix + v.id)); err != nil {
				return err
			}
			if err := txn.Delete([]byte(sessionByUserPrefix + v.userID + ":" + v.id)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// DeleteUserSessions removes every session belonging to a user.
func (s *Store) DeleteUserSessions(_ context.Context, userID string) error {
	prefix := []byte(sessionByUserPrefix + userID + ":")

	return s.update(func(txn *badger.Txn) error {
		ids, err := iterateIDs(txn, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := txn.Delete([]byte(sessionPrefix + id)); err != nil {
				return err
			}
			if err := txn.Delete([]byte(sessionByUserPrefix + userID + ":" + id)); err != nil {
				return err
			}
		}
		return nil
	})
}
