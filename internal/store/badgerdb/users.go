package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// CreateUser inserts a user, enforcing email uniqueness through the
// email index key.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	key := []byte(userPrefix + user.ID)
	emailKey := []byte(userByEmailPrefix + strings.ToLower(user.Email))

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey); err == nil {
			return store.ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check email exists: %w", err)
		}

		if err := setJSON(txn, key, user); err != nil {
			return err
		}
		return txn.Set(emailKey, []byte(user.ID))
	})
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.view([]byte(userPrefix+id), &user); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user through the email index.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	emailKey := []byte(userByEmailPrefix + strings.ToLower(email))

	var user domain.User
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := lookupIndex(txn, emailKey)
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(userPrefix+id), &user)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// UpdateUser overwrites a user record. The email is treated as
// immutable; callers must not change it.
func (s *Store) UpdateUser(_ context.Context, user *domain.User) error {
	key := []byte(userPrefix + user.ID)

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		return setJSON(txn, key, user)
	})
}
