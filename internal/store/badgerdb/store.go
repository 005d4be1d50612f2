// Package badgerdb implements the store interfaces on BadgerDB.
//
// Every record is a JSON value under a typed key prefix. Secondary
// lookups go through index keys written in the same transaction as the
// record, so uniqueness constraints (domain claims, invite codes,
// membership pairs) hold under concurrent writers: two transactions
// inserting the same index key conflict and exactly one commits.
package badgerdb

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes. Records live under "<type>:<id>"; index keys under
// "idx:<type>:<index>:<value>".
const (
	userPrefix      = "user:"
	sessionPrefix   = "session:"
	workspacePrefix = "workspace:"
	memberPrefix    = "member:"
	channelPrefix   = "channel:"
	claimPrefix     = "claim:"
	invitePrefix    = "invite:"

	userByEmailPrefix      = "idx:users:email:"
	sessionByUserPrefix    = "idx:sessions:user:"
	workspaceBySlugPrefix  = "idx:workspaces:slug:"
	memberByPairPrefix     = "idx:members:pair:"
	memberByUserPrefix     = "idx:members:user:"
	channelByWsPrefix      = "idx:channels:workspace:"
	claimByDomainPrefix    = "idx:claims:domain:"
	claimByWsPrefix        = "idx:claims:workspace:"
	inviteByCodePrefix     = "idx:invites:code:"
	inviteByWsPrefix       = "idx:invites:workspace:"
)

// conflictRetries bounds optimistic-concurrency retries on commit
// conflicts before giving up.
const conflictRetries = 16

// Store is a BadgerDB-backed implementation of store.Store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) a Badger database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithIndexCacheSize(64 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}

	s := &Store{db: db, logger: logger}
	go s.runGC()
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// runGC reclaims value-log space periodically until the DB closes.
func (s *Store) runGC() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		if s.db.IsClosed() {
			return
		}
		for {
			if err := s.db.RunValueLogGC(0.5); err != nil {
				break
			}
		}
	}
}

// update runs fn in a read-write transaction, retrying on commit
// conflicts. Badger detects write-write races at commit time; retrying
// re-runs the checks against the winner's state.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range conflictRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// getJSON reads and unmarshals the value at key within txn.
func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// setJSON marshals v and writes it at key within txn.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// view reads and unmarshals a single record outside any caller txn.
func (s *Store) view(key []byte, out any) error {
	return s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, key, out)
	})
}

// lookupIndex resolves an index key to the record ID it points at.
func lookupIndex(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		return "", err
	}
	var id string
	err = item.Value(func(val []byte) error {
		id = string(val)
		return nil
	})
	return id, err
}

// iterateIDs walks index keys under prefix whose values are record IDs.
func iterateIDs(txn *badger.Txn, prefix []byte) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
