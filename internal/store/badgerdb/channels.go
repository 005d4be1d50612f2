package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// CreateChannel inserts a channel and indexes it by workspace.
func (s *Store) CreateChannel(_ context.Context, ch *domain.Channel) error {
	key := []byte(channelPrefix + ch.ID)
	wsKey := []byte(channelByWsPrefix + ch.WorkspaceID + ":" + ch.ID)

	return s.update(func(txn *badger.Txn) error {
		if err := setJSON(txn, key, ch); err != nil {
			return err
		}
		return txn.Set(wsKey, []byte(ch.ID))
	})
}

// GetChannel retrieves a channel by ID.
func (s *Store) GetChannel(_ context.Context, id string) (*domain.Channel, error) {
	var ch domain.Channel
	if err := s.view([]byte(channelPrefix+id), &ch); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

// ListChannels returns all channels of a workspace.
func (s *Store) ListChannels(_ context.Context, workspaceID string) ([]*domain.Channel, error) {
	prefix := []byte(channelByWsPrefix + workspaceID + ":")

	var channels []*domain.Channel
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := iterateIDs(txn, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			var ch domain.Channel
			if err := getJSON(txn, []byte(channelPrefix+id), &ch); err != nil {
				return fmt.Errorf("load channel %s: %w", id, err)
			}
			channels = append(channels, &ch)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}
