package providers

import (
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/kiiaren/kiiaren-server/internal/config"
	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
	"github.com/kiiaren/kiiaren-server/internal/logger"
	"github.com/kiiaren/kiiaren-server/internal/store"
	"github.com/kiiaren/kiiaren-server/internal/store/badgerdb"
	"github.com/kiiaren/kiiaren-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the storage backend named by configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		st  store.Store
		err error
	)
	switch cfg.Storage.Backend {
	case "badger":
		st, err = badgerdb.Open(filepath.Join(cfg.Storage.DataPath, "db"), log.Logger)
	case "sqlite":
		st, err = sqlite.Open(filepath.Join(cfg.Storage.DataPath, "kiiaren.db"), log.Logger)
	default:
		return nil, domainerrors.ErrUnsupportedBackend.WithDetails(cfg.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	log.Info("Database initialized",
		"backend", cfg.Storage.Backend,
		"path", cfg.Storage.DataPath,
	)

	return &StoreHandle{Store: st}, nil
}
