package providers

import (
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/showcase-server/internal/config"
	"github.com/listenupapp/showcase-server/internal/logger"
	"github.com/listenupapp/showcase-server/internal/service"
	"github.com/listenupapp/showcase-server/internal/store"
	"github.com/listenupapp/showcase-server/internal/store/sqlite"
)

// StoreHandle wraps the document store with shutdown capability.
type StoreHandle struct {
	store.DocumentStore
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured document store backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	docs, path, err := OpenStore(cfg, log, StoreOptions())
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", path, "backend", cfg.Data.Backend)

	return &StoreHandle{DocumentStore: docs}, nil
}

// StoreOptions returns the options the server opens its store with: the
// legacy collection is read-only.
func StoreOptions() store.Options {
	return store.Options{ReadOnlyCollections: []string{service.LegacyCollection}}
}

// OpenStore opens the backend named by cfg.Data.Backend under the data path.
func OpenStore(cfg *config.Config, log *logger.Logger, opts store.Options) (store.DocumentStore, string, error) {
	switch cfg.Data.Backend {
	case config.BackendSQLite:
		path := filepath.Join(cfg.Data.BasePath, "showcase.db")
		docs, err := sqlite.Open(path, log.Component("store"), opts)
		if err != nil {
			return nil, "", err
		}
		return docs, path, nil
	case config.BackendBadger:
		path := filepath.Join(cfg.Data.BasePath, "db")
		docs, err := store.New(path, log.Component("store"), opts)
		if err != nil {
			return nil, "", err
		}
		return docs, path, nil
	default:
		return nil, "", fmt.Errorf("unknown backend %q", cfg.Data.Backend)
	}
}
