package providers

import (
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/photokeepapp/photokeep-server/internal/config"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/store/sqlite"
)

// StoreHandle wraps the metadata store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the metadata store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbDir := filepath.Join(cfg.Storage.BasePath, "db")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, err
	}

	db, err := sqlite.Open(filepath.Join(dbDir, "photokeep.db"), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Metadata store initialized", "path", dbDir)

	return &StoreHandle{Store: db}, nil
}
