package providers

import (
	"github.com/samber/do/v2"

	"github.com/photokeepapp/photokeep-server/internal/config"
	"github.com/photokeepapp/photokeep-server/internal/ingest"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/media/blob"
	"github.com/photokeepapp/photokeep-server/internal/sweeper"
)

// SweeperHandle wraps the reconciliation sweeper with shutdown capability.
type SweeperHandle struct {
	*sweeper.Sweeper
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *SweeperHandle) Shutdown() error {
	if !h.started {
		return nil
	}
	return h.Sweeper.Shutdown()
}

// ProvideSweeper provides the reconciliation sweeper, started in the
// background when enabled.
func ProvideSweeper(i do.Injector) (*SweeperHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobs := do.MustInvoke[*blob.Store](i)
	pipeline := do.MustInvoke[*ingest.Pipeline](i)

	sw := sweeper.New(log, storeHandle.Store, blobs, sweeper.Config{
		Interval:   cfg.Sweeper.Interval,
		MinBlobAge: cfg.Sweeper.MinBlobAge,
		InFlight:   pipeline.InFlight,
	})

	if !cfg.Sweeper.Enabled {
		log.Info("Reconciliation sweeper disabled by configuration")
		return &SweeperHandle{Sweeper: sw, started: false}, nil
	}

	sw.Start()
	log.Info("Reconciliation sweeper started",
		"interval", cfg.Sweeper.Interval,
		"min_blob_age", cfg.Sweeper.MinBlobAge,
	)

	return &SweeperHandle{Sweeper: sw, started: true}, nil
}
