// Package sweeper reconciles the content store with the metadata store.
// It removes orphaned blob files left behind by crashes, marks photos
// whose content went missing, and corrects drifted quota counters.
package sweeper

import (
	"context"
	"io/fs"
	"sync"
	"time"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/media/blob"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// Config tunes the sweeper.
type Config struct {
	// Interval between sweeps when running in the background.
	Interval time.Duration
	// MinBlobAge is the grace window: blob files younger than this are
	// never touched, so in-flight uploads cannot lose their content.
	MinBlobAge time.Duration
	// InFlight, when set, reports whether an ingestion currently holds
	// a fingerprint. Such blobs are never collected even when their
	// reference count is zero: a commit may be about to reference them.
	InFlight func(fingerprint string) bool
}

// Stats summarizes one sweep for the audit log.
type Stats struct {
	BlobsScanned      int
	OrphansRemoved    int
	PhotosMarkedLost  int
	CountersCorrected int
}

// Sweeper runs periodic reconciliation passes.
type Sweeper struct {
	log    *logger.Logger
	store  store.Store
	blobs  *blob.Store
	config Config

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a sweeper. Zero config fields get conservative defaults.
func New(log *logger.Logger, st store.Store, blobs *blob.Store, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.MinBlobAge <= 0 {
		cfg.MinBlobAge = 15 * time.Minute
	}
	return &Sweeper{
		log:    log,
		store:  st,
		blobs:  blobs,
		config: cfg,
	}
}

// Start launches the background loop. The first sweep happens one full
// interval after startup, leaving the boot path fast.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx)
	s.log.Info("sweeper started", "interval", s.config.Interval, "min_blob_age", s.config.MinBlobAge)
}

// Shutdown stops the background loop and waits for an in-progress sweep
// to finish.
func (s *Sweeper) Shutdown() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.Sweep(ctx)
			if err != nil {
				s.log.WithError(err).Error("sweep failed")
				continue
			}
			s.log.Info("sweep completed",
				"blobs_scanned", stats.BlobsScanned,
				"orphans_removed", stats.OrphansRemoved,
				"photos_marked_lost", stats.PhotosMarkedLost,
				"counters_corrected", stats.CountersCorrected,
			)
		}
	}
}

// Sweep runs one full reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.collectOrphans(ctx, stats); err != nil {
		return stats, err
	}
	if err := s.markLostPhotos(ctx, stats); err != nil {
		return stats, err
	}
	if err := s.auditConsumed(ctx, stats); err != nil {
		return stats, err
	}
	return stats, nil
}

// collectOrphans removes blob files that no photo references. Only files
// older than the grace window are considered, and the reference count is
// re-checked right before the file is removed.
func (s *Sweeper) collectOrphans(ctx context.Context, stats *Stats) error {
	cutoff := time.Now().Add(-s.config.MinBlobAge)

	return s.blobs.Walk(func(fingerprint string, info fs.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.BlobsScanned++

		if info.ModTime().After(cutoff) {
			return nil
		}

		count, err := s.store.BlobRefCount(ctx, fingerprint)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		// Remove any stale zero-refcount row; the conditional delete is
		// the atomic recheck against a concurrent ingestion.
		if _, err := s.store.DeleteBlobIfUnreferenced(ctx, fingerprint); err != nil {
			return err
		}
		count, err = s.store.BlobRefCount(ctx, fingerprint)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if s.config.InFlight != nil && s.config.InFlight(fingerprint) {
			return nil
		}

		if err := s.blobs.Delete(fingerprint); err != nil {
			s.log.Warn("failed to remove orphaned blob", "fingerprint", fingerprint, "error", err)
			return nil
		}
		stats.OrphansRemoved++
		s.log.Info("removed orphaned blob", "fingerprint", fingerprint, "size_bytes", info.Size())
		return nil
	})
}

// markLostPhotos flags ready photos whose content file disappeared from
// the content store. The rows are kept so the loss is visible to the
// owner instead of silently vanishing.
func (s *Sweeper) markLostPhotos(ctx context.Context, stats *Stats) error {
	photos, err := s.store.ListAllPhotos(ctx)
	if err != nil {
		return err
	}

	for _, photo := range photos {
		if photo.Status != domain.StatusReady {
			continue
		}
		if s.blobs.Exists(photo.Fingerprint) {
			continue
		}

		if err := s.store.SetPhotoStatus(ctx, photo.ID, domain.StatusFailed); err != nil {
			s.log.Warn("failed to mark photo lost", "photo_id", photo.ID, "error", err)
			continue
		}
		stats.PhotosMarkedLost++
		s.log.Warn("photo content missing, marked failed",
			"photo_id", photo.ID, "fingerprint", photo.Fingerprint)
	}
	return nil
}

// auditConsumed recomputes each user's consumed quota from the photo
// rows and corrects the counter when it drifted. The correction is
// conditional on the value read here, so a charge committed by a
// concurrent ingestion or deletion is never clobbered.
func (s *Sweeper) auditConsumed(ctx context.Context, stats *Stats) error {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		actual, err := s.store.ComputeUserConsumed(ctx, user.ID)
		if err != nil {
			return err
		}
		if actual == user.QuotaConsumed {
			continue
		}

		applied, err := s.store.CorrectUserConsumed(ctx, user.ID, user.QuotaConsumed, actual)
		if err != nil {
			return err
		}
		if !applied {
			s.log.Debug("consumed counter changed mid-audit, skipping",
				"user_id", user.ID)
			continue
		}
		stats.CountersCorrected++
		s.log.Warn("corrected drifted quota counter",
			"user_id", user.ID, "recorded", user.QuotaConsumed, "actual", actual)
	}
	return nil
}
