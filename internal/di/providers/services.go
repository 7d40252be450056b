package providers

import (
	"github.com/samber/do/v2"

	"github.com/photokeepapp/photokeep-server/internal/config"
	"github.com/photokeepapp/photokeep-server/internal/ingest"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/media/blob"
	"github.com/photokeepapp/photokeep-server/internal/media/images"
	"github.com/photokeepapp/photokeep-server/internal/quota"
	"github.com/photokeepapp/photokeep-server/internal/ratelimit"
	"github.com/photokeepapp/photokeep-server/internal/service"
	"github.com/photokeepapp/photokeep-server/internal/validation"
)

// ProvideQuotaLedger provides the per-user quota reservation ledger.
func ProvideQuotaLedger(i do.Injector) (*quota.Ledger, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return quota.NewLedger(storeHandle.Store), nil
}

// ProvideIngestPipeline provides the upload ingestion pipeline.
func ProvideIngestPipeline(i do.Injector) (*ingest.Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobs := do.MustInvoke[*blob.Store](i)
	thumbs := do.MustInvoke[*images.Thumbnailer](i)
	ledger := do.MustInvoke[*quota.Ledger](i)

	return ingest.NewPipeline(log, storeHandle.Store, blobs, thumbs, ledger, ingest.Config{
		MaxUploadBytes:   cfg.Upload.MaxSizeBytes,
		ThumbnailWorkers: cfg.Thumbnail.Workers,
	}), nil
}

// ProvideUploadLimiter provides the per-user upload rate limiter.
func ProvideUploadLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.New(cfg.Upload.RatePerSecond, cfg.Upload.Burst), nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvidePhotoService provides the photo service.
func ProvidePhotoService(i do.Injector) (*service.PhotoService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobs := do.MustInvoke[*blob.Store](i)
	pipeline := do.MustInvoke[*ingest.Pipeline](i)
	ledger := do.MustInvoke[*quota.Ledger](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPhotoService(storeHandle.Store, blobs, pipeline, ledger, log), nil
}

// ProvideAlbumService provides the album service.
func ProvideAlbumService(i do.Injector) (*service.AlbumService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAlbumService(storeHandle.Store, log), nil
}

// ProvideUserService provides the user service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, log, cfg.Quota.DefaultLimitBytes), nil
}
