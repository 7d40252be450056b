// Package di provides dependency injection configuration for the PhotoKeep server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/photokeepapp/photokeep-server/internal/config"
	"github.com/photokeepapp/photokeep-server/internal/di/providers"
	"github.com/photokeepapp/photokeep-server/internal/ingest"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/media/blob"
	"github.com/photokeepapp/photokeep-server/internal/media/images"
	"github.com/photokeepapp/photokeep-server/internal/quota"
	"github.com/photokeepapp/photokeep-server/internal/ratelimit"
	"github.com/photokeepapp/photokeep-server/internal/service"
	"github.com/photokeepapp/photokeep-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlobStore)
	do.Provide(injector, providers.ProvideThumbnailer)

	// Ingestion
	do.Provide(injector, providers.ProvideQuotaLedger)
	do.Provide(injector, providers.ProvideIngestPipeline)

	// Business services
	do.Provide(injector, providers.ProvidePhotoService)
	do.Provide(injector, providers.ProvideAlbumService)
	do.Provide(injector, providers.ProvideUserService)

	// API plumbing
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideUploadLimiter)

	// Workers
	do.Provide(injector, providers.ProvideSweeper)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the server is up.
// This triggers lazy initialization of every provider in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*blob.Store](injector)
	_ = do.MustInvoke[*images.Thumbnailer](injector)
	_ = do.MustInvoke[*quota.Ledger](injector)
	_ = do.MustInvoke[*ingest.Pipeline](injector)

	_ = do.MustInvoke[*service.PhotoService](injector)
	_ = do.MustInvoke[*service.AlbumService](injector)
	_ = do.MustInvoke[*service.UserService](injector)

	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*ratelimit.KeyedRateLimiter](injector)

	_ = do.MustInvoke[*providers.SweeperHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
