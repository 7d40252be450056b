package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/photokeepapp/photokeep-server/internal/config"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/media/blob"
	"github.com/photokeepapp/photokeep-server/internal/media/images"
)

// ProvideBlobStore provides the content-addressed blob store.
func ProvideBlobStore(i do.Injector) (*blob.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	blobs, err := blob.NewStore(cfg.Storage.BasePath)
	if err != nil {
		return nil, fmt.Errorf("content store: %w", err)
	}

	log.Info("Content store initialized", "path", cfg.Storage.BasePath)

	return blobs, nil
}

// ProvideThumbnailer provides the thumbnail generator.
func ProvideThumbnailer(i do.Injector) (*images.Thumbnailer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return images.NewThumbnailer(cfg.Thumbnail.JPEGQuality), nil
}
