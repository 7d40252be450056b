package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/photokeepapp/photokeep-server/internal/api"
	"github.com/photokeepapp/photokeep-server/internal/config"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/ratelimit"
	"github.com/photokeepapp/photokeep-server/internal/service"
	"github.com/photokeepapp/photokeep-server/internal/validation"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	photoService := do.MustInvoke[*service.PhotoService](i)
	albumService := do.MustInvoke[*service.AlbumService](i)
	userService := do.MustInvoke[*service.UserService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	uploadLimiter := do.MustInvoke[*ratelimit.KeyedRateLimiter](i)

	handler := api.NewServer(photoService, albumService, userService, validator, uploadLimiter, cfg.Upload.MaxSizeBytes, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
