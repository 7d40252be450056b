// Package api provides the HTTP API server and handlers for the PhotoKeep server.
//
// The adapter is deliberately thin: it trusts the X-User-ID identity header
// set by a fronting proxy, translates HTTP to service calls, and maps domain
// errors to response envelopes. It contains no authentication logic.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/photokeepapp/photokeep-server/internal/http/response"
	"github.com/photokeepapp/photokeep-server/internal/ratelimit"
	"github.com/photokeepapp/photokeep-server/internal/service"
	"github.com/photokeepapp/photokeep-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	photoService   *service.PhotoService
	albumService   *service.AlbumService
	userService    *service.UserService
	validator      *validation.Validator
	uploadLimiter  *ratelimit.KeyedRateLimiter
	maxUploadBytes int64
	router         *chi.Mux
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(photoService *service.PhotoService, albumService *service.AlbumService, userService *service.UserService, validator *validation.Validator, uploadLimiter *ratelimit.KeyedRateLimiter, maxUploadBytes int64, logger *slog.Logger) *Server {
	s := &Server{
		photoService:   photoService,
		albumService:   albumService,
		userService:    userService,
		validator:      validator,
		uploadLimiter:  uploadLimiter,
		maxUploadBytes: maxUploadBytes,
		router:         chi.NewRouter(),
		logger:         logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Provisioning is public; accounts are otherwise only visible
		// to themselves, so there is no collection listing.
		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Group(func(r chi.Router) {
				r.Use(s.requireIdentity)
				r.Get("/me", s.handleGetCurrentUser)
				r.Patch("/me/quota", s.handleSetQuotaLimit)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireIdentity)

			r.Get("/quota", s.handleQuotaStatus)

			r.Route("/photos", func(r chi.Router) {
				r.With(s.uploadRateLimit).Post("/", s.handleUploadPhoto)
				r.Get("/", s.handleListPhotos)
				r.Get("/{id}", s.handleGetPhoto)
				r.Get("/{id}/original", s.handleGetOriginal)
				r.Get("/{id}/thumbnail/{class}", s.handleGetThumbnail)
				r.Patch("/{id}", s.handleUpdatePhoto)
				r.Delete("/{id}", s.handleDeletePhoto)
			})

			r.Route("/albums", func(r chi.Router) {
				r.Post("/", s.handleCreateAlbum)
				r.Get("/", s.handleListAlbums)
				r.Get("/{id}", s.handleGetAlbum)
				r.Patch("/{id}", s.handleUpdateAlbum)
				r.Delete("/{id}", s.handleDeleteAlbum)
				r.Post("/{id}/photos", s.handleAddPhotoToAlbum)
				r.Delete("/{id}/photos/{photoID}", s.handleRemovePhotoFromAlbum)
				r.Get("/{id}/photos", s.handleListAlbumPhotos)
			})
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
