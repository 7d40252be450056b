package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/photokeepapp/photokeep-server/internal/http/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyUserID contextKey = "user_id"

// identityHeader carries the pre-validated user identity. A fronting
// proxy is responsible for authenticating the caller and setting it.
const identityHeader = "X-User-ID"

// requireIdentity is middleware that attaches the asserted user identity
// to the request context. Requests without an identity are rejected.
func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(identityHeader))
		if userID == "" {
			response.Unauthorized(w, "Missing identity header", s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// uploadRateLimit throttles uploads per user. Must be used after
// requireIdentity.
func (s *Server) uploadRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := getUserID(r.Context())
		if !s.uploadLimiter.Allow(userID) {
			s.logger.Warn("Upload rate limit exceeded",
				"user_id", userID,
				"path", r.URL.Path,
			)
			response.TooManyRequests(w, "Too many uploads. Please try again later.", s.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getUserID extracts the asserted user ID from request context.
// Returns empty string if no identity was attached.
func getUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(contextKeyUserID).(string); ok {
		return userID
	}
	return ""
}
