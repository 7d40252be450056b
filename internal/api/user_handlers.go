package api

import (
	"net/http"

	"github.com/photokeepapp/photokeep-server/internal/http/response"
)

type createUserRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=32,username"`
	Email           string `json:"email" validate:"omitempty,email"`
	QuotaLimitBytes int64  `json:"quota_limit_bytes" validate:"omitempty,gt=0"`
}

type setQuotaLimitRequest struct {
	QuotaLimitBytes int64 `json:"quota_limit_bytes" validate:"required,gt=0"`
}

// handleCreateUser provisions a new user account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createUserRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	user, err := s.userService.Create(ctx, req.Username, req.Email, req.QuotaLimitBytes)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, user, s.logger)
}

// handleGetCurrentUser returns the caller's account.
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.userService.Get(ctx, getUserID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, user, s.logger)
}

// handleSetQuotaLimit changes the caller's quota limit. Lowering the
// limit below current consumption is allowed; it only blocks new uploads.
func (s *Server) handleSetQuotaLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setQuotaLimitRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	user, err := s.userService.SetQuotaLimit(ctx, getUserID(ctx), req.QuotaLimitBytes)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, user, s.logger)
}
