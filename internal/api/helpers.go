package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	apperrors "github.com/photokeepapp/photokeep-server/internal/errors"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// decodeAndValidate decodes a JSON request body into dst and runs the
// request validator over it.
func (s *Server) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.UnmarshalRead(r.Body, dst); err != nil {
		return apperrors.Validation("invalid JSON request body")
	}
	return s.validator.Validate(dst)
}

// parsePaginationParams parses pagination parameters from query string.
func parsePaginationParams(r *http.Request) store.PaginationParams {
	params := store.DefaultPaginationParams()

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			params.Limit = limit
		}
	}

	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		params.Cursor = cursor
	}

	params.Validate()

	return params
}
