package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	"github.com/photokeepapp/photokeep-server/internal/http/response"
	"github.com/photokeepapp/photokeep-server/internal/ingest"
)

// updatePhotoRequest replaces the user-editable fields of a photo.
type updatePhotoRequest struct {
	Description string   `json:"description" validate:"max=2048"`
	Tags        []string `json:"tags" validate:"max=64,dive,min=1,max=64,phototag"`
}

// handleUploadPhoto ingests a multipart upload. The file goes in the
// "file" part; optional "description" and "tags" (comma-separated) parts
// are stored with the photo.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	// Reject oversized requests before buffering. The pipeline enforces
	// the exact limit on the decoded file as well.
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+maxMultipartMemory)
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.BadRequest(w, "Invalid multipart form", s.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "Missing file part", s.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "Failed to read upload", s.logger)
		return
	}

	photo, err := s.photoService.Ingest(ctx, ingest.Request{
		UserID:      userID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Description: r.FormValue("description"),
		Tags:        parseTags(r.FormValue("tags")),
		Data:        data,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, photo, s.logger)
}

// handleListPhotos returns one page of the user's photos, newest first.
func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := parsePaginationParams(r)

	photos, err := s.photoService.List(ctx, getUserID(ctx), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, photos, s.logger)
}

// handleGetPhoto returns a photo's metadata.
func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	photo, err := s.photoService.Get(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, photo, s.logger)
}

// handleGetOriginal streams the original file bytes.
func (s *Server) handleGetOriginal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	photo, data, err := s.photoService.Original(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", photo.ContentType)
	w.Header().Set("Cache-Control", cacheOriginal)
	w.Header().Set("Content-Disposition", `inline; filename="`+photo.FileName+`"`)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("Failed to write original response", "error", err)
	}
}

// handleGetThumbnail streams a JPEG rendition of the requested size class.
func (s *Server) handleGetThumbnail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	class := domain.SizeClass(chi.URLParam(r, "class"))

	data, err := s.photoService.Thumbnail(ctx, getUserID(ctx), chi.URLParam(r, "id"), class)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", cacheThumbnail)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("Failed to write thumbnail response", "error", err)
	}
}

// handleUpdatePhoto replaces the photo's description and tag set.
func (s *Server) handleUpdatePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updatePhotoRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	photo, err := s.photoService.UpdateDetails(ctx, getUserID(ctx), chi.URLParam(r, "id"), req.Description, req.Tags)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, photo, s.logger)
}

// handleDeletePhoto removes a photo and releases its quota.
func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.photoService.Delete(ctx, getUserID(ctx), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleQuotaStatus reports the caller's storage budget.
func (s *Server) handleQuotaStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := s.photoService.Quota(ctx, getUserID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, status, s.logger)
}

// parseTags splits a comma-separated tag list, dropping empty entries.
func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
