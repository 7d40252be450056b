package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/photokeepapp/photokeep-server/internal/http/response"
)

type createAlbumRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=2048"`
}

type updateAlbumRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=2048"`
}

type addAlbumPhotoRequest struct {
	PhotoID string `json:"photo_id" validate:"required"`
}

// handleCreateAlbum creates an album owned by the caller.
func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createAlbumRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	album, err := s.albumService.Create(ctx, getUserID(ctx), req.Name, req.Description)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, album, s.logger)
}

// handleListAlbums returns the caller's albums.
func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	albums, err := s.albumService.List(ctx, getUserID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, albums, s.logger)
}

// handleGetAlbum returns a single album.
func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	album, err := s.albumService.Get(ctx, getUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, album, s.logger)
}

// handleUpdateAlbum renames an album.
func (s *Server) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateAlbumRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	album, err := s.albumService.Update(ctx, getUserID(ctx), chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, album, s.logger)
}

// handleDeleteAlbum removes an album. Member photos are untouched.
func (s *Server) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.albumService.Delete(ctx, getUserID(ctx), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleAddPhotoToAlbum adds one of the caller's photos to the album.
func (s *Server) handleAddPhotoToAlbum(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addAlbumPhotoRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.albumService.AddPhoto(ctx, getUserID(ctx), chi.URLParam(r, "id"), req.PhotoID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleRemovePhotoFromAlbum removes a photo from the album.
func (s *Server) handleRemovePhotoFromAlbum(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := s.albumService.RemovePhoto(ctx, getUserID(ctx), chi.URLParam(r, "id"), chi.URLParam(r, "photoID"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleListAlbumPhotos returns one page of an album's photos in the
// order they were added.
func (s *Server) handleListAlbumPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := parsePaginationParams(r)

	photos, err := s.albumService.Photos(ctx, getUserID(ctx), chi.URLParam(r, "id"), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, photos, s.logger)
}
