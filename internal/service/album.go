package service

import (
	"context"
	"strings"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	apperrors "github.com/photokeepapp/photokeep-server/internal/errors"
	"github.com/photokeepapp/photokeep-server/internal/id"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// AlbumService manages album grouping of photos.
type AlbumService struct {
	store  store.Store
	logger *logger.Logger
}

// NewAlbumService creates a new album service.
func NewAlbumService(st store.Store, log *logger.Logger) *AlbumService {
	return &AlbumService{store: st, logger: log}
}

// Create makes a new empty album for the user.
func (s *AlbumService) Create(ctx context.Context, userID, name, description string) (*domain.Album, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("album name is required")
	}

	album := &domain.Album{
		UserID:      userID,
		Name:        name,
		Description: description,
	}
	album.ID = id.MustGenerate(id.PrefixAlbum)
	album.InitTimestamps()

	if err := s.store.CreateAlbum(ctx, album); err != nil {
		return nil, err
	}

	s.logger.Info("album created", "album_id", album.ID, "user_id", userID)
	return album, nil
}

// Get returns an album. Only the owner may see it.
func (s *AlbumService) Get(ctx context.Context, requesterID, albumID string) (*domain.Album, error) {
	return s.ownedAlbum(ctx, requesterID, albumID)
}

// List returns the user's albums.
func (s *AlbumService) List(ctx context.Context, userID string) ([]*domain.Album, error) {
	return s.store.ListAlbums(ctx, userID)
}

// Update changes an album's name and description.
func (s *AlbumService) Update(ctx context.Context, requesterID, albumID, name, description string) (*domain.Album, error) {
	album, err := s.ownedAlbum(ctx, requesterID, albumID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("album name is required")
	}

	album.Name = name
	album.Description = description
	album.Touch()
	if err := s.store.UpdateAlbum(ctx, album); err != nil {
		return nil, err
	}
	return album, nil
}

// Delete removes an album. The photos in it are untouched.
func (s *AlbumService) Delete(ctx context.Context, requesterID, albumID string) error {
	if _, err := s.ownedAlbum(ctx, requesterID, albumID); err != nil {
		return err
	}
	return s.store.DeleteAlbum(ctx, albumID)
}

// AddPhoto puts one of the user's photos into one of the user's albums.
func (s *AlbumService) AddPhoto(ctx context.Context, requesterID, albumID, photoID string) error {
	if _, err := s.ownedAlbum(ctx, requesterID, albumID); err != nil {
		return err
	}

	photo, err := s.store.GetPhoto(ctx, photoID)
	if apperrors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound("photo not found")
	}
	if err != nil {
		return err
	}
	if photo.UserID != requesterID {
		return apperrors.Forbidden("photo belongs to another user")
	}

	err = s.store.AddPhotoToAlbum(ctx, albumID, photoID)
	if apperrors.Is(err, store.ErrAlreadyExists) {
		return apperrors.AlreadyExists("photo is already in the album")
	}
	return err
}

// RemovePhoto takes a photo out of an album.
func (s *AlbumService) RemovePhoto(ctx context.Context, requesterID, albumID, photoID string) error {
	if _, err := s.ownedAlbum(ctx, requesterID, albumID); err != nil {
		return err
	}

	err := s.store.RemovePhotoFromAlbum(ctx, albumID, photoID)
	if apperrors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound("photo is not in the album")
	}
	return err
}

// Photos returns one page of an album's photos in the order they were added.
func (s *AlbumService) Photos(ctx context.Context, requesterID, albumID string, params store.PaginationParams) (*store.PaginatedResult[*domain.Photo], error) {
	if _, err := s.ownedAlbum(ctx, requesterID, albumID); err != nil {
		return nil, err
	}
	return s.store.ListAlbumPhotos(ctx, albumID, params)
}

// ownedAlbum loads an album and verifies the requester owns it.
func (s *AlbumService) ownedAlbum(ctx context.Context, requesterID, albumID string) (*domain.Album, error) {
	album, err := s.store.GetAlbum(ctx, albumID)
	if apperrors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("album not found")
	}
	if err != nil {
		return nil, err
	}
	if album.UserID != requesterID {
		return nil, apperrors.Forbidden("album belongs to another user")
	}
	return album, nil
}
