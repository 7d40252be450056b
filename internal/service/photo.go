// Package service provides the business logic layer for photos, albums,
// users and quota reporting.
package service

import (
	"context"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	apperrors "github.com/photokeepapp/photokeep-server/internal/errors"
	"github.com/photokeepapp/photokeep-server/internal/ingest"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/media/blob"
	"github.com/photokeepapp/photokeep-server/internal/quota"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// PhotoService orchestrates photo operations on top of the ingestion
// pipeline, the content store and the metadata store.
type PhotoService struct {
	store    store.Store
	blobs    *blob.Store
	pipeline *ingest.Pipeline
	ledger   *quota.Ledger
	logger   *logger.Logger
}

// NewPhotoService creates a new photo service.
func NewPhotoService(st store.Store, blobs *blob.Store, pipeline *ingest.Pipeline, ledger *quota.Ledger, log *logger.Logger) *PhotoService {
	return &PhotoService{
		store:    st,
		blobs:    blobs,
		pipeline: pipeline,
		ledger:   ledger,
		logger:   log,
	}
}

// Ingest uploads a photo for the user.
func (s *PhotoService) Ingest(ctx context.Context, req ingest.Request) (*domain.Photo, error) {
	if req.FileName == "" {
		return nil, apperrors.Validation("file name is required")
	}
	return s.pipeline.Ingest(ctx, req)
}

// Get returns a photo's metadata. Only the owner may see it.
func (s *PhotoService) Get(ctx context.Context, requesterID, photoID string) (*domain.Photo, error) {
	return s.ownedPhoto(ctx, requesterID, photoID)
}

// Original returns the photo metadata together with the original bytes.
func (s *PhotoService) Original(ctx context.Context, requesterID, photoID string) (*domain.Photo, []byte, error) {
	photo, err := s.ownedPhoto(ctx, requesterID, photoID)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.blobs.Get(photo.Fingerprint)
	if apperrors.Is(err, blob.ErrNotFound) {
		// The sweeper will flag the row; surface the loss immediately.
		return nil, nil, apperrors.NotFound("photo content is missing from storage")
	}
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeStorageIO, "read original content")
	}
	return photo, data, nil
}

// Thumbnail returns the JPEG rendition of the given size class.
func (s *PhotoService) Thumbnail(ctx context.Context, requesterID, photoID string, class domain.SizeClass) ([]byte, error) {
	switch class {
	case domain.SizeSmall, domain.SizeMedium, domain.SizeLarge:
	default:
		return nil, apperrors.Validation("unknown thumbnail size " + string(class))
	}

	photo, err := s.ownedPhoto(ctx, requesterID, photoID)
	if err != nil {
		return nil, err
	}

	data, err := s.blobs.GetRendition(photo.Fingerprint, string(class))
	if apperrors.Is(err, blob.ErrNotFound) {
		return nil, apperrors.NotFound("thumbnail is missing from storage")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageIO, "read thumbnail")
	}
	return data, nil
}

// List returns one page of the user's photos, newest first.
func (s *PhotoService) List(ctx context.Context, userID string, params store.PaginationParams) (*store.PaginatedResult[*domain.Photo], error) {
	return s.store.ListPhotos(ctx, userID, params)
}

// UpdateDetails changes the user-editable fields of a photo.
func (s *PhotoService) UpdateDetails(ctx context.Context, requesterID, photoID, description string, tags []string) (*domain.Photo, error) {
	if _, err := s.ownedPhoto(ctx, requesterID, photoID); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePhotoDetails(ctx, photoID, description, tags); err != nil {
		return nil, err
	}
	return s.store.GetPhoto(ctx, photoID)
}

// Delete removes a photo. The quota release and the blob refcount change
// are transactional; removing an orphaned blob file is best effort since
// the sweeper collects anything left behind.
func (s *PhotoService) Delete(ctx context.Context, requesterID, photoID string) error {
	photo, err := s.ownedPhoto(ctx, requesterID, photoID)
	if err != nil {
		return err
	}

	result, err := s.store.DeletePhoto(ctx, photoID)
	if apperrors.Is(err, store.ErrNotFound) {
		// Lost a double-delete race after the ownership check.
		return apperrors.NotFound("photo not found")
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeMetadataStore, "delete photo metadata")
	}

	if result.BlobOrphaned {
		if err := s.blobs.Delete(result.Fingerprint); err != nil {
			s.logger.Warn("failed to remove orphaned blob, leaving it to the sweeper",
				"fingerprint", result.Fingerprint, "error", err)
		}
	}

	s.logger.Info("photo deleted",
		"photo_id", photoID,
		"user_id", photo.UserID,
		"freed_bytes", result.FreedBytes,
		"blob_orphaned", result.BlobOrphaned,
	)
	return nil
}

// QuotaStatus reports the user's storage budget.
type QuotaStatus struct {
	LimitBytes     int64 `json:"limit_bytes"`
	ConsumedBytes  int64 `json:"consumed_bytes"`
	ReservedBytes  int64 `json:"reserved_bytes"`
	RemainingBytes int64 `json:"remaining_bytes"`
}

// Quota returns the user's current storage budget, including bytes held
// by in-flight uploads.
func (s *PhotoService) Quota(ctx context.Context, userID string) (*QuotaStatus, error) {
	user, err := s.store.GetUser(ctx, userID)
	if apperrors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}

	reserved := s.ledger.Active(userID)
	remaining := user.QuotaLimit - user.QuotaConsumed - reserved
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaStatus{
		LimitBytes:     user.QuotaLimit,
		ConsumedBytes:  user.QuotaConsumed,
		ReservedBytes:  reserved,
		RemainingBytes: remaining,
	}, nil
}

// ownedPhoto loads a photo and verifies the requester owns it.
func (s *PhotoService) ownedPhoto(ctx context.Context, requesterID, photoID string) (*domain.Photo, error) {
	photo, err := s.store.GetPhoto(ctx, photoID)
	if apperrors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("photo not found")
	}
	if err != nil {
		return nil, err
	}
	if photo.UserID != requesterID {
		return nil, apperrors.Forbidden("photo belongs to another user")
	}
	return photo, nil
}
