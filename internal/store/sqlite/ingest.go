package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// CommitIngestion durably records a fully processed photo: the photo row,
// its thumbnail rows, the blob reference count and the owner's consumed
// quota all change in a single transaction. Returns the number of bytes
// charged against the owner's quota, which is zero when the user already
// owns another photo with the same fingerprint.
func (s *Store) CommitIngestion(ctx context.Context, photo *domain.Photo) (int64, error) {
	tagsJSON, err := encodeTags(photo.Tags)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ingestion tx: %w", err)
	}
	defer tx.Rollback()

	// Quota is charged per owned blob, not per photo row: a duplicate
	// upload by the same user adds a photo but costs nothing.
	var ownedRefs int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM photos WHERE user_id = ? AND fingerprint = ?`,
		photo.UserID, photo.Fingerprint).Scan(&ownedRefs)
	if err != nil {
		return 0, err
	}

	var charged int64
	if ownedRefs == 0 {
		charged = photo.SizeBytes
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO content_blobs (fingerprint, size_bytes, content_type, ref_count, created_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET ref_count = ref_count + 1`,
		photo.Fingerprint,
		photo.SizeBytes,
		photo.ContentType,
		formatTime(photo.CreatedAt),
	)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO photos (
			id, created_at, updated_at, user_id, fingerprint, file_name,
			content_type, size_bytes, status, description, tags, blur_hash, taken_at,
			exif_date_taken, exif_camera_make, exif_camera_model, exif_focal_length,
			exif_iso, exif_exposure_time, exif_aperture, exif_latitude, exif_longitude,
			width, height
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		photo.ID,
		formatTime(photo.CreatedAt),
		formatTime(photo.UpdatedAt),
		photo.UserID,
		photo.Fingerprint,
		photo.FileName,
		photo.ContentType,
		photo.SizeBytes,
		string(photo.Status),
		photo.Description,
		tagsJSON,
		nullString(photo.BlurHash),
		formatTime(photo.TakenAt),
		nullTimeString(photo.Exif.DateTaken),
		nullString(photo.Exif.CameraMake),
		nullString(photo.Exif.CameraModel),
		nullFloat(photo.Exif.FocalLength),
		nullInt(photo.Exif.ISO),
		nullFloat(photo.Exif.ExposureTime),
		nullFloat(photo.Exif.Aperture),
		nullFloat(photo.Exif.Latitude),
		nullFloat(photo.Exif.Longitude),
		photo.Exif.Width,
		photo.Exif.Height,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, store.ErrAlreadyExists
		}
		return 0, err
	}

	for _, t := range photo.Thumbnails {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO photo_thumbnails (photo_id, size_class, width, height, size_bytes)
			VALUES (?, ?, ?, ?, ?)`,
			photo.ID, string(t.SizeClass), t.Width, t.Height, t.SizeBytes)
		if err != nil {
			return 0, err
		}
	}

	if charged > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET quota_consumed = quota_consumed + ? WHERE id = ?`,
			charged, photo.UserID)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ingestion tx: %w", err)
	}
	return charged, nil
}

// DeletePhoto removes a photo row together with its thumbnails and album
// memberships, decrements the blob reference count, and releases the
// owner's quota when this was the owner's last reference to the blob.
// Returns store.ErrNotFound if the photo does not exist.
func (s *Store) DeletePhoto(ctx context.Context, photoID string) (*store.DeleteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	var userID, fingerprint string
	var sizeBytes int64
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, fingerprint, size_bytes FROM photos WHERE id = ?`,
		photoID).Scan(&userID, &fingerprint, &sizeBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Thumbnail and album membership rows go via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, photoID); err != nil {
		return nil, err
	}

	var remainingOwned int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM photos WHERE user_id = ? AND fingerprint = ?`,
		userID, fingerprint).Scan(&remainingOwned)
	if err != nil {
		return nil, err
	}

	result := &store.DeleteResult{Fingerprint: fingerprint}
	if remainingOwned == 0 {
		result.FreedBytes = sizeBytes
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET quota_consumed = MAX(quota_consumed - ?, 0) WHERE id = ?`,
			sizeBytes, userID)
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE content_blobs SET ref_count = MAX(ref_count - 1, 0) WHERE fingerprint = ?`,
		fingerprint)
	if err != nil {
		return nil, err
	}

	var refCount int
	err = tx.QueryRowContext(ctx,
		`SELECT ref_count FROM content_blobs WHERE fingerprint = ?`,
		fingerprint).Scan(&refCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	result.BlobOrphaned = refCount == 0

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete tx: %w", err)
	}
	return result, nil
}
