package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// photoColumns is the ordered list of columns selected in photo queries.
// Must match the scan order in scanPhoto.
const photoColumns = `id, created_at, updated_at, user_id, fingerprint, file_name,
	content_type, size_bytes, status, description, tags, blur_hash, taken_at,
	exif_date_taken, exif_camera_make, exif_camera_model, exif_focal_length,
	exif_iso, exif_exposure_time, exif_aperture, exif_latitude, exif_longitude,
	width, height`

// prefixedPhotoColumns is photoColumns qualified with the `p` alias for
// joined queries.
const prefixedPhotoColumns = `p.id, p.created_at, p.updated_at, p.user_id, p.fingerprint, p.file_name,
	p.content_type, p.size_bytes, p.status, p.description, p.tags, p.blur_hash, p.taken_at,
	p.exif_date_taken, p.exif_camera_make, p.exif_camera_model, p.exif_focal_length,
	p.exif_iso, p.exif_exposure_time, p.exif_aperture, p.exif_latitude, p.exif_longitude,
	p.width, p.height`

// photoScan holds the raw column values of one photo row before parsing.
// dest returns the scan targets in photoColumns order; photo converts the
// raw values into a domain.Photo.
type photoScan struct {
	p            domain.Photo
	createdAt    string
	updatedAt    string
	status       string
	tagsJSON     string
	blurHash     sql.NullString
	takenAt      string
	exifTaken    sql.NullString
	cameraMake   sql.NullString
	cameraModel  sql.NullString
	focalLength  sql.NullFloat64
	iso          sql.NullInt64
	exposureTime sql.NullFloat64
	aperture     sql.NullFloat64
	latitude     sql.NullFloat64
	longitude    sql.NullFloat64
}

func (ps *photoScan) dest() []any {
	return []any{
		&ps.p.ID,
		&ps.createdAt,
		&ps.updatedAt,
		&ps.p.UserID,
		&ps.p.Fingerprint,
		&ps.p.FileName,
		&ps.p.ContentType,
		&ps.p.SizeBytes,
		&ps.status,
		&ps.p.Description,
		&ps.tagsJSON,
		&ps.blurHash,
		&ps.takenAt,
		&ps.exifTaken,
		&ps.cameraMake,
		&ps.cameraModel,
		&ps.focalLength,
		&ps.iso,
		&ps.exposureTime,
		&ps.aperture,
		&ps.latitude,
		&ps.longitude,
		&ps.p.Exif.Width,
		&ps.p.Exif.Height,
	}
}

func (ps *photoScan) photo() (*domain.Photo, error) {
	p := ps.p

	var err error
	p.CreatedAt, err = parseTime(ps.createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(ps.updatedAt)
	if err != nil {
		return nil, err
	}
	p.TakenAt, err = parseTime(ps.takenAt)
	if err != nil {
		return nil, err
	}

	p.Status = domain.ProcessingStatus(ps.status)

	if ps.tagsJSON != "" && ps.tagsJSON != "[]" {
		if err := json.Unmarshal([]byte(ps.tagsJSON), &p.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for photo %s: %w", p.ID, err)
		}
	}

	if ps.blurHash.Valid {
		p.BlurHash = ps.blurHash.String
	}

	p.Exif.DateTaken, err = parseNullableTime(ps.exifTaken)
	if err != nil {
		return nil, err
	}
	if ps.cameraMake.Valid {
		p.Exif.CameraMake = ps.cameraMake.String
	}
	if ps.cameraModel.Valid {
		p.Exif.CameraModel = ps.cameraModel.String
	}
	p.Exif.FocalLength = floatPtr(ps.focalLength)
	p.Exif.ISO = intPtr(ps.iso)
	p.Exif.ExposureTime = floatPtr(ps.exposureTime)
	p.Exif.Aperture = floatPtr(ps.aperture)
	p.Exif.Latitude = floatPtr(ps.latitude)
	p.Exif.Longitude = floatPtr(ps.longitude)

	return &p, nil
}

// scanPhoto scans a sql.Row (or sql.Rows via its Scan method) into a domain.Photo.
func scanPhoto(scanner interface{ Scan(dest ...any) error }) (*domain.Photo, error) {
	var ps photoScan
	if err := scanner.Scan(ps.dest()...); err != nil {
		return nil, err
	}
	return ps.photo()
}

// encodeTags serializes the tag list for storage.
func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

// GetPhoto retrieves a photo by ID, including its thumbnail rows.
// Returns store.ErrNotFound if the photo does not exist.
func (s *Store) GetPhoto(ctx context.Context, id string) (*domain.Photo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE id = ?`, id)

	return s.scanPhotoWithThumbnails(ctx, row)
}

// FindUserPhotoByFingerprint returns the user's oldest photo referencing
// the given content fingerprint, thumbnails included, or
// store.ErrNotFound.
func (s *Store) FindUserPhotoByFingerprint(ctx context.Context, userID, fingerprint string) (*domain.Photo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos
		 WHERE user_id = ? AND fingerprint = ?
		 ORDER BY created_at ASC, id ASC LIMIT 1`,
		userID, fingerprint)

	return s.scanPhotoWithThumbnails(ctx, row)
}

// FindPhotoByFingerprint returns the oldest ready photo referencing the
// fingerprint, regardless of owner, thumbnails included, or
// store.ErrNotFound. The ingestion pipeline copies its metadata on a
// dedup hit instead of reprocessing the content.
func (s *Store) FindPhotoByFingerprint(ctx context.Context, fingerprint string) (*domain.Photo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos
		 WHERE fingerprint = ? AND status = ?
		 ORDER BY created_at ASC, id ASC LIMIT 1`,
		fingerprint, string(domain.StatusReady))

	return s.scanPhotoWithThumbnails(ctx, row)
}

func (s *Store) scanPhotoWithThumbnails(ctx context.Context, row *sql.Row) (*domain.Photo, error) {
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Thumbnails, err = s.listThumbnails(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPhotos returns one page of the user's photos, newest first. The
// cursor encodes the sort position of the last item on the previous page.
func (s *Store) ListPhotos(ctx context.Context, userID string, params store.PaginationParams) (*store.PaginatedResult[*domain.Photo], error) {
	params.Validate()

	query := `SELECT ` + photoColumns + ` FROM photos WHERE user_id = ?`
	args := []any{userID}

	if params.Cursor != "" {
		key, err := store.DecodeCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		createdAt, id, ok := strings.Cut(key, "|")
		if !ok {
			return nil, fmt.Errorf("malformed cursor")
		}
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, createdAt, createdAt, id)
	}

	// Fetch one extra row to detect whether another page exists.
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, params.Limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []*domain.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &store.PaginatedResult[*domain.Photo]{}
	if len(photos) > params.Limit {
		photos = photos[:params.Limit]
		last := photos[len(photos)-1]
		result.HasMore = true
		result.NextCursor = store.EncodeCursor(formatTime(last.CreatedAt) + "|" + last.ID)
	}
	result.Items = photos
	return result, nil
}

// ListAllPhotos returns every photo row across all users. Used by the
// reconciliation sweeper; listing for clients goes through ListPhotos.
func (s *Store) ListAllPhotos(ctx context.Context) ([]*domain.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []*domain.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return photos, nil
}

// UpdatePhotoDetails sets the user-editable fields of a photo.
// Returns store.ErrNotFound if the photo does not exist.
func (s *Store) UpdatePhotoDetails(ctx context.Context, photoID, description string, tags []string) error {
	tagsJSON, err := encodeTags(tags)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE photos SET
			updated_at = ?,
			description = ?,
			tags = ?
		WHERE id = ?`,
		formatTime(nowUTC()),
		description,
		tagsJSON,
		photoID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetPhotoStatus updates a photo's processing status.
// Returns store.ErrNotFound if the photo does not exist.
func (s *Store) SetPhotoStatus(ctx context.Context, photoID string, status domain.ProcessingStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE photos SET updated_at = ?, status = ? WHERE id = ?`,
		formatTime(nowUTC()), string(status), photoID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// listThumbnails loads the thumbnail rows for a photo.
func (s *Store) listThumbnails(ctx context.Context, photoID string) ([]domain.Thumbnail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT photo_id, size_class, width, height, size_bytes
		FROM photo_thumbnails WHERE photo_id = ? ORDER BY size_class ASC`, photoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var thumbs []domain.Thumbnail
	for rows.Next() {
		var t domain.Thumbnail
		var class string
		if err := rows.Scan(&t.PhotoID, &class, &t.Width, &t.Height, &t.SizeBytes); err != nil {
			return nil, err
		}
		t.SizeClass = domain.SizeClass(class)
		thumbs = append(thumbs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return thumbs, nil
}
