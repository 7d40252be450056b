package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// GetBlob retrieves a content blob record by fingerprint.
// Returns store.ErrNotFound if no record exists.
func (s *Store) GetBlob(ctx context.Context, fingerprint string) (*domain.ContentBlob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, size_bytes, content_type, ref_count, created_at
		FROM content_blobs WHERE fingerprint = ?`, fingerprint)

	var b domain.ContentBlob
	var createdAt string
	err := row.Scan(&b.Fingerprint, &b.SizeBytes, &b.ContentType, &b.RefCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BlobRefCount returns the reference count for a fingerprint, zero when
// no blob record exists.
func (s *Store) BlobRefCount(ctx context.Context, fingerprint string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ref_count FROM content_blobs WHERE fingerprint = ?`, fingerprint)

	var count int
	err := row.Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteBlobIfUnreferenced removes a blob record only when its reference
// count is zero. Returns whether a row was deleted. The check and the
// delete happen in one statement so a concurrent ingestion cannot slip a
// reference in between.
func (s *Store) DeleteBlobIfUnreferenced(ctx context.Context, fingerprint string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM content_blobs WHERE fingerprint = ? AND ref_count = 0`, fingerprint)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ComputeUserConsumed recomputes the user's quota usage from the photo
// rows: the sum of sizes of the distinct blobs the user references.
// The sweeper compares this against users.quota_consumed.
func (s *Store) ComputeUserConsumed(ctx context.Context, userID string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(size_bytes), 0) FROM content_blobs
		WHERE fingerprint IN (
			SELECT DISTINCT fingerprint FROM photos WHERE user_id = ?
		)`, userID)

	var consumed int64
	if err := row.Scan(&consumed); err != nil {
		return 0, err
	}
	return consumed, nil
}
