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

// albumColumns selects album fields plus a joined membership count.
// Must match the scan order in scanAlbum.
const albumColumns = `a.id, a.created_at, a.updated_at, a.user_id, a.name, a.description,
	(SELECT COUNT(*) FROM album_photos ap WHERE ap.album_id = a.id)`

// scanAlbum scans a sql.Row (or sql.Rows via its Scan method) into a domain.Album.
func scanAlbum(scanner interface{ Scan(dest ...any) error }) (*domain.Album, error) {
	var a domain.Album

	var createdAt, updatedAt string

	err := scanner.Scan(
		&a.ID,
		&createdAt,
		&updatedAt,
		&a.UserID,
		&a.Name,
		&a.Description,
		&a.PhotoCount,
	)
	if err != nil {
		return nil, err
	}

	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// CreateAlbum inserts a new album.
// Returns store.ErrAlreadyExists if the album ID already exists.
func (s *Store) CreateAlbum(ctx context.Context, album *domain.Album) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO albums (id, created_at, updated_at, user_id, name, description)
		VALUES (?, ?, ?, ?, ?, ?)`,
		album.ID,
		formatTime(album.CreatedAt),
		formatTime(album.UpdatedAt),
		album.UserID,
		album.Name,
		album.Description,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetAlbum retrieves an album by ID.
// Returns store.ErrNotFound if the album does not exist.
func (s *Store) GetAlbum(ctx context.Context, id string) (*domain.Album, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+albumColumns+` FROM albums a WHERE a.id = ?`, id)

	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAlbums returns the user's albums ordered by creation time.
func (s *Store) ListAlbums(ctx context.Context, userID string) ([]*domain.Album, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums a WHERE a.user_id = ? ORDER BY a.created_at ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []*domain.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return albums, nil
}

// UpdateAlbum updates an album's name and description.
// Returns store.ErrNotFound if the album does not exist.
func (s *Store) UpdateAlbum(ctx context.Context, album *domain.Album) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE albums SET updated_at = ?, name = ?, description = ? WHERE id = ?`,
		formatTime(album.UpdatedAt),
		album.Name,
		album.Description,
		album.ID,
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

// DeleteAlbum removes an album; membership rows cascade. Photos in the
// album are never deleted.
// Returns store.ErrNotFound if the album does not exist.
func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
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

// AddPhotoToAlbum records album membership.
// Returns store.ErrAlreadyExists if the photo is already in the album,
// store.ErrNotFound if either the album or the photo does not exist.
func (s *Store) AddPhotoToAlbum(ctx context.Context, albumID, photoID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO album_photos (album_id, photo_id, added_at) VALUES (?, ?, ?)`,
		albumID, photoID, formatTime(nowUTC()))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

// RemovePhotoFromAlbum removes album membership.
// Returns store.ErrNotFound if the photo was not in the album.
func (s *Store) RemovePhotoFromAlbum(ctx context.Context, albumID, photoID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM album_photos WHERE album_id = ? AND photo_id = ?`,
		albumID, photoID)
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

// ListAlbumPhotos returns one page of an album's photos ordered by when
// they were added, oldest first. The cursor encodes the added_at and
// photo ID of the last item on the previous page.
func (s *Store) ListAlbumPhotos(ctx context.Context, albumID string, params store.PaginationParams) (*store.PaginatedResult[*domain.Photo], error) {
	params.Validate()

	query := `SELECT ` + prefixedPhotoColumns + `, ap.added_at
		FROM album_photos ap JOIN photos p ON p.id = ap.photo_id
		WHERE ap.album_id = ?`
	args := []any{albumID}

	if params.Cursor != "" {
		key, err := store.DecodeCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		addedAt, id, ok := strings.Cut(key, "|")
		if !ok {
			return nil, fmt.Errorf("malformed cursor")
		}
		query += ` AND (ap.added_at > ? OR (ap.added_at = ? AND ap.photo_id > ?))`
		args = append(args, addedAt, addedAt, id)
	}

	query += ` ORDER BY ap.added_at ASC, ap.photo_id ASC LIMIT ?`
	args = append(args, params.Limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type member struct {
		photo   *domain.Photo
		addedAt string
	}
	var members []member
	for rows.Next() {
		p, addedAt, err := scanAlbumPhoto(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member{photo: p, addedAt: addedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &store.PaginatedResult[*domain.Photo]{}
	if len(members) > params.Limit {
		members = members[:params.Limit]
		last := members[len(members)-1]
		result.HasMore = true
		result.NextCursor = store.EncodeCursor(last.addedAt + "|" + last.photo.ID)
	}
	for _, m := range members {
		result.Items = append(result.Items, m.photo)
	}
	return result, nil
}

// scanAlbumPhoto scans a photo row joined with its album added_at column.
func scanAlbumPhoto(rows *sql.Rows) (*domain.Photo, string, error) {
	var ps photoScan
	var addedAt string

	if err := rows.Scan(append(ps.dest(), &addedAt)...); err != nil {
		return nil, "", err
	}

	p, err := ps.photo()
	if err != nil {
		return nil, "", err
	}
	return p, addedAt, nil
}
