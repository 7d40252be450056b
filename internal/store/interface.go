// Package store defines the persistence interface for the PhotoKeep server.
package store

import (
	"context"

	"github.com/photokeepapp/photokeep-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	CorrectUserConsumed(ctx context.Context, userID string, expected, actual int64) (bool, error)

	// Photos
	GetPhoto(ctx context.Context, id string) (*domain.Photo, error)
	ListPhotos(ctx context.Context, userID string, params PaginationParams) (*PaginatedResult[*domain.Photo], error)
	ListAllPhotos(ctx context.Context) ([]*domain.Photo, error)
	FindUserPhotoByFingerprint(ctx context.Context, userID, fingerprint string) (*domain.Photo, error)
	FindPhotoByFingerprint(ctx context.Context, fingerprint string) (*domain.Photo, error)
	UpdatePhotoDetails(ctx context.Context, photoID, description string, tags []string) error
	SetPhotoStatus(ctx context.Context, photoID string, status domain.ProcessingStatus) error

	// Content blobs
	GetBlob(ctx context.Context, fingerprint string) (*domain.ContentBlob, error)
	BlobRefCount(ctx context.Context, fingerprint string) (int, error)
	DeleteBlobIfUnreferenced(ctx context.Context, fingerprint string) (bool, error)
	ComputeUserConsumed(ctx context.Context, userID string) (int64, error)

	// Ingestion
	CommitIngestion(ctx context.Context, photo *domain.Photo) (int64, error)
	DeletePhoto(ctx context.Context, photoID string) (*DeleteResult, error)

	// Albums
	CreateAlbum(ctx context.Context, album *domain.Album) error
	GetAlbum(ctx context.Context, id string) (*domain.Album, error)
	ListAlbums(ctx context.Context, userID string) ([]*domain.Album, error)
	UpdateAlbum(ctx context.Context, album *domain.Album) error
	DeleteAlbum(ctx context.Context, id string) error
	AddPhotoToAlbum(ctx context.Context, albumID, photoID string) error
	RemovePhotoFromAlbum(ctx context.Context, albumID, photoID string) error
	ListAlbumPhotos(ctx context.Context, albumID string, params PaginationParams) (*PaginatedResult[*domain.Photo], error)
}

// DeleteResult reports the side effects of deleting a photo row.
type DeleteResult struct {
	// Fingerprint of the content blob the deleted photo referenced.
	Fingerprint string
	// FreedBytes is the number of bytes released from the owner's quota.
	// Zero when the owner still has other photos referencing the blob.
	FreedBytes int64
	// BlobOrphaned is true when the blob's reference count reached zero
	// and its file may be removed from the content store.
	BlobOrphaned bool
}
