package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/photokeepapp/photokeep-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestUser creates and persists a user with a 1 GiB quota.
func newTestUser(t *testing.T, s *Store, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:   username,
		Email:      username + "@example.com",
		QuotaLimit: 1 << 30,
	}
	u.ID = "usr_" + username
	u.InitTimestamps()
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// newTestPhoto builds an unpersisted photo owned by the user.
func newTestPhoto(user *domain.User, id, fingerprint string, size int64) *domain.Photo {
	p := &domain.Photo{
		UserID:      user.ID,
		Fingerprint: fingerprint,
		FileName:    id + ".jpg",
		ContentType: "image/jpeg",
		SizeBytes:   size,
		Status:      domain.StatusReady,
		TakenAt:     time.Now().UTC(),
		Thumbnails: []domain.Thumbnail{
			{PhotoID: id, SizeClass: domain.SizeSmall, Width: 256, Height: 170, SizeBytes: 9000},
			{PhotoID: id, SizeClass: domain.SizeMedium, Width: 768, Height: 512, SizeBytes: 52000},
		},
	}
	p.ID = id
	p.InitTimestamps()
	return p
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist.
	tables := []string{
		"users", "content_blobs", "photos", "photo_thumbnails",
		"albums", "album_photos",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()
}
