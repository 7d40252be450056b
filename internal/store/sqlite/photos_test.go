package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

func TestGetPhotoRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	photo := newTestPhoto(user, "pho_1", testFingerprint, 5000)
	photo.Description = "beach day"
	photo.Tags = []string{"beach", "summer"}
	photo.BlurHash = "LKO2?U%2Tw=w]~RBVZRi};RPxuwH"

	taken := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	iso := 200
	focal := 35.0
	photo.TakenAt = taken
	photo.Exif = domain.Metadata{
		DateTaken:   &taken,
		CameraMake:  "Canon",
		CameraModel: "EOS R5",
		FocalLength: &focal,
		ISO:         &iso,
		Width:       6000,
		Height:      4000,
	}

	if _, err := s.CommitIngestion(ctx, photo); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.GetPhoto(ctx, "pho_1")
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	if got.Description != "beach day" {
		t.Errorf("description mismatch: %q", got.Description)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "beach" {
		t.Errorf("tags mismatch: %v", got.Tags)
	}
	if got.BlurHash != photo.BlurHash {
		t.Errorf("blurhash mismatch: %q", got.BlurHash)
	}
	if !got.TakenAt.Equal(taken) {
		t.Errorf("taken_at mismatch: %v", got.TakenAt)
	}
	if got.Exif.CameraMake != "Canon" || got.Exif.CameraModel != "EOS R5" {
		t.Errorf("camera mismatch: %+v", got.Exif)
	}
	if got.Exif.ISO == nil || *got.Exif.ISO != 200 {
		t.Errorf("iso mismatch: %v", got.Exif.ISO)
	}
	if got.Exif.FocalLength == nil || *got.Exif.FocalLength != 35.0 {
		t.Errorf("focal length mismatch: %v", got.Exif.FocalLength)
	}
	if got.Exif.Aperture != nil {
		t.Errorf("expected nil aperture, got %v", *got.Exif.Aperture)
	}
	if got.Exif.Width != 6000 || got.Exif.Height != 4000 {
		t.Errorf("dimensions mismatch: %dx%d", got.Exif.Width, got.Exif.Height)
	}
	if len(got.Thumbnails) != 2 {
		t.Fatalf("expected 2 thumbnails, got %d", len(got.Thumbnails))
	}
	if got.Thumbnails[1].SizeClass != domain.SizeSmall {
		t.Errorf("unexpected thumbnail order: %v", got.Thumbnails)
	}
}

func TestListPhotosPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		p := newTestPhoto(user, fmt.Sprintf("pho_%d", i), otherFingerprint(fmt.Sprintf("%d", i)), 100)
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		p.UpdatedAt = p.CreatedAt
		if _, err := s.CommitIngestion(ctx, p); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	page1, err := s.ListPhotos(ctx, user.ID, store.PaginationParams{Limit: 2})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(page1.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page1.Items))
	}
	// Newest first.
	if page1.Items[0].ID != "pho_4" || page1.Items[1].ID != "pho_3" {
		t.Errorf("unexpected order: %s, %s", page1.Items[0].ID, page1.Items[1].ID)
	}
	if !page1.HasMore || page1.NextCursor == "" {
		t.Fatal("expected more pages")
	}

	page2, err := s.ListPhotos(ctx, user.ID, store.PaginationParams{Limit: 2, Cursor: page1.NextCursor})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if page2.Items[0].ID != "pho_2" || page2.Items[1].ID != "pho_1" {
		t.Errorf("unexpected page 2: %s, %s", page2.Items[0].ID, page2.Items[1].ID)
	}

	page3, err := s.ListPhotos(ctx, user.ID, store.PaginationParams{Limit: 2, Cursor: page2.NextCursor})
	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}
	if len(page3.Items) != 1 || page3.Items[0].ID != "pho_0" {
		t.Errorf("unexpected page 3: %v", page3.Items)
	}
	if page3.HasMore {
		t.Error("expected final page")
	}
}

func TestListPhotosScopedToUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")
	if _, err := s.CommitIngestion(ctx, newTestPhoto(alice, "pho_a", testFingerprint, 100)); err != nil {
		t.Fatalf("commit alice: %v", err)
	}
	if _, err := s.CommitIngestion(ctx, newTestPhoto(bob, "pho_b", testFingerprint, 100)); err != nil {
		t.Fatalf("commit bob: %v", err)
	}

	result, err := s.ListPhotos(ctx, alice.ID, store.DefaultPaginationParams())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != "pho_a" {
		t.Errorf("expected only alice's photo, got %v", result.Items)
	}
}

func TestFindUserPhotoByFingerprint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 100)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.FindUserPhotoByFingerprint(ctx, user.ID, testFingerprint)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "pho_1" {
		t.Errorf("expected pho_1, got %s", got.ID)
	}
	if len(got.Thumbnails) != 2 {
		t.Errorf("expected 2 thumbnail rows, got %d", len(got.Thumbnails))
	}

	_, err = s.FindUserPhotoByFingerprint(ctx, user.ID, otherFingerprint("f"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindPhotoByFingerprint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")
	if _, err := s.CommitIngestion(ctx, newTestPhoto(alice, "pho_a", testFingerprint, 100)); err != nil {
		t.Fatalf("commit alice: %v", err)
	}

	// Any owner's ready photo serves as a metadata source.
	got, err := s.FindPhotoByFingerprint(ctx, testFingerprint)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "pho_a" || got.UserID != alice.ID {
		t.Errorf("expected alice's pho_a, got %s owned by %s", got.ID, got.UserID)
	}
	if len(got.Thumbnails) != 2 {
		t.Errorf("expected 2 thumbnail rows, got %d", len(got.Thumbnails))
	}

	// Photos that are not ready are never used as a source.
	if err := s.SetPhotoStatus(ctx, "pho_a", domain.StatusFailed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := s.FindPhotoByFingerprint(ctx, testFingerprint); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a failed photo, got %v", err)
	}

	// A second owner's ready copy restores the lookup.
	if _, err := s.CommitIngestion(ctx, newTestPhoto(bob, "pho_b", testFingerprint, 100)); err != nil {
		t.Fatalf("commit bob: %v", err)
	}
	got, err = s.FindPhotoByFingerprint(ctx, testFingerprint)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "pho_b" {
		t.Errorf("expected pho_b, got %s", got.ID)
	}
}

func TestUpdatePhotoDetails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 100)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := s.UpdatePhotoDetails(ctx, "pho_1", "sunset", []string{"golden-hour"}); err != nil {
		t.Fatalf("update details: %v", err)
	}

	got, err := s.GetPhoto(ctx, "pho_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "sunset" {
		t.Errorf("description mismatch: %q", got.Description)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "golden-hour" {
		t.Errorf("tags mismatch: %v", got.Tags)
	}

	// Clearing tags round-trips to nil.
	if err := s.UpdatePhotoDetails(ctx, "pho_1", "", nil); err != nil {
		t.Fatalf("clear details: %v", err)
	}
	got, _ = s.GetPhoto(ctx, "pho_1")
	if got.Description != "" || got.Tags != nil {
		t.Errorf("expected cleared details, got %q %v", got.Description, got.Tags)
	}
}

func TestSetPhotoStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 100)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := s.SetPhotoStatus(ctx, "pho_1", domain.StatusFailed); err != nil {
		t.Fatalf("set status: %v", err)
	}

	got, err := s.GetPhoto(ctx, "pho_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}

	if err := s.SetPhotoStatus(ctx, "pho_missing", domain.StatusReady); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
