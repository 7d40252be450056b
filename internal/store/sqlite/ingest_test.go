package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/photokeepapp/photokeep-server/internal/store"
)

const testFingerprint = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func otherFingerprint(seed string) string {
	return seed + strings.Repeat("b", 64-len(seed))
}

func TestCommitIngestionChargesQuota(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	photo := newTestPhoto(user, "pho_1", testFingerprint, 5000)

	charged, err := s.CommitIngestion(ctx, photo)
	if err != nil {
		t.Fatalf("commit ingestion: %v", err)
	}
	if charged != 5000 {
		t.Errorf("expected 5000 charged, got %d", charged)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.QuotaConsumed != 5000 {
		t.Errorf("expected consumed 5000, got %d", got.QuotaConsumed)
	}

	blob, err := s.GetBlob(ctx, testFingerprint)
	if err != nil {
		t.Fatalf("get blob: %v", err)
	}
	if blob.RefCount != 1 {
		t.Errorf("expected refcount 1, got %d", blob.RefCount)
	}
}

func TestCommitIngestionSameUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")

	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 5000)); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	// Second photo with the same content: new row, refcount bump, no charge.
	charged, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_2", testFingerprint, 5000))
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if charged != 0 {
		t.Errorf("expected 0 charged for duplicate, got %d", charged)
	}

	got, _ := s.GetUser(ctx, user.ID)
	if got.QuotaConsumed != 5000 {
		t.Errorf("expected consumed 5000 after duplicate, got %d", got.QuotaConsumed)
	}

	blob, _ := s.GetBlob(ctx, testFingerprint)
	if blob.RefCount != 2 {
		t.Errorf("expected refcount 2, got %d", blob.RefCount)
	}
}

func TestCommitIngestionCrossUserDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")

	if _, err := s.CommitIngestion(ctx, newTestPhoto(alice, "pho_a", testFingerprint, 5000)); err != nil {
		t.Fatalf("alice commit: %v", err)
	}

	// Each owner is charged independently even though the bytes are shared.
	charged, err := s.CommitIngestion(ctx, newTestPhoto(bob, "pho_b", testFingerprint, 5000))
	if err != nil {
		t.Fatalf("bob commit: %v", err)
	}
	if charged != 5000 {
		t.Errorf("expected 5000 charged for bob, got %d", charged)
	}

	gotBob, _ := s.GetUser(ctx, bob.ID)
	if gotBob.QuotaConsumed != 5000 {
		t.Errorf("expected bob consumed 5000, got %d", gotBob.QuotaConsumed)
	}
}

func TestCommitIngestionDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")

	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 100)); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	_, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 100))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	// The failed commit must not have bumped the refcount.
	count, err := s.BlobRefCount(ctx, testFingerprint)
	if err != nil {
		t.Fatalf("refcount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected refcount 1 after rollback, got %d", count)
	}
}

func TestDeletePhotoLastReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 5000)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	result, err := s.DeletePhoto(ctx, "pho_1")
	if err != nil {
		t.Fatalf("delete photo: %v", err)
	}
	if result.FreedBytes != 5000 {
		t.Errorf("expected 5000 freed, got %d", result.FreedBytes)
	}
	if !result.BlobOrphaned {
		t.Error("expected blob to be orphaned")
	}
	if result.Fingerprint != testFingerprint {
		t.Errorf("unexpected fingerprint %s", result.Fingerprint)
	}

	got, _ := s.GetUser(ctx, user.ID)
	if got.QuotaConsumed != 0 {
		t.Errorf("expected consumed 0 after delete, got %d", got.QuotaConsumed)
	}

	if _, err := s.GetPhoto(ctx, "pho_1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected photo gone, got %v", err)
	}
}

func TestDeletePhotoKeepsSharedQuota(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 5000)); err != nil {
		t.Fatalf("commit 1: %v", err)
	}
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_2", testFingerprint, 5000)); err != nil {
		t.Fatalf("commit 2: %v", err)
	}

	// Deleting one of two same-user references frees nothing.
	result, err := s.DeletePhoto(ctx, "pho_1")
	if err != nil {
		t.Fatalf("delete photo: %v", err)
	}
	if result.FreedBytes != 0 {
		t.Errorf("expected 0 freed, got %d", result.FreedBytes)
	}
	if result.BlobOrphaned {
		t.Error("blob still referenced, must not be orphaned")
	}

	got, _ := s.GetUser(ctx, user.ID)
	if got.QuotaConsumed != 5000 {
		t.Errorf("expected consumed 5000, got %d", got.QuotaConsumed)
	}

	// Deleting the second reference frees the bytes.
	result, err = s.DeletePhoto(ctx, "pho_2")
	if err != nil {
		t.Fatalf("delete second photo: %v", err)
	}
	if result.FreedBytes != 5000 {
		t.Errorf("expected 5000 freed, got %d", result.FreedBytes)
	}
	if !result.BlobOrphaned {
		t.Error("expected blob orphaned after last reference")
	}
}

func TestDeletePhotoNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.DeletePhoto(context.Background(), "pho_missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteBlobIfUnreferenced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 100)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Still referenced: delete must refuse.
	deleted, err := s.DeleteBlobIfUnreferenced(ctx, testFingerprint)
	if err != nil {
		t.Fatalf("delete blob: %v", err)
	}
	if deleted {
		t.Error("referenced blob must not be deleted")
	}

	if _, err := s.DeletePhoto(ctx, "pho_1"); err != nil {
		t.Fatalf("delete photo: %v", err)
	}

	deleted, err = s.DeleteBlobIfUnreferenced(ctx, testFingerprint)
	if err != nil {
		t.Fatalf("delete blob: %v", err)
	}
	if !deleted {
		t.Error("orphaned blob should be deleted")
	}
}

func TestComputeUserConsumed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_1", testFingerprint, 5000)); err != nil {
		t.Fatalf("commit 1: %v", err)
	}
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_2", testFingerprint, 5000)); err != nil {
		t.Fatalf("commit 2: %v", err)
	}
	if _, err := s.CommitIngestion(ctx, newTestPhoto(user, "pho_3", otherFingerprint("c"), 700)); err != nil {
		t.Fatalf("commit 3: %v", err)
	}

	consumed, err := s.ComputeUserConsumed(ctx, user.ID)
	if err != nil {
		t.Fatalf("compute consumed: %v", err)
	}
	if consumed != 5700 {
		t.Errorf("expected 5700, got %d", consumed)
	}

	got, _ := s.GetUser(ctx, user.ID)
	if got.QuotaConsumed != consumed {
		t.Errorf("ledger %d disagrees with recomputed %d", got.QuotaConsumed, consumed)
	}
}
