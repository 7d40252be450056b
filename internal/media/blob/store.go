// Package blob provides content-addressed storage for photo originals and
// their thumbnail renditions.
//
// The physical location of every object is derived from its fingerprint
// (SHA-256 of the original bytes), sharded by the first two hex digits:
//
//	{base}/blobs/{fp[0:2]}/{fp}           original
//	{base}/blobs/{fp[0:2]}/{fp}.t-small   rendition
//
// Writes stage to a dotted temp file in the same directory and rename into
// place, so a reader (or the sweeper) never observes a partially-written
// blob: an object present at its final path is complete.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no blob exists for a fingerprint.
var ErrNotFound = errors.New("blob not found")

// tmpPrefix marks staging files. Anything with this prefix is invisible
// to Get/Exists/Walk.
const tmpPrefix = ".tmp-"

// Fingerprint computes the content address for a byte slice:
// lowercase hex SHA-256.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FingerprintReader computes the content address while copying the stream
// into memory. Returns the bytes read and their fingerprint.
func FingerprintReader(r io.Reader) ([]byte, string, error) {
	h := sha256.New()
	data, err := io.ReadAll(io.TeeReader(r, h))
	if err != nil {
		return nil, "", fmt.Errorf("read content: %w", err)
	}
	return data, hex.EncodeToString(h.Sum(nil)), nil
}

// Store manages the on-disk blob tree. Safe for concurrent use: all
// visibility transitions happen via atomic rename.
type Store struct {
	basePath string
}

// NewStore creates a Store rooted at {basePath}/blobs, creating the
// directory if needed.
func NewStore(basePath string) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	root := filepath.Join(basePath, "blobs")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blobs directory: %w", err)
	}

	return &Store{basePath: root}, nil
}

// Put stores data at its content address. Returns created=false if a
// complete blob already exists for the fingerprint, in which case nothing
// is written: the caller treats that as a dedup hit and must account the
// reference at the metadata layer.
func (s *Store) Put(fingerprint string, data []byte) (created bool, err error) {
	if err := validFingerprint(fingerprint); err != nil {
		return false, err
	}

	final := s.Path(fingerprint)
	if _, err := os.Stat(final); err == nil {
		return false, nil
	}

	if err := s.writeAtomic(final, data); err != nil {
		return false, err
	}
	return true, nil
}

// PutRendition stores a derived rendition (thumbnail) of a blob, keyed by
// the parent fingerprint and a size-class name. Overwrites are allowed:
// renditions are deterministic, so a second write is byte-equivalent.
func (s *Store) PutRendition(fingerprint, class string, data []byte) error {
	if err := validFingerprint(fingerprint); err != nil {
		return err
	}
	return s.writeAtomic(s.RenditionPath(fingerprint, class), data)
}

// Get retrieves the original bytes for a fingerprint.
func (s *Store) Get(fingerprint string) ([]byte, error) {
	if err := validFingerprint(fingerprint); err != nil {
		return nil, err
	}
	return s.read(s.Path(fingerprint))
}

// GetRendition retrieves a rendition's bytes.
func (s *Store) GetRendition(fingerprint, class string) ([]byte, error) {
	if err := validFingerprint(fingerprint); err != nil {
		return nil, err
	}
	return s.read(s.RenditionPath(fingerprint, class))
}

// Exists reports whether a complete blob is present for the fingerprint.
func (s *Store) Exists(fingerprint string) bool {
	if validFingerprint(fingerprint) != nil {
		return false
	}
	_, err := os.Stat(s.Path(fingerprint))
	return err == nil
}

// Delete removes a blob and all of its renditions. Callers must have
// already verified the reference count is zero. Missing files are not an
// error: delete is idempotent.
func (s *Store) Delete(fingerprint string) error {
	if err := validFingerprint(fingerprint); err != nil {
		return err
	}

	dir := filepath.Dir(s.Path(fingerprint))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read blob directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if name != fingerprint && !strings.HasPrefix(name, fingerprint+".t-") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete blob file %s: %w", name, err)
		}
	}
	return nil
}

// Walk invokes fn for every complete original blob in the store, passing
// its fingerprint and file info. Staging files and renditions are skipped,
// so concurrent in-flight writes are never visited.
func (s *Store) Walk(fn func(fingerprint string, info fs.FileInfo) error) error {
	return filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, tmpPrefix) || strings.Contains(name, ".t-") {
			return nil
		}
		if validFingerprint(name) != nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// Raced with a delete; skip.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		return fn(name, info)
	})
}

// Path returns the final filesystem path for a blob.
func (s *Store) Path(fingerprint string) string {
	return filepath.Join(s.basePath, fingerprint[:2], fingerprint)
}

// RenditionPath returns the final filesystem path for a rendition.
func (s *Store) RenditionPath(fingerprint, class string) string {
	return s.Path(fingerprint) + ".t-" + class
}

// writeAtomic stages data to a temp file in the target directory, syncs,
// and renames into place.
func (s *Store) writeAtomic(final string, data []byte) error {
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write staging file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close staging file: %w", err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func (s *Store) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// validFingerprint rejects anything that is not 64 lowercase hex digits,
// which also keeps path traversal out of the blob tree.
func validFingerprint(fp string) error {
	if len(fp) != 64 {
		return fmt.Errorf("invalid fingerprint %q: want 64 hex digits", fp)
	}
	for _, c := range fp {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("invalid fingerprint %q: non-hex character", fp)
		}
	}
	return nil
}
