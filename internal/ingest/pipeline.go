// Package ingest runs the upload pipeline: admission, content storage,
// metadata extraction, thumbnailing and the final metadata commit. Each
// step either succeeds or unwinds everything the pipeline created, so a
// failed upload leaves no quota charge and no orphaned rows.
package ingest

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	apperrors "github.com/photokeepapp/photokeep-server/internal/errors"
	"github.com/photokeepapp/photokeep-server/internal/id"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/media/blob"
	"github.com/photokeepapp/photokeep-server/internal/media/images"
	"github.com/photokeepapp/photokeep-server/internal/metadata/exif"
	"github.com/photokeepapp/photokeep-server/internal/quota"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// storageAttempts bounds retries of content store writes. The backoff is
// constant: these are local filesystem operations, not network calls.
const (
	storageAttempts = 3
	storageBackoff  = 100 * time.Millisecond
)

// allowedContentTypes are the image formats accepted for upload.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Config tunes the pipeline.
type Config struct {
	// MaxUploadBytes rejects uploads larger than this before any work
	// happens. Zero disables the check.
	MaxUploadBytes int64
	// ThumbnailWorkers bounds concurrent thumbnail generation.
	// Zero or negative means one worker per CPU.
	ThumbnailWorkers int
}

// Request is one upload to ingest. Data is the complete original file.
// Description and Tags are optional caller-supplied details stored with
// the photo in the same commit.
type Request struct {
	UserID      string
	FileName    string
	ContentType string
	Description string
	Tags        []string
	Data        []byte
}

// Pipeline ingests uploads. Safe for concurrent use.
type Pipeline struct {
	log    *logger.Logger
	store  store.Store
	blobs  *blob.Store
	thumbs *images.Thumbnailer
	ledger *quota.Ledger

	maxUploadBytes int64
	sem            chan struct{}

	// inflight guards against two concurrent uploads of identical
	// content by the same user, keyed by userID/fingerprint.
	inflight *SyncMap[string, struct{}]

	// contentMu guards content, a count of ingestions currently holding
	// each fingerprint. The sweeper consults InFlight so it never
	// collects a blob an upload is about to commit a reference to.
	contentMu sync.Mutex
	content   map[string]int
}

// NewPipeline wires the pipeline from its collaborators.
func NewPipeline(log *logger.Logger, st store.Store, blobs *blob.Store, thumbs *images.Thumbnailer, ledger *quota.Ledger, cfg Config) *Pipeline {
	workers := cfg.ThumbnailWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pipeline{
		log:            log,
		store:          st,
		blobs:          blobs,
		thumbs:         thumbs,
		ledger:         ledger,
		maxUploadBytes: cfg.MaxUploadBytes,
		sem:            make(chan struct{}, workers),
		inflight:       NewSyncMap[string, struct{}](),
		content:        make(map[string]int),
	}
}

// InFlight reports whether any ingestion currently holds the fingerprint,
// from before the content write until its reference is durably committed.
func (p *Pipeline) InFlight(fingerprint string) bool {
	p.contentMu.Lock()
	defer p.contentMu.Unlock()
	return p.content[fingerprint] > 0
}

func (p *Pipeline) holdContent(fingerprint string) {
	p.contentMu.Lock()
	defer p.contentMu.Unlock()
	p.content[fingerprint]++
}

func (p *Pipeline) releaseContent(fingerprint string) {
	p.contentMu.Lock()
	defer p.contentMu.Unlock()
	if p.content[fingerprint] <= 1 {
		delete(p.content, fingerprint)
		return
	}
	p.content[fingerprint]--
}

// Ingest runs one upload through the full pipeline and returns the
// committed photo. On any failure the quota reservation is released and
// files created by this attempt are removed.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*domain.Photo, error) {
	if len(req.Data) == 0 {
		return nil, apperrors.Validation("upload is empty")
	}
	size := int64(len(req.Data))
	if p.maxUploadBytes > 0 && size > p.maxUploadBytes {
		return nil, apperrors.ValidationWithDetails(
			"upload exceeds the maximum allowed size",
			map[string]int64{"size_bytes": size, "max_bytes": p.maxUploadBytes},
		)
	}
	if !allowedContentTypes[req.ContentType] {
		return nil, apperrors.UnsupportedFormat("unsupported content type " + req.ContentType)
	}

	fingerprint := blob.Fingerprint(req.Data)

	// Two simultaneous uploads of the same bytes by one user would race
	// the dedup charge decision; the loser fails fast and may retry.
	guardKey := req.UserID + "/" + fingerprint
	if _, loaded := p.inflight.LoadOrStore(guardKey, struct{}{}); loaded {
		return nil, apperrors.DuplicateRace("an identical upload is already in progress")
	}
	defer p.inflight.Delete(guardKey)

	p.holdContent(fingerprint)
	defer p.releaseContent(fingerprint)

	// Reserve the full size even when the content may deduplicate: the
	// commit charges zero for an already-owned blob and the reservation
	// is simply discarded.
	reservation, err := p.ledger.Reserve(ctx, req.UserID, size)
	if err != nil {
		return nil, err
	}

	photo, err := p.run(ctx, req, fingerprint, size)
	if err != nil {
		p.ledger.Release(reservation)
		return nil, err
	}

	p.ledger.Commit(reservation)
	return photo, nil
}

// run executes the pipeline steps after admission. The returned error is
// always an *apperrors.Error.
func (p *Pipeline) run(ctx context.Context, req Request, fingerprint string, size int64) (*domain.Photo, error) {
	log := p.log.With("user_id", req.UserID, "fingerprint", fingerprint, "size_bytes", size)

	created, err := p.putBlob(ctx, fingerprint, req.Data)
	if err != nil {
		return nil, err
	}
	if !created {
		source, err := p.dedupSource(ctx, req.UserID, fingerprint)
		if err != nil {
			return nil, err
		}
		if source != nil {
			log.Debug("content already stored, reusing stored metadata", "source_photo_id", source.ID)
			return p.commitDeduplicated(ctx, req, source, size, log)
		}
		// The file exists but nothing references it: a crash remnant
		// this upload adopts. Process it in full.
		log.Debug("content file present but unreferenced, adopting")
	}

	// fail unwinds the blob file, but only when this attempt created it:
	// a deduplicated blob belongs to the photos already referencing it.
	fail := func(err error) (*domain.Photo, error) {
		if created {
			if derr := p.blobs.Delete(fingerprint); derr != nil {
				log.Warn("failed to remove blob during unwind", "error", derr)
			}
		}
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(apperrors.Wrap(err, apperrors.CodeInternal, "ingestion canceled"))
	}

	// Metadata extraction is best effort and never fails the upload.
	meta, err := exif.Extract(req.Data)
	if err != nil {
		log.Debug("no usable exif metadata", "reason", err)
	}
	if w, h, err := images.Dimensions(req.Data); err == nil {
		meta.Width, meta.Height = w, h
	}

	blurHash, err := images.ComputeBlurHash(req.Data)
	if err != nil {
		log.Debug("blurhash computation failed", "reason", err)
	}

	renditions, err := p.generateThumbnails(ctx, req.Data)
	if err != nil {
		return fail(err)
	}

	photo := &domain.Photo{
		UserID:      req.UserID,
		Fingerprint: fingerprint,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   size,
		Status:      domain.StatusReady,
		Description: req.Description,
		Tags:        req.Tags,
		BlurHash:    blurHash,
		Exif:        meta,
	}
	photo.ID = id.MustGenerate(id.PrefixPhoto)
	photo.InitTimestamps()
	if meta.DateTaken != nil {
		photo.TakenAt = *meta.DateTaken
	} else {
		photo.TakenAt = photo.CreatedAt
	}

	for _, class := range domain.DefaultSizeClasses {
		r, ok := renditions[string(class)]
		if !ok {
			continue
		}
		if err := p.putRendition(ctx, fingerprint, string(class), r.Data); err != nil {
			return fail(err)
		}
		photo.Thumbnails = append(photo.Thumbnails, domain.Thumbnail{
			PhotoID:   photo.ID,
			SizeClass: class,
			Width:     r.Width,
			Height:    r.Height,
			SizeBytes: int64(len(r.Data)),
		})
	}

	// The metadata commit is never retried: a failed transaction leaves
	// the database untouched and retrying could double-charge quota if
	// the failure was on the response path.
	charged, err := p.store.CommitIngestion(ctx, photo)
	if err != nil {
		return fail(apperrors.Wrap(err, apperrors.CodeMetadataStore, "commit photo metadata"))
	}

	if !created {
		if err := p.ensureContent(ctx, req.Data, renditions, fingerprint, log); err != nil {
			return p.unwindCommitted(ctx, photo, err, log)
		}
	}

	log.Info("photo ingested",
		"photo_id", photo.ID,
		"charged_bytes", charged,
		"thumbnails", len(photo.Thumbnails),
		"deduplicated", !created,
	)
	return photo, nil
}

// dedupSource finds a committed photo whose metadata and thumbnail rows
// can be copied for a dedup hit. The user's own copy is preferred; any
// ready photo of the same content works, since extraction and
// thumbnailing are deterministic. Returns nil when no ready photo
// references the content.
func (p *Pipeline) dedupSource(ctx context.Context, userID, fingerprint string) (*domain.Photo, error) {
	source, err := p.store.FindUserPhotoByFingerprint(ctx, userID, fingerprint)
	if err == nil && source.IsReady() {
		return source, nil
	}
	if err != nil && !apperrors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Wrap(err, apperrors.CodeMetadataStore, "dedup index lookup")
	}

	source, err = p.store.FindPhotoByFingerprint(ctx, fingerprint)
	if apperrors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeMetadataStore, "dedup index lookup")
	}
	return source, nil
}

// commitDeduplicated records a new photo for content the store already
// holds, copying metadata and thumbnail rows from source instead of
// reprocessing the bytes.
func (p *Pipeline) commitDeduplicated(ctx context.Context, req Request, source *domain.Photo, size int64, log *slog.Logger) (*domain.Photo, error) {
	photo := &domain.Photo{
		UserID:      req.UserID,
		Fingerprint: source.Fingerprint,
		FileName:    req.FileName,
		ContentType: source.ContentType,
		SizeBytes:   size,
		Status:      domain.StatusReady,
		Description: req.Description,
		Tags:        req.Tags,
		BlurHash:    source.BlurHash,
		Exif:        source.Exif,
	}
	photo.ID = id.MustGenerate(id.PrefixPhoto)
	photo.InitTimestamps()
	if source.Exif.DateTaken != nil {
		photo.TakenAt = *source.Exif.DateTaken
	} else {
		photo.TakenAt = photo.CreatedAt
	}
	for _, t := range source.Thumbnails {
		t.PhotoID = photo.ID
		photo.Thumbnails = append(photo.Thumbnails, t)
	}

	charged, err := p.store.CommitIngestion(ctx, photo)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeMetadataStore, "commit photo metadata")
	}

	if err := p.ensureContent(ctx, req.Data, nil, photo.Fingerprint, log); err != nil {
		return p.unwindCommitted(ctx, photo, err, log)
	}

	log.Info("photo ingested",
		"photo_id", photo.ID,
		"charged_bytes", charged,
		"thumbnails", len(photo.Thumbnails),
		"deduplicated", true,
	)
	return photo, nil
}

// ensureContent re-checks a deduplicated original after the commit and
// rewrites it when the sweeper collected the file between Put observing
// it and the commit making its reference durable. renditions may be nil,
// in which case they are regenerated from the original bytes.
func (p *Pipeline) ensureContent(ctx context.Context, data []byte, renditions map[string]images.Rendition, fingerprint string, log *slog.Logger) error {
	if p.blobs.Exists(fingerprint) {
		return nil
	}
	log.Warn("original collected before its reference was durable, rewriting")

	if _, err := p.putBlob(ctx, fingerprint, data); err != nil {
		return err
	}
	if renditions == nil {
		var err error
		renditions, err = p.generateThumbnails(ctx, data)
		if err != nil {
			return err
		}
	}
	for _, class := range domain.DefaultSizeClasses {
		r, ok := renditions[string(class)]
		if !ok {
			continue
		}
		if err := p.putRendition(ctx, fingerprint, string(class), r.Data); err != nil {
			return err
		}
	}
	return nil
}

// unwindCommitted deletes a just-committed photo row whose content could
// not be restored, refunding the quota charge.
func (p *Pipeline) unwindCommitted(ctx context.Context, photo *domain.Photo, cause error, log *slog.Logger) (*domain.Photo, error) {
	if _, err := p.store.DeletePhoto(ctx, photo.ID); err != nil {
		log.Warn("failed to unwind committed photo", "photo_id", photo.ID, "error", err)
	}
	return nil, cause
}

// putBlob writes the original into the content store with bounded retries.
func (p *Pipeline) putBlob(ctx context.Context, fingerprint string, data []byte) (bool, error) {
	var created bool
	backoff := retry.WithMaxRetries(storageAttempts-1, retry.NewConstant(storageBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		created, err = p.blobs.Put(fingerprint, data)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeStorageIO, "store original content")
	}
	return created, nil
}

// putRendition writes one thumbnail file with bounded retries.
func (p *Pipeline) putRendition(ctx context.Context, fingerprint, class string, data []byte) error {
	backoff := retry.WithMaxRetries(storageAttempts-1, retry.NewConstant(storageBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.blobs.PutRendition(fingerprint, class, data); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageIO, "store thumbnail "+class)
	}
	return nil
}

// generateThumbnails renders all size classes under the worker semaphore.
func (p *Pipeline) generateThumbnails(ctx context.Context, data []byte) (map[string]images.Rendition, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeInternal, "ingestion canceled")
	}
	defer func() { <-p.sem }()

	longEdges := make(map[string]int, len(domain.DefaultSizeClasses))
	for _, class := range domain.DefaultSizeClasses {
		longEdges[string(class)] = class.LongEdge()
	}

	renditions, err := p.thumbs.Generate(data, longEdges)
	if err != nil {
		if apperrors.Is(err, images.ErrUnsupportedFormat) {
			return nil, apperrors.UnsupportedFormat("image cannot be decoded").WithCause(err)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "generate thumbnails")
	}
	return renditions, nil
}
