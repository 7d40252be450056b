package domain

import "time"

// ProcessingStatus tracks a photo through the ingestion pipeline.
type ProcessingStatus string

const (
	// StatusPending indicates ingestion has started but not committed.
	StatusPending ProcessingStatus = "pending"
	// StatusReady indicates the original and at least one thumbnail are
	// durably stored and the metadata row is committed.
	StatusReady ProcessingStatus = "ready"
	// StatusFailed indicates ingestion failed or the sweeper found the
	// photo's blob missing from the content store.
	StatusFailed ProcessingStatus = "failed"
)

// Photo is one user's record of an uploaded image. Multiple photos may
// reference the same content blob via Fingerprint (deduplication).
type Photo struct {
	Entity
	UserID      string           `json:"user_id"`
	Fingerprint string           `json:"fingerprint"`
	FileName    string           `json:"file_name"`
	ContentType string           `json:"content_type"`
	SizeBytes   int64            `json:"size_bytes"`
	Status      ProcessingStatus `json:"status"`
	Description string           `json:"description,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	BlurHash    string           `json:"blur_hash,omitempty"`

	// TakenAt is the capture timestamp from EXIF when present,
	// otherwise the upload time.
	TakenAt time.Time `json:"taken_at"`

	Exif Metadata `json:"exif"`

	Thumbnails []Thumbnail `json:"thumbnails,omitempty"`
}

// IsReady reports whether the photo completed ingestion.
func (p *Photo) IsReady() bool {
	return p.Status == StatusReady
}

// Thumbnail is a downscaled rendition of a photo, one row per size class.
type Thumbnail struct {
	PhotoID   string    `json:"photo_id"`
	SizeClass SizeClass `json:"size_class"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int64     `json:"size_bytes"`
}

// SizeClass names a thumbnail rendition target. The long edge of the
// original is scaled to the class's pixel budget, preserving aspect ratio.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// LongEdge returns the target long-edge dimension in pixels for the class.
func (c SizeClass) LongEdge() int {
	switch c {
	case SizeSmall:
		return 256
	case SizeMedium:
		return 768
	case SizeLarge:
		return 1600
	default:
		return 256
	}
}

// DefaultSizeClasses are the renditions generated at ingest time.
var DefaultSizeClasses = []SizeClass{SizeSmall, SizeMedium, SizeLarge}
