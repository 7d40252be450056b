package domain

import "time"

// ContentBlob records one content-addressed object and how many photos
// reference it. A blob with RefCount zero is eligible for garbage
// collection by the sweeper; a referenced blob must never be deleted.
type ContentBlob struct {
	Fingerprint string    `json:"fingerprint"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	RefCount    int       `json:"ref_count"`
	CreatedAt   time.Time `json:"created_at"`
}
