package domain

import "time"

// Metadata holds attributes extracted from an image's embedded EXIF data.
// Every field is optional: extraction is best-effort and a zero Metadata
// is a valid result for images with no readable tags.
type Metadata struct {
	DateTaken    *time.Time `json:"date_taken,omitempty"`
	CameraMake   string     `json:"camera_make,omitempty"`
	CameraModel  string     `json:"camera_model,omitempty"`
	FocalLength  *float64   `json:"focal_length,omitempty"`
	ISO          *int       `json:"iso,omitempty"`
	ExposureTime *float64   `json:"exposure_time,omitempty"`
	Aperture     *float64   `json:"aperture,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
}

// IsZero reports whether no metadata at all was extracted.
func (m Metadata) IsZero() bool {
	return m.DateTaken == nil && m.CameraMake == "" && m.CameraModel == "" &&
		m.FocalLength == nil && m.ISO == nil && m.ExposureTime == nil &&
		m.Aperture == nil && m.Latitude == nil && m.Longitude == nil &&
		m.Width == 0 && m.Height == 0
}
