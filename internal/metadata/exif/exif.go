// Package exif extracts camera metadata from image files. Extraction is
// best effort: images without EXIF blocks, or with partially corrupted
// ones, yield whatever fields could be read.
package exif

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/photokeepapp/photokeep-server/internal/domain"
)

// Extract parses the EXIF block of the given image bytes. A missing or
// unreadable block is not an error condition for callers deciding whether
// to keep a photo, so the returned metadata may be zero alongside a
// non-nil error describing why.
func Extract(data []byte) (domain.Metadata, error) {
	var meta domain.Metadata

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta, err
	}

	if taken, err := x.DateTime(); err == nil {
		meta.DateTaken = &taken
	}
	meta.CameraMake = stringField(x, exif.Make)
	meta.CameraModel = stringField(x, exif.Model)
	meta.FocalLength = ratField(x, exif.FocalLength)
	meta.ExposureTime = ratField(x, exif.ExposureTime)
	meta.Aperture = ratField(x, exif.FNumber)
	meta.ISO = intField(x, exif.ISOSpeedRatings)

	if lat, long, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &long
	}

	return meta, nil
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}

func ratField(x *exif.Exif, name exif.FieldName) *float64 {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	v := ratValue(tag)
	if v == nil {
		return nil
	}
	return v
}

func ratValue(tag *tiff.Tag) *float64 {
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}

func intField(x *exif.Exif, name exif.FieldName) *int {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	v, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &v
}
