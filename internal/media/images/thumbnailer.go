// Package images provides thumbnail generation and BlurHash computation
// for uploaded photos.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// ErrUnsupportedFormat is returned when the input cannot be decoded as an
// image. Unlike metadata extraction, thumbnailing is a hard requirement:
// a photo cannot become ready without at least one rendition.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Rendition is one generated thumbnail.
type Rendition struct {
	Data   []byte
	Width  int
	Height int
}

// Thumbnailer produces downscaled JPEG renditions of an original image.
//
// Generation is deterministic: the scaler (Catmull-Rom) and the JPEG
// encoder are pure functions of the input, so retries yield byte-identical
// output for identical input.
type Thumbnailer struct {
	quality int
}

// NewThumbnailer creates a Thumbnailer encoding at the given JPEG quality.
func NewThumbnailer(quality int) *Thumbnailer {
	if quality < 1 || quality > 100 {
		quality = 85
	}
	return &Thumbnailer{quality: quality}
}

// Generate decodes the original once and produces one rendition per
// requested long-edge target. Aspect ratio is preserved; images smaller
// than a target are re-encoded at their native size rather than upscaled.
//
// Returns ErrUnsupportedFormat if the bytes do not decode as JPEG, PNG,
// GIF, or WebP.
func (t *Thumbnailer) Generate(data []byte, longEdges map[string]int) (map[string]Rendition, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	out := make(map[string]Rendition, len(longEdges))
	for class, target := range longEdges {
		r, err := t.render(src, target)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", class, err)
		}
		out[class] = r
	}
	return out, nil
}

// Dimensions returns the pixel dimensions of an encoded image without
// decoding the full pixel data.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return cfg.Width, cfg.Height, nil
}

func (t *Thumbnailer) render(src image.Image, longEdge int) (Rendition, error) {
	w, h := fitLongEdge(src.Bounds().Dx(), src.Bounds().Dy(), longEdge)

	// Draw onto an opaque RGBA canvas so paletted and alpha sources
	// encode cleanly as JPEG.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: t.quality}); err != nil {
		return Rendition{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Rendition{Data: buf.Bytes(), Width: w, Height: h}, nil
}

// fitLongEdge scales (w, h) so the longer edge equals target, preserving
// aspect ratio and never upscaling. Each edge stays at least 1px.
func fitLongEdge(w, h, target int) (int, int) {
	if target <= 0 || (w <= target && h <= target) {
		return w, h
	}

	if w >= h {
		scaled := (h * target) / w
		if scaled < 1 {
			scaled = 1
		}
		return target, scaled
	}

	scaled := (w * target) / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, target
}
