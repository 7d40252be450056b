package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestJPEG encodes a gradient image so renditions have real content.
func makeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func makeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThumbnailer_Generate(t *testing.T) {
	tn := NewThumbnailer(85)
	original := makeTestJPEG(t, 1200, 800)

	out, err := tn.Generate(original, map[string]int{"small": 256, "medium": 768})
	require.NoError(t, err)
	require.Len(t, out, 2)

	small := out["small"]
	assert.Equal(t, 256, small.Width)
	assert.Equal(t, 170, small.Height) // 800 * 256 / 1200
	assert.NotEmpty(t, small.Data)

	medium := out["medium"]
	assert.Equal(t, 768, medium.Width)
	assert.Equal(t, 512, medium.Height)

	// Renditions must themselves decode as JPEG.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(small.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 256, cfg.Width)
}

func TestThumbnailer_Deterministic(t *testing.T) {
	tn := NewThumbnailer(85)
	original := makeTestJPEG(t, 640, 480)
	classes := map[string]int{"small": 256}

	first, err := tn.Generate(original, classes)
	require.NoError(t, err)
	second, err := tn.Generate(original, classes)
	require.NoError(t, err)

	// Identical input bytes and size classes yield byte-identical output.
	assert.Equal(t, first["small"].Data, second["small"].Data)
}

func TestThumbnailer_PreservesPortraitAspect(t *testing.T) {
	tn := NewThumbnailer(85)
	original := makeTestJPEG(t, 600, 900)

	out, err := tn.Generate(original, map[string]int{"small": 300})
	require.NoError(t, err)

	small := out["small"]
	assert.Equal(t, 300, small.Height)
	assert.Equal(t, 200, small.Width)
}

func TestThumbnailer_NoUpscale(t *testing.T) {
	tn := NewThumbnailer(85)
	original := makeTestPNG(t, 100, 60)

	out, err := tn.Generate(original, map[string]int{"large": 1600})
	require.NoError(t, err)

	large := out["large"]
	assert.Equal(t, 100, large.Width)
	assert.Equal(t, 60, large.Height)
}

func TestThumbnailer_UnsupportedFormat(t *testing.T) {
	tn := NewThumbnailer(85)

	_, err := tn.Generate([]byte("definitely not an image"), map[string]int{"small": 256})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDimensions(t *testing.T) {
	w, h, err := Dimensions(makeTestJPEG(t, 320, 240))
	require.NoError(t, err)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)

	_, _, err = Dimensions([]byte("garbage"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFitLongEdge(t *testing.T) {
	tests := []struct {
		w, h, target   int
		wantW, wantH   int
	}{
		{1200, 800, 256, 256, 170},
		{800, 1200, 256, 170, 256},
		{100, 100, 256, 100, 100}, // no upscale
		{5000, 2, 256, 256, 1},    // min 1px
	}
	for _, tt := range tests {
		gotW, gotH := fitLongEdge(tt.w, tt.h, tt.target)
		assert.Equal(t, tt.wantW, gotW, "%dx%d @ %d", tt.w, tt.h, tt.target)
		assert.Equal(t, tt.wantH, gotH, "%dx%d @ %d", tt.w, tt.h, tt.target)
	}
}

func TestComputeBlurHash(t *testing.T) {
	hash, err := ComputeBlurHash(makeTestJPEG(t, 400, 300))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	// Deterministic for identical input.
	again, err := ComputeBlurHash(makeTestJPEG(t, 400, 300))
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	_, err = ComputeBlurHash([]byte("not an image"))
	assert.Error(t, err)
}
