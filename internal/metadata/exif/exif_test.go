package exif

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_NoExifBlock(t *testing.T) {
	// A plain encoded JPEG carries no EXIF APP1 segment.
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	meta, err := Extract(buf.Bytes())
	assert.Error(t, err)
	assert.True(t, meta.IsZero())
}

func TestExtract_Garbage(t *testing.T) {
	meta, err := Extract([]byte("not an image at all"))
	assert.Error(t, err)
	assert.True(t, meta.IsZero())
	assert.Nil(t, meta.DateTaken)
	assert.Nil(t, meta.ISO)
}

func TestExtract_Empty(t *testing.T) {
	meta, err := Extract(nil)
	assert.Error(t, err)
	assert.True(t, meta.IsZero())
}
