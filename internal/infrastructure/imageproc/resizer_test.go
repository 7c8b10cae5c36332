package imageproc

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

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResizer_AlwaysProducesFixedCanvas(t *testing.T) {
	r := NewAvatarResizer()

	for _, tc := range []struct {
		name string
		w, h int
	}{
		{"square", 600, 600},
		{"wide", 1200, 300},
		{"tall", 40, 900},
		{"tiny", 1, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, r.Transform(bytes.NewReader(pngBytes(t, tc.w, tc.h)), &out, ".png"))

			img, format, err := image.Decode(&out)
			require.NoError(t, err)
			assert.Equal(t, "png", format)
			assert.Equal(t, AvatarSize, img.Bounds().Dx())
			assert.Equal(t, AvatarSize, img.Bounds().Dy())
		})
	}
}

func TestResizer_EncodesJPEG(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewAvatarResizer().Transform(bytes.NewReader(pngBytes(t, 320, 200)), &out, ".jpg"))

	img, err := jpeg.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(AvatarSize, AvatarSize), img.Bounds().Size())
}

func TestResizer_RejectsNonImage(t *testing.T) {
	var out bytes.Buffer
	err := NewAvatarResizer().Transform(bytes.NewReader([]byte("definitely not an image")), &out, ".png")
	assert.Error(t, err)
	assert.Zero(t, out.Len())
}

func TestResizer_OutputExt(t *testing.T) {
	r := NewAvatarResizer()
	assert.Equal(t, ".jpg", r.OutputExt(".jpg"))
	assert.Equal(t, ".jpeg", r.OutputExt(".jpeg"))
	assert.Equal(t, ".png", r.OutputExt(".png"))
	assert.Equal(t, ".png", r.OutputExt(".heic"))
	assert.Equal(t, ".png", r.OutputExt(""))
}
