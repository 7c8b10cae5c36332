package imageproc

import (
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// AvatarSize is the fixed avatar canvas edge in pixels.
const AvatarSize = 250

// Resizer stretches any decodable image onto a fixed Width x Height canvas.
// Aspect ratio is not preserved.
type Resizer struct {
	Width   int
	Height  int
	Quality int // JPEG quality
}

func NewAvatarResizer() *Resizer {
	return &Resizer{Width: AvatarSize, Height: AvatarSize, Quality: 85}
}

// OutputExt keeps encodable extensions and falls back to .png for the rest.
func (r *Resizer) OutputExt(ext string) string {
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		return ".png"
	}
	return ext
}

func (r *Resizer) Transform(src io.Reader, dst io.Writer, ext string) error {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	resized := imaging.Resize(img, r.Width, r.Height, imaging.Lanczos)

	format, err := imaging.FormatFromExtension(r.OutputExt(ext))
	if err != nil {
		return err
	}
	if err := imaging.Encode(dst, resized, format, imaging.JPEGQuality(r.Quality)); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}
