package export

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

// JPEGQuality is used for every JPEG the exports write.
const JPEGQuality = 95

// ToJPEG flattens a transparent PNG onto white and encodes it as JPEG.
func ToJPEG(pngData []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode png")
	}
	b := src.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	flat := imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode jpeg")
	}
	return buf.Bytes(), nil
}

// Thumbnail downsizes a PNG to width pixels, keeping the aspect ratio.
// Images already narrower than width are returned unchanged.
func Thumbnail(pngData []byte, width int) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode png")
	}
	if width <= 0 || src.Bounds().Dx() <= width {
		return pngData, nil
	}
	dst := imaging.Resize(src, width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}
