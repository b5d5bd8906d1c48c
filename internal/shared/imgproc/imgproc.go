// Package imgproc normalises uploaded photos before they are stored or sent
// to the vision classifier.
package imgproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var ErrUnsupported = errors.New("unsupported image format")

// Normalize decodes data, applies EXIF orientation, shrinks it to fit within
// maxW x maxH and re-encodes it. PNG stays PNG, everything else (WebP
// included) becomes JPEG.
func Normalize(data []byte, maxW, maxH int) ([]byte, string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > maxW || b.Dy() > maxH {
		img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	}

	var out bytes.Buffer
	if format == "png" {
		if err := imaging.Encode(&out, img, imaging.PNG); err != nil {
			return nil, "", fmt.Errorf("encode image: %w", err)
		}
		return out.Bytes(), "image/png", nil
	}
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	return out.Bytes(), "image/jpeg", nil
}

// Extension maps a content type produced by Normalize to a file extension.
func Extension(contentType string) string {
	if contentType == "image/png" {
		return ".png"
	}
	return ".jpg"
}
