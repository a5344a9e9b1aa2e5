// Package targets packages rasterized certificates into output files: a
// single image, a paginated PDF document or a ZIP archive.
package targets

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/conneroisu/certsmith/internal/errors"
)

// Encoding qualities used when none is configured.
const (
	DefaultImageQuality    = 85
	DefaultDocumentQuality = 80
)

// ImageFormat is an encoded raster format.
type ImageFormat string

const (
	JPEG ImageFormat = "jpg"
	PNG  ImageFormat = "png"
)

// ParseImageFormat accepts jpg, jpeg and png in any case.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported image format %q (use jpg or png)", s))
	}
}

// Extension returns the file extension without the dot.
func (f ImageFormat) Extension() string {
	return string(f)
}

// MIMEType returns the media type of the format.
func (f ImageFormat) MIMEType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// EncodeImage writes img in the given format. Quality applies to JPEG only
// and is clamped to 1..100; zero selects DefaultImageQuality.
func EncodeImage(w io.Writer, img image.Image, format ImageFormat, quality int) error {
	var err error
	switch format {
	case JPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(clampQuality(quality, DefaultImageQuality)))
	case PNG:
		err = imaging.Encode(w, img, imaging.PNG)
	default:
		return errors.NewValidationError(errors.ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported image format %q", format))
	}
	if err != nil {
		return errors.WrapEncode(err, "failed to encode "+string(format))
	}
	return nil
}

// EncodeImageBytes is EncodeImage into a new buffer.
func EncodeImageBytes(img image.Image, format ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeImage(&buf, img, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clampQuality(q, def int) int {
	switch {
	case q == 0:
		return def
	case q < 1:
		return 1
	case q > 100:
		return 100
	default:
		return q
	}
}
