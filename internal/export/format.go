package export

import (
	"fmt"
	"strings"

	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/targets"
)

// Format is the output of a single-certificate export.
type Format string

const (
	FormatJPG Format = "jpg"
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts jpg, jpeg, png and pdf, plus "image" (jpg) and
// "document" (pdf).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg", "image":
		return FormatJPG, nil
	case "png":
		return FormatPNG, nil
	case "pdf", "document":
		return FormatPDF, nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported format %q (use jpg, png or pdf)", s))
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// MIMEType returns the media type of the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	default:
		return "image/jpeg"
	}
}

func (f Format) imageFormat() targets.ImageFormat {
	if f == FormatPNG {
		return targets.PNG
	}
	return targets.JPEG
}

// BatchFormat is the output of a whole-batch export.
type BatchFormat string

const (
	BatchPDF BatchFormat = "pdf"
	BatchZIP BatchFormat = "zip"
)

// ParseBatchFormat accepts pdf and zip, plus "document" and "archive".
func ParseBatchFormat(s string) (BatchFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf", "document":
		return BatchPDF, nil
	case "zip", "archive":
		return BatchZIP, nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported batch format %q (use pdf or zip)", s))
	}
}

// FileName returns the name of the batch artifact.
func (f BatchFormat) FileName() string {
	if f == BatchZIP {
		return BatchArchiveName
	}
	return BatchDocumentName
}

// MIMEType returns the media type of the batch artifact.
func (f BatchFormat) MIMEType() string {
	if f == BatchZIP {
		return "application/zip"
	}
	return "application/pdf"
}
