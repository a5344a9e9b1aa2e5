package targets

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/types"
)

// Document is a paginated PDF whose pages all share the certificate size.
// One template pixel maps to one PDF point.
type Document struct {
	pdf     *gofpdf.Fpdf
	dims    types.Dimensions
	quality int
	pages   int
}

// NewDocument creates an empty document sized to dims. Pages are landscape
// when dims is wider than tall.
func NewDocument(dims types.Dimensions, quality int) (*Document, error) {
	if !dims.Valid() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidTemplate,
			fmt.Sprintf("document page size must be positive, got %s", dims))
	}

	orientation, size := pageSetup(dims)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           size,
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	pdf.SetCreator("certsmith", true)

	return &Document{
		pdf:     pdf,
		dims:    dims,
		quality: clampQuality(quality, DefaultDocumentQuality),
	}, nil
}

// pageSetup returns the gofpdf orientation and base size for dims. gofpdf
// swaps the base size for landscape pages, so the sides are passed swapped.
func pageSetup(dims types.Dimensions) (string, gofpdf.SizeType) {
	w, h := float64(dims.Width), float64(dims.Height)
	if dims.Landscape() {
		return "L", gofpdf.SizeType{Wd: h, Ht: w}
	}
	return "P", gofpdf.SizeType{Wd: w, Ht: h}
}

// Orientation reports "L" or "P".
func (d *Document) Orientation() string {
	o, _ := pageSetup(d.dims)
	return o
}

// AddPage appends a page holding img stretched to the full page.
func (d *Document) AddPage(img image.Image) error {
	data, err := EncodeImageBytes(img, JPEG, d.quality)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("page-%d", d.pages+1)
	opt := gofpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}

	d.pdf.AddPage()
	d.pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(data))
	d.pdf.ImageOptions(name, 0, 0, float64(d.dims.Width), float64(d.dims.Height), false, opt, 0, "")
	if err := d.pdf.Error(); err != nil {
		return errors.WrapEncode(err, fmt.Sprintf("failed to add page %d", d.pages+1))
	}
	d.pages++
	return nil
}

// Pages returns the number of pages added so far.
func (d *Document) Pages() int {
	return d.pages
}

// Encode writes the finished document. It may be called once.
func (d *Document) Encode(w io.Writer) error {
	if d.pages == 0 {
		return errors.NewValidationError(errors.ErrCodeEncode, "document has no pages")
	}
	if err := d.pdf.Output(w); err != nil {
		return errors.WrapEncode(err, "failed to write PDF")
	}
	return nil
}
