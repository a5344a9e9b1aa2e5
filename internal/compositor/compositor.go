// Package compositor builds the drawable frame for one record: the template
// background plus one text layer per field with the record's values bound.
//
// A frame owns everything it holds. It never points back into the template's
// field slice or the record map, so the caller may edit either while the
// frame is being rasterized.
package compositor

import (
	"fmt"
	"image"
	"image/color"

	"github.com/conneroisu/certsmith/internal/binding"
	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/types"
)

// Frame is a fully specified drawing job.
type Frame struct {
	Dimensions types.Dimensions
	// Background may be nil, in which case only the default fill is drawn
	Background image.Image
	Layers     []TextLayer
	// Warnings lists non-fatal problems, such as unparseable colors
	Warnings []string
}

// TextLayer is one field's text, ready to draw.
type TextLayer struct {
	FieldID    string
	FieldName  string
	Text       string
	Missing    bool
	X          float64
	Y          float64
	FontSize   float64
	FontFamily string
	Color      color.NRGBA
	Align      types.Align
}

// Compose binds record into t and returns the resulting frame. The frame has
// one layer per field, in field order. Coordinates are copied as-is.
func Compose(t types.Template, record types.Record, bg image.Image) (*Frame, error) {
	dims := t.Dimensions()
	if !dims.Valid() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidTemplate,
			fmt.Sprintf("template dimensions must be positive, got %s", dims))
	}

	bound := binding.Bind(t, record)
	frame := &Frame{
		Dimensions: dims,
		Background: bg,
		Layers:     make([]TextLayer, 0, len(bound)),
	}

	for _, b := range bound {
		c, err := ParseColor(b.Field.Color)
		if err != nil {
			frame.Warnings = append(frame.Warnings, fmt.Sprintf("field %s: %v, using black", b.Field.FieldName, err))
			c = color.NRGBA{A: 0xff}
		}
		align := b.Field.Align
		if !align.Valid() {
			align = types.AlignLeft
		}
		frame.Layers = append(frame.Layers, TextLayer{
			FieldID:    b.Field.ID,
			FieldName:  b.Field.FieldName,
			Text:       b.Text,
			Missing:    b.Missing,
			X:          b.Field.X,
			Y:          b.Field.Y,
			FontSize:   b.Field.FontSize,
			FontFamily: b.Field.FontFamily,
			Color:      c,
			Align:      align,
		})
	}
	return frame, nil
}
