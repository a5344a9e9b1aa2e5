// Package designer implements the template model operations used while a
// certificate layout is being designed.
//
// Every operation is pure: it returns a new types.Template whose field
// slice never aliases the input's, so a template handed to the export
// pipeline cannot be changed behind its back by later edits. Edits that
// reference an unknown field id are no-ops rather than errors, because a
// stale reference must not crash an editing session.
package designer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/types"
)

// Designer defaults for new templates and fields.
const (
	DefaultTemplateName = "New Template"
	DefaultFieldX       = 100
	DefaultFieldY       = 100
	DefaultFontSize     = 32
	DefaultFontFamily   = "Arial"
	DefaultColor        = "#000000"
	DefaultAlign        = types.AlignCenter
)

// newID generates template and field identifiers. Tests replace it.
var newID = uuid.NewString

// FieldUpdate is a partial update of a field; nil members are left unchanged.
type FieldUpdate struct {
	FieldName  *string
	X          *float64
	Y          *float64
	FontSize   *float64
	FontFamily *string
	Color      *string
	Align      *types.Align
}

// Empty reports whether the update changes nothing.
func (u FieldUpdate) Empty() bool {
	return u.FieldName == nil && u.X == nil && u.Y == nil && u.FontSize == nil &&
		u.FontFamily == nil && u.Color == nil && u.Align == nil
}

// Ptr returns a pointer to v, for building FieldUpdate literals.
func Ptr[T any](v T) *T {
	return &v
}

// CreateFromBackground starts a template from a background reference and the
// image's natural pixel size.
func CreateFromBackground(ref string, dims types.Dimensions) (types.Template, error) {
	if strings.TrimSpace(ref) == "" {
		return types.Template{}, errors.NewValidationError(errors.ErrCodeInvalidTemplate, "background reference is required")
	}
	if !dims.Valid() {
		return types.Template{}, errors.NewValidationError(errors.ErrCodeInvalidTemplate,
			fmt.Sprintf("background dimensions must be positive, got %s", dims))
	}

	return types.Template{
		ID:            newID(),
		Name:          DefaultTemplateName,
		BackgroundRef: ref,
		Width:         dims.Width,
		Height:        dims.Height,
		Fields:        []types.Field{},
	}, nil
}

// ReplaceBackground swaps the background of an existing template, keeping its
// identity, name and fields.
func ReplaceBackground(t types.Template, ref string, dims types.Dimensions) (types.Template, error) {
	next, err := CreateFromBackground(ref, dims)
	if err != nil {
		return t, err
	}
	next.ID = t.ID
	if t.Name != "" {
		next.Name = t.Name
	}
	next.Fields = cloneFields(t.Fields)
	return next, nil
}

// Clone returns a deep copy of t.
func Clone(t types.Template) types.Template {
	t.Fields = cloneFields(t.Fields)
	return t
}

// AddField appends a field with designer defaults.
func AddField(t types.Template) types.Template {
	next := Clone(t)
	next.Fields = append(next.Fields, types.Field{
		ID:         newID(),
		FieldName:  fmt.Sprintf("field_%d", len(t.Fields)+1),
		X:          DefaultFieldX,
		Y:          DefaultFieldY,
		FontSize:   DefaultFontSize,
		FontFamily: DefaultFontFamily,
		Color:      DefaultColor,
		Align:      DefaultAlign,
	})
	return next
}

// UpdateField applies a partial update to the field with the given id.
func UpdateField(t types.Template, fieldID string, update FieldUpdate) types.Template {
	next := Clone(t)
	for i := range next.Fields {
		if next.Fields[i].ID == fieldID {
			applyUpdate(&next.Fields[i], update)
		}
	}
	return next
}

// MoveField repositions a field; it is UpdateField restricted to coordinates.
func MoveField(t types.Template, fieldID string, x, y float64) types.Template {
	return UpdateField(t, fieldID, FieldUpdate{X: &x, Y: &y})
}

// RemoveField drops the field with the given id.
func RemoveField(t types.Template, fieldID string) types.Template {
	next := Clone(t)
	kept := make([]types.Field, 0, len(next.Fields))
	for _, f := range next.Fields {
		if f.ID != fieldID {
			kept = append(kept, f)
		}
	}
	next.Fields = kept
	return next
}

// Validate checks the invariants a template must satisfy before export.
func Validate(t types.Template) error {
	var vec errors.ValidationErrorCollection

	if t.Width <= 0 {
		vec.Add("width", fmt.Sprintf("must be positive, got %d", t.Width))
	}
	if t.Height <= 0 {
		vec.Add("height", fmt.Sprintf("must be positive, got %d", t.Height))
	}
	if strings.TrimSpace(t.BackgroundRef) == "" {
		vec.Add("background", "is required")
	}

	seen := make(map[string]bool, len(t.Fields))
	for i, f := range t.Fields {
		name := fmt.Sprintf("fields[%d]", i)
		if f.ID == "" {
			vec.Add(name+".id", "is required")
		} else if seen[f.ID] {
			vec.Add(name+".id", fmt.Sprintf("duplicate id %q", f.ID))
		}
		seen[f.ID] = true

		if f.FontSize <= 0 {
			vec.Add(name+".font_size", fmt.Sprintf("must be positive, got %g", f.FontSize))
		}
		if !f.Align.Valid() {
			vec.Add(name+".align", fmt.Sprintf("invalid alignment %q", f.Align))
		}
	}

	if err := vec.ToCertError(errors.ErrCodeInvalidTemplate); err != nil {
		return err
	}
	return nil
}

func applyUpdate(f *types.Field, u FieldUpdate) {
	if u.FieldName != nil {
		f.FieldName = *u.FieldName
	}
	if u.X != nil {
		f.X = *u.X
	}
	if u.Y != nil {
		f.Y = *u.Y
	}
	if u.FontSize != nil {
		f.FontSize = *u.FontSize
	}
	if u.FontFamily != nil {
		f.FontFamily = *u.FontFamily
	}
	if u.Color != nil {
		f.Color = *u.Color
	}
	if u.Align != nil {
		f.Align = *u.Align
	}
}

func cloneFields(fields []types.Field) []types.Field {
	out := make([]types.Field, len(fields))
	copy(out, fields)
	return out
}
