// Package types provides common type definitions used throughout certsmith.
// This package contains shared types to avoid circular dependencies between packages.
package types

import (
	"fmt"
	"strings"
)

// Align is the horizontal anchoring of a field's text relative to its X coordinate.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Valid reports whether a is one of the supported alignments.
func (a Align) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	default:
		return false
	}
}

// ParseAlign parses an alignment name case-insensitively.
func ParseAlign(s string) (Align, error) {
	a := Align(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("invalid alignment %q (must be left, center or right)", s)
	}
	return a, nil
}

// Field is one positioned, styled text placeholder bound to a record key.
type Field struct {
	// ID is unique within the owning template
	ID string `json:"id" yaml:"id"`
	// FieldName is the join key against record data; duplicates are allowed
	FieldName string `json:"fieldName" yaml:"field_name"`
	// X and Y position the text in template pixels and are never clamped
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	// FontSize is the text size in pixels, always > 0
	FontSize   float64 `json:"fontSize" yaml:"font_size"`
	FontFamily string  `json:"fontFamily" yaml:"font_family"`
	// Color is a CSS-style color string such as "#000000"
	Color string `json:"color" yaml:"color"`
	Align Align  `json:"align" yaml:"align"`
}

// Template is the reusable layout definition: a background plus field placements.
type Template struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	BackgroundRef string  `json:"backgroundRef" yaml:"background"`
	Width         int     `json:"width" yaml:"width"`
	Height        int     `json:"height" yaml:"height"`
	Fields        []Field `json:"fields" yaml:"fields"`
}

// Dimensions returns the canvas size of the template.
func (t Template) Dimensions() Dimensions {
	return Dimensions{Width: t.Width, Height: t.Height}
}

// FieldByID returns the field with the given id.
func (t Template) FieldByID(id string) (Field, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Record is one recipient's data, a flat string-keyed mapping.
type Record map[string]string

// Dimensions is a pixel size.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both sides are positive.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// Landscape reports whether the canvas is wider than it is tall.
func (d Dimensions) Landscape() bool {
	return d.Width > d.Height
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}
