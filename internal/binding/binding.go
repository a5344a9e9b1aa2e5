// Package binding resolves template fields against a single record.
//
// A field whose key is missing from the record, or whose value is empty,
// resolves to the literal placeholder "{fieldName}" so an unbound field is
// visible on the rendered certificate instead of silently disappearing.
package binding

import "github.com/conneroisu/certsmith/internal/types"

// BoundField is a field together with the text it resolved to.
type BoundField struct {
	Field types.Field
	Text  string
	// Missing is true when Text is the placeholder
	Missing bool
}

// Placeholder returns the text shown for an unbound field name.
func Placeholder(fieldName string) string {
	return "{" + fieldName + "}"
}

// Resolve returns the record value for the field, or its placeholder.
func Resolve(field types.Field, record types.Record) string {
	text, _ := lookup(field, record)
	return text
}

// Bind resolves every field of t in template order.
func Bind(t types.Template, record types.Record) []BoundField {
	bound := make([]BoundField, 0, len(t.Fields))
	for _, f := range t.Fields {
		text, ok := lookup(f, record)
		bound = append(bound, BoundField{Field: f, Text: text, Missing: !ok})
	}
	return bound
}

// Misses lists the field names of t that fell back to their placeholder,
// in template order and without duplicates.
func Misses(t types.Template, record types.Record) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, f := range t.Fields {
		if _, ok := lookup(f, record); ok || seen[f.FieldName] {
			continue
		}
		seen[f.FieldName] = true
		missing = append(missing, f.FieldName)
	}
	return missing
}

func lookup(field types.Field, record types.Record) (string, bool) {
	if v := record[field.FieldName]; v != "" {
		return v, true
	}
	return Placeholder(field.FieldName), false
}
