//go:build property
// +build property

package binding

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/certsmith/internal/types"
)

// TestBindingProperties checks that resolution is total and placeholder-correct.
func TestBindingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Property: a present non-empty value is returned verbatim
	properties.Property("present values resolve verbatim", prop.ForAll(
		func(key, value string) bool {
			if value == "" {
				return true
			}
			return Resolve(types.Field{FieldName: key}, types.Record{key: value}) == value
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	// Property: an absent key always yields the placeholder
	properties.Property("absent keys resolve to placeholder", prop.ForAll(
		func(key, other, value string) bool {
			if key == other {
				return true
			}
			got := Resolve(types.Field{FieldName: key}, types.Record{other: value})
			return got == "{"+key+"}"
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AnyString(),
	))

	// Property: Bind preserves field count and order
	properties.Property("bind preserves order", prop.ForAll(
		func(names []string) bool {
			tpl := types.Template{}
			for i, n := range names {
				tpl.Fields = append(tpl.Fields, types.Field{ID: string(rune('a' + i%26)), FieldName: n})
			}
			bound := Bind(tpl, types.Record{})
			if len(bound) != len(names) {
				return false
			}
			for i := range bound {
				if bound[i].Field.FieldName != names[i] || bound[i].Text != Placeholder(names[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
