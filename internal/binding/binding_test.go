package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/certsmith/internal/types"
)

func TestResolve(t *testing.T) {
	field := types.Field{ID: "f1", FieldName: "name"}

	testCases := []struct {
		name     string
		record   types.Record
		expected string
	}{
		{"present", types.Record{"name": "Ada"}, "Ada"},
		{"absent", types.Record{"college": "MIT"}, "{name}"},
		{"empty value", types.Record{"name": ""}, "{name}"},
		{"nil record", nil, "{name}"},
		{"whitespace kept", types.Record{"name": "  Ada "}, "  Ada "},
		{"unicode", types.Record{"name": "José"}, "José"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Resolve(field, tc.record))
		})
	}
}

func TestResolveDoesNotMutateRecord(t *testing.T) {
	record := types.Record{"college": "MIT"}
	_ = Resolve(types.Field{FieldName: "name"}, record)
	assert.Equal(t, types.Record{"college": "MIT"}, record)
}

func TestBindAndMisses(t *testing.T) {
	tpl := types.Template{Fields: []types.Field{
		{ID: "1", FieldName: "name"},
		{ID: "2", FieldName: "date"},
		{ID: "3", FieldName: "name"},
		{ID: "4", FieldName: "college"},
	}}
	record := types.Record{"name": "Jane Smith", "college": ""}

	bound := Bind(tpl, record)
	require.Len(t, bound, 4)
	assert.Equal(t, "Jane Smith", bound[0].Text)
	assert.False(t, bound[0].Missing)
	assert.Equal(t, "{date}", bound[1].Text)
	assert.True(t, bound[1].Missing)
	assert.Equal(t, "Jane Smith", bound[2].Text, "duplicate field names resolve to the same value")
	assert.Equal(t, "3", bound[2].Field.ID)
	assert.Equal(t, "{college}", bound[3].Text)

	assert.Equal(t, []string{"date", "college"}, Misses(tpl, record))
	assert.Empty(t, Misses(tpl, types.Record{"name": "a", "date": "b", "college": "c"}))
}
