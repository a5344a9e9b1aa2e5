package export

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/certsmith/internal/types"
)

func TestSanitize(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"certificate_John Doe.jpg", "certificate_John_Doe.jpg"},
		{"certificate_José/Smith.jpg", "certificate_Jos__Smith.jpg"},
		{"a-b_c.d", "a-b_c.d"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"名前", "__"},
		{"", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "certificate_Ada.pdf", FileName(types.Record{"name": "Ada"}, "name", 0, "pdf"))
	assert.Equal(t, "certificate_3.jpg", FileName(types.Record{"name": ""}, "name", 2, "jpg"))
	assert.Equal(t, "certificate_MIT.png", FileName(types.Record{"college": "MIT"}, "college", 0, "png"))
	assert.Equal(t, "certificate_1.jpg", FileName(nil, "name", 0, "jpg"))
}

func TestNameSetUnique(t *testing.T) {
	s := nameSet{}
	assert.Equal(t, "a.jpg", s.unique("a.jpg"))
	assert.Equal(t, "a_2.jpg", s.unique("a.jpg"))
	assert.Equal(t, "a_3.jpg", s.unique("a.jpg"))
	assert.Equal(t, "a_2_2.jpg", s.unique("a_2.jpg"))
	assert.Equal(t, "b", s.unique("b"))
	assert.Equal(t, "b_2", s.unique("b"))
}

func TestParseFormats(t *testing.T) {
	f, err := ParseFormat("document")
	assert.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	f, err = ParseFormat("JPEG")
	assert.NoError(t, err)
	assert.Equal(t, FormatJPG, f)
	_, err = ParseFormat("tiff")
	assert.Error(t, err)

	b, err := ParseBatchFormat("archive")
	assert.NoError(t, err)
	assert.Equal(t, BatchZIP, b)
	assert.Equal(t, BatchArchiveName, b.FileName())
	assert.Equal(t, "application/zip", b.MIMEType())
	_, err = ParseBatchFormat("png")
	assert.Error(t, err)
}
