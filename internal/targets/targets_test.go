package targets

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/certsmith/internal/types"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	return img
}

func TestParseImageFormat(t *testing.T) {
	for in, want := range map[string]ImageFormat{"jpg": JPEG, "JPEG": JPEG, " png ": PNG} {
		got, err := ParseImageFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseImageFormat("gif")
	assert.Error(t, err)
	assert.Equal(t, "image/png", PNG.MIMEType())
	assert.Equal(t, "jpg", JPEG.Extension())
}

func TestEncodeImage(t *testing.T) {
	img := testImage(64, 48)

	data, err := EncodeImageBytes(img, JPEG, 0)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)

	data, err = EncodeImageBytes(img, PNG, 0)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	_, err = EncodeImageBytes(img, ImageFormat("bmp"), 0)
	assert.Error(t, err)
}

func TestJPEGQualityAffectsSize(t *testing.T) {
	img := testImage(128, 128)
	low, err := EncodeImageBytes(img, JPEG, 10)
	require.NoError(t, err)
	high, err := EncodeImageBytes(img, JPEG, 100)
	require.NoError(t, err)
	assert.Less(t, len(low), len(high))
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, 85, clampQuality(0, 85))
	assert.Equal(t, 1, clampQuality(-5, 85))
	assert.Equal(t, 100, clampQuality(400, 85))
	assert.Equal(t, 60, clampQuality(60, 85))
}

func TestDocumentPages(t *testing.T) {
	dims := types.Dimensions{Width: 800, Height: 600}
	doc, err := NewDocument(dims, 0)
	require.NoError(t, err)
	assert.Equal(t, "L", doc.Orientation())

	for i := 0; i < 3; i++ {
		require.NoError(t, doc.AddPage(testImage(80, 60)))
	}
	assert.Equal(t, 3, doc.Pages())

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
	assert.Equal(t, 3, strings.Count(out, "<</Type /Page\n"))
	assert.Contains(t, out, "/MediaBox [0 0 800.00 600.00]")
}

func TestDocumentPortrait(t *testing.T) {
	doc, err := NewDocument(types.Dimensions{Width: 600, Height: 800}, 0)
	require.NoError(t, err)
	assert.Equal(t, "P", doc.Orientation())
	require.NoError(t, doc.AddPage(testImage(6, 8)))

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	assert.Contains(t, buf.String(), "/MediaBox [0 0 600.00 800.00]")
}

func TestDocumentErrors(t *testing.T) {
	_, err := NewDocument(types.Dimensions{Width: 0, Height: 10}, 0)
	assert.Error(t, err)

	doc, err := NewDocument(types.Dimensions{Width: 10, Height: 10}, 0)
	require.NoError(t, err)
	assert.Error(t, doc.Encode(io.Discard), "empty documents are not written")
}

func TestArchive(t *testing.T) {
	a := NewArchive()
	require.NoError(t, a.Add("certificate_John_Doe.jpg", []byte("one")))
	require.NoError(t, a.Add("certificate_2.jpg", []byte("two")))
	assert.Error(t, a.Add("certificate_2.jpg", []byte("dup")))
	assert.Error(t, a.Add("../escape.jpg", nil))
	assert.Error(t, a.Add("", nil))
	assert.Equal(t, 2, a.Len())

	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	contents := map[string]string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(data)
	}
	assert.Equal(t, []string{"certificates/", "certificates/certificate_John_Doe.jpg", "certificates/certificate_2.jpg"}, names)
	assert.Equal(t, "one", contents["certificates/certificate_John_Doe.jpg"])
	assert.Equal(t, "two", contents["certificates/certificate_2.jpg"])
}
