package cmd

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/certsmith/internal/designer"
	"github.com/conneroisu/certsmith/internal/records"
	"github.com/conneroisu/certsmith/internal/types"
)

const testTemplate = `id: tpl-1
name: Course completion
background: bg.png
width: 200
height: 100
fields:
  - id: f-name
    field_name: name
    x: 100
    y: 30
    font_size: 16
    font_family: Arial
    color: "#000000"
    align: center
`

const testRecords = `name,designation,college,date
John Doe,Software Engineer,MIT,2024-01-15
Jane Smith,Data Scientist,Stanford,2024-01-15
Mike Johnson,Product Manager,Harvard,2024-01-15
`

// workspace writes a background, a template and a record file into a
// temporary directory and points configuration at it.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	bg := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			bg.Set(x, y, color.NRGBA{R: 250, G: 245, B: 230, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, bg))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bg.png"), buf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "template.yaml"), []byte(testTemplate), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.csv"), []byte(testRecords), 0o644))

	viper.Reset()
	viper.Set("export.output_dir", filepath.Join(dir, "out"))
	viper.Set("log.level", "error")
	t.Cleanup(viper.Reset)
	return dir
}

func capture(t *testing.T, c *cobra.Command) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	t.Cleanup(func() {
		c.SetOut(nil)
		c.SetErr(nil)
	})
	return &out
}

func TestSampleCommand(t *testing.T) {
	dir := workspace(t)

	t.Run("writes file", func(t *testing.T) {
		out := capture(t, sampleCmd)
		sampleOutput = filepath.Join(dir, records.SampleFileName)
		require.NoError(t, runSample(sampleCmd, nil))

		recs, err := records.LoadFile(sampleOutput)
		require.NoError(t, err)
		assert.Len(t, recs, 3)
		assert.Contains(t, out.String(), "3 records")
	})

	t.Run("stdout", func(t *testing.T) {
		out := capture(t, sampleCmd)
		sampleOutput = "-"
		require.NoError(t, runSample(sampleCmd, nil))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "name,designation,college,date", lines[0])
		assert.Equal(t, "John Doe,Software Engineer,MIT,2024-01-15", lines[1])
	})
}

func TestRecordsCommand(t *testing.T) {
	dir := workspace(t)
	path := filepath.Join(dir, "people.csv")

	t.Run("table", func(t *testing.T) {
		out := capture(t, recordsCmd)
		require.NoError(t, recordsOutput.Set("table"))
		require.NoError(t, runRecords(recordsCmd, []string{path}))

		text := out.String()
		assert.Contains(t, text, "name")
		assert.Contains(t, text, "Jane Smith")
		assert.Contains(t, text, "Showing 3 of 3 records")
	})

	t.Run("json", func(t *testing.T) {
		out := capture(t, recordsCmd)
		require.NoError(t, recordsOutput.Set("json"))
		t.Cleanup(func() { _ = recordsOutput.Set("table") })
		require.NoError(t, runRecords(recordsCmd, []string{path}))

		var summary recordsSummary
		require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
		assert.Equal(t, 3, summary.Count)
		assert.Equal(t, []string{"name", "designation", "college", "date"}, summary.Headers)
		require.Len(t, summary.Preview, 3)
		assert.Equal(t, "Mike Johnson", summary.Preview[2]["name"])
	})

	t.Run("missing file", func(t *testing.T) {
		capture(t, recordsCmd)
		err := runRecords(recordsCmd, []string{filepath.Join(dir, "nope.csv")})
		assert.Error(t, err)
	})
}

func TestInitCommand(t *testing.T) {
	dir := workspace(t)
	out := capture(t, initCmd)

	initOutput = filepath.Join(dir, "designs", "diploma.yaml")
	initName = "Diploma"
	initForce = false
	t.Cleanup(func() { initOutput, initName = "template.yaml", "" })

	require.NoError(t, os.MkdirAll(filepath.Dir(initOutput), 0o755))
	require.NoError(t, runInit(initCmd, []string{filepath.Join(dir, "bg.png")}))
	assert.Contains(t, out.String(), "200x100")

	tpl, err := designer.Load(initOutput)
	require.NoError(t, err)
	assert.Equal(t, "Diploma", tpl.Name)
	assert.Equal(t, 200, tpl.Width)
	assert.Equal(t, 100, tpl.Height)
	assert.Equal(t, "../bg.png", tpl.BackgroundRef)
	assert.Empty(t, tpl.Fields)

	err = runInit(initCmd, []string{filepath.Join(dir, "bg.png")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestBackgroundCommand(t *testing.T) {
	dir := workspace(t)
	out := capture(t, backgroundCmd)
	backgroundTemplate = filepath.Join(dir, "template.yaml")
	t.Cleanup(func() { backgroundTemplate = "template.yaml" })

	wide := image.NewNRGBA(image.Rect(0, 0, 300, 150))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, wide))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "art"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "art", "wide.png"), buf.Bytes(), 0o644))

	require.NoError(t, runBackground(backgroundCmd, []string{filepath.Join(dir, "art", "wide.png")}))
	assert.Contains(t, out.String(), "200x100 -> 300x150")

	tpl, err := designer.Load(backgroundTemplate)
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", tpl.ID)
	assert.Equal(t, "Course completion", tpl.Name)
	assert.Equal(t, "art/wide.png", tpl.BackgroundRef)
	assert.Equal(t, 300, tpl.Width)
	assert.Equal(t, 150, tpl.Height)
	require.Len(t, tpl.Fields, 1)
	assert.Equal(t, "f-name", tpl.Fields[0].ID)
	assert.Equal(t, 100.0, tpl.Fields[0].X)

	err = runBackground(backgroundCmd, []string{filepath.Join(dir, "missing.png")})
	assert.Error(t, err)
}

func TestFontsCommand(t *testing.T) {
	workspace(t)

	t.Run("families", func(t *testing.T) {
		out := capture(t, fontsCmd)
		require.NoError(t, runFonts(fontsCmd, nil))
		assert.Contains(t, out.String(), "FAMILY")
		assert.Contains(t, out.String(), "go mono bold")
	})

	t.Run("resolve", func(t *testing.T) {
		out := capture(t, fontsCmd)
		require.NoError(t, fontsOutput.Set("json"))
		t.Cleanup(func() { _ = fontsOutput.Set("table") })

		require.NoError(t, runFonts(fontsCmd, []string{"Arial", `"Courier New", monospace`, "Papyrus"}))
		var got []fontResolution
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, []fontResolution{
			{Requested: "Arial", Family: "go"},
			{Requested: `"Courier New", monospace`, Family: "go mono"},
			{Requested: "Papyrus", Family: "go", Fallback: true},
		}, got)
	})
}

func TestRelativeRef(t *testing.T) {
	assert.Equal(t, "https://example.com/bg.png", relativeRef("t.yaml", "https://example.com/bg.png"))
	assert.Equal(t, "data:image/png;base64,AAAA", relativeRef("t.yaml", "data:image/png;base64,AAAA"))
	assert.Equal(t, "bg.png", relativeRef("t.yaml", "bg.png"))
	assert.Equal(t, "../bg.png", relativeRef(filepath.Join("designs", "t.yaml"), "bg.png"))
}

func TestFieldCommands(t *testing.T) {
	dir := workspace(t)
	fieldTemplate = filepath.Join(dir, "template.yaml")
	t.Cleanup(func() { fieldTemplate = "template.yaml" })

	load := func() types.Template {
		tpl, err := designer.Load(fieldTemplate)
		require.NoError(t, err)
		return tpl
	}

	out := capture(t, fieldAddCmd)
	require.NoError(t, runFieldAdd(fieldAddCmd, nil))
	assert.Contains(t, out.String(), "Added field")

	tpl := load()
	require.Len(t, tpl.Fields, 2)
	added := tpl.Fields[1]
	assert.Equal(t, float64(designer.DefaultFontSize), added.FontSize)
	assert.Equal(t, designer.DefaultAlign, added.Align)

	capture(t, fieldMoveCmd)
	require.NoError(t, runFieldMove(fieldMoveCmd, []string{added.ID, "12.5", "80"}))
	moved, ok := load().FieldByID(added.ID)
	require.True(t, ok)
	assert.Equal(t, 12.5, moved.X)
	assert.Equal(t, 80.0, moved.Y)

	capture(t, fieldUpdateCmd)
	require.NoError(t, fieldUpdateCmd.Flags().Set("name", "college"))
	require.NoError(t, fieldUpdateCmd.Flags().Set("align", "right"))
	require.NoError(t, runFieldUpdate(fieldUpdateCmd, []string{added.ID}))
	updated, ok := load().FieldByID(added.ID)
	require.True(t, ok)
	assert.Equal(t, "college", updated.FieldName)
	assert.Equal(t, types.AlignRight, updated.Align)
	assert.Equal(t, 12.5, updated.X, "unset flags leave the field unchanged")

	listOut := capture(t, fieldListCmd)
	require.NoError(t, fieldOutput.Set("json"))
	t.Cleanup(func() { _ = fieldOutput.Set("table") })
	require.NoError(t, runFieldList(fieldListCmd, nil))
	var fields []types.Field
	require.NoError(t, json.Unmarshal(listOut.Bytes(), &fields))
	require.Len(t, fields, 2)
	assert.Equal(t, "f-name", fields[0].ID)

	removeOut := capture(t, fieldRemoveCmd)
	require.NoError(t, runFieldRemove(fieldRemoveCmd, []string{"f-name"}))
	require.NoError(t, runFieldRemove(fieldRemoveCmd, []string{"f-missing"}))
	assert.Contains(t, removeOut.String(), "No field with id f-missing")
	remaining := load().Fields
	require.Len(t, remaining, 1)
	assert.Equal(t, added.ID, remaining[0].ID)
}

func TestFieldMoveRejectsBadCoordinates(t *testing.T) {
	workspace(t)
	capture(t, fieldMoveCmd)
	err := runFieldMove(fieldMoveCmd, []string{"f-name", "left", "10"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid x")
}

func TestExportCommand(t *testing.T) {
	dir := workspace(t)
	exportTemplate = filepath.Join(dir, "template.yaml")
	exportData = filepath.Join(dir, "people.csv")
	exportQuiet = true
	t.Cleanup(func() {
		exportTemplate, exportData = "template.yaml", ""
		exportIndex, exportAll, exportQuiet = 0, false, false
		exportFormat = newEnum("", "jpg", "jpeg", "png", "pdf", "zip")
	})
	outDir := filepath.Join(dir, "out")

	t.Run("one record", func(t *testing.T) {
		out := capture(t, exportCmd)
		exportIndex, exportAll = 1, false
		require.NoError(t, exportFormat.Set("png"))
		require.NoError(t, runExport(exportCmd, nil))

		data, err := os.ReadFile(filepath.Join(outDir, "certificate_Jane_Smith.png"))
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())
		assert.Contains(t, out.String(), "1 certificate(s)")
	})

	t.Run("archive format leaves single exports alone", func(t *testing.T) {
		capture(t, exportCmd)
		viper.Set("export.archive_format", "png")
		t.Cleanup(func() { viper.Set("export.archive_format", "") })
		exportIndex, exportAll = 0, false
		exportFormat = newEnum("", "jpg", "jpeg", "png", "pdf", "zip")
		require.NoError(t, runExport(exportCmd, nil))

		_, err := os.Stat(filepath.Join(outDir, "certificate_John_Doe.jpg"))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(outDir, "certificate_John_Doe.png"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("batch archive", func(t *testing.T) {
		capture(t, exportCmd)
		exportAll = true
		require.NoError(t, exportFormat.Set("zip"))
		require.NoError(t, runExport(exportCmd, nil))

		zr, err := zip.OpenReader(filepath.Join(outDir, "certificates_all.zip"))
		require.NoError(t, err)
		defer zr.Close()
		assert.Len(t, zr.File, 3)
	})

	t.Run("index out of range", func(t *testing.T) {
		capture(t, exportCmd)
		exportIndex, exportAll = 7, false
		require.NoError(t, exportFormat.Set("pdf"))
		assert.Error(t, runExport(exportCmd, nil))
	})
}

func TestExportReportsProgress(t *testing.T) {
	dir := workspace(t)
	exportTemplate = filepath.Join(dir, "template.yaml")
	exportData = ""
	exportAll = true
	exportQuiet = false
	exportFormat = newEnum("", "jpg", "jpeg", "png", "pdf", "zip")
	t.Cleanup(func() {
		exportTemplate = "template.yaml"
		exportAll = false
	})

	out := capture(t, exportCmd)
	require.NoError(t, runExport(exportCmd, nil))

	text := out.String()
	assert.Contains(t, text, "[100%] done 3/3")
	assert.Contains(t, text, "certificates_all.pdf")
	_, err := os.Stat(filepath.Join(dir, "out", "certificates_all.pdf"))
	assert.NoError(t, err)
}

func TestVersionCommand(t *testing.T) {
	out := capture(t, versionCmd)
	versionShort = true
	t.Cleanup(func() { versionShort = false })
	require.NoError(t, runVersionCommand(versionCmd, nil))
	assert.NotEmpty(t, strings.TrimSpace(out.String()))

	out.Reset()
	versionShort = false
	require.NoError(t, versionFormat.Set("json"))
	t.Cleanup(func() { _ = versionFormat.Set("text") })
	require.NoError(t, runVersionCommand(versionCmd, nil))
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "platform")
}

func TestEnumValue(t *testing.T) {
	e := newEnum("table", outputFormats...)
	assert.Equal(t, "table", e.String())
	require.NoError(t, e.Set("JSON"))
	assert.Equal(t, "json", e.String())

	err := e.Set("yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "yaml"`)
	assert.Equal(t, "json", e.String())

	err = e.Set("spreadsheet")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}
