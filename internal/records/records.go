// Package records loads recipient data for batch certificate generation.
//
// Every source is decoded into an ordered []types.Record in full before it
// is returned; a malformed or empty source yields a recoverable validation
// error scoped to the file and no partial batch.
package records

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/types"
)

// PreviewRows is the number of rows shown by record previews.
const PreviewRows = 5

// SampleFileName is the file name suggested for the sample dataset.
const SampleFileName = "sample-certificate-data.csv"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrNoData is the message used when a source holds a header but no rows.
const ErrNoData = "No data found in CSV file"

// Table is a decoded record source with its column order.
type Table struct {
	Headers []string
	Records []types.Record
}

// ParseCSV decodes CSV with a header row. Header cells become record keys;
// short rows leave the missing keys absent and extra cells are dropped.
// Rows whose cells are all blank are skipped.
func ParseCSV(r io.Reader) ([]types.Record, error) {
	table, err := parseCSV(r)
	if err != nil {
		return nil, err
	}
	return table.Records, nil
}

func parseCSV(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, errors.NewIOError(errors.ErrCodeMalformedRecords, "failed to read CSV", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return Table{}, errors.Wrap(err, errors.ErrorTypeValidation, errors.ErrCodeMalformedRecords, "Error parsing CSV")
	}
	if len(rows) == 0 {
		return Table{}, errors.NewValidationError(errors.ErrCodeEmptyRecords, ErrNoData)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	out := make([]types.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec := make(types.Record, len(header))
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			rec[header[i]] = cell
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return Table{}, errors.NewValidationError(errors.ErrCodeEmptyRecords, ErrNoData)
	}

	headers := make([]string, 0, len(header))
	for _, h := range header {
		if h != "" {
			headers = append(headers, h)
		}
	}
	return Table{Headers: Headers(out, headers...), Records: out}, nil
}

// ParseJSON decodes an array of flat objects. Scalar values are converted to
// their string form; nested values are rejected.
func ParseJSON(r io.Reader) ([]types.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.ErrCodeMalformedRecords,
			"expected a JSON array of objects")
	}
	return fromMaps(raw)
}

// ParseYAML decodes a YAML sequence of flat mappings.
func ParseYAML(r io.Reader) ([]types.Record, error) {
	var raw []map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.ErrCodeMalformedRecords,
			"expected a YAML sequence of mappings")
	}
	return fromMaps(raw)
}

// LoadFile reads records from path, choosing the decoder by extension.
func LoadFile(path string) ([]types.Record, error) {
	table, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	return table.Records, nil
}

// LoadTable is LoadFile that also reports the column order. CSV columns keep
// their header order; keys of JSON and YAML sources are sorted.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, errors.WrapIO(err, errors.ErrCodeFileNotFound, path, "failed to open record file")
	}
	defer f.Close()

	var table Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		table, err = parseCSV(f)
	case ".json":
		table.Records, err = ParseJSON(f)
	case ".yaml", ".yml":
		table.Records, err = ParseYAML(f)
	default:
		return Table{}, errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported record format %q (use .csv, .json or .yaml)", ext)).WithFile(path)
	}
	if err != nil {
		if ce, ok := errors.AsCertError(err); ok {
			return Table{}, ce.WithFile(path)
		}
		return Table{}, err
	}
	if table.Headers == nil {
		table.Headers = Headers(table.Records)
	}
	return table, nil
}

// Headers returns the union of record keys: the preferred keys first, in
// order, then every other key sorted.
func Headers(recs []types.Record, preferred ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range preferred {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	var rest []string
	for _, rec := range recs {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Preview returns at most PreviewRows records.
func Preview(recs []types.Record) []types.Record {
	if len(recs) > PreviewRows {
		return recs[:PreviewRows]
	}
	return recs
}

// SampleHeader is the column order of the sample dataset.
var SampleHeader = []string{"name", "designation", "college", "date"}

// Sample returns the built-in three-row dataset.
func Sample() []types.Record {
	return []types.Record{
		{"name": "John Doe", "designation": "Software Engineer", "college": "MIT", "date": "2024-01-15"},
		{"name": "Jane Smith", "designation": "Data Scientist", "college": "Stanford", "date": "2024-01-15"},
		{"name": "Mike Johnson", "designation": "Product Manager", "college": "Harvard", "date": "2024-01-15"},
	}
}

// SampleCSV writes the sample dataset as CSV.
func SampleCSV(w io.Writer) error {
	return WriteCSV(w, SampleHeader, Sample())
}

// WriteCSV writes records using header as column order.
func WriteCSV(w io.Writer, header []string, recs []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range recs {
		for i, h := range header {
			row[i] = rec[h]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fromMaps(raw []map[string]interface{}) ([]types.Record, error) {
	if len(raw) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeEmptyRecords, "no records found")
	}
	out := make([]types.Record, 0, len(raw))
	for i, m := range raw {
		rec := make(types.Record, len(m))
		for k, v := range m {
			switch val := v.(type) {
			case nil:
				rec[k] = ""
			case string:
				rec[k] = val
			case map[string]interface{}, []interface{}:
				return nil, errors.NewValidationError(errors.ErrCodeMalformedRecords,
					fmt.Sprintf("record %d: value of %q must be a scalar", i+1, k))
			default:
				rec[k] = fmt.Sprint(val)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
