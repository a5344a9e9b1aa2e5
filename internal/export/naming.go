package export

import (
	"path"
	"strconv"
	"strings"

	"github.com/conneroisu/certsmith/internal/types"
)

// DefaultNameField is the record key used to name output files.
const DefaultNameField = "name"

// Batch output names.
const (
	BatchDocumentName = "certificates_all.pdf"
	BatchArchiveName  = "certificates_all.zip"
)

// Sanitize replaces every rune outside [A-Za-z0-9_.-] with a single "_".
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// FileName returns the sanitized file name for the record at index:
// certificate_<name>.<ext>, falling back to the 1-based index when the
// record has no value for nameField.
func FileName(record types.Record, nameField string, index int, ext string) string {
	base := record[nameField]
	if base == "" {
		base = strconv.Itoa(index + 1)
	}
	return Sanitize("certificate_" + base + "." + ext)
}

// nameSet hands out unique names within one batch.
type nameSet map[string]int

// unique returns name, or name with _2, _3, ... inserted before the
// extension when it was already used.
func (s nameSet) unique(name string) string {
	n := s[name]
	s[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := n + 1; ; i++ {
		candidate := stem + "_" + strconv.Itoa(i) + ext
		if s[candidate] == 0 {
			s[candidate] = 1
			return candidate
		}
	}
}
