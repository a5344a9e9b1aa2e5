package targets

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/conneroisu/certsmith/internal/errors"
)

// ArchiveFolder is the folder every archive entry is placed in.
const ArchiveFolder = "certificates/"

type archiveEntry struct {
	name string
	data []byte
}

// Archive collects encoded files and writes them as a ZIP.
type Archive struct {
	entries  []archiveEntry
	names    map[string]bool
	modified time.Time
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{
		names:    make(map[string]bool),
		modified: time.Now(),
	}
}

// Add stores data under ArchiveFolder+name. Names must be unique.
func (a *Archive) Add(name string, data []byte) error {
	if name == "" || path.Base(name) != name {
		return errors.NewValidationError(errors.ErrCodeEncode, fmt.Sprintf("invalid archive entry name %q", name))
	}
	if a.names[name] {
		return errors.NewValidationError(errors.ErrCodeEncode, fmt.Sprintf("duplicate archive entry %q", name))
	}
	a.names[name] = true
	a.entries = append(a.entries, archiveEntry{name: name, data: data})
	return nil
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Encode writes the archive. Entries are stored uncompressed because they
// are already-compressed images.
func (a *Archive) Encode(w io.Writer) error {
	zw := zip.NewWriter(w)

	if _, err := zw.CreateHeader(&zip.FileHeader{Name: ArchiveFolder, Modified: a.modified}); err != nil {
		return errors.WrapEncode(err, "failed to write archive folder")
	}
	for _, e := range a.entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     ArchiveFolder + e.name,
			Method:   zip.Store,
			Modified: a.modified,
		})
		if err != nil {
			return errors.WrapEncode(err, "failed to add "+e.name)
		}
		if _, err := fw.Write(e.data); err != nil {
			return errors.WrapEncode(err, "failed to add "+e.name)
		}
	}
	if err := zw.Close(); err != nil {
		return errors.WrapEncode(err, "failed to finish archive")
	}
	return nil
}
