package server

import (
	"os"
	"strings"

	"github.com/conneroisu/certsmith/internal/designer"
	"github.com/conneroisu/certsmith/internal/records"
	"github.com/conneroisu/certsmith/internal/types"
)

// Session is the template and records being previewed. A session is never
// modified after it is loaded; a reload replaces it as a whole.
type Session struct {
	TemplatePath string
	DataPath     string
	Template     types.Template
	Table        records.Table
}

// LoadSession reads the template descriptor and the record file. The
// template's background reference is resolved against the descriptor's
// directory. An empty dataPath selects the built-in sample records.
func LoadSession(templatePath, dataPath string) (*Session, error) {
	tpl, err := designer.Load(templatePath)
	if err != nil {
		return nil, err
	}
	tpl.BackgroundRef = designer.ResolveBackground(templatePath, tpl.BackgroundRef)

	table := records.Table{Headers: records.SampleHeader, Records: records.Sample()}
	if dataPath != "" {
		if table, err = records.LoadTable(dataPath); err != nil {
			return nil, err
		}
	}

	return &Session{
		TemplatePath: templatePath,
		DataPath:     dataPath,
		Template:     tpl,
		Table:        table,
	}, nil
}

// Len returns the number of records.
func (s *Session) Len() int {
	return len(s.Table.Records)
}

// WatchPaths lists the local files the session was built from.
func (s *Session) WatchPaths() []string {
	paths := []string{s.TemplatePath}
	if s.DataPath != "" {
		paths = append(paths, s.DataPath)
	}
	if ref := s.Template.BackgroundRef; localFile(ref) {
		paths = append(paths, ref)
	}
	return paths
}

func localFile(ref string) bool {
	if ref == "" || strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
		return false
	}
	info, err := os.Stat(ref)
	return err == nil && !info.IsDir()
}
