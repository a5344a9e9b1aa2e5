package export

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/conneroisu/certsmith/internal/errors"
)

// Artifact is one finished output file.
type Artifact struct {
	Name     string
	MIMEType string
	Data     []byte
	// Count is the number of certificates inside
	Count int
}

// Sink receives finished artifacts. Deliver is only called after encoding
// succeeded, so a sink never sees a partial batch.
type Sink interface {
	Deliver(ctx context.Context, a Artifact) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, a Artifact) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, a Artifact) error {
	return f(ctx, a)
}

// DirSink writes artifacts into a directory, replacing files of the same name.
type DirSink struct {
	Dir string
}

// Deliver writes a to Dir atomically.
func (s DirSink) Deliver(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeDeliver, s.Dir, "failed to create output directory")
	}

	target := s.Path(a)
	tmp, err := os.CreateTemp(s.Dir, "."+filepath.Base(a.Name)+".*")
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeDeliver, target, "failed to create output file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		return errors.WrapIO(err, errors.ErrCodeDeliver, target, "failed to write output file")
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO(err, errors.ErrCodeDeliver, target, "failed to write output file")
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return errors.WrapIO(err, errors.ErrCodeDeliver, target, "failed to write output file")
	}
	return nil
}

// Path returns where Deliver writes a.
func (s DirSink) Path(a Artifact) string {
	return filepath.Join(s.Dir, filepath.Base(a.Name))
}

// MemorySink keeps delivered artifacts in memory.
type MemorySink struct {
	mu        sync.Mutex
	artifacts []Artifact
}

// Deliver records a.
func (s *MemorySink) Deliver(_ context.Context, a Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, a)
	return nil
}

// Artifacts returns everything delivered so far.
func (s *MemorySink) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}
