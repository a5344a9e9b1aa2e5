package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestFilters(t *testing.T) {
	testCases := []struct {
		path                  string
		descriptor, rec, img bool
		notTemp               bool
	}{
		{"template.yaml", true, true, false, true},
		{"template.hcl", true, false, false, true},
		{"people.csv", false, true, false, true},
		{"people.JSON", true, true, false, true},
		{"background.PNG", false, false, true, true},
		{".template.yaml.swp", false, false, false, false},
		{"template.yaml~", false, false, false, false},
		{"notes.txt", false, false, false, true},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.descriptor, DescriptorFilter(tc.path))
			assert.Equal(t, tc.rec, RecordFilter(tc.path))
			assert.Equal(t, tc.img, ImageFilter(tc.path))
			assert.Equal(t, tc.notTemp, NoTempFilter(tc.path))
		})
	}

	assert.True(t, CertificateInputFilter("template.hcl"))
	assert.True(t, CertificateInputFilter("bg.jpeg"))
	assert.False(t, CertificateInputFilter("notes.txt"))

	either := AnyOf(ImageFilter, RecordFilter)
	assert.True(t, either("bg.webp"))
	assert.True(t, either("data.csv"))
	assert.False(t, either("main.go"))
}

func TestPathsFilter(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "template.yaml")
	filter := PathsFilter(target)

	assert.True(t, filter(target))
	assert.True(t, filter(filepath.Join(dir, ".", "template.yaml")))
	assert.False(t, filter(filepath.Join(dir, "other.yaml")))
	assert.False(t, filter(""))
}

func TestDebouncerDeduplicates(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "b.csv"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.yaml"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.csv"})

	select {
	case events := <-d.output:
		require.Len(t, events, 2)
		assert.Equal(t, "a.yaml", events[0].Path)
		assert.Equal(t, "b.csv", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type, "latest event per path wins")
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestWatchFilesReportsChanges(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "template.yaml")
	other := filepath.Join(dir, "unrelated.yaml")
	require.NoError(t, os.WriteFile(target, []byte("width: 1"), 0o644))

	watcher, err := NewFileWatcher(30*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()
	require.NoError(t, watcher.WatchFiles(target))

	var mu sync.Mutex
	var seen []string
	got := make(chan struct{}, 10)
	watcher.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		mu.Lock()
		for _, e := range events {
			seen = append(seen, e.Path)
		}
		mu.Unlock()
		got <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("width: 2"), 0o644))

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		assert.Equal(t, target, p)
	}
}

func TestWatchFilesSkipsOtherKinds(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	records := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(notes, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(records, []byte("name\nAda\n"), 0o644))

	watcher, err := NewFileWatcher(30*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()
	watcher.AddFilter(CertificateInputFilter)
	require.NoError(t, watcher.WatchFiles(notes, records))

	got := make(chan []ChangeEvent, 10)
	watcher.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		got <- events
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(notes, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(records, []byte("name\nGrace\n"), 0o644))

	select {
	case events := <-got:
		for _, e := range events {
			assert.Equal(t, records, e.Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestAddPathErrors(t *testing.T) {
	watcher, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Error(t, watcher.AddPath(""))
	assert.Error(t, watcher.AddPath(filepath.Join(t.TempDir(), "missing")))
	assert.NoError(t, watcher.AddPath(t.TempDir()))
}
