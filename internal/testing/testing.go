// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/shared"
)

// MockCatalog is a test double for [services.Catalog]
type MockCatalog struct {
	mu sync.Mutex

	Lists        []models.Playlist         // returned by Playlists
	Tracks       map[string][]models.Track // playlist name to tracks
	PlaylistsErr error
	TracksErr    map[string]error

	PlaylistCalls int
	TrackCalls    []string
}

func (m *MockCatalog) Name() string { return "mock" }

func (m *MockCatalog) Playlists(ctx context.Context) ([]models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlaylistCalls++
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return append([]models.Playlist(nil), m.Lists...), nil
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, name string) ([]models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TrackCalls = append(m.TrackCalls, name)
	if err := m.TracksErr[name]; err != nil {
		return nil, err
	}
	tracks, ok := m.Tracks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
	}
	return append([]models.Track(nil), tracks...), nil
}

// SetTracks replaces a playlist's tracks between passes.
func (m *MockCatalog) SetTracks(name string, tracks []models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Tracks == nil {
		m.Tracks = map[string][]models.Track{}
	}
	m.Tracks[name] = tracks
}

// MockFetcher is a test double for [download.Fetcher] that writes the expected file instead of downloading.
type MockFetcher struct {
	mu sync.Mutex

	Extension string          // defaults to ".mp3"
	Fail      map[string]bool // track IDs that fail
	Artifacts bool            // also leave a tracking artifact per track
	Fetched   []string
}

func (f *MockFetcher) Fetch(ctx context.Context, track models.Track, dir string) error {
	f.mu.Lock()
	f.Fetched = append(f.Fetched, track.ID)
	f.mu.Unlock()

	if f.Fail[track.ID] {
		return fmt.Errorf("%w: %s", shared.ErrFetchFailed, track.DisplayName())
	}

	ext := f.Extension
	if ext == "" {
		ext = ".mp3"
	}
	name := models.FileName(track, ext)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(track.ID), 0644); err != nil {
		return err
	}
	if f.Artifacts {
		return os.WriteFile(filepath.Join(dir, track.ID+".spotdlTrackingFile"), nil, 0644)
	}
	return nil
}

// Calls returns the IDs fetched so far.
func (f *MockFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Fetched...)
}

// FakeClock is a manual clock for the sync loop. Sleep advances time instantly and records the duration.
//
// When CancelAfter is set, the clock calls Cancel once that many sleeps have been requested.
type FakeClock struct {
	mu sync.Mutex

	Current     time.Time
	Sleeps      []time.Duration
	CancelAfter int
	Cancel      context.CancelFunc
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{Current: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Current
}

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.Sleeps = append(c.Sleeps, d)
	c.Current = c.Current.Add(d)
	cancel := c.Cancel != nil && c.CancelAfter > 0 && len(c.Sleeps) >= c.CancelAfter
	c.mu.Unlock()

	if cancel {
		c.Cancel()
	}
	return ctx.Err()
}

// SleepCount returns how many times Sleep was called.
func (c *FakeClock) SleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sleeps)
}

// MockHistory is a test double for the pass history store.
type MockHistory struct {
	mu      sync.Mutex
	Records []*models.PassRecord
	Err     error
}

func (h *MockHistory) RecordPass(ctx context.Context, record *models.PassRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return h.Err
	}
	h.Records = append(h.Records, record)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails once maxWrites writes have been made
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// Touch creates empty files in dir.
func Touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
}

// ListDir returns the names in dir in directory order.
func ListDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read directory %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
