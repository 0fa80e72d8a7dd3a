package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/shared"
)

// writingFetcher creates the expected file for each track.
type writingFetcher struct {
	fail    map[string]bool
	delay   time.Duration
	active  int32
	maxSeen int32
	calls   int32
}

func (f *writingFetcher) Fetch(ctx context.Context, track models.Track, dir string) error {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	atomic.AddInt32(&f.calls, 1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.fail[track.ID] {
		return errors.New("no source found")
	}
	return os.WriteFile(filepath.Join(dir, models.FileName(track, ".mp3")), []byte("audio"), 0644)
}

func tracks(n int) []models.Track {
	out := make([]models.Track, 0, n)
	for i := range n {
		id := string(rune('a' + i))
		out = append(out, models.Track{ID: id, Link: "https://open.spotify.com/track/" + id, Title: "Song " + id, Artists: []string{"Artist"}})
	}
	return out
}

func TestDispatcher(t *testing.T) {
	logger := shared.NewLogger(&strings.Builder{})

	t.Run("Writes Every Track", func(t *testing.T) {
		dir := t.TempDir()
		fetcher := &writingFetcher{}
		d := NewDispatcher(fetcher, 4, logger)

		result, err := d.Dispatch(context.Background(), tracks(2), dir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Attempted != 2 || result.Failed != 0 {
			t.Errorf("unexpected result %+v", result)
		}

		entries, _ := os.ReadDir(dir)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		if !slices.Equal(names, []string{"Artist - Song a.mp3", "Artist - Song b.mp3"}) {
			t.Errorf("unexpected files %v", names)
		}
	})

	t.Run("Failures Are Counted Not Fatal", func(t *testing.T) {
		dir := t.TempDir()
		fetcher := &writingFetcher{fail: map[string]bool{"b": true, "d": true}}
		d := NewDispatcher(fetcher, 2, logger)

		result, err := d.Dispatch(context.Background(), tracks(5), dir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Attempted != 5 || result.Failed != 2 {
			t.Errorf("unexpected result %+v", result)
		}
		if calls := atomic.LoadInt32(&fetcher.calls); calls != 5 {
			t.Errorf("expected 5 fetches, got %d", calls)
		}

		var failedIDs []string
		for _, f := range result.Failures {
			failedIDs = append(failedIDs, f.Track.ID)
			if f.Err == nil {
				t.Errorf("failure for %s has no error", f.Track.ID)
			}
		}
		slices.Sort(failedIDs)
		if !slices.Equal(failedIDs, []string{"b", "d"}) {
			t.Errorf("unexpected failures %v", failedIDs)
		}
	})

	t.Run("Respects Worker Limit", func(t *testing.T) {
		fetcher := &writingFetcher{delay: 20 * time.Millisecond}
		d := NewDispatcher(fetcher, 3, logger)

		if _, err := d.Dispatch(context.Background(), tracks(12), t.TempDir()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if peak := atomic.LoadInt32(&fetcher.maxSeen); peak > 3 {
			t.Errorf("expected at most 3 concurrent fetches, saw %d", peak)
		}
	})

	t.Run("Workers Below One Run Serially", func(t *testing.T) {
		fetcher := &writingFetcher{delay: 5 * time.Millisecond}
		d := NewDispatcher(fetcher, 0, logger)

		result, err := d.Dispatch(context.Background(), tracks(4), t.TempDir())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Attempted != 4 {
			t.Errorf("expected 4 attempts, got %d", result.Attempted)
		}
		if peak := atomic.LoadInt32(&fetcher.maxSeen); peak != 1 {
			t.Errorf("expected serial fetches, saw %d concurrent", peak)
		}
	})

	t.Run("Missing Destination", func(t *testing.T) {
		fetcher := &writingFetcher{}
		d := NewDispatcher(fetcher, 2, logger)

		_, err := d.Dispatch(context.Background(), tracks(2), filepath.Join(t.TempDir(), "absent"))
		if !errors.Is(err, shared.ErrDestinationMissing) {
			t.Fatalf("expected ErrDestinationMissing, got %v", err)
		}
		if !shared.IsConfigurationError(err) {
			t.Error("missing destination should be a configuration error")
		}
		if calls := atomic.LoadInt32(&fetcher.calls); calls != 0 {
			t.Errorf("expected no fetches, got %d", calls)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		fetcher := &writingFetcher{}
		d := NewDispatcher(fetcher, 2, logger)

		result, err := d.Dispatch(ctx, tracks(3), t.TempDir())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Attempted != 0 {
			t.Errorf("expected nothing dispatched, got %d", result.Attempted)
		}
	})

	t.Run("Empty Batch", func(t *testing.T) {
		d := NewDispatcher(&writingFetcher{}, 2, nil)

		result, err := d.Dispatch(context.Background(), nil, t.TempDir())
		if err != nil || result.Attempted != 0 {
			t.Errorf("expected empty result, got %+v, %v", result, err)
		}
	})

	t.Run("Verbose Logs Each Track", func(t *testing.T) {
		var buf strings.Builder
		verboseLogger := shared.NewLogger(&buf)
		shared.SetLogLevel(verboseLogger, shared.ParseLevel("debug"))

		d := NewDispatcher(&writingFetcher{}, 1, verboseLogger)
		d.Verbose = true

		if _, err := d.Dispatch(context.Background(), tracks(2), t.TempDir()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := strings.Count(buf.String(), "downloading track"); got != 2 {
			t.Errorf("expected 2 download lines, got %d:\n%s", got, buf.String())
		}
	})
}

type recordedCall struct {
	name string
	args []string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []recordedCall
	errs  []error
}

func (r *fakeRunner) run(ctx context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{name: name, args: args})
	if i := len(r.calls) - 1; i < len(r.errs) {
		return r.errs[i]
	}
	return nil
}

func TestSpotdl(t *testing.T) {
	track := models.Track{ID: "1", Link: "https://open.spotify.com/track/1", Title: "Song1", Artists: []string{"A"}}

	t.Run("Two Attempts", func(t *testing.T) {
		runner := &fakeRunner{}
		s := &Spotdl{run: runner.run}

		if err := s.Fetch(context.Background(), track, "/music/Focus"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(runner.calls) != 2 {
			t.Fatalf("expected 2 attempts, got %d", len(runner.calls))
		}

		first := runner.calls[0]
		if first.name != "spotdl" {
			t.Errorf("expected default command spotdl, got %s", first.name)
		}
		if !slices.Equal(first.args, []string{"-o", "/music/Focus", "--use-youtube", track.Link}) {
			t.Errorf("unexpected first attempt args %v", first.args)
		}
		if !slices.Equal(runner.calls[1].args, []string{"-o", "/music/Focus", track.Link}) {
			t.Errorf("unexpected second attempt args %v", runner.calls[1].args)
		}
	})

	t.Run("Configured Command And Extra Args", func(t *testing.T) {
		runner := &fakeRunner{}
		s := NewSpotdl(shared.DownloadConfig{Command: "/opt/spotdl", ExtraArgs: []string{"--bitrate", "320k"}})
		s.run = runner.run

		if err := s.Fetch(context.Background(), track, "out"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.calls[0].name != "/opt/spotdl" {
			t.Errorf("expected configured command, got %s", runner.calls[0].name)
		}
		want := []string{"-o", "out", "--bitrate", "320k", track.Link}
		if !slices.Equal(runner.calls[1].args, want) {
			t.Errorf("expected %v, got %v", want, runner.calls[1].args)
		}
	})

	t.Run("Second Attempt Runs After First Fails", func(t *testing.T) {
		runner := &fakeRunner{errs: []error{errors.New("exit status 1")}}
		s := &Spotdl{run: runner.run}

		if err := s.Fetch(context.Background(), track, "out"); err == nil {
			t.Fatal("expected the first attempt's error to be reported")
		}
		if len(runner.calls) != 2 {
			t.Errorf("expected 2 attempts, got %d", len(runner.calls))
		}
	})

	t.Run("Both Attempts Fail", func(t *testing.T) {
		runner := &fakeRunner{errs: []error{errors.New("first"), errors.New("second")}}
		s := &Spotdl{run: runner.run}

		err := s.Fetch(context.Background(), track, "out")
		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Fatalf("expected ErrFetchFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "first") || !strings.Contains(err.Error(), "second") {
			t.Errorf("expected both errors joined, got %v", err)
		}
	})

	t.Run("Missing Link", func(t *testing.T) {
		runner := &fakeRunner{}
		s := &Spotdl{run: runner.run}

		err := s.Fetch(context.Background(), models.Track{Title: "x"}, "out")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(runner.calls) != 0 {
			t.Errorf("expected no attempts, got %d", len(runner.calls))
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		s := &Spotdl{
			Timeout: 10 * time.Millisecond,
			run: func(ctx context.Context, name string, args ...string) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}

		err := s.Fetch(context.Background(), track, "out")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("Real Process", func(t *testing.T) {
		if _, err := os.Stat("/bin/false"); err != nil {
			t.Skip("no /bin/false on this system")
		}

		s := &Spotdl{Command: "/bin/false"}
		if err := s.Fetch(context.Background(), track, t.TempDir()); !errors.Is(err, shared.ErrFetchFailed) {
			t.Errorf("expected ErrFetchFailed from a failing command, got %v", err)
		}

		s = &Spotdl{Command: "/bin/true"}
		if _, err := os.Stat("/bin/true"); err == nil {
			if err := s.Fetch(context.Background(), track, t.TempDir()); err != nil {
				t.Errorf("expected no error from a succeeding command, got %v", err)
			}
		}
	})
}
