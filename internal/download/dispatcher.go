package download

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/shared"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of concurrent fetches when none is configured.
const DefaultWorkers = 8

// Failure pairs a track with the error its fetch returned.
type Failure struct {
	Track models.Track
	Err   error
}

// DispatchResult summarizes one batch.
type DispatchResult struct {
	Attempted int
	Failed    int
	Failures  []Failure
}

// Dispatcher runs a [Fetcher] for many tracks with bounded concurrency.
type Dispatcher struct {
	Fetcher Fetcher
	Workers int
	Logger  *log.Logger
	Verbose bool
}

// NewDispatcher returns a Dispatcher using f with the given worker count.
func NewDispatcher(f Fetcher, workers int, logger *log.Logger) *Dispatcher {
	return &Dispatcher{Fetcher: f, Workers: workers, Logger: logger}
}

// Dispatch fetches every track into dir and returns once all fetches have finished.
//
// dir must already exist. Individual failures are logged and counted; the returned error is only set for a
// missing destination or a cancelled context.
func (d *Dispatcher) Dispatch(ctx context.Context, tracks []models.Track, dir string) (DispatchResult, error) {
	var result DispatchResult

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return result, fmt.Errorf("%w: %s", shared.ErrDestinationMissing, dir)
	}

	logger := d.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	workers := d.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	var (
		failed int32
		mu     sync.Mutex
	)
	for _, track := range tracks {
		if ctx.Err() != nil {
			break
		}
		result.Attempted++

		g.Go(func() error {
			if d.Verbose {
				logger.Info("downloading track", "track", track.DisplayName())
			}
			if err := d.Fetcher.Fetch(ctx, track, dir); err != nil {
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				result.Failures = append(result.Failures, Failure{Track: track, Err: err})
				mu.Unlock()
				logger.Warn("track fetch failed", "track", track.DisplayName(), "link", track.Link, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	result.Failed = int(atomic.LoadInt32(&failed))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
