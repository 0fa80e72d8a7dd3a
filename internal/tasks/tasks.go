// package tasks keeps local playlist folders in step with remote playlists.
//
// The core abstraction is SyncEngine, which runs reconciliation passes once or on an interval.
// Passes emit progress updates via a channel for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotimirror/internal/download"
	"github.com/desertthunder/spotimirror/internal/library"
	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/services"
	"github.com/desertthunder/spotimirror/internal/shared"
)

// DefaultInterval is the pause between passes in continuous mode.
const DefaultInterval = 150 * time.Second

// Selection names the playlists a run covers. Exactly one field must be set.
type Selection struct {
	Playlist string
	All      bool
}

// Validate rejects empty and ambiguous selections.
func (s Selection) Validate() error {
	switch {
	case s.Playlist == "" && !s.All:
		return fmt.Errorf("%w: either a playlist or all playlists must be selected", shared.ErrInvalidArgument)
	case s.Playlist != "" && s.All:
		return fmt.Errorf("%w: a playlist and all playlists are mutually exclusive", shared.ErrInvalidArgument)
	}
	return nil
}

// Dispatcher fetches a batch of tracks into a folder.
type Dispatcher interface {
	Dispatch(ctx context.Context, tracks []models.Track, dir string) (download.DispatchResult, error)
}

// HistoryRecorder persists the outcome of a pass.
type HistoryRecorder interface {
	RecordPass(ctx context.Context, record *models.PassRecord) error
}

// Clock abstracts time so continuous mode can be tested without waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done, whichever comes first.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PassResult is the outcome of one pass over one playlist.
type PassResult struct {
	ID         string
	Playlist   string
	Dir        string
	Catalog    int            // tracks in the remote playlist
	Fetched    int            // fetches attempted
	Failed     int            // fetches that returned an error
	Requested  []models.Track // tracks handed to the dispatcher
	Failures   []download.Failure
	Deleted    []string // stale audio files removed
	Artifacts  []string // tracking artifacts removed
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Record converts the result into a [models.PassRecord] for persistence.
func (r *PassResult) Record() *models.PassRecord {
	counts := models.PassCounts{
		Fetched:   r.Fetched,
		Failed:    r.Failed,
		Deleted:   len(r.Deleted),
		Artifacts: len(r.Artifacts),
	}

	var msg string
	if r.Err != nil {
		msg = r.Err.Error()
	}

	record := models.NewPassRecord(0, r.Playlist, counts, r.StartedAt, r.FinishedAt, msg)
	record.SetID(r.ID)

	// local files carry no ID, so the name is part of the key
	type trackKey struct{ id, name string }
	failed := make(map[trackKey]bool, len(r.Failures))
	for _, f := range r.Failures {
		failed[trackKey{f.Track.ID, f.Track.DisplayName()}] = true
	}
	for _, t := range r.Requested {
		if !failed[trackKey{t.ID, t.DisplayName()}] {
			record.AddEvent(models.EventFetched, t.DisplayName(), t.Link)
		}
	}
	for _, f := range r.Failures {
		record.AddEvent(models.EventFailed, f.Track.DisplayName(), f.Err.Error())
	}
	for _, name := range r.Deleted {
		record.AddEvent(models.EventDeleted, name, "")
	}
	for _, name := range r.Artifacts {
		record.AddEvent(models.EventArtifact, name, "")
	}
	return record
}

// Options configures a [SyncEngine].
type Options struct {
	Output    string        // root folder; playlist folders are created beneath it
	Extension string        // audio extension, ".mp3" when empty
	Interval  time.Duration // pause between passes in continuous mode
	Verbose   bool
}

// SyncEngine reconciles playlist folders against the remote catalog.
type SyncEngine struct {
	catalog    services.Catalog
	dispatcher Dispatcher
	history    HistoryRecorder
	clock      Clock
	logger     *log.Logger
	progress   chan<- ProgressUpdate
	opts       Options
}

// EngineOption customizes a [SyncEngine].
type EngineOption func(*SyncEngine)

// WithHistory records every pass through h. Recording failures are logged only.
func WithHistory(h HistoryRecorder) EngineOption {
	return func(e *SyncEngine) { e.history = h }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) EngineOption {
	return func(e *SyncEngine) { e.clock = c }
}

// WithLogger sets the engine's logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *SyncEngine) { e.logger = l }
}

// WithProgress sends progress updates to ch without blocking.
func WithProgress(ch chan<- ProgressUpdate) EngineOption {
	return func(e *SyncEngine) { e.progress = ch }
}

// NewSyncEngine creates a new SyncEngine with the provided catalog and dispatcher.
func NewSyncEngine(catalog services.Catalog, dispatcher Dispatcher, opts Options, options ...EngineOption) *SyncEngine {
	opts.Extension = library.NormalizeExtension(opts.Extension)
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	e := &SyncEngine{
		catalog:    catalog,
		dispatcher: dispatcher,
		clock:      SystemClock{},
		opts:       opts,
	}
	for _, o := range options {
		o(e)
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *SyncEngine) sendProgress(update ProgressUpdate) {
	if e.progress == nil {
		return
	}
	select {
	case e.progress <- update:
	default:
	}
}

// PlaylistDir returns the folder that mirrors the named playlist.
func (e *SyncEngine) PlaylistDir(name string) string {
	return library.PlaylistDir(e.opts.Output, name)
}

// RunPass runs fetch-catalog, scan, reconcile, download and cleanup for one playlist.
func (e *SyncEngine) RunPass(ctx context.Context, playlist string) (*PassResult, error) {
	result := &PassResult{
		ID:        shared.GenerateID(),
		Playlist:  playlist,
		Dir:       e.PlaylistDir(playlist),
		StartedAt: e.clock.Now(),
	}

	err := e.runPass(ctx, result)
	result.FinishedAt = e.clock.Now()
	result.Err = err

	e.record(ctx, result)
	return result, err
}

func (e *SyncEngine) runPass(ctx context.Context, result *PassResult) error {
	logger := shared.WithLogger(e.logger, "playlist", result.Playlist)

	if info, err := os.Stat(e.opts.Output); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: output folder %q", shared.ErrDestinationMissing, e.opts.Output)
	}

	if e.opts.Verbose {
		logger.Info("syncing playlist", "dir", result.Dir)
	}

	e.sendProgress(fetchCatalogUpdate(result.Playlist))
	catalog, err := e.catalog.PlaylistTracks(ctx, result.Playlist)
	if err != nil {
		return err
	}
	result.Catalog = len(catalog)

	e.sendProgress(scanLocalUpdate(result.Playlist, result.Dir))
	state, err := library.Scan(result.Dir, e.opts.Extension)
	if err != nil {
		return err
	}

	plan := library.Reconcile(catalog, state, e.opts.Extension)

	e.sendProgress(downloadUpdate(result.Playlist, len(plan.Fetch), len(catalog)))
	dispatched, err := e.dispatcher.Dispatch(ctx, plan.Fetch, result.Dir)
	result.Fetched = dispatched.Attempted
	result.Requested = plan.Fetch[:min(dispatched.Attempted, len(plan.Fetch))]
	result.Failed = dispatched.Failed
	result.Failures = dispatched.Failures
	if err != nil {
		return err
	}

	if e.opts.Verbose {
		logger.Info("cleaning up leftover files")
	}
	e.sendProgress(cleanupUpdate(result.Playlist))
	cleaned, err := library.Cleanup(result.Dir, catalog, e.opts.Extension)
	result.Deleted = cleaned.Deleted
	result.Artifacts = cleaned.Artifacts
	if err != nil {
		logger.Warn("cleanup incomplete", "error", err)
	}

	return nil
}

// record hands the result to the history store. The pass context may already be cancelled.
func (e *SyncEngine) record(ctx context.Context, result *PassResult) {
	if e.history == nil {
		return
	}
	if err := e.history.RecordPass(context.WithoutCancel(ctx), result.Record()); err != nil {
		e.logger.Warn("failed to record pass", "playlist", result.Playlist, "error", err)
	}
}

// RunOnce runs one pass per selected playlist, sequentially.
//
// In all-playlists mode the playlist list is fetched again on every call, playlists that vanish before their
// pass are skipped, and other per-playlist failures are joined into the returned error after every playlist
// has been tried. Configuration errors and cancellation stop the run immediately.
func (e *SyncEngine) RunOnce(ctx context.Context, sel Selection) ([]PassResult, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	names, err := e.resolve(ctx, sel)
	if err != nil {
		return nil, err
	}

	var (
		results []PassResult
		errs    []error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := e.RunPass(ctx, name)
		results = append(results, *result)
		if err == nil {
			continue
		}

		switch {
		case ctx.Err() != nil:
			return results, ctx.Err()
		case shared.IsConfigurationError(err):
			return results, err
		case !sel.All:
			return results, err
		case errors.Is(err, shared.ErrPlaylistNotFound):
			e.logger.Warn("playlist disappeared, skipping", "playlist", name)
		default:
			e.logger.Error("pass failed", "playlist", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return results, errors.Join(errs...)
}

func (e *SyncEngine) resolve(ctx context.Context, sel Selection) ([]string, error) {
	if !sel.All {
		return []string{sel.Playlist}, nil
	}

	playlists, err := e.catalog.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(playlists))
	names := make([]string, 0, len(playlists))
	for _, p := range playlists {
		if seen[p.Name] {
			e.logger.Warn("duplicate playlist name, syncing first match only", "playlist", p.Name)
			continue
		}
		seen[p.Name] = true
		names = append(names, p.Name)
	}
	return names, nil
}

// Monitor repeats [SyncEngine.RunOnce] forever, sleeping the configured interval between runs.
//
// It returns nil when ctx is cancelled. Configuration errors stop the loop and are returned; anything else is
// logged and retried on the next run.
func (e *SyncEngine) Monitor(ctx context.Context, sel Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}

	for run := 1; ; run++ {
		results, err := e.RunOnce(ctx, sel)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if shared.IsConfigurationError(err) {
				return err
			}
			e.logger.Error("sync run failed, retrying after interval", "run", run, "error", err)
		}

		e.logger.Debug("sync run complete", "run", run, "passes", len(results), "next", e.opts.Interval)
		e.sendProgress(sleepUpdate(e.opts.Interval))
		if err := e.clock.Sleep(ctx, e.opts.Interval); err != nil {
			return nil
		}
	}
}
