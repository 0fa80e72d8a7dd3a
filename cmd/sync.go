package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotimirror/internal/download"
	"github.com/desertthunder/spotimirror/internal/repositories"
	"github.com/desertthunder/spotimirror/internal/shared"
	"github.com/desertthunder/spotimirror/internal/tasks"
	"github.com/desertthunder/spotimirror/internal/ui"
	"github.com/urfave/cli/v3"
)

// syncCommand mirrors one playlist, or every playlist, into the output folder
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Download missing tracks and remove tracks no longer in the playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Exact name of the playlist to mirror",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Mirror every playlist on the account",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Root folder; each playlist gets a subfolder named after it (required unless sync.output is set)",
			},
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"t"},
				Usage:   "Number of concurrent downloads",
				Value:   download.DefaultWorkers,
			},
			&cli.BoolFlag{
				Name:  "monitor",
				Usage: "Keep running and re-sync after every interval",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Pause between passes in monitor mode",
				Value: tasks.DefaultInterval,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output and print a summary of each pass",
			},
			configFlag(),
		},
		Action: r.Sync,
	}
}

// syncSettings is the sync command's flags merged over the config file.
type syncSettings struct {
	selection tasks.Selection
	options   tasks.Options
	workers   int
	monitor   bool
	verbose   bool
}

// syncSettingsFrom merges flags over config. Flags win when set explicitly.
func syncSettingsFrom(cmd *cli.Command, config *shared.Config) (syncSettings, error) {
	s := syncSettings{
		selection: tasks.Selection{Playlist: cmd.String("playlist"), All: cmd.Bool("all")},
		options: tasks.Options{
			Output:    config.Sync.Output,
			Extension: config.Sync.Extension,
			Interval:  config.Sync.Interval.Duration,
		},
		workers: config.Sync.Workers,
		monitor: cmd.Bool("monitor"),
		verbose: cmd.Bool("verbose"),
	}
	s.options.Verbose = s.verbose

	if err := s.selection.Validate(); err != nil {
		return s, err
	}

	if out := cmd.String("output"); out != "" {
		s.options.Output = out
	}
	if s.options.Output == "" {
		return s, fmt.Errorf("%w: --output is required", shared.ErrMissingArgument)
	}

	if cmd.IsSet("threads") || s.workers == 0 {
		s.workers = cmd.Int("threads")
	}
	if s.workers < 1 {
		return s, fmt.Errorf("%w: --threads must be at least 1, got %d", shared.ErrInvalidArgument, s.workers)
	}

	if cmd.IsSet("interval") {
		s.options.Interval = cmd.Duration("interval")
		if s.options.Interval <= 0 {
			return s, fmt.Errorf("%w: --interval must be positive", shared.ErrInvalidArgument)
		}
	}

	return s, nil
}

// Sync runs one reconciliation pass per selected playlist, or loops forever with --monitor.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	settings, err := syncSettingsFrom(cmd, config)
	if err != nil {
		return err
	}

	if settings.verbose {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	catalog, err := r.catalogFor(ctx, config)
	if err != nil {
		return err
	}

	fetcher := r.fetcher
	if fetcher == nil {
		fetcher = download.NewSpotdl(config.Download)
	}
	dispatcher := download.NewDispatcher(fetcher, settings.workers, r.logger)
	dispatcher.Verbose = settings.verbose

	engineOpts := []tasks.EngineOption{tasks.WithLogger(r.logger)}
	if r.clock != nil {
		engineOpts = append(engineOpts, tasks.WithClock(r.clock))
	}

	history, closeHistory := r.openHistory(config)
	defer closeHistory()
	if history != nil {
		engineOpts = append(engineOpts, tasks.WithHistory(history))
	}

	stopProgress := func() {}
	if settings.verbose {
		progress := make(chan tasks.ProgressUpdate, 50)
		done := r.printProgress(progress)
		stopProgress = func() {
			close(progress)
			<-done
		}
		engineOpts = append(engineOpts, tasks.WithProgress(progress))
	}

	engine := tasks.NewSyncEngine(catalog, dispatcher, settings.options, engineOpts...)

	r.logger.Debug("starting sync",
		"playlist", settings.selection.Playlist, "all", settings.selection.All,
		"output", settings.options.Output, "workers", settings.workers, "monitor", settings.monitor)

	if settings.monitor {
		err := engine.Monitor(ctx, settings.selection)
		stopProgress()
		return err
	}

	started := time.Now()
	results, err := engine.RunOnce(ctx, settings.selection)
	stopProgress()
	if settings.verbose {
		for i := range results {
			r.writePlain("%s\n\n", ui.RenderPassSummary(&results[i]))
		}
		r.logger.Debug("sync finished", "passes", len(results), "took", time.Since(started))
	}
	return err
}

// openHistory opens the pass history store. A missing path or an open failure disables history.
func (r *Runner) openHistory(config *shared.Config) (tasks.HistoryRecorder, func()) {
	if config.Database.Path == "" {
		return nil, func() {}
	}

	db, err := shared.OpenHistory(config.Database)
	if err != nil {
		r.logger.Warn("pass history disabled", "path", config.Database.Path, "error", err)
		return nil, func() {}
	}

	return repositories.NewPassRepository(db), func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("failed to close history database", "error", err)
		}
	}
}

// printProgress writes updates from ch until it is closed.
func (r *Runner) printProgress(ch <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range ch {
			r.writePlain("%s\n", ui.RenderProgress(update))
		}
	}()
	return done
}
