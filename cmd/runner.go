package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotimirror/internal/download"
	"github.com/desertthunder/spotimirror/internal/services"
	"github.com/desertthunder/spotimirror/internal/shared"
	"github.com/desertthunder/spotimirror/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "config.toml"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	fetcher    download.Fetcher
	clock      tasks.Clock
	apiBaseURL string
	logger     *log.Logger
	logFile    io.Closer
	newLogger  LoggerFactory
	output     io.Writer
}

// LoggerFactory builds the logger described by a config's [log] section.
type LoggerFactory func(shared.LogConfig) (*log.Logger, io.Closer)

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog // used instead of the Spotify client when set
	Fetcher    download.Fetcher // used instead of spotdl when set
	Clock      tasks.Clock
	APIBaseURL string // Spotify Web API root override
	Logger     *log.Logger
	LogFile    io.Closer     // closed when the logger is replaced or the runner closes
	NewLogger  LoggerFactory // rebuilds the logger when --config loads another file
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		fetcher:    opts.Fetcher,
		clock:      opts.Clock,
		apiBaseURL: opts.APIBaseURL,
		logger:     opts.Logger,
		logFile:    opts.LogFile,
		newLogger:  opts.NewLogger,
		output:     opts.Output,
	}
}

// Close releases the log file, if any.
func (r *Runner) Close() error {
	if r.logFile == nil {
		return nil
	}
	err := r.logFile.Close()
	r.logFile = nil
	return err
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:     "spotimirror",
		Usage:    "Mirror Spotify playlists into local folders of audio files",
		Version:  "0.1.0",
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, playlistsCommand, historyCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   DefaultConfigPath,
	}
}

// loadConfig returns the runner's config unless --config names a different file.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	path := cmd.String("config")
	if path == "" {
		path = DefaultConfigPath
	}
	if r.config != nil && (!cmd.IsSet("config") || path == r.configPath) {
		return r.config, nil
	}

	if cmd.IsSet("config") {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
	}

	config, err := shared.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()

	if r.newLogger != nil {
		if err := r.Close(); err != nil {
			r.logger.Warn("failed to close log file", "error", err)
		}
		r.logger, r.logFile = r.newLogger(config.Log)
	}

	r.config, r.configPath = config, path
	return config, nil
}

// spotifyService builds an unauthenticated Spotify client from config.
func (r *Runner) spotifyService(config *shared.Config) (*services.SpotifyService, error) {
	opts := []services.SpotifyOption{
		services.WithServiceLogger(r.logger),
		services.WithRequestsPerSecond(config.Spotify.RequestsPerSecond),
	}
	if r.apiBaseURL != "" {
		opts = append(opts, services.WithBaseURL(r.apiBaseURL))
	}

	svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	return svc, nil
}

// catalogFor returns an authenticated catalog. Refreshed tokens are written back to the config file.
func (r *Runner) catalogFor(ctx context.Context, config *shared.Config) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	svc, err := r.spotifyService(config)
	if err != nil {
		return nil, err
	}

	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
			return
		}
		r.logger.Debug("refreshed token saved", "path", r.configPath)
	})

	if err := svc.OAuthenticate(ctx, config.Credentials.Spotify.Token()); err != nil {
		return nil, err
	}

	r.catalog = svc
	return svc, nil
}

// saveTokens stores token in the config and writes the config file when a path is known.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrInvalidConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
