package download

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/shared"
)

// Fetcher materializes one track as an audio file in dir.
type Fetcher interface {
	Fetch(ctx context.Context, track models.Track, dir string) error
}

// runFunc executes name with args and waits for it to exit.
type runFunc func(ctx context.Context, name string, args ...string) error

// Spotdl fetches tracks with the spotdl command line tool.
type Spotdl struct {
	Command   string        // executable, defaults to "spotdl"
	ExtraArgs []string      // inserted before the track link
	Timeout   time.Duration // per attempt; zero disables

	run runFunc
}

// NewSpotdl builds a [Spotdl] from the download section of the config.
func NewSpotdl(cfg shared.DownloadConfig) *Spotdl {
	return &Spotdl{
		Command:   cfg.Command,
		ExtraArgs: cfg.ExtraArgs,
		Timeout:   cfg.Timeout.Duration,
	}
}

// Fetch makes two attempts for the track: YouTube as the audio source, then spotdl's default provider.
// Both attempts always run; their errors are joined.
func (s *Spotdl) Fetch(ctx context.Context, track models.Track, dir string) error {
	if track.Link == "" {
		return fmt.Errorf("%w: track %q has no link", shared.ErrInvalidArgument, track.DisplayName())
	}

	attempts := [][]string{
		s.args(dir, track.Link, "--use-youtube"),
		s.args(dir, track.Link),
	}

	var errs []error
	for _, args := range attempts {
		if err := s.attempt(ctx, args); err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrFetchFailed, track.DisplayName(), err)
	}
	return nil
}

func (s *Spotdl) args(dir, link string, flags ...string) []string {
	args := []string{"-o", dir}
	args = append(args, flags...)
	args = append(args, s.ExtraArgs...)
	return append(args, link)
}

func (s *Spotdl) attempt(ctx context.Context, args []string) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	name := s.Command
	if name == "" {
		name = "spotdl"
	}

	run := s.run
	if run == nil {
		run = execRun
	}

	if err := run(ctx, name, args...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s", shared.ErrTimeout, name, s.Timeout)
		}
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}

// execRun leaves Stdout and Stderr nil so the tool's output goes to the null device.
func execRun(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
