package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/repositories"
	"github.com/desertthunder/spotimirror/internal/shared"
	"github.com/desertthunder/spotimirror/internal/ui"
	"github.com/urfave/cli/v3"
)

// historyCommand shows recorded passes
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent sync passes",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Only show passes for this playlist",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of passes to show",
				Value: repositories.DefaultListLimit,
			},
			&cli.BoolFlag{
				Name:  "events",
				Usage: "Include per-file events",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// passView is the JSON shape of a recorded pass.
type passView struct {
	ID         string             `json:"id"`
	Sequence   int                `json:"sequence"`
	Playlist   string             `json:"playlist"`
	Fetched    int                `json:"fetched"`
	Failed     int                `json:"failed"`
	Deleted    int                `json:"deleted"`
	Artifacts  int                `json:"artifacts"`
	Error      string             `json:"error,omitempty"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	Events     []models.PassEvent `json:"events,omitempty"`
}

// History lists the most recent passes, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if config.Database.Path == "" {
		return fmt.Errorf("%w: database.path is not set", shared.ErrInvalidConfig)
	}

	db, err := shared.OpenHistory(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewPassRepository(db)
	criteria := map[string]any{"limit": cmd.Int("limit")}
	if name := cmd.String("playlist"); name != "" {
		criteria["playlist"] = name
	}

	passes, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if !cmd.Bool("json") {
		if err := r.writePlain("%s\n", ui.RenderHistory(passes)); err != nil {
			return err
		}
		if !cmd.Bool("events") {
			return nil
		}
		for _, p := range passes {
			events, err := repo.Events(p.ID())
			if err != nil {
				return err
			}
			for _, e := range events {
				r.writePlain("#%d %-8s %s\n", p.Sequence(), e.Kind, e.Name)
			}
		}
		return nil
	}

	views := make([]passView, 0, len(passes))
	for _, p := range passes {
		c := p.Counts()
		v := passView{
			ID:         p.ID(),
			Sequence:   p.Sequence(),
			Playlist:   p.Playlist(),
			Fetched:    c.Fetched,
			Failed:     c.Failed,
			Deleted:    c.Deleted,
			Artifacts:  c.Artifacts,
			Error:      p.ErrorMessage(),
			StartedAt:  p.StartedAt().Format(time.RFC3339),
			FinishedAt: p.FinishedAt().Format(time.RFC3339),
		}
		if cmd.Bool("events") {
			if v.Events, err = repo.Events(p.ID()); err != nil {
				return err
			}
		}
		views = append(views, v)
	}
	return r.writeJSON(views, true)
}
