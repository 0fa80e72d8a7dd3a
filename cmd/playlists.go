package main

import (
	"context"

	"github.com/desertthunder/spotimirror/internal/ui"
	"github.com/urfave/cli/v3"
)

// playlistsCommand lists the playlists a sync can target
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List the account's playlists",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Playlists,
	}
}

// Playlists prints every playlist visible to the authorized account.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	catalog, err := r.catalogFor(ctx, config)
	if err != nil {
		return err
	}

	playlists, err := catalog.Playlists(ctx)
	if err != nil {
		return err
	}

	r.logger.Debugf("found %v playlists", len(playlists))

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	return r.writePlain("%s\n", ui.RenderPlaylists(playlists))
}
