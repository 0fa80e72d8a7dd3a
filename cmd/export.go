package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotimirror/internal/formatter"
	"github.com/desertthunder/spotimirror/internal/library"
	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// exportCommand writes a playlist's track list to a file
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a playlist's tracks as csv, md, txt, or an m3u playlist for the mirrored folder",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Exact name of the playlist",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "One of csv, md, txt, m3u",
				Value:   string(formatter.M3U),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Mirror root, used to place m3u files inside the playlist folder",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Write to this path instead of the default",
			},
		},
		Action: r.Export,
	}
}

// Export renders one playlist's catalog in the requested format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	root := cmd.String("output")
	if root == "" {
		root = config.Sync.Output
	}
	if format == formatter.M3U && root == "" && cmd.String("file") == "" {
		return fmt.Errorf("%w: m3u export needs --output or --file", shared.ErrMissingArgument)
	}

	catalog, err := r.catalogFor(ctx, config)
	if err != nil {
		return err
	}

	name := cmd.String("playlist")
	playlist := models.Playlist{Name: name}
	if playlists, err := catalog.Playlists(ctx); err == nil {
		for _, p := range playlists {
			if p.Name == name {
				playlist = p
				break
			}
		}
	} else {
		r.logger.Warn("could not load playlist details", "error", err)
	}

	tracks, err := catalog.PlaylistTracks(ctx, name)
	if err != nil {
		return err
	}

	export := &formatter.Export{
		Playlist:  playlist,
		Tracks:    tracks,
		Extension: config.Sync.Extension,
	}
	if root != "" {
		export.Dir = library.PlaylistDir(root, name)
	}

	path, err := formatter.WriteExport(export, format, cmd.String("file"))
	if err != nil {
		return err
	}

	r.logger.Debug("export written", "playlist", name, "format", format, "tracks", len(tracks))
	return r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), path)
}
