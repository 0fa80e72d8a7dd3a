package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/tasks"
)

// RenderProgress formats a single progress update as one line.
func RenderProgress(u tasks.ProgressUpdate) string {
	label := styles.muted.Render(fmt.Sprintf("[%s]", u.Phase))
	switch {
	case u.Playlist == "":
		return fmt.Sprintf("%s %s", label, u.Message)
	case u.Total > 0:
		return fmt.Sprintf("%s %s: %s (%d/%d)", label, u.Playlist, u.Message, u.Step, u.Total)
	default:
		return fmt.Sprintf("%s %s: %s", label, u.Playlist, u.Message)
	}
}

// RenderPassSummary formats the outcome of one reconciliation pass.
func RenderPassSummary(r *tasks.PassResult) string {
	if r == nil {
		return styles.err.Render("No result available")
	}

	var b strings.Builder
	if r.Err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ %s: %v", r.Playlist, r.Err)))
	} else {
		b.WriteString(styles.ok.Render(fmt.Sprintf("✓ %s is in sync", r.Playlist)))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Folder: %s\n", r.Dir)
	fmt.Fprintf(&b, "Catalog: %d tracks\n", r.Catalog)
	fmt.Fprintf(&b, "Fetched: %d (%d failed)\n", r.Fetched, r.Failed)
	fmt.Fprintf(&b, "Removed: %d stale, %d artifacts\n", len(r.Deleted), len(r.Artifacts))
	fmt.Fprintf(&b, "Took: %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	if len(r.Failures) > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.warn.Render(fmt.Sprintf("Failed to fetch %d tracks:", len(r.Failures))))
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "\n  • %s", f.Track.DisplayName())
		}
	}

	if len(r.Deleted) > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.muted.Render("Removed:"))
		for _, name := range r.Deleted {
			fmt.Fprintf(&b, "\n  • %s", name)
		}
	}

	return b.String()
}

// RenderPlaylists formats playlists as an aligned table.
func RenderPlaylists(playlists []models.Playlist) string {
	if len(playlists) == 0 {
		return styles.muted.Render("No playlists found")
	}

	width := len("NAME")
	for _, p := range playlists {
		width = max(width, lipgloss.Width(p.Name))
	}

	var b strings.Builder
	b.WriteString(styles.title.UnsetMarginBottom().Render(fmt.Sprintf("%-*s  %6s  %s", width, "NAME", "TRACKS", "OWNER")))
	for _, p := range playlists {
		pad := width - lipgloss.Width(p.Name)
		fmt.Fprintf(&b, "\n%s%s  %6d  %s", p.Name, strings.Repeat(" ", pad), p.TrackCount, p.Owner)
	}
	return b.String()
}

// RenderHistory formats recorded passes, newest first as returned by the repository.
func RenderHistory(records []*models.PassRecord) string {
	if len(records) == 0 {
		return styles.muted.Render("No passes recorded yet")
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Pass history"))
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("\n")

		c := r.Counts()
		status := styles.ok.Render("ok")
		if r.ErrorMessage() != "" {
			status = styles.err.Render("error")
		} else if c.Failed > 0 {
			status = styles.warn.Render("partial")
		}

		fmt.Fprintf(&b, "#%d %s  %s  %s\n", r.Sequence(), r.StartedAt().Local().Format(time.DateTime), r.Playlist(), status)
		fmt.Fprintf(&b, "   fetched %d, failed %d, removed %d, artifacts %d, took %s",
			c.Fetched, c.Failed, c.Deleted, c.Artifacts, r.Duration().Round(time.Millisecond))
		if msg := r.ErrorMessage(); msg != "" {
			fmt.Fprintf(&b, "\n   %s", styles.err.Render(msg))
		}
	}
	return b.String()
}
