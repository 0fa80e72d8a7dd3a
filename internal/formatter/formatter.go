// package formatter renders a playlist's track list as CSV, Markdown, plain text or an M3U playlist
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/spotimirror/internal/library"
	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/shared"
)

// Format is an export format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
	M3U      Format = "m3u"
)

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	case "m3u", "m3u8":
		return M3U, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// Export is a playlist's catalog plus the folder it is mirrored into.
type Export struct {
	Playlist  models.Playlist
	Tracks    []models.Track
	Dir       string // mirrored folder; used for default M3U placement
	Extension string // audio extension, ".mp3" when empty
}

func (e *Export) ext() string {
	return library.NormalizeExtension(e.Extension)
}

// ToCSV converts an Export to CSV with columns: ID, Title, Artist, Link, File
func ToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Title", "Artist", "Link", "File"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{track.ID, track.Title, track.Artist(), track.Link, models.FileName(track, export.ext())}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts an Export to a Markdown document with linked tracks
func ToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)
	if export.Playlist.Owner != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n\n", export.Playlist.Owner)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		if track.Link != "" {
			fmt.Fprintf(&buf, "%d. [%s](%s)\n", i+1, track.DisplayName(), track.Link)
		} else {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, track.DisplayName())
		}
	}

	return buf.Bytes(), nil
}

// ToText converts an Export to plain text
func ToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track.DisplayName())
	}

	return buf.Bytes(), nil
}

// ToM3U converts an Export to an extended M3U playlist. Entries are file names relative to the mirrored folder,
// in catalog order, so a player opened in that folder plays the playlist in its remote order.
func ToM3U(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	fmt.Fprintf(&buf, "#PLAYLIST:%s\n", export.Playlist.Name)
	for _, track := range export.Tracks {
		fmt.Fprintf(&buf, "#EXTINF:-1,%s\n", track.DisplayName())
		fmt.Fprintf(&buf, "%s\n", models.FileName(track, export.ext()))
	}

	return buf.Bytes(), nil
}

// Render dispatches to the renderer for format.
func Render(export *Export, format Format) ([]byte, error) {
	switch format {
	case CSV:
		return ToCSV(export)
	case Markdown:
		return ToMarkdown(export)
	case Text:
		return ToText(export)
	case M3U:
		return ToM3U(export)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// DefaultPath is where [WriteExport] writes when no path is given.
//
// M3U playlists go inside the mirrored folder; other formats go to "{name}_tracks.{format}" in the working
// directory.
func DefaultPath(export *Export, format Format) string {
	base := filepath.Base(library.PlaylistDir("", export.Playlist.Name))
	if format == M3U && export.Dir != "" {
		return filepath.Join(export.Dir, base+".m3u")
	}
	return fmt.Sprintf("%s_tracks.%s", base, format)
}

// WriteExport renders export and writes it to path, or to [DefaultPath] when path is empty. The mirrored folder
// is created when a default M3U path points into it.
func WriteExport(export *Export, format Format, path string) (string, error) {
	if path == "" {
		path = DefaultPath(export, format)
		if format == M3U && export.Dir != "" {
			if err := os.MkdirAll(export.Dir, 0755); err != nil {
				return "", fmt.Errorf("failed to create playlist folder: %w", err)
			}
		}
	}

	data, err := Render(export, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}
