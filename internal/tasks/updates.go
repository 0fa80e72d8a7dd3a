package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a reconciliation pass.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase    Phase  // Operation phase
	Playlist string // Playlist the update belongs to, empty while sleeping
	Step     int    // Current step number within phase
	Total    int    // Total steps in this phase
	Message  string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchCatalog Phase = iota
	ScanLocal
	Download
	Cleanup
	Sleep
)

func (p Phase) String() string {
	switch p {
	case FetchCatalog:
		return "fetch_catalog"
	case ScanLocal:
		return "scan_local"
	case Download:
		return "download"
	case Cleanup:
		return "cleanup"
	case Sleep:
		return "sleep"
	default:
		return ""
	}
}

func fetchCatalogUpdate(playlist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    FetchCatalog,
		Playlist: playlist,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Fetching playlist %s from Spotify...", playlist),
	}
}

func scanLocalUpdate(playlist, dir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    ScanLocal,
		Playlist: playlist,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Scanning %s...", dir),
	}
}

func downloadUpdate(playlist string, missing, catalog int) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Download,
		Playlist: playlist,
		Step:     0,
		Total:    missing,
		Message:  fmt.Sprintf("Downloading %d of %d tracks...", missing, catalog),
	}
}

func cleanupUpdate(playlist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Cleanup,
		Playlist: playlist,
		Step:     1,
		Total:    1,
		Message:  "Cleaning up leftover files...",
	}
}

func sleepUpdate(d time.Duration) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Sleep,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Next pass in %s", d),
	}
}
