package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/spotimirror/internal/models"
)

// Plan is the outcome of comparing a catalog with a folder.
type Plan struct {
	Fetch     []models.Track // missing tracks, in catalog order
	Delete    []string       // stale audio files
	Artifacts []string       // tracking artifacts, always removed
}

// Empty reports whether the plan has nothing to do.
func (p Plan) Empty() bool {
	return len(p.Fetch) == 0 && len(p.Delete) == 0 && len(p.Artifacts) == 0
}

// CleanupResult lists the files Cleanup removed.
type CleanupResult struct {
	Deleted   []string
	Artifacts []string
}

// Reconcile computes the fetch and delete sets for one playlist folder.
func Reconcile(catalog []models.Track, state *LocalState, ext string) Plan {
	ext = NormalizeExtension(ext)
	if state == nil {
		state = &LocalState{}
	}

	var plan Plan
	expected := make(map[string]bool, len(catalog))
	for _, t := range catalog {
		name := models.FileName(t, ext)
		if expected[name] {
			continue
		}
		expected[name] = true
		if !state.Has(name) {
			plan.Fetch = append(plan.Fetch, t)
		}
	}

	plan.Delete = stale(catalog, state.Audio)
	plan.Artifacts = append(plan.Artifacts, state.Artifacts...)
	return plan
}

// stale returns the files whose artist and title both miss every catalog track.
// Keeping files that match on either segment is intentional.
func stale(catalog []models.Track, files []string) []string {
	artists := make(map[string]bool, len(catalog))
	titles := make(map[string]bool, len(catalog))
	for _, t := range catalog {
		artists[t.Artist()] = true
		titles[t.Title] = true
	}

	var out []string
	for _, f := range files {
		artist, title := models.ParseFileName(f)
		if !artists[artist] && !titles[title] {
			out = append(out, f)
		}
	}
	return out
}

// Cleanup re-scans dir after downloads, removes stale audio files and then every tracking artifact.
//
// Removal failures do not stop the sweep; they are joined into the returned error.
func Cleanup(dir string, catalog []models.Track, ext string) (CleanupResult, error) {
	var result CleanupResult

	state, err := Scan(dir, ext)
	if err != nil {
		return result, err
	}

	plan := Reconcile(catalog, state, ext)

	var errs []error
	for _, name := range plan.Delete {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", name, err))
			continue
		}
		result.Deleted = append(result.Deleted, name)
	}
	for _, name := range plan.Artifacts {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete artifact %s: %w", name, err))
			continue
		}
		result.Artifacts = append(result.Artifacts, name)
	}

	return result, errors.Join(errs...)
}
