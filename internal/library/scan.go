package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TrackingSuffix marks the bookkeeping files spotdl leaves in the output folder.
const TrackingSuffix = ".spotdlTrackingFile"

// DefaultExtension is used when no extension is configured.
const DefaultExtension = ".mp3"

// NormalizeExtension returns ext with a leading dot, or [DefaultExtension] when ext is empty.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" || ext == "." {
		return DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// PlaylistDir returns the folder under root that mirrors the named playlist. Path separators in the name are
// replaced so the folder cannot escape root.
func PlaylistDir(root, name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "." || name == ".." || name == "" {
		name = "_" + name
	}
	return filepath.Join(root, name)
}

// LocalState is the content of a playlist folder at one point in time.
type LocalState struct {
	Dir       string
	Audio     []string // file names with the audio extension, sorted
	Artifacts []string // tracking artifacts, sorted
}

// Has reports whether name is one of the audio files.
func (s *LocalState) Has(name string) bool {
	i := sort.SearchStrings(s.Audio, name)
	return i < len(s.Audio) && s.Audio[i] == name
}

// Scan lists dir, creating it first when it does not exist.
func Scan(dir, ext string) (*LocalState, error) {
	ext = NormalizeExtension(ext)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create playlist folder: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist folder: %w", err)
	}

	state := &LocalState{Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.Contains(name, TrackingSuffix):
			state.Artifacts = append(state.Artifacts, name)
		case filepath.Ext(name) == ext:
			state.Audio = append(state.Audio, name)
		}
	}

	sort.Strings(state.Audio)
	sort.Strings(state.Artifacts)
	return state, nil
}
