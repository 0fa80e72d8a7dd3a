package models

import (
	"path/filepath"
	"strings"
	"time"
)

// ArtistSeparator joins multiple artist names in filenames and display strings.
const ArtistSeparator = " & "

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Playlist represents a playlist visible to the authenticated account.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
}

// Track is a single catalog entry. It is immutable once fetched.
type Track struct {
	ID      string   `json:"id"`
	Link    string   `json:"link"`
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
}

// Artist returns the artist names joined with [ArtistSeparator], in remote order.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ArtistSeparator)
}

// DisplayName returns "<artists> - <title>".
func (t Track) DisplayName() string {
	return t.Artist() + " - " + t.Title
}

// FileName returns the expected local filename for t, e.g. "A & B - Song.mp3".
func FileName(t Track, ext string) string {
	return t.DisplayName() + ext
}

// ParseFileName splits a local filename into its artist and title segments.
//
// The artist is everything before the first " - " (or the first bare "-" when the name has no spaced separator);
// the title is the remainder with the extension removed. Both are trimmed. A name without "-" yields an empty title.
// Preferring " - " over the first bare "-" keeps hyphenated artists such as "Jay-Z" whole.
func ParseFileName(name string) (artist, title string) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	var ok bool
	if artist, title, ok = strings.Cut(stem, " - "); !ok {
		artist, title, _ = strings.Cut(stem, "-")
	}
	return strings.TrimSpace(artist), strings.TrimSpace(title)
}
