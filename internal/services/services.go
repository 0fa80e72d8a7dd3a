// package services defines the interfaces used to read playlists from a remote music service
package services

import (
	"context"

	"github.com/desertthunder/spotimirror/internal/models"
	"golang.org/x/oauth2"
)

// Catalog is a read-only view of a remote account's playlists.
type Catalog interface {
	// Playlists enumerates every playlist visible to the authenticated user.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks returns the current track list of the playlist with the given name.
	PlaylistTracks(ctx context.Context, name string) ([]models.Track, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends [Catalog] for providers that authorize through the OAuth2 code flow.
type OAuthService interface {
	Catalog

	// AuthURL returns the URL the user visits to grant access.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

	// OAuthenticate builds the API client from a previously issued token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
