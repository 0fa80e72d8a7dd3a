// Spotify Web API implementation of [Catalog]
//
// Requests go through github.com/zmb3/spotify/v2 and are paced by a [rate.Limiter].
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotimirror/internal/models"
	"github.com/desertthunder/spotimirror/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	playlistPageSize = 50
	trackPageSize    = 100

	defaultRequestsPerSecond = 5
	spotifyTrackURL          = "https://open.spotify.com/track/"
)

// SpotifyService implements [OAuthService] for the Spotify Web API.
type SpotifyService struct {
	auth           *spotifyauth.Authenticator
	config         *oauth2.Config
	client         *spotify.Client
	limiter        *rate.Limiter
	logger         *log.Logger
	baseURL        string
	onTokenRefresh func(*oauth2.Token)
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports every token it has not seen before.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the client at a different API root. The URL must end with a slash.
func WithBaseURL(url string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = url }
}

// WithRequestsPerSecond caps page requests. Values <= 0 keep the default.
func WithRequestsPerSecond(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithServiceLogger sets the logger used for warnings such as duplicate playlist names.
func WithServiceLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{spotifyauth.ScopePlaylistReadPrivate},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		auth: spotifyauth.New(
			spotifyauth.WithClientID(clientID),
			spotifyauth.WithClientSecret(clientSecret),
			spotifyauth.WithRedirectURL(redirectURI),
			spotifyauth.WithScopes(spotifyauth.ScopePlaylistReadPrivate),
		),
		limiter: rate.NewLimiter(defaultRequestsPerSecond, 1),
		logger:  shared.NewLogger(nil),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.auth.AuthURL(state)
}

// Exchange trades the callback code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	token, err := s.auth.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// OAuthenticate builds the API client from a saved token. Expired tokens are refreshed by the oauth2 transport.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: no saved token, run 'spotimirror auth'", shared.ErrNotAuthenticated)
	}

	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}
	s.setClient(oauth2.NewClient(ctx, source))
	return nil
}

// SetTokenRefreshCallback registers fn to receive tokens issued by an automatic refresh.
// It must be called before [SpotifyService.OAuthenticate].
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

func (s *SpotifyService) setClient(httpClient *http.Client) {
	var opts []spotify.ClientOption
	if s.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.baseURL))
	}
	s.client = spotify.New(httpClient, opts...)
}

// Token returns the token currently held by the client, which differs from the saved one after a refresh.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.client == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.client.Token()
}

// CurrentUser returns the authenticated user's display name, used to verify a fresh token.
func (s *SpotifyService) CurrentUser(ctx context.Context) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return "", wrapAPIError(err)
	}
	if user.DisplayName != "" {
		return user.DisplayName, nil
	}
	return user.ID, nil
}

// Playlists enumerates the current user's playlists, 50 per request, until the API reports no next page.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	offset := 0

	for {
		if err := s.ready(ctx); err != nil {
			return nil, err
		}

		page, err := s.client.CurrentUsersPlaylists(ctx, spotify.Limit(playlistPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, wrapAPIError(err)
		}

		for _, sp := range page.Playlists {
			playlists = append(playlists, models.Playlist{
				ID:         string(sp.ID),
				Name:       sp.Name,
				Owner:      sp.Owner.DisplayName,
				TrackCount: int(sp.Tracks.Total),
				Public:     sp.IsPublic,
			})
		}

		if page.Next == "" || len(page.Playlists) == 0 {
			break
		}
		offset += len(page.Playlists)
	}

	return playlists, nil
}

// FindPlaylist returns the first playlist whose name matches exactly.
func (s *SpotifyService) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	playlists, err := s.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	var found *models.Playlist
	matches := 0
	for i := range playlists {
		if playlists[i].Name != name {
			continue
		}
		matches++
		if found == nil {
			found = &playlists[i]
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
	}
	if matches > 1 {
		s.logger.Warn("playlist name is not unique, using first match", "playlist", name, "matches", matches, "id", found.ID)
	}

	return found, nil
}

// Tracks pages through a playlist's items, 100 per request, until the offset reaches the reported total.
//
// Episodes and unavailable items carry no track and are skipped.
func (s *SpotifyService) Tracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0

	for {
		if err := s.ready(ctx); err != nil {
			return nil, err
		}

		page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(trackPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, wrapAPIError(err)
		}

		for _, item := range page.Items {
			if item.Track.Track == nil {
				continue
			}
			tracks = append(tracks, toTrack(item.Track.Track))
		}

		if len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
		if offset >= int(page.Total) {
			break
		}
	}

	return tracks, nil
}

// PlaylistTracks resolves a playlist by name and returns its tracks.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, name string) ([]models.Track, error) {
	playlist, err := s.FindPlaylist(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.Tracks(ctx, playlist.ID)
}

// ready checks authentication and waits for the rate limiter.
func (s *SpotifyService) ready(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("%w: call OAuthenticate first", shared.ErrNotAuthenticated)
	}
	return s.limiter.Wait(ctx)
}

func toTrack(ft *spotify.FullTrack) models.Track {
	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, a.Name)
	}

	link := ft.ExternalURLs["spotify"]
	if link == "" && ft.ID != "" {
		link = spotifyTrackURL + string(ft.ID)
	}

	return models.Track{
		ID:      string(ft.ID),
		Link:    link,
		Title:   ft.Name,
		Artists: artists,
	}
}

func wrapAPIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
		case http.StatusServiceUnavailable, http.StatusBadGateway:
			return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
}
