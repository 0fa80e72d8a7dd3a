// Package services reads playlists from remote music services.
//
// # Catalog
//
// [Catalog] is the read-only contract the sync engine depends on: enumerate playlists and fetch the current
// track list of one playlist by name. [SpotifyService] implements it on github.com/zmb3/spotify/v2.
//
// # Pagination
//
// Playlists are requested 50 at a time until the API stops returning a next page. Playlist items are requested
// 100 at a time and the offset advances by the number of items received until it reaches the reported total, so
// a 250 track playlist costs three requests. Episodes and unavailable items carry no track and are skipped.
//
// Every page request first waits on a [rate.Limiter] sized by spotify.requests_per_second.
//
// # OAuth
//
// [OAuthService] adds the authorization code flow used by 'spotimirror auth'. Saved tokens are wrapped in a
// token source that refreshes them through golang.org/x/oauth2 and reports new tokens through
// [SpotifyService.SetTokenRefreshCallback] so the CLI can write them back to config.toml.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : client_id or client_secret absent
//   - [shared.ErrNotAuthenticated] : no token, or the API answered 401
//   - [shared.ErrServiceUnavailable] : the API answered 502 or 503
//   - [shared.ErrAPIRequest] : any other failed request
//   - [shared.ErrPlaylistNotFound] : no playlist with the requested name
package services
