package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/spotimirror/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
	"redirect_uri":  "http://127.0.0.1:3000/callback",
}

// fakeSpotify serves the subset of the Web API used by [SpotifyService].
type fakeSpotify struct {
	mu        sync.Mutex
	playlists []map[string]any
	tracks    map[string][]map[string]any
	offsets   []int
	status    int
}

func (f *fakeSpotify) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "user1", "display_name": "Test User"})
	})
	mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		if f.fail(w) {
			return
		}
		offset, limit := pageParams(r)
		items, next := slicePage(f.playlists, offset, limit)
		writeJSON(w, map[string]any{
			"items":  items,
			"total":  len(f.playlists),
			"offset": offset,
			"limit":  limit,
			"next":   next,
		})
	})
	mux.HandleFunc("/playlists/", func(w http.ResponseWriter, r *http.Request) {
		if f.fail(w) {
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 {
			http.NotFound(w, r)
			return
		}
		all, ok := f.tracks[parts[1]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]any{"error": map[string]any{"status": 404, "message": "Not found."}})
			return
		}

		offset, limit := pageParams(r)
		f.mu.Lock()
		f.offsets = append(f.offsets, offset)
		f.mu.Unlock()

		items, next := slicePage(all, offset, limit)
		writeJSON(w, map[string]any{
			"items":  items,
			"total":  len(all),
			"offset": offset,
			"limit":  limit,
			"next":   next,
		})
	})
	return mux
}

func (f *fakeSpotify) fail(w http.ResponseWriter) bool {
	if f.status == 0 {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"status": f.status, "message": http.StatusText(f.status)},
	})
	return true
}

func (f *fakeSpotify) requestOffsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

func pageParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	return offset, limit
}

func slicePage(all []map[string]any, offset, limit int) ([]map[string]any, any) {
	if offset > len(all) {
		offset = len(all)
	}
	end := min(offset+limit, len(all))
	var next any
	if end < len(all) {
		next = fmt.Sprintf("http://example.invalid/next?offset=%d", end)
	}
	return all[offset:end], next
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func playlistJSON(id, name string, total int) map[string]any {
	return map[string]any{
		"id":     id,
		"name":   name,
		"public": true,
		"owner":  map[string]any{"id": "user1", "display_name": "Test User"},
		"tracks": map[string]any{"href": "", "total": total},
	}
}

func trackItem(id, name string, artists ...string) map[string]any {
	as := make([]map[string]any, 0, len(artists))
	for _, a := range artists {
		as = append(as, map[string]any{"name": a})
	}
	return map[string]any{
		"track": map[string]any{
			"type":          "track",
			"id":            id,
			"name":          name,
			"artists":       as,
			"external_urls": map[string]any{"spotify": "https://open.spotify.com/track/" + id},
		},
	}
}

func episodeItem(id string) map[string]any {
	return map[string]any{
		"track": map[string]any{"type": "episode", "id": id, "name": "Episode " + id},
	}
}

func newTestService(t *testing.T, fake *fakeSpotify) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(testCredentials, WithBaseURL(server.URL+"/"), WithRequestsPerSecond(1000))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if err := srv.OAuthenticate(context.Background(), &oauth2.Token{AccessToken: "test_access_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.config.RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.AuthURL("test_state")
		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "playlist-read-private"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL %q should contain %q", authURL, want)
			}
		}
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		if err := srv.OAuthenticate(context.Background(), nil); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated for nil token, got %v", err)
		}
		if _, err := srv.Playlists(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if _, err := srv.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("CurrentUser", func(t *testing.T) {
		srv := newTestService(t, &fakeSpotify{})

		name, err := srv.CurrentUser(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if name != "Test User" {
			t.Errorf("expected 'Test User', got %q", name)
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		t.Run("pages until next is empty", func(t *testing.T) {
			fake := &fakeSpotify{}
			for i := range 120 {
				fake.playlists = append(fake.playlists, playlistJSON(fmt.Sprintf("pl%d", i), fmt.Sprintf("Playlist %d", i), i))
			}
			srv := newTestService(t, fake)

			playlists, err := srv.Playlists(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(playlists) != 120 {
				t.Fatalf("expected 120 playlists, got %d", len(playlists))
			}
			if playlists[119].Name != "Playlist 119" || playlists[119].TrackCount != 119 {
				t.Errorf("unexpected last playlist: %+v", playlists[119])
			}
			if playlists[0].Owner != "Test User" || !playlists[0].Public {
				t.Errorf("unexpected owner mapping: %+v", playlists[0])
			}
		})

		t.Run("unauthorized maps to ErrNotAuthenticated", func(t *testing.T) {
			srv := newTestService(t, &fakeSpotify{status: http.StatusUnauthorized})

			_, err := srv.Playlists(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("other failures map to ErrAPIRequest", func(t *testing.T) {
			srv := newTestService(t, &fakeSpotify{status: http.StatusBadRequest})

			_, err := srv.Playlists(context.Background())
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("FindPlaylist", func(t *testing.T) {
		fake := &fakeSpotify{
			playlists: []map[string]any{
				playlistJSON("a", "Road Trip", 1),
				playlistJSON("b", "Focus", 2),
				playlistJSON("c", "Road Trip", 3),
			},
		}
		srv := newTestService(t, fake)

		t.Run("first match wins", func(t *testing.T) {
			p, err := srv.FindPlaylist(context.Background(), "Road Trip")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if p.ID != "a" {
				t.Errorf("expected first match 'a', got %q", p.ID)
			}
		})

		t.Run("exact name only", func(t *testing.T) {
			_, err := srv.FindPlaylist(context.Background(), "road trip")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("missing", func(t *testing.T) {
			_, err := srv.FindPlaylist(context.Background(), "Nope")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})
	})

	t.Run("Tracks", func(t *testing.T) {
		t.Run("250 tracks take 3 requests", func(t *testing.T) {
			fake := &fakeSpotify{tracks: map[string][]map[string]any{}}
			for i := range 250 {
				fake.tracks["big"] = append(fake.tracks["big"], trackItem(fmt.Sprintf("t%d", i), fmt.Sprintf("Song %d", i), "Artist"))
			}
			srv := newTestService(t, fake)

			tracks, err := srv.Tracks(context.Background(), "big")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 250 {
				t.Fatalf("expected 250 tracks, got %d", len(tracks))
			}
			for i, tr := range tracks {
				if tr.ID != fmt.Sprintf("t%d", i) {
					t.Fatalf("expected track %d to be t%d, got %s", i, i, tr.ID)
				}
			}

			offsets := fake.requestOffsets()
			want := []int{0, 100, 200}
			if len(offsets) != len(want) {
				t.Fatalf("expected %d requests, got %d (%v)", len(want), len(offsets), offsets)
			}
			for i := range want {
				if offsets[i] != want[i] {
					t.Errorf("request %d: expected offset %d, got %d", i, want[i], offsets[i])
				}
			}
		})

		t.Run("maps artists and links", func(t *testing.T) {
			fake := &fakeSpotify{tracks: map[string][]map[string]any{
				"pl": {trackItem("x1", "Under Pressure", "Queen", "David Bowie")},
			}}
			srv := newTestService(t, fake)

			tracks, err := srv.Tracks(context.Background(), "pl")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 {
				t.Fatalf("expected 1 track, got %d", len(tracks))
			}
			tr := tracks[0]
			if tr.Artist() != "Queen & David Bowie" {
				t.Errorf("expected joined artists, got %q", tr.Artist())
			}
			if tr.Link != "https://open.spotify.com/track/x1" {
				t.Errorf("unexpected link %q", tr.Link)
			}
			if tr.Title != "Under Pressure" {
				t.Errorf("unexpected title %q", tr.Title)
			}
		})

		t.Run("skips episodes", func(t *testing.T) {
			fake := &fakeSpotify{tracks: map[string][]map[string]any{
				"mixed": {trackItem("t1", "One", "A"), episodeItem("e1"), trackItem("t2", "Two", "B")},
			}}
			srv := newTestService(t, fake)

			tracks, err := srv.Tracks(context.Background(), "mixed")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 2 || tracks[0].ID != "t1" || tracks[1].ID != "t2" {
				t.Errorf("expected only t1 and t2, got %+v", tracks)
			}
		})

		t.Run("empty playlist makes one request", func(t *testing.T) {
			fake := &fakeSpotify{tracks: map[string][]map[string]any{"empty": {}}}
			srv := newTestService(t, fake)

			tracks, err := srv.Tracks(context.Background(), "empty")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 0 {
				t.Errorf("expected no tracks, got %d", len(tracks))
			}
			if n := len(fake.requestOffsets()); n != 1 {
				t.Errorf("expected 1 request, got %d", n)
			}
		})
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		fake := &fakeSpotify{
			playlists: []map[string]any{playlistJSON("pl1", "Road Trip", 1)},
			tracks: map[string][]map[string]any{
				"pl1": {trackItem("t1", "Song1", "A")},
			},
		}
		srv := newTestService(t, fake)

		tracks, err := srv.PlaylistTracks(context.Background(), "Road Trip")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].Title != "Song1" {
			t.Errorf("unexpected tracks %+v", tracks)
		}

		if _, err := srv.PlaylistTracks(context.Background(), "Elsewhere"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Service Interface", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ OAuthService = srv
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		srv.SetTokenRefreshCallback(func(token *oauth2.Token) {})
		if srv.onTokenRefresh == nil {
			t.Error("expected callback to be set")
		}

		srv.SetTokenRefreshCallback(nil)
		if srv.onTokenRefresh != nil {
			t.Error("expected callback to be nil")
		}
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			var captured *oauth2.Token
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
				callback: func(token *oauth2.Token) { captured = token },
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if captured == nil || captured.AccessToken != "test_token" {
				t.Errorf("expected callback with test_token, got %+v", captured)
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("calls callback only when token changes", func(t *testing.T) {
			calls := 0
			mock := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
			source := &refreshableTokenSource{
				source:   mock,
				callback: func(*oauth2.Token) { calls++ },
				last:     "token1",
			}

			_, _ = source.Token()
			_, _ = source.Token()
			if calls != 0 {
				t.Errorf("expected no callbacks for the saved token, got %d", calls)
			}

			mock.token = &oauth2.Token{AccessToken: "token2"}
			_, _ = source.Token()
			_, _ = source.Token()
			if calls != 1 {
				t.Errorf("expected 1 callback after refresh, got %d", calls)
			}
		})

		t.Run("handles nil callback", func(t *testing.T) {
			source := &refreshableTokenSource{
				source: &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
			}
			if _, err := source.Token(); err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			source := &refreshableTokenSource{
				source: &mockTokenSource{err: errors.New("token source error")},
				callback: func(*oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil || !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}

func TestToTrack(t *testing.T) {
	tc := []struct {
		name     string
		id       spotify.ID
		external string
		want     string
	}{
		{name: "External URL", id: "abc", external: "https://open.spotify.com/track/abc?si=1", want: "https://open.spotify.com/track/abc?si=1"},
		{name: "Built From ID", id: "abc", want: "https://open.spotify.com/track/abc"},
		{name: "Local File Has No Link", id: "", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			ft := &spotify.FullTrack{
				SimpleTrack: spotify.SimpleTrack{
					ID:      tt.id,
					Name:    "Song",
					Artists: []spotify.SimpleArtist{{Name: "A"}, {Name: "B"}},
				},
			}
			if tt.external != "" {
				ft.ExternalURLs = map[string]string{"spotify": tt.external}
			}

			got := toTrack(ft)
			if got.Link != tt.want {
				t.Errorf("expected link %q, got %q", tt.want, got.Link)
			}
			if got.Artist() != "A & B" || got.ID != string(tt.id) {
				t.Errorf("unexpected track %+v", got)
			}
		})
	}
}
