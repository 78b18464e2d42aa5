package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func newTestSpotifyClient(ts *httptest.Server) *SpotifyClient {
	return &SpotifyClient{
		http:    ts.Client(),
		baseURL: ts.URL,
		token:   TokenFunc(func() (string, error) { return "test-token", nil }),
	}
}

func TestTrackRelinked(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization: got %q, want %q", got, "Bearer test-token")
		}
		if got := r.URL.Query().Get("market"); got != "from_token" {
			t.Errorf("market: got %q, want from_token", got)
		}
		if got := r.URL.Query().Get("ids"); got != "4uLU6hMCjMI75M1A2tKUQC" {
			t.Errorf("ids: got %q", got)
		}

		fmt.Fprint(w, `{"tracks":[{
			"id":"7GhIk7Il098yCjg4BQjzvb",
			"name":"Never Gonna Give You Up",
			"artists":[{"name":"Rick Astley"}],
			"album":{"name":"Whenever You Need Somebody","release_date":"1987-11-12",
				"images":[{"url":"https://img/640","width":640,"height":640}]},
			"disc_number":1,"track_number":1,"duration_ms":213573,"is_playable":true}]}`)
	}))
	defer ts.Close()

	track, err := newTestSpotifyClient(ts).Track(context.Background(), "4uLU6hMCjMI75M1A2tKUQC")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if track.ID != "7GhIk7Il098yCjg4BQjzvb" {
		t.Errorf("relinked ID: got %q", track.ID)
	}
	if track.Year() != "1987" {
		t.Errorf("Year: got %q, want 1987", track.Year())
	}
	if track.CoverURL() != "https://img/640" {
		t.Errorf("CoverURL: got %q", track.CoverURL())
	}

	tags := track.Tags()
	if tags.PrimaryArtist() != "Rick Astley" {
		t.Errorf("PrimaryArtist: got %q", tags.PrimaryArtist())
	}
	if tags.Album != "Whenever You Need Somebody" {
		t.Errorf("Album: got %q", tags.Album)
	}
}

func TestTrackNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tracks":[null]}`)
	}))
	defer ts.Close()

	if _, err := newTestSpotifyClient(ts).Track(context.Background(), "0000000000000000000000"); err == nil {
		t.Fatal("expected an error for an unknown track")
	}
}

func TestAlbumTracksPagination(t *testing.T) {
	const total = pageLimit + 3

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit != pageLimit {
			t.Errorf("limit: got %d, want %d", limit, pageLimit)
		}

		var items []string
		for i := offset; i < offset+limit && i < total; i++ {
			items = append(items, fmt.Sprintf(`{"id":"track-%03d","name":"Track %d"}`, i, i))
		}
		fmt.Fprintf(w, `{"items":[%s]}`, strings.Join(items, ","))
	}))
	defer ts.Close()

	tracks, err := newTestSpotifyClient(ts).AlbumTracks(context.Background(), "album-id")
	if err != nil {
		t.Fatalf("AlbumTracks: %v", err)
	}
	if len(tracks) != total {
		t.Fatalf("track count: got %d, want %d", len(tracks), total)
	}
	if tracks[0].ID != "track-000" {
		t.Errorf("first ID: got %q", tracks[0].ID)
	}
	if tracks[total-1].ID != fmt.Sprintf("track-%03d", total-1) {
		t.Errorf("last ID: got %q", tracks[total-1].ID)
	}
}

func TestPlaylistTracksKeepsGoneEntries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[
			{"track":null},
			{"track":{"id":"abc","name":"Still Here","is_playable":true}}
		]}`)
	}))
	defer ts.Close()

	tracks, err := newTestSpotifyClient(ts).PlaylistTracks(context.Background(), "pl-id")
	if err != nil {
		t.Fatalf("PlaylistTracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("entry count: got %d, want 2", len(tracks))
	}
	if tracks[0] != nil {
		t.Errorf("gone entry: got %+v, want nil", tracks[0])
	}
	if tracks[1] == nil || tracks[1].Name != "Still Here" {
		t.Errorf("surviving entry: got %+v", tracks[1])
	}
}

func TestSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != "track,album,playlist" {
			t.Errorf("type: got %q", got)
		}
		fmt.Fprint(w, `{
			"tracks":{"items":[{"id":"t1","name":"Song","artists":[{"name":"Someone"}]}]},
			"albums":{"items":[{"id":"a1","name":"Record"}]},
			"playlists":{"items":[{"id":"p1","name":"Mix","owner":{"display_name":"dj"}}]}
		}`)
	}))
	defer ts.Close()

	res, err := newTestSpotifyClient(ts).Search(context.Background(), "song", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Empty() {
		t.Fatal("Empty: got true, want false")
	}
	if len(res.Tracks) != 1 || res.Tracks[0].Name != "Song" {
		t.Errorf("tracks: got %+v", res.Tracks)
	}
	if len(res.Albums) != 1 || res.Albums[0].Name != "Record" {
		t.Errorf("albums: got %+v", res.Albums)
	}
	if len(res.Playlists) != 1 || res.Playlists[0].Owner.DisplayName != "dj" {
		t.Errorf("playlists: got %+v", res.Playlists)
	}
}

func TestGetJSONStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"status":403,"message":"Forbidden"}}`)
	}))
	defer ts.Close()

	_, err := newTestSpotifyClient(ts).Me(context.Background())
	if err == nil {
		t.Fatal("expected an error for a 403 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error should carry the status code, got %q", err.Error())
	}
}
