package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const defaultAPIBase = "https://api.spotify.com/v1"

// pageLimit is the default page size for paged listing endpoints; playlist
// track listings support (and use) 100.
const (
	pageLimit         = 50
	playlistPageLimit = 100
)

// TokenSource provides a bearer token for Web API calls. *Session satisfies
// it; tests substitute a static token.
type TokenSource interface {
	AccessToken() (string, error)
}

// TokenFunc adapts a plain function to a TokenSource.
type TokenFunc func() (string, error)

func (f TokenFunc) AccessToken() (string, error) { return f() }

// SpotifyClient talks to the Spotify Web API using the bearer token minted
// by the streaming session.
type SpotifyClient struct {
	http    *http.Client
	baseURL string
	token   TokenSource
}

func NewSpotifyClient(token TokenSource) *SpotifyClient {
	return &SpotifyClient{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: defaultAPIBase,
		token:   token,
	}
}

type Artist struct {
	Name string `json:"name"`
}

type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists"`
	Images      []Image  `json:"images"`
	ReleaseDate string   `json:"release_date"`
}

type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists"`
	Album       Album    `json:"album"`
	DiscNumber  int      `json:"disc_number"`
	TrackNumber int      `json:"track_number"`
	DurationMS  int      `json:"duration_ms"`
	IsPlayable  bool     `json:"is_playable"`
}

// Year extracts the release year from the album release date.
func (t *Track) Year() string {
	if i := strings.IndexByte(t.Album.ReleaseDate, '-'); i > 0 {
		return t.Album.ReleaseDate[:i]
	}
	return t.Album.ReleaseDate
}

// CoverURL returns the largest album image, which the API lists first.
func (t *Track) CoverURL() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

// Tags converts catalog metadata to the tag set embedded into files.
func (t *Track) Tags() TrackTags {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return TrackTags{
		Title:       t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		Year:        t.Year(),
		TrackNumber: t.TrackNumber,
		DiscNumber:  t.DiscNumber,
	}
}

type Playlist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
}

type Episode struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMS int    `json:"duration_ms"`
	Show       struct {
		Name string `json:"name"`
	} `json:"show"`
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"`
}

// playlistItem wraps a playlist/saved-tracks entry; Track is nil or has an
// empty name when the song no longer exists on Spotify.
type playlistItem struct {
	Track *Track `json:"track"`
}

func (c *SpotifyClient) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.token.AccessToken()
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, preview)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// fetchItems pages through a listing endpoint with limit/offset until a
// short page signals the end, passing each raw item to the callback.
func (c *SpotifyClient) fetchItems(ctx context.Context, endpoint string, query url.Values, limit int, each func(json.RawMessage) error) error {
	offset := 0
	for {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(offset))

		var page struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := c.getJSON(ctx, c.baseURL+endpoint+"?"+q.Encode(), &page); err != nil {
			return err
		}

		for _, item := range page.Items {
			if err := each(item); err != nil {
				return err
			}
		}

		if len(page.Items) < limit {
			return nil
		}
		offset += limit
	}
}

// Track fetches track metadata relative to the account market, so the
// returned ID may differ from the requested one when the track is relinked.
func (c *SpotifyClient) Track(ctx context.Context, id string) (*Track, error) {
	var res struct {
		Tracks []*Track `json:"tracks"`
	}
	u := c.baseURL + "/tracks?ids=" + url.QueryEscape(id) + "&market=from_token"
	if err := c.getJSON(ctx, u, &res); err != nil {
		return nil, err
	}
	if len(res.Tracks) == 0 || res.Tracks[0] == nil {
		return nil, fmt.Errorf("track %s not found", id)
	}
	return res.Tracks[0], nil
}

func (c *SpotifyClient) Album(ctx context.Context, id string) (*Album, error) {
	var album Album
	if err := c.getJSON(ctx, c.baseURL+"/albums/"+id, &album); err != nil {
		return nil, err
	}
	return &album, nil
}

// AlbumTracks lists the track IDs of an album in disc/track order.
func (c *SpotifyClient) AlbumTracks(ctx context.Context, id string) ([]Track, error) {
	var tracks []Track
	err := c.fetchItems(ctx, "/albums/"+id+"/tracks", nil, pageLimit, func(raw json.RawMessage) error {
		var t Track
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("failed to decode album track: %w", err)
		}
		tracks = append(tracks, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func (c *SpotifyClient) Playlist(ctx context.Context, id string) (*Playlist, error) {
	var pl Playlist
	u := c.baseURL + "/playlists/" + id + "?fields=" + url.QueryEscape("id,name,owner(display_name)") + "&market=from_token"
	if err := c.getJSON(ctx, u, &pl); err != nil {
		return nil, err
	}
	pl.Name = strings.TrimSpace(pl.Name)
	return &pl, nil
}

// PlaylistTracks lists the playable entries of a playlist. Entries whose
// track is gone from the catalog are returned with a nil Track so callers
// can report the skip.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, id string) ([]*Track, error) {
	var tracks []*Track
	err := c.fetchItems(ctx, "/playlists/"+id+"/tracks", nil, playlistPageLimit, func(raw json.RawMessage) error {
		var item playlistItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("failed to decode playlist item: %w", err)
		}
		tracks = append(tracks, item.Track)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func (c *SpotifyClient) Episode(ctx context.Context, id string) (*Episode, error) {
	var ep Episode
	if err := c.getJSON(ctx, c.baseURL+"/episodes/"+id, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// SavedTracks lists the user's liked songs.
func (c *SpotifyClient) SavedTracks(ctx context.Context) ([]*Track, error) {
	var tracks []*Track
	err := c.fetchItems(ctx, "/me/tracks", nil, pageLimit, func(raw json.RawMessage) error {
		var item playlistItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("failed to decode saved track: %w", err)
		}
		tracks = append(tracks, item.Track)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// MyPlaylists lists the playlists of the authenticated user.
func (c *SpotifyClient) MyPlaylists(ctx context.Context) ([]Playlist, error) {
	var playlists []Playlist
	err := c.fetchItems(ctx, "/me/playlists", nil, pageLimit, func(raw json.RawMessage) error {
		var pl Playlist
		if err := json.Unmarshal(raw, &pl); err != nil {
			return fmt.Errorf("failed to decode playlist: %w", err)
		}
		pl.Name = strings.TrimSpace(pl.Name)
		playlists = append(playlists, pl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return playlists, nil
}

// SearchResults groups the three result categories of a catalog search.
type SearchResults struct {
	Tracks    []Track
	Albums    []Album
	Playlists []Playlist
}

func (r *SearchResults) Empty() bool {
	return len(r.Tracks)+len(r.Albums)+len(r.Playlists) == 0
}

func (c *SpotifyClient) Search(ctx context.Context, query string, limit int) (*SearchResults, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track,album,playlist")
	q.Set("limit", strconv.Itoa(limit))

	var res struct {
		Tracks struct {
			Items []Track `json:"items"`
		} `json:"tracks"`
		Albums struct {
			Items []Album `json:"items"`
		} `json:"albums"`
		Playlists struct {
			Items []Playlist `json:"items"`
		} `json:"playlists"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/search?"+q.Encode(), &res); err != nil {
		return nil, err
	}

	return &SearchResults{
		Tracks:    res.Tracks.Items,
		Albums:    res.Albums.Items,
		Playlists: res.Playlists.Items,
	}, nil
}

// Me returns the account profile; Product distinguishes premium accounts.
func (c *SpotifyClient) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, c.baseURL+"/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
