package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const defaultLRCLibBase = "https://lrclib.net/api"

// LyricsClient fetches lyrics from the LRCLIB catalog. Synced (LRC) lyrics
// are preferred over plain text when both exist.
type LyricsClient struct {
	http    *http.Client
	baseURL string
}

func NewLyricsClient() *LyricsClient {
	return &LyricsClient{
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: defaultLRCLibBase,
	}
}

type lrclibResponse struct {
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
	Instrumental bool   `json:"instrumental"`
}

// Fetch looks up lyrics by track signature. A miss returns empty lyrics and
// a nil error; downloads never fail because lyrics are unavailable.
func (c *LyricsClient) Fetch(ctx context.Context, title, artist, album string, durationMS int) (string, error) {
	q := url.Values{}
	q.Set("track_name", title)
	q.Set("artist_name", artist)
	if album != "" {
		q.Set("album_name", album)
	}
	if durationMS > 0 {
		q.Set("duration", strconv.Itoa(durationMS/1000))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("lyrics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lyrics API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read lyrics body: %w", err)
	}

	var res lrclibResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("failed to decode lyrics response: %w", err)
	}

	if res.Instrumental {
		return "", nil
	}
	if res.SyncedLyrics != "" {
		return res.SyncedLyrics, nil
	}
	return res.PlainLyrics, nil
}
