package backend

import (
	"fmt"
	"regexp"
)

// LinkKind is the resource type encoded in a Spotify URL or URI.
type LinkKind string

const (
	LinkTrack    LinkKind = "track"
	LinkAlbum    LinkKind = "album"
	LinkPlaylist LinkKind = "playlist"
	LinkEpisode  LinkKind = "episode"
)

var (
	spotifyURIRe = regexp.MustCompile(`^spotify:(track|album|playlist|episode):([0-9a-zA-Z]{22})$`)
	spotifyURLRe = regexp.MustCompile(`^(?:https?://)?open\.spotify\.com/(track|album|playlist|episode)/([0-9a-zA-Z]{22})(?:\?.*)?$`)
)

// ParseLink resolves a Spotify URI (spotify:track:ID) or open.spotify.com URL
// to its kind and 22-character base62 ID.
func ParseLink(input string) (LinkKind, string, error) {
	if m := spotifyURIRe.FindStringSubmatch(input); m != nil {
		return LinkKind(m[1]), m[2], nil
	}
	if m := spotifyURLRe.FindStringSubmatch(input); m != nil {
		return LinkKind(m[1]), m[2], nil
	}
	return "", "", fmt.Errorf("input %q does not match any Spotify URL or URI pattern", input)
}
