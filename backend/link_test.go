package backend

import "testing"

func TestParseLink(t *testing.T) {
	tests := []struct {
		input string
		kind  LinkKind
		id    string
	}{
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", LinkTrack, "4uLU6hMCjMI75M1A2tKUQC"},
		{"spotify:album:6QaVfG1pHYl1z15ZxkvVDW", LinkAlbum, "6QaVfG1pHYl1z15ZxkvVDW"},
		{"spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", LinkPlaylist, "37i9dQZF1DXcBWIGoYBM5M"},
		{"spotify:episode:512ojhOuo1ktJprKbVcKyQ", LinkEpisode, "512ojhOuo1ktJprKbVcKyQ"},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", LinkTrack, "4uLU6hMCjMI75M1A2tKUQC"},
		{"http://open.spotify.com/album/6QaVfG1pHYl1z15ZxkvVDW", LinkAlbum, "6QaVfG1pHYl1z15ZxkvVDW"},
		{"open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", LinkPlaylist, "37i9dQZF1DXcBWIGoYBM5M"},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123", LinkTrack, "4uLU6hMCjMI75M1A2tKUQC"},
		{"https://open.spotify.com/episode/512ojhOuo1ktJprKbVcKyQ?si=x&utm_source=copy", LinkEpisode, "512ojhOuo1ktJprKbVcKyQ"},
	}

	for _, tt := range tests {
		kind, id, err := ParseLink(tt.input)
		if err != nil {
			t.Errorf("ParseLink(%q) returned error: %v", tt.input, err)
			continue
		}
		if kind != tt.kind || id != tt.id {
			t.Errorf("ParseLink(%q) = (%s, %s), want (%s, %s)", tt.input, kind, id, tt.kind, tt.id)
		}
	}
}

func TestParseLinkRejectsInvalid(t *testing.T) {
	invalid := []string{
		"",
		"not a link",
		"spotify:artist:4uLU6hMCjMI75M1A2tKUQC",
		"spotify:track:tooshort",
		"https://open.spotify.com/track/invalid!chars!in!id!!!",
		"https://example.com/track/4uLU6hMCjMI75M1A2tKUQC",
		"spotify:track:4uLU6hMCjMI75M1A2tKUQCextra",
	}

	for _, input := range invalid {
		if _, _, err := ParseLink(input); err == nil {
			t.Errorf("ParseLink(%q) succeeded, want error", input)
		}
	}
}
