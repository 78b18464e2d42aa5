package backend

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// BuildTrackFilename renders the filename (without extension) for a track.
// Formats containing '{' are treated as templates with {title}, {artist},
// {album}, {year}, {track} and {disc} placeholders; the named presets
// "artist-title" (default) and "title" are kept for plain configs.
func BuildTrackFilename(tags TrackTags, format string) string {
	safeTitle := SanitizeFilename(tags.Title)
	safeArtist := SanitizeFilename(tags.PrimaryArtist())
	safeAlbum := SanitizeFilename(tags.Album)

	if strings.Contains(format, "{") {
		name := format
		name = strings.ReplaceAll(name, "{title}", safeTitle)
		name = strings.ReplaceAll(name, "{artist}", safeArtist)
		name = strings.ReplaceAll(name, "{album}", safeAlbum)
		name = strings.ReplaceAll(name, "{year}", tags.Year)

		if tags.DiscNumber > 0 {
			name = strings.ReplaceAll(name, "{disc}", fmt.Sprintf("%d", tags.DiscNumber))
		} else {
			name = strings.ReplaceAll(name, "{disc}", "")
		}

		if tags.TrackNumber > 0 {
			name = strings.ReplaceAll(name, "{track}", fmt.Sprintf("%02d", tags.TrackNumber))
		} else {
			name = regexp.MustCompile(`\{track\}[.\s-]*`).ReplaceAllString(name, "")
		}

		name = strings.Join(strings.Fields(name), " ")
		return strings.Trim(name, " -._")
	}

	switch format {
	case "title":
		return safeTitle
	default:
		return fmt.Sprintf("%s - %s", safeArtist, safeTitle)
	}
}

// SanitizeFilename strips characters that are invalid in filenames on at
// least one supported platform and collapses the leftover whitespace.
func SanitizeFilename(name string) string {
	sanitized := strings.ReplaceAll(name, "/", " ")

	re := regexp.MustCompile(`[<>:"\\|?*]`)
	sanitized = re.ReplaceAllString(sanitized, " ")

	var b strings.Builder
	for _, r := range sanitized {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}

	sanitized = strings.TrimSpace(b.String())
	sanitized = strings.Trim(sanitized, ". ")

	sanitized = regexp.MustCompile(`\s+`).ReplaceAllString(sanitized, " ")
	sanitized = strings.Trim(sanitized, "_ ")

	if sanitized == "" {
		return "Unknown"
	}

	if !utf8.ValidString(sanitized) {
		sanitized = strings.ToValidUTF8(sanitized, "_")
	}

	return sanitized
}
