package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Skip conditions. Callers iterating a collection keep going when a track
// download ends in one of these.
var (
	ErrNotPlayable      = errors.New("track is not playable")
	ErrAlreadyExists    = errors.New("file already exists")
	ErrConversionFailed = errors.New("conversion failed")
)

// IsSkip reports whether err is a per-track skip condition rather than a
// failure that should abort a whole collection download.
func IsSkip(err error) bool {
	return errors.Is(err, ErrNotPlayable) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNoStream) ||
		errors.Is(err, ErrConversionFailed)
}

// StreamSource is the slice of the streaming session the downloader needs.
type StreamSource interface {
	LoadTrack(id string) (io.Reader, error)
	LoadEpisode(id string) (io.Reader, error)
	Quality() Quality
}

// Downloader sequences metadata lookup, streaming, conversion and tagging.
type Downloader struct {
	session StreamSource
	client  *SpotifyClient
	cover   *CoverClient
	lyrics  *LyricsClient
	history *History
	cfg     *Config
	format  Format
}

// NewDownloader wires a downloader from its collaborators. history may be
// nil when the history database could not be opened.
func NewDownloader(session StreamSource, client *SpotifyClient, history *History, cfg *Config) (*Downloader, error) {
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	return &Downloader{
		session: session,
		client:  client,
		cover:   NewCoverClient(),
		lyrics:  NewLyricsClient(),
		history: history,
		cfg:     cfg,
		format:  format,
	}, nil
}

// DownloadFromLink parses a Spotify URL or URI and dispatches to the right
// download routine.
func (d *Downloader) DownloadFromLink(ctx context.Context, input string) error {
	kind, id, err := ParseLink(input)
	if err != nil {
		return err
	}

	switch kind {
	case LinkTrack:
		return d.DownloadTrack(ctx, id, "")
	case LinkAlbum:
		return d.DownloadAlbum(ctx, id)
	case LinkPlaylist:
		return d.DownloadPlaylist(ctx, id)
	case LinkEpisode:
		return d.DownloadEpisode(ctx, id)
	default:
		return fmt.Errorf("unsupported link kind: %s", kind)
	}
}

// DownloadTrack fetches metadata, streams the audio, converts and tags a
// single track. subdir is an optional directory under the music root, used
// for album and playlist downloads.
func (d *Downloader) DownloadTrack(ctx context.Context, id string, subdir string) error {
	track, err := d.client.Track(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch track info: %w", err)
	}

	tags := track.Tags()
	songName := fmt.Sprintf("%s - %s", tags.PrimaryArtist(), track.Name)

	baseDir := filepath.Join(d.cfg.Root, subdir)
	finalPath := filepath.Join(baseDir, BuildTrackFilename(tags, d.cfg.FilenameFormat)+d.format.Ext())

	if !track.IsPlayable {
		Warn("Skip: %s is unavailable", songName)
		return fmt.Errorf("%s: %w", songName, ErrNotPlayable)
	}

	if !d.cfg.DisableSkip {
		if info, err := os.Stat(finalPath); err == nil && info.Size() > 0 {
			Warn("Skip: %s already exists", songName)
			return fmt.Errorf("%s: %w", finalPath, ErrAlreadyExists)
		}
	}

	// The API relinks region-restricted tracks to a playable twin; the
	// stream has to be requested with the canonical ID.
	if track.ID != "" && track.ID != id {
		id = track.ID
	}

	// History catches duplicates the file check misses, e.g. after the
	// root or filename format changed.
	if !d.cfg.DisableSkip && d.history != nil {
		if seen, err := d.history.Has(id); err == nil && seen {
			Warn("Skip: %s was already downloaded, pass --disable-skip to fetch it again", songName)
			return fmt.Errorf("%s: %w", songName, ErrAlreadyExists)
		}
	}

	titleColor.Printf("♫ %s\n", songName)

	var cover []byte
	var lyricsText string
	fetchCtx, cancelFetch := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(fetchCtx)
	// Error returns below must not leave the fetch goroutines running to
	// their HTTP timeouts.
	defer func() {
		cancelFetch()
		_ = g.Wait()
	}()
	if d.format != FormatOGG {
		g.Go(func() error {
			data, err := d.cover.Fetch(gctx, track.CoverURL())
			if err != nil {
				Warn("Warning: failed to download cover art: %v", err)
				return nil
			}
			cover = data
			return nil
		})
		if d.cfg.EmbedLyrics {
			g.Go(func() error {
				text, err := d.lyrics.Fetch(gctx, track.Name, tags.PrimaryArtist(), tags.Album, track.DurationMS)
				if err != nil {
					Warn("Warning: failed to fetch lyrics: %v", err)
					return nil
				}
				lyricsText = text
				return nil
			})
		}
	}

	stream, err := d.session.LoadTrack(id)
	if err != nil {
		Error("Skip: %s cannot be downloaded", songName)
		return fmt.Errorf("%s: %w", songName, err)
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rawPath := finalPath
	if d.format != FormatOGG {
		rawPath = finalPath + ".raw.ogg"
	}

	if err := d.writeStream(rawPath, stream, songName); err != nil {
		return err
	}

	_ = g.Wait()

	if d.format != FormatOGG {
		if err := ConvertTrack(rawPath, finalPath, d.format, d.session.Quality().Bitrate()); err != nil {
			os.Remove(rawPath)
			os.Remove(finalPath)
			Error("Skip: %s could not be converted: %v", songName, err)
			return fmt.Errorf("%s: %w", songName, ErrConversionFailed)
		}
		os.Remove(rawPath)

		if d.format == FormatFLAC {
			if info, err := VerifyFLAC(finalPath); err != nil {
				Warn("Warning: FLAC verification failed: %v", err)
			} else {
				Info("Verified: %s", info)
			}
		}

		tags.Lyrics = lyricsText
		if err := TagFile(finalPath, tags, cover); err != nil {
			Warn("Warning: failed to embed metadata: %v", err)
		}
	}

	Success("Saved %s", finalPath)
	d.record(HistoryEntry{
		SpotifyID: id,
		Kind:      string(LinkTrack),
		Title:     track.Name,
		Artist:    tags.JoinedArtists(),
		Path:      finalPath,
		Format:    string(d.format),
	})
	return nil
}

// DownloadAlbum downloads every track of an album into "Artist - Album/".
func (d *Downloader) DownloadAlbum(ctx context.Context, id string) error {
	album, err := d.client.Album(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch album info: %w", err)
	}

	artist := ""
	if len(album.Artists) > 0 {
		artist = album.Artists[0].Name
	}
	subdir := SanitizeFilename(fmt.Sprintf("%s - %s", artist, album.Name))

	tracks, err := d.client.AlbumTracks(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch album tracks: %w", err)
	}

	Info(">>> Downloading album: %s >>>", album.Name)
	for _, t := range tracks {
		if err := d.DownloadTrack(ctx, t.ID, subdir); err != nil && !IsSkip(err) {
			Error("Failed: %v", err)
		}
		fmt.Println()
	}
	return nil
}

// DownloadPlaylist downloads every surviving track of a playlist into a
// directory named after it.
func (d *Downloader) DownloadPlaylist(ctx context.Context, id string) error {
	playlist, err := d.client.Playlist(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist info: %w", err)
	}

	tracks, err := d.client.PlaylistTracks(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist tracks: %w", err)
	}

	Info(">>> Downloading playlist: %s >>>", playlist.Name)
	subdir := SanitizeFilename(playlist.Name)
	for _, t := range tracks {
		if t == nil || t.Name == "" {
			Warn("Skip: song does not exist on Spotify anymore")
			continue
		}
		if err := d.DownloadTrack(ctx, t.ID, subdir); err != nil && !IsSkip(err) {
			Error("Failed: %v", err)
		}
		fmt.Println()
	}
	return nil
}

// DownloadLikedSongs downloads the user's saved tracks into "Liked Songs/".
func (d *Downloader) DownloadLikedSongs(ctx context.Context) error {
	tracks, err := d.client.SavedTracks(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch liked songs: %w", err)
	}

	Info(">>> Downloading your liked songs >>>")
	for _, t := range tracks {
		if t == nil || t.Name == "" {
			Warn("Skip: song does not exist on Spotify anymore")
			continue
		}
		if err := d.DownloadTrack(ctx, t.ID, "Liked Songs"); err != nil && !IsSkip(err) {
			Error("Failed: %v", err)
		}
		fmt.Println()
	}
	return nil
}

// DownloadEpisode saves a podcast episode as a raw OGG stream under the
// podcast root. Episodes are never transcoded or tagged.
func (d *Downloader) DownloadEpisode(ctx context.Context, id string) error {
	episode, err := d.client.Episode(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch episode info: %w", err)
	}

	name := fmt.Sprintf("%s - %s", episode.Show.Name, episode.Name)
	finalPath := filepath.Join(d.cfg.PodcastRoot, SanitizeFilename(name)+FormatOGG.Ext())

	if !d.cfg.DisableSkip {
		if info, err := os.Stat(finalPath); err == nil && info.Size() > 0 {
			Warn("Skip: %s already exists", name)
			return fmt.Errorf("%s: %w", finalPath, ErrAlreadyExists)
		}
	}

	titleColor.Printf("♫ %s\n", name)

	stream, err := d.session.LoadEpisode(id)
	if err != nil {
		Error("Skip: %s cannot be downloaded", name)
		return fmt.Errorf("%s: %w", name, err)
	}

	if err := os.MkdirAll(d.cfg.PodcastRoot, 0755); err != nil {
		return fmt.Errorf("failed to create podcast directory: %w", err)
	}

	if err := d.writeStream(finalPath, stream, name); err != nil {
		return err
	}

	Success("Saved %s", finalPath)
	d.record(HistoryEntry{
		SpotifyID: id,
		Kind:      string(LinkEpisode),
		Title:     episode.Name,
		Artist:    episode.Show.Name,
		Path:      finalPath,
		Format:    string(FormatOGG),
	})
	return nil
}

// writeStream copies the decrypted bitstream to disk in 1 MiB chunks with a
// progress bar, removing the partial file on failure.
func (d *Downloader) writeStream(path string, stream io.Reader, label string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	pw := NewProgressWriter(out, label)
	buf := make([]byte, 1024*1024)
	_, err = io.CopyBuffer(pw, stream, buf)
	pw.Finish()
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write stream: %w", err)
	}

	Info("Received %.1f MiB", float64(pw.Total())/(1<<20))
	return nil
}

func (d *Downloader) record(e HistoryEntry) {
	if d.history == nil {
		return
	}
	if err := d.history.Add(e); err != nil {
		Warn("Warning: failed to record history: %v", err)
	}
}
