package backend

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// TrackTags is the catalog metadata embedded into a downloaded file.
type TrackTags struct {
	Title       string
	Artists     []string
	Album       string
	Year        string
	TrackNumber int
	TotalTracks int
	DiscNumber  int
	Lyrics      string
}

func (t TrackTags) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

func (t TrackTags) JoinedArtists() string {
	return strings.Join(t.Artists, ", ")
}

// TagFile writes tags and cover art into path, choosing the tag format by
// file extension. Raw .ogg passthrough files are left untouched.
func TagFile(path string, tags TrackTags, cover []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return tagMP3(path, tags, cover)
	case ".flac":
		return tagFLAC(path, tags, cover)
	case ".ogg":
		return nil
	default:
		return fmt.Errorf("unsupported file format for tagging: %s", filepath.Ext(path))
	}
}

func tagFLAC(path string, tags TrackTags, cover []byte) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	cmtIdx := -1
	for idx, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			cmtIdx = idx
			break
		}
	}

	cmt := flacvorbis.New()

	if tags.Title != "" {
		_ = cmt.Add(flacvorbis.FIELD_TITLE, tags.Title)
	}
	if artist := tags.JoinedArtists(); artist != "" {
		_ = cmt.Add(flacvorbis.FIELD_ARTIST, artist)
	}
	if tags.Album != "" {
		_ = cmt.Add(flacvorbis.FIELD_ALBUM, tags.Album)
	}
	if tags.Year != "" {
		_ = cmt.Add(flacvorbis.FIELD_DATE, tags.Year)
	}
	if tags.TrackNumber > 0 {
		_ = cmt.Add(flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(tags.TrackNumber))
	}
	if tags.TotalTracks > 0 {
		_ = cmt.Add("TOTALTRACKS", strconv.Itoa(tags.TotalTracks))
	}
	if tags.DiscNumber > 0 {
		_ = cmt.Add("DISCNUMBER", strconv.Itoa(tags.DiscNumber))
	}
	if tags.Lyrics != "" {
		_ = cmt.Add("LYRICS", tags.Lyrics)
	}

	cmtBlock := cmt.Marshal()
	if cmtIdx < 0 {
		f.Meta = append(f.Meta, &cmtBlock)
	} else {
		f.Meta[cmtIdx] = &cmtBlock
	}

	if len(cover) > 0 {
		if err := embedFLACCover(f, cover); err != nil {
			warnColor.Printf("Warning: failed to embed cover art: %v\n", err)
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}
	return nil
}

func embedFLACCover(f *flac.File, cover []byte) error {
	picture, err := flacpicture.NewFromImageData(
		flacpicture.PictureTypeFrontCover,
		"Cover",
		cover,
		"image/jpeg",
	)
	if err != nil {
		return fmt.Errorf("failed to create picture block: %w", err)
	}

	pictureBlock := picture.Marshal()

	// Replace any picture blocks left over from a previous run.
	for i := len(f.Meta) - 1; i >= 0; i-- {
		if f.Meta[i].Type == flac.Picture {
			f.Meta = append(f.Meta[:i], f.Meta[i+1:]...)
		}
	}

	f.Meta = append(f.Meta, &pictureBlock)
	return nil
}

func tagMP3(path string, tags TrackTags, cover []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if artist := tags.JoinedArtists(); artist != "" {
		tag.SetArtist(artist)
	}
	if tags.Album != "" {
		tag.SetAlbum(tags.Album)
	}
	if tags.Year != "" {
		tag.SetYear(tags.Year)
	}

	if tags.TrackNumber > 0 {
		trackStr := strconv.Itoa(tags.TrackNumber)
		if tags.TotalTracks > 0 {
			trackStr = fmt.Sprintf("%d/%d", tags.TrackNumber, tags.TotalTracks)
		}
		tag.DeleteFrames(tag.CommonID("Track number/Position in set"))
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, trackStr)
	}

	if tags.DiscNumber > 0 {
		tag.DeleteFrames(tag.CommonID("Part of a set"))
		tag.AddTextFrame(tag.CommonID("Part of a set"), id3v2.EncodingUTF8, strconv.Itoa(tags.DiscNumber))
	}

	if tags.Lyrics != "" {
		tag.DeleteFrames(tag.CommonID("Unsynchronised lyrics/text transcription"))
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "eng",
			ContentDescriptor: "",
			Lyrics:            tags.Lyrics,
		})
	}

	if len(cover) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     cover,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save MP3 tags: %w", err)
	}
	return nil
}
