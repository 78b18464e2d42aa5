package backend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang/protobuf/proto"
	"github.com/librespot-org/librespot-golang/Spotify"
	librespot "github.com/librespot-org/librespot-golang/librespot"
	"github.com/librespot-org/librespot-golang/librespot/core"
	"github.com/librespot-org/librespot-golang/librespot/mercury"
	"github.com/librespot-org/librespot-golang/librespot/utils"
)

const (
	deviceName = "spotify-dlx"

	// Keymaster client ID used by librespot to mint Web API tokens.
	keymasterClientID = "65b708073fc0480ea92a077233ca87bd"
	tokenScopes       = "user-read-email,user-library-read,playlist-read-private"

	mercuryTimeout = 30 * time.Second
)

// ErrNoStream is returned when a track or episode has no OGG Vorbis stream
// at any supported quality.
var ErrNoStream = errors.New("no suitable audio stream available")

// Quality selects the OGG Vorbis bitrate requested from the streaming
// backend. Premium accounts get very high (320 kbps), free accounts high
// (160 kbps).
type Quality int

const (
	QualityHigh Quality = iota
	QualityVeryHigh
)

// Bitrate returns the matching ffmpeg bitrate for transcoded output.
func (q Quality) Bitrate() string {
	if q == QualityVeryHigh {
		return "320k"
	}
	return "160k"
}

func (q Quality) format() Spotify.AudioFile_Format {
	if q == QualityVeryHigh {
		return Spotify.AudioFile_OGG_VORBIS_320
	}
	return Spotify.AudioFile_OGG_VORBIS_160
}

// Session wraps the librespot streaming session. Authentication, content
// decryption and bitstream framing are all owned by the library; this type
// only sequences its calls.
type Session struct {
	core    *core.Session
	quality Quality

	token       string
	tokenExpiry time.Time
}

type storedCredentials struct {
	Username string `json:"username"`
	AuthData []byte `json:"auth_data"`
}

// Login authenticates with a username and password.
func Login(username, password string) (*Session, error) {
	s, err := librespot.Login(username, password, deviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	return &Session{core: s, quality: QualityHigh}, nil
}

// LoginSaved authenticates with the reusable auth blob persisted by a
// previous run.
func LoginSaved(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds storedCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	s, err := librespot.LoginSaved(creds.Username, creds.AuthData, deviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to login with saved credentials: %w", err)
	}
	return &Session{core: s, quality: QualityHigh}, nil
}

// SaveCredentials persists the session's reusable auth blob so the next run
// can skip the password prompt.
func (s *Session) SaveCredentials(path string) error {
	creds := storedCredentials{
		Username: s.core.Username(),
		AuthData: s.core.ReusableAuthBlob(),
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

func (s *Session) Username() string { return s.core.Username() }

func (s *Session) SetQuality(q Quality) { s.quality = q }

func (s *Session) Quality() Quality { return s.quality }

// AccessToken returns a bearer token for the Web API, refreshing it through
// the keymaster mercury endpoint when the cached one is close to expiry.
func (s *Session) AccessToken() (string, error) {
	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	uri := fmt.Sprintf("hm://keymaster/token/authenticated?client_id=%s&scope=%s", keymasterClientID, tokenScopes)
	payload, err := s.mercuryGet(uri)
	if err != nil {
		return "", fmt.Errorf("failed to request access token: %w", err)
	}

	var tok struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int    `json:"expiresIn"`
	}
	if err := json.Unmarshal(payload, &tok); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("keymaster returned an empty token")
	}

	s.token = tok.AccessToken
	// Refresh one minute early so in-flight calls never see a stale token.
	s.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return s.token, nil
}

func (s *Session) mercuryGet(uri string) ([]byte, error) {
	done := make(chan []byte, 1)
	err := s.core.Mercury().Request(mercury.Request{
		Method: "GET",
		Uri:    uri,
	}, func(res mercury.Response) {
		done <- res.CombinePayload()
	})
	if err != nil {
		return nil, err
	}

	select {
	case payload := <-done:
		return payload, nil
	case <-time.After(mercuryTimeout):
		return nil, fmt.Errorf("mercury request timed out: %s", uri)
	}
}

// LoadTrack opens the decrypted OGG Vorbis stream for a track, falling back
// through the track's alternatives when the requested one is not streamable.
func (s *Session) LoadTrack(id string) (io.Reader, error) {
	track, err := s.core.Mercury().GetTrack(utils.Base62ToHex(id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track from mercury: %w", err)
	}

	gid := track.GetGid()
	file := selectAudioFile(track.GetFile(), s.quality)
	if file == nil {
		for _, alt := range track.GetAlternative() {
			if file = selectAudioFile(alt.GetFile(), s.quality); file != nil {
				gid = alt.GetGid()
				break
			}
		}
	}
	if file == nil {
		return nil, ErrNoStream
	}

	stream, err := s.core.Player().LoadTrack(file, gid)
	if err != nil {
		return nil, fmt.Errorf("failed to load audio stream: %w", err)
	}
	return stream, nil
}

// LoadEpisode opens the decrypted audio stream for a podcast episode.
// Episode metadata is not served by the track endpoint, so it is fetched
// as a raw protobuf from the metadata mercury hierarchy.
func (s *Session) LoadEpisode(id string) (io.Reader, error) {
	payload, err := s.mercuryGet("hm://metadata/4/episode/" + utils.Base62ToHex(id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch episode from mercury: %w", err)
	}

	var episode Spotify.Episode
	if err := proto.Unmarshal(payload, &episode); err != nil {
		return nil, fmt.Errorf("failed to decode episode metadata: %w", err)
	}

	file := selectAudioFile(episode.GetFile(), s.quality)
	if file == nil {
		return nil, ErrNoStream
	}

	stream, err := s.core.Player().LoadTrack(file, episode.GetGid())
	if err != nil {
		return nil, fmt.Errorf("failed to load audio stream: %w", err)
	}
	return stream, nil
}

// selectAudioFile picks the OGG Vorbis file closest to the wanted quality,
// never upgrading a free-tier session to 320 kbps.
func selectAudioFile(files []*Spotify.AudioFile, quality Quality) *Spotify.AudioFile {
	preference := []Spotify.AudioFile_Format{
		quality.format(),
		Spotify.AudioFile_OGG_VORBIS_160,
		Spotify.AudioFile_OGG_VORBIS_96,
	}

	for _, want := range preference {
		for _, f := range files {
			if f.GetFormat() == want {
				return f
			}
		}
	}
	return nil
}
