package backend

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Format is the on-disk audio format of a finished download.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	// FormatOGG keeps the raw Vorbis stream exactly as delivered by the
	// streaming backend: no transcode, no tags.
	FormatOGG Format = "ogg"
)

func (f Format) Ext() string { return "." + string(f) }

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatMP3, FormatFLAC, FormatOGG:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%s is not a supported format, select from mp3, flac or ogg", s)
	}
}

// Config holds the persisted settings. Flags override every field.
type Config struct {
	Root            string `yaml:"root"`
	PodcastRoot     string `yaml:"podcast_root"`
	Format          string `yaml:"format"`
	FilenameFormat  string `yaml:"filename_format"`
	DisableSkip     bool   `yaml:"disable_skip"`
	EmbedLyrics     bool   `yaml:"embed_lyrics"`
	SearchLimit     int    `yaml:"search_limit"`
	CredentialsPath string `yaml:"credentials_path"`
	HistoryPath     string `yaml:"history_path"`
}

// ConfigDir is where credentials, history and bundled ffmpeg live.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".spotify-dlx"), nil
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	confDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	return &Config{
		Root:            filepath.Join(homeDir, "spotify-dlx", "songs"),
		PodcastRoot:     filepath.Join(homeDir, "spotify-dlx", "podcasts"),
		Format:          string(FormatMP3),
		FilenameFormat:  "artist-title",
		SearchLimit:     10,
		CredentialsPath: filepath.Join(confDir, "credentials.json"),
		HistoryPath:     filepath.Join(confDir, "history.db"),
	}, nil
}

// LoadConfig reads the YAML config at path, layering it over the defaults.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if _, err := ParseFormat(cfg.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile reads the YAML config at a path the user named
// explicitly. Unlike LoadConfig, a missing file is an error.
func LoadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return LoadConfig(path)
}

// DefaultConfigPath is ~/.spotify-dlx/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
