package backend

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig: %v", err)
	}

	if cfg.Format != string(FormatMP3) {
		t.Errorf("Format: got %q, want mp3", cfg.Format)
	}
	if cfg.FilenameFormat != "artist-title" {
		t.Errorf("FilenameFormat: got %q", cfg.FilenameFormat)
	}
	if cfg.SearchLimit != 10 {
		t.Errorf("SearchLimit: got %d, want 10", cfg.SearchLimit)
	}
	if cfg.Root == "" || cfg.PodcastRoot == "" {
		t.Error("Root and PodcastRoot must have defaults")
	}
	if cfg.CredentialsPath == "" || cfg.HistoryPath == "" {
		t.Error("CredentialsPath and HistoryPath must have defaults")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig on a missing file: %v", err)
	}
	if cfg.Format != string(FormatMP3) {
		t.Errorf("Format: got %q, want the default mp3", cfg.Format)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "root: /music\nformat: flac\ndisable_skip: true\nsearch_limit: 5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Root != "/music" {
		t.Errorf("Root: got %q", cfg.Root)
	}
	if cfg.Format != string(FormatFLAC) {
		t.Errorf("Format: got %q, want flac", cfg.Format)
	}
	if !cfg.DisableSkip {
		t.Error("DisableSkip: got false, want true")
	}
	if cfg.SearchLimit != 5 {
		t.Errorf("SearchLimit: got %d, want 5", cfg.SearchLimit)
	}
	// Fields absent from the file keep their defaults.
	if cfg.FilenameFormat != "artist-title" {
		t.Errorf("FilenameFormat: got %q, want the default", cfg.FilenameFormat)
	}
}

func TestLoadConfigRejectsBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("format: wav\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestLoadConfigFileRequiresFile(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for an explicitly named missing file")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("format: ogg\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Format != string(FormatOGG) {
		t.Errorf("Format: got %q, want ogg", cfg.Format)
	}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"mp3", "flac", "ogg"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "wav", "MP3", "m4a"} {
		if _, err := ParseFormat(invalid); err == nil {
			t.Errorf("ParseFormat(%q): expected an error", invalid)
		}
	}
}
