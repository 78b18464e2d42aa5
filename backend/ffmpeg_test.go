package backend

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestValidateExecutable(t *testing.T) {
	dir := t.TempDir()

	ffmpegPath := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(ffmpegPath, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	badName := filepath.Join(dir, "not-ffmpeg")
	if err := os.WriteFile(badName, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid ffmpeg", ffmpegPath, false},
		{"relative path", "ffmpeg", true},
		{"directory", dir, true},
		{"missing file", filepath.Join(dir, "ffprobe"), true},
		{"unexpected name", badName, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExecutable(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExecutable(%q): err = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateExecutableRejectsNonExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mode bits are not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateExecutable(path); err == nil {
		t.Error("expected an error for a non-executable file")
	}
}
