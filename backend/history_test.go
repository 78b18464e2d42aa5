package backend

import (
	"path/filepath"
	"testing"
)

func TestHistory(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()

	entries := []HistoryEntry{
		{SpotifyID: "track-1", Kind: "track", Title: "First", Artist: "A", Path: "/x/first.mp3", Format: "mp3"},
		{SpotifyID: "ep-1", Kind: "episode", Title: "Second", Artist: "Show", Path: "/x/second.ogg", Format: "ogg"},
	}
	for _, e := range entries {
		if err := h.Add(e); err != nil {
			t.Fatalf("Add(%s): %v", e.SpotifyID, err)
		}
	}

	got, err := h.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List length: got %d, want 2", len(got))
	}
	// Newest first.
	if got[0].Title != "Second" || got[1].Title != "First" {
		t.Errorf("List order: got %q, %q", got[0].Title, got[1].Title)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set by the database")
	}

	for id, want := range map[string]bool{"track-1": true, "ep-1": true, "missing": false} {
		has, err := h.Has(id)
		if err != nil {
			t.Fatalf("Has(%s): %v", id, err)
		}
		if has != want {
			t.Errorf("Has(%s): got %v, want %v", id, has, want)
		}
	}
}

func TestOpenHistoryCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "history.db")
	h, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
