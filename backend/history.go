package backend

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// HistoryEntry is one finished download.
type HistoryEntry struct {
	ID        int64
	SpotifyID string
	Kind      string
	Title     string
	Artist    string
	Path      string
	Format    string
	CreatedAt time.Time
}

// History records finished downloads in a local SQLite database.
type History struct {
	db *sql.DB
}

const historySchema = `
CREATE TABLE IF NOT EXISTS downloads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	spotify_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	path TEXT NOT NULL,
	format TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_downloads_spotify_id ON downloads(spotify_id);
`

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &History{db: db}, nil
}

func (h *History) Close() error { return h.db.Close() }

// Add records a finished download.
func (h *History) Add(e HistoryEntry) error {
	_, err := h.db.Exec(
		`INSERT INTO downloads (spotify_id, kind, title, artist, path, format) VALUES (?, ?, ?, ?, ?, ?)`,
		e.SpotifyID, e.Kind, e.Title, e.Artist, e.Path, e.Format,
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// List returns all recorded downloads, newest first.
func (h *History) List() ([]HistoryEntry, error) {
	rows, err := h.db.Query(
		`SELECT id, spotify_id, kind, title, artist, path, format, created_at
		 FROM downloads ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.SpotifyID, &e.Kind, &e.Title, &e.Artist, &e.Path, &e.Format, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Has reports whether a download of the given Spotify ID was ever recorded.
func (h *History) Has(spotifyID string) (bool, error) {
	var count int
	err := h.db.QueryRow(`SELECT COUNT(1) FROM downloads WHERE spotify_id = ?`, spotifyID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query history: %w", err)
	}
	return count > 0, nil
}
