// Package db maintains a small SQLite catalog of media files the handlers
// have written, backing the web UI's library view.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// MediaRecord represents a row in the media table.
type MediaRecord struct {
	ID        int64
	Title     string
	Platform  string
	MediaType string
	FilePath  string
	SourceURL string
	FileSize  int64
	CreatedAt time.Time
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS media (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT NOT NULL DEFAULT '',
    platform    TEXT NOT NULL DEFAULT '',
    media_type  TEXT NOT NULL DEFAULT 'video',
    file_path   TEXT NOT NULL UNIQUE,
    source_url  TEXT NOT NULL DEFAULT '',
    file_size   INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_media_platform ON media(platform);
CREATE INDEX IF NOT EXISTS idx_media_created_at ON media(created_at);
`

// DB wraps an SQLite connection for the media catalog.
type DB struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := sqlDB.Exec(createTableSQL); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: sqlDB}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// UpsertMedia inserts or updates a media record keyed by file_path. Re-grabs
// of the same URL overwrite the file on disk, so the catalog row follows.
func (d *DB) UpsertMedia(record MediaRecord) (int64, error) {
	if d == nil || d.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		INSERT INTO media (title, platform, media_type, file_path, source_url, file_size)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			title=excluded.title, platform=excluded.platform,
			media_type=excluded.media_type, source_url=excluded.source_url,
			file_size=excluded.file_size
	`,
		record.Title, record.Platform, record.MediaType,
		record.FilePath, record.SourceURL, record.FileSize,
	)
	if err != nil {
		return 0, fmt.Errorf("upserting media record: %w", err)
	}

	// LastInsertId is unreliable for ON CONFLICT DO UPDATE; query the actual row ID.
	var id int64
	if err := d.db.QueryRow("SELECT id FROM media WHERE file_path = ?", record.FilePath).Scan(&id); err != nil {
		return 0, fmt.Errorf("querying upserted media id: %w", err)
	}
	return id, nil
}

// ListMedia returns media records ordered by created_at descending.
func (d *DB) ListMedia(limit, offset int) ([]MediaRecord, error) {
	if d == nil || d.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := d.db.Query(`
		SELECT id, title, platform, media_type, file_path, source_url, file_size, created_at
		FROM media
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying media: %w", err)
	}
	defer rows.Close()

	var records []MediaRecord
	for rows.Next() {
		var r MediaRecord
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Platform, &r.MediaType,
			&r.FilePath, &r.SourceURL, &r.FileSize, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning media row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the total number of media records.
func (d *DB) Count() (int, error) {
	if d == nil || d.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM media").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting media: %w", err)
	}
	return count, nil
}
