// Package store is a sqlite-backed read-through cache of stories,
// comments, and extracted articles. Items are immutable upstream except
// for volatile fields (score), so cached rows are simply replaced on
// refresh; fetched_at drives staleness decisions.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// WAL mode allows concurrent readers with a single writer.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("cache database ready", "path", path)
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stories (
			id          INTEGER PRIMARY KEY,
			title       TEXT NOT NULL,
			url         TEXT,
			text        TEXT,
			score       INTEGER NOT NULL DEFAULT 0,
			by          TEXT NOT NULL,
			time        INTEGER NOT NULL,
			descendants INTEGER NOT NULL DEFAULT 0,
			rank        INTEGER,
			fetched_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_stories_rank ON stories(rank);

		CREATE TABLE IF NOT EXISTS comments (
			id         INTEGER NOT NULL,
			story_id   INTEGER NOT NULL,
			parent_id  INTEGER NOT NULL,
			depth      INTEGER NOT NULL,
			position   INTEGER NOT NULL,
			by         TEXT,
			text       TEXT,
			time       INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (story_id, id)
		);
		CREATE INDEX IF NOT EXISTS idx_comments_story ON comments(story_id, position);

		CREATE TABLE IF NOT EXISTS articles (
			story_id          INTEGER PRIMARY KEY,
			content           TEXT,
			title             TEXT,
			excerpt           TEXT,
			byline            TEXT,
			extraction_failed BOOLEAN NOT NULL DEFAULT FALSE,
			fetched_at        INTEGER NOT NULL
		);
	`)
	return err
}

// NowUnix returns the current unix timestamp used for fetched_at fields.
func NowUnix() int64 { return time.Now().Unix() }
