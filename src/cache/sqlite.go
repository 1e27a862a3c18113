package cache

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	_ "modernc.org/sqlite"
)

// The default store: a single SQLite file in the user's cache directory.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = &SQLiteStore{}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, oops.New(err, "failed to create cache directory")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, oops.New(err, "failed to open cache database")
	}
	// One writer at a time is all SQLite wants anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS discussion_cache (
		course_id TEXT PRIMARY KEY,
		fetched_at INTEGER NOT NULL,
		record BLOB NOT NULL
	);
	`)
	if err != nil {
		return oops.New(err, "failed to create cache table")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, courseID string) (*models.CacheEntry, bool, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM discussion_cache WHERE course_id = ?`, courseID).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, oops.New(err, "failed to read cache entry")
	}

	entry, ok := decodeRecord(b)
	if !ok {
		logging.ExtractLogger(ctx).Warn().Str("course", courseID).Msg("ignoring unreadable cache entry")
		return nil, false, nil
	}
	return entry, true, nil
}

// Replaces the course's entry in a single statement, so readers see either the
// old entry or the new one.
func (s *SQLiteStore) Put(ctx context.Context, courseID string, posts []models.Post) error {
	timestamp := now()
	b, err := encodeRecord(timestamp, posts)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO discussion_cache (course_id, fetched_at, record)
		VALUES (?, ?, ?)
		ON CONFLICT(course_id) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			record = excluded.record
	`, courseID, timestamp.UnixNano(), b)
	if err != nil {
		return oops.New(err, "failed to write cache entry")
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, courseID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM discussion_cache WHERE course_id = ?`, courseID)
	if err != nil {
		return oops.New(err, "failed to clear cache entry")
	}
	return nil
}

func (s *SQLiteStore) GetTimestamp(ctx context.Context, courseID string) (time.Time, bool, error) {
	entry, ok, err := s.Get(ctx, courseID)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return entry.Timestamp, true, nil
}
