package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/oops"
)

/*
A Store keeps the last complete fetch of each course's posts. Entries never
expire on their own; they stay until Clear is called (or a newer Put replaces
them). Records that can't be read back, for whatever reason, are reported as
absent rather than as errors, so a bad cache can never block a fresh fetch.
*/
type Store interface {
	Get(ctx context.Context, courseID string) (*models.CacheEntry, bool, error)
	Put(ctx context.Context, courseID string, posts []models.Post) error
	Clear(ctx context.Context, courseID string) error
	GetTimestamp(ctx context.Context, courseID string) (time.Time, bool, error)
	Close() error
}

// Opens the store selected in the config.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case config.CacheSQLite, "":
		return NewSQLiteStore(cfg.SQLitePath)
	case config.CacheRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case config.CachePostgres:
		return NewPostgresStore(ctx, cfg.Postgres)
	default:
		return nil, oops.New(nil, "unknown cache backend %q", cfg.Backend)
	}
}

// Bump when the stored shape of a post changes. Older records become misses.
const recordVersion = 1

type record struct {
	Version   int           `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
	Posts     []models.Post `json:"posts"`
}

func encodeRecord(timestamp time.Time, posts []models.Post) ([]byte, error) {
	if posts == nil {
		posts = []models.Post{}
	}
	b, err := json.Marshal(record{
		Version:   recordVersion,
		Timestamp: timestamp.UTC(),
		Posts:     posts,
	})
	if err != nil {
		return nil, oops.New(err, "failed to encode cache record")
	}
	return b, nil
}

// Returns false for anything that isn't a record we wrote.
func decodeRecord(b []byte) (*models.CacheEntry, bool) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, false
	}
	if r.Version != recordVersion || r.Timestamp.IsZero() || r.Posts == nil {
		return nil, false
	}
	return &models.CacheEntry{
		Timestamp: r.Timestamp,
		Posts:     r.Posts,
	}, true
}

var now = time.Now
