package cache

import (
	"context"
	"errors"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
)

// For sharing one cache between machines that already have a Postgres around.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = &PostgresStore{}

func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	pgcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, oops.New(err, "invalid Postgres config")
	}
	if cfg.MinConn > 0 {
		pgcfg.MinConns = cfg.MinConn
	}
	if cfg.MaxConn > 0 {
		pgcfg.MaxConns = cfg.MaxConn
	}
	pgcfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   zerologadapter.NewLogger(*logging.GlobalLogger()),
		LogLevel: cfg.LogLevel,
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgcfg)
	if err != nil {
		return nil, oops.New(err, "failed to create database connection pool")
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`
		CREATE TABLE IF NOT EXISTS discussion_cache (
			course_id TEXT PRIMARY KEY,
			fetched_at TIMESTAMP WITH TIME ZONE NOT NULL,
			record JSONB NOT NULL
		)
		`,
	)
	if err != nil {
		return oops.New(err, "failed to create cache table")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, courseID string) (*models.CacheEntry, bool, error) {
	var b []byte
	err := s.pool.QueryRow(ctx,
		`
		---- Get cache entry
		SELECT record
		FROM discussion_cache
		WHERE course_id = $1
		`,
		courseID,
	).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (s *PostgresStore) Put(ctx context.Context, courseID string, posts []models.Post) error {
	timestamp := now()
	b, err := encodeRecord(timestamp, posts)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`
		---- Put cache entry
		INSERT INTO discussion_cache (course_id, fetched_at, record)
		VALUES ($1, $2, $3)
		ON CONFLICT (course_id) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at,
			record = EXCLUDED.record
		`,
		courseID, timestamp, string(b),
	)
	if err != nil {
		return oops.New(err, "failed to write cache entry")
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, courseID string) error {
	_, err := s.pool.Exec(ctx,
		`
		---- Clear cache entry
		DELETE FROM discussion_cache
		WHERE course_id = $1
		`,
		courseID,
	)
	if err != nil {
		return oops.New(err, "failed to clear cache entry")
	}
	return nil
}

// Goes through Get so an unreadable record has no timestamp either.
func (s *PostgresStore) GetTimestamp(ctx context.Context, courseID string) (time.Time, bool, error) {
	entry, ok, err := s.Get(ctx, courseID)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return entry.Timestamp, true, nil
}
