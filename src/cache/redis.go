package cache

import (
	"context"
	"errors"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "canvasdiscussions:course:"

type RedisStore struct {
	rc *redis.Client
}

var _ Store = &RedisStore{}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		rc.Close()
		return nil, oops.New(err, "failed to connect to Redis at %s", cfg.Addr)
	}

	return &RedisStore{rc: rc}, nil
}

func (s *RedisStore) Close() error {
	return s.rc.Close()
}

func (s *RedisStore) Get(ctx context.Context, courseID string) (*models.CacheEntry, bool, error) {
	b, err := s.rc.Get(ctx, redisKeyPrefix+courseID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, oops.New(err, "failed to read cache entry from Redis")
	}

	entry, ok := decodeRecord(b)
	if !ok {
		logging.ExtractLogger(ctx).Warn().Str("course", courseID).Msg("ignoring unreadable cache entry")
		return nil, false, nil
	}
	return entry, true, nil
}

func (s *RedisStore) Put(ctx context.Context, courseID string, posts []models.Post) error {
	b, err := encodeRecord(now(), posts)
	if err != nil {
		return err
	}
	// No expiration: entries live until cleared.
	if err := s.rc.Set(ctx, redisKeyPrefix+courseID, b, 0).Err(); err != nil {
		return oops.New(err, "failed to write cache entry to Redis")
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, courseID string) error {
	if err := s.rc.Del(ctx, redisKeyPrefix+courseID).Err(); err != nil {
		return oops.New(err, "failed to clear cache entry in Redis")
	}
	return nil
}

func (s *RedisStore) GetTimestamp(ctx context.Context, courseID string) (time.Time, bool, error) {
	entry, ok, err := s.Get(ctx, courseID)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return entry.Timestamp, true, nil
}
