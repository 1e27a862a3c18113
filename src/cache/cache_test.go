package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	course := "course-" + t.Name()
	t.Cleanup(func() { s.Clear(ctx, course) })

	posts := seed.Course(seed.CourseInput{Topics: 2, PostsPerTopic: 4, ReplyChance: 0.5, EmbedReplies: true})

	t.Run("missing entry", func(t *testing.T) {
		entry, ok, err := s.Get(ctx, course)
		require.Nil(t, err)
		assert.False(t, ok)
		assert.Nil(t, entry)

		_, ok, err = s.GetTimestamp(ctx, course)
		require.Nil(t, err)
		assert.False(t, ok)
	})

	t.Run("put then get", func(t *testing.T) {
		before := time.Now()
		require.Nil(t, s.Put(ctx, course, posts))

		entry, ok, err := s.Get(ctx, course)
		require.Nil(t, err)
		require.True(t, ok)
		assert.Equal(t, posts, entry.Posts)
		assert.WithinDuration(t, before, entry.Timestamp, time.Minute)

		ts, ok, err := s.GetTimestamp(ctx, course)
		require.Nil(t, err)
		require.True(t, ok)
		assert.True(t, ts.Equal(entry.Timestamp))
	})

	t.Run("put replaces", func(t *testing.T) {
		replacement := []models.Post{seed.Post(seed.PostInput{ID: 999, Author: "Solo"})}
		require.Nil(t, s.Put(ctx, course, replacement))

		entry, ok, err := s.Get(ctx, course)
		require.Nil(t, err)
		require.True(t, ok)
		require.Len(t, entry.Posts, 1)
		assert.Equal(t, 999, entry.Posts[0].ID)
	})

	t.Run("empty course is still a hit", func(t *testing.T) {
		require.Nil(t, s.Put(ctx, course, nil))

		entry, ok, err := s.Get(ctx, course)
		require.Nil(t, err)
		require.True(t, ok)
		assert.Empty(t, entry.Posts)
	})

	t.Run("clear", func(t *testing.T) {
		require.Nil(t, s.Clear(ctx, course))
		_, ok, err := s.Get(ctx, course)
		require.Nil(t, err)
		assert.False(t, ok)

		// Clearing twice is fine.
		assert.Nil(t, s.Clear(ctx, course))
	})

	t.Run("courses are independent", func(t *testing.T) {
		other := course + "-other"
		t.Cleanup(func() { s.Clear(ctx, other) })

		require.Nil(t, s.Put(ctx, course, posts))
		_, ok, err := s.Get(ctx, other)
		require.Nil(t, err)
		assert.False(t, ok)

		require.Nil(t, s.Clear(ctx, other))
		_, ok, err = s.Get(ctx, course)
		require.Nil(t, err)
		assert.True(t, ok)
	})
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.Nil(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	testStore(t, newTestSQLiteStore(t))
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	posts := seed.Course(seed.CourseInput{Topics: 1, PostsPerTopic: 3})

	s, err := NewSQLiteStore(path)
	require.Nil(t, err)
	require.Nil(t, s.Put(ctx, "1", posts))
	require.Nil(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.Nil(t, err)
	defer s.Close()
	entry, ok, err := s.Get(ctx, "1")
	require.Nil(t, err)
	require.True(t, ok)
	assert.Equal(t, posts, entry.Posts)
}

func TestSQLiteStoreUnreadableRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	for name, record := range map[string]string{
		"garbage":       "not json at all",
		"wrong version": `{"version": 0, "timestamp": "2024-01-01T00:00:00Z", "posts": []}`,
		"no posts":      `{"version": 1, "timestamp": "2024-01-01T00:00:00Z"}`,
		"no timestamp":  `{"version": 1, "posts": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.db.Exec(`INSERT OR REPLACE INTO discussion_cache (course_id, fetched_at, record) VALUES ('bad', 0, ?)`, []byte(record))
			require.Nil(t, err)

			entry, ok, err := s.Get(ctx, "bad")
			assert.Nil(t, err)
			assert.False(t, ok)
			assert.Nil(t, entry)

			_, ok, err = s.GetTimestamp(ctx, "bad")
			assert.Nil(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRecordKeepsEmbeddedReplies(t *testing.T) {
	posts := []models.Post{
		seed.Post(seed.PostInput{ID: 1, Replies: []models.Post{}}),
		seed.Post(seed.PostInput{ID: 2}),
	}
	b, err := encodeRecord(time.Now(), posts)
	require.Nil(t, err)

	entry, ok := decodeRecord(b)
	require.True(t, ok)
	assert.True(t, entry.Posts[0].HasEmbeddedReplies())
	assert.False(t, entry.Posts[1].HasEmbeddedReplies())
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), config.CacheConfig{Backend: "floppy"})
	assert.NotNil(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), config.RedisConfig{Addr: addr})
	require.Nil(t, err)
	defer s.Close()
	testStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	if os.Getenv("TEST_POSTGRES_HOST") == "" {
		t.Skip("TEST_POSTGRES_HOST not set")
	}
	s, err := NewPostgresStore(context.Background(), config.PostgresConfig{
		User:     os.Getenv("TEST_POSTGRES_USER"),
		Password: os.Getenv("TEST_POSTGRES_PASSWORD"),
		Hostname: os.Getenv("TEST_POSTGRES_HOST"),
		Port:     5432,
		DbName:   os.Getenv("TEST_POSTGRES_DB"),
	})
	require.Nil(t, err)
	defer s.Close()
	testStore(t, s)
}
