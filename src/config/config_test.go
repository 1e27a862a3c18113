package config

import (
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "")
		t.Setenv("CANVAS_PER_PAGE", "")
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("EXPORT_SCHEDULE", "")

		cfg := Load()
		assert.Equal(t, CacheSQLite, cfg.Cache.Backend)
		assert.Equal(t, 100, cfg.Canvas.PerPage)
		assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
		assert.NotEmpty(t, cfg.Cache.SQLitePath)
		assert.False(t, cfg.Export.S3.Enabled())
		assert.Equal(t, "0 6 * * *", cfg.Export.Schedule)
	})
	t.Run("overrides", func(t *testing.T) {
		t.Setenv("CANVAS_API_URL", "https://canvas.example.edu/api/v1/")
		t.Setenv("CANVAS_PER_PAGE", "25")
		t.Setenv("CACHE_BACKEND", "redis")
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("POSTGRES_LOG_LEVEL", "error")
		t.Setenv("EXPORT_S3_BUCKET", "exports")

		cfg := Load()
		assert.Equal(t, "https://canvas.example.edu/api/v1", cfg.Canvas.APIURL)
		assert.Equal(t, 25, cfg.Canvas.PerPage)
		assert.Equal(t, CacheRedis, cfg.Cache.Backend)
		assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
		assert.Equal(t, tracelog.LogLevelError, cfg.Cache.Postgres.LogLevel)
		assert.True(t, cfg.Export.S3.Enabled())
	})
	t.Run("garbage numbers fall back", func(t *testing.T) {
		t.Setenv("CANVAS_PER_PAGE", "lots")
		t.Setenv("CANVAS_REQUESTS_PER_SECOND", "fast")
		cfg := Load()
		assert.Equal(t, 100, cfg.Canvas.PerPage)
		assert.Equal(t, 5.0, cfg.Canvas.RequestsPerSecond)
	})
}
