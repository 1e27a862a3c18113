package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is read once at startup. Values come from the environment, after an
// optional .env file in the working directory has been loaded into it.
var Config = Load()

func Load() CanvasDiscussionsConfig {
	_ = godotenv.Load()

	return CanvasDiscussionsConfig{
		Env:      Environment(envOr("CANVAS_ENV", string(Live))),
		LogLevel: logLevel(envOr("LOG_LEVEL", "info")),
		LogFile:  os.Getenv("LOG_FILE"),

		Canvas: CanvasConfig{
			APIURL:            strings.TrimRight(os.Getenv("CANVAS_API_URL"), "/"),
			APIKey:            os.Getenv("CANVAS_API_KEY"),
			CourseID:          os.Getenv("CANVAS_COURSE_ID"),
			PerPage:           envInt("CANVAS_PER_PAGE", 100),
			RequestsPerSecond: envFloat("CANVAS_REQUESTS_PER_SECOND", 5),
			MaxRetries:        envInt("CANVAS_MAX_RETRIES", 5),
		},
		Cache: CacheConfig{
			Backend:    CacheBackend(envOr("CACHE_BACKEND", string(CacheSQLite))),
			SQLitePath: envOr("CACHE_SQLITE_PATH", defaultSQLitePath()),
			Redis: RedisConfig{
				Addr:     envOr("REDIS_ADDR", "localhost:6379"),
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       envInt("REDIS_DB", 0),
			},
			Postgres: PostgresConfig{
				User:     envOr("POSTGRES_USER", "canvas"),
				Password: os.Getenv("POSTGRES_PASSWORD"),
				Hostname: envOr("POSTGRES_HOST", "localhost"),
				Port:     envInt("POSTGRES_PORT", 5432),
				DbName:   envOr("POSTGRES_DB", "canvas_discussions"),
				LogLevel: pgLogLevel(envOr("POSTGRES_LOG_LEVEL", "warn")),
				MinConn:  int32(envInt("POSTGRES_MIN_CONN", 1)),
				MaxConn:  int32(envInt("POSTGRES_MAX_CONN", 2)),
			},
		},
		Export: ExportConfig{
			Dir:        envOr("EXPORT_DIR", "."),
			TimeZone:   envOr("EXPORT_TIMEZONE", "Local"),
			TimeFormat: envOr("EXPORT_TIME_FORMAT", "Jan 2, 2006, 3:04:05 PM"),
			Schedule:   envOr("EXPORT_SCHEDULE", "0 6 * * *"),
			S3: S3Config{
				Bucket:   os.Getenv("EXPORT_S3_BUCKET"),
				Region:   envOr("EXPORT_S3_REGION", "us-east-1"),
				Endpoint: os.Getenv("EXPORT_S3_ENDPOINT"),
				Key:      os.Getenv("EXPORT_S3_KEY"),
				Secret:   os.Getenv("EXPORT_S3_SECRET"),
				Prefix:   os.Getenv("EXPORT_S3_PREFIX"),
			},
		},
	}
}

func defaultSQLitePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "canvas-discussions", "cache.db")
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return def
	}
	return v
}

func envFloat(name string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(name), 64)
	if err != nil {
		return def
	}
	return v
}

func logLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func pgLogLevel(s string) tracelog.LogLevel {
	level, err := tracelog.LogLevelFromString(strings.ToLower(s))
	if err != nil {
		return tracelog.LogLevelWarn
	}
	return level
}
