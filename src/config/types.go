package config

import (
	"fmt"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Dev              = "dev"
)

type CacheBackend string

const (
	CacheSQLite   CacheBackend = "sqlite"
	CacheRedis    CacheBackend = "redis"
	CachePostgres CacheBackend = "postgres"
)

type CanvasDiscussionsConfig struct {
	Env      Environment
	LogLevel zerolog.Level
	LogFile  string // JSON logs are also written here (and rotated) when set

	Canvas CanvasConfig
	Cache  CacheConfig
	Export ExportConfig
}

type CanvasConfig struct {
	APIURL   string // e.g. https://canvas.example.edu/api/v1
	APIKey   string
	CourseID string

	PerPage           int
	RequestsPerSecond float64
	MaxRetries        int
}

type CacheConfig struct {
	Backend    CacheBackend
	SQLitePath string
	Redis      RedisConfig
	Postgres   PostgresConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type ExportConfig struct {
	Dir        string
	TimeZone   string
	TimeFormat string
	Schedule   string // cron schedule for the watch command
	S3         S3Config
}

// S3-compatible storage for uploading exports (AWS, DigitalOcean Spaces, MinIO...)
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // empty for AWS itself
	Key      string
	Secret   string
	Prefix   string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}
