package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chanfilter/pkg/platform/dedupe"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	MaxRequestBytes int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Database        DatabaseConfig
	Kafka           KafkaConfig
	Recorder        RecorderConfig
	Log             LogConfig
}

// DatabaseConfig selects the catalog backend. An empty URL runs the server on
// the in-memory catalog.
type DatabaseConfig struct {
	URL             string
	Driver          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds connection pool settings for a Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the discovery publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers           []string
	DiscoveryTopic    string
	Partitions        int32
	ReplicationFactor int16
}

// RecorderConfig sizes the background recorder pool.
type RecorderConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Client captures the settings of the chanfilter CLI.
type Client struct {
	ServerURL      string
	PolicyFile     string
	CachePath      string
	CacheTTL       time.Duration
	SweepSchedule  string
	RequestTimeout time.Duration
	SeenTTL        time.Duration
	SeenMax        int
	Redis          RedisConfig
	Log            LogConfig
}

const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"

	DefaultDiscoveryTopic = "chanfilter.channels.discovered"
	DefaultCacheTTL       = 24 * time.Hour
	DefaultSweepSchedule  = "@every 1h"
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var p parser
	cfg := Server{
		Addr:            p.str("CHANFILTER_ADDR", ":8080"),
		MaxRequestBytes: int64(p.int("MAX_REQUEST_BYTES", 1<<20)),
		RequestTimeout:  p.duration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		Database: DatabaseConfig{
			URL:             p.str("DATABASE_URL", ""),
			Driver:          p.str("DATABASE_DRIVER", DriverPgx),
			MaxOpenConns:    p.int("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    p.int("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:           p.list("KAFKA_BROKERS"),
			DiscoveryTopic:    p.str("KAFKA_DISCOVERY_TOPIC", DefaultDiscoveryTopic),
			Partitions:        int32(p.int("KAFKA_DISCOVERY_PARTITIONS", 3)),
			ReplicationFactor: int16(p.int("KAFKA_REPLICATION_FACTOR", 1)),
		},
		Recorder: RecorderConfig{
			Workers:   p.int("RECORDER_WORKERS", 4),
			QueueSize: p.int("RECORDER_QUEUE_SIZE", 256),
			Timeout:   p.duration("RECORDER_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  p.str("LOG_LEVEL", "info"),
			Format: p.str("LOG_FORMAT", "json"),
		},
	}
	if p.err != nil {
		return Server{}, p.err
	}
	switch cfg.Database.Driver {
	case DriverPgx, DriverPostgres:
	default:
		return Server{}, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPgx, DriverPostgres, cfg.Database.Driver)
	}
	if cfg.Recorder.Workers < 1 || cfg.Recorder.QueueSize < 1 {
		return Server{}, fmt.Errorf("RECORDER_WORKERS and RECORDER_QUEUE_SIZE must be positive")
	}
	return cfg, nil
}

// ClientFromEnv builds the CLI config. Flags override these values.
func ClientFromEnv() (Client, error) {
	var p parser
	cfg := Client{
		ServerURL:      p.str("CHANFILTER_SERVER_URL", "http://localhost:8080"),
		PolicyFile:     p.str("CHANFILTER_POLICY_FILE", ""),
		CachePath:      p.str("CHANFILTER_CACHE_PATH", defaultCachePath()),
		CacheTTL:       p.duration("CHANFILTER_CACHE_TTL", DefaultCacheTTL),
		SweepSchedule:  p.str("CHANFILTER_SWEEP_SCHEDULE", DefaultSweepSchedule),
		RequestTimeout: p.duration("CHANFILTER_REQUEST_TIMEOUT", 10*time.Second),
		SeenTTL:        p.duration("CHANFILTER_SEEN_TTL", 30*time.Minute),
		SeenMax:        p.int("CHANFILTER_SEEN_MAX", 10000),
		Redis: RedisConfig{
			URL:          p.str("CHANFILTER_REDIS_URL", ""),
			PoolSize:     p.int("CHANFILTER_REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("CHANFILTER_REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  p.duration("CHANFILTER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("CHANFILTER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("CHANFILTER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  p.str("LOG_LEVEL", "warn"),
			Format: p.str("LOG_FORMAT", "text"),
		},
	}
	if p.err != nil {
		return Client{}, p.err
	}
	return cfg, nil
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "chanfilter-cache.db"
	}
	return filepath.Join(dir, "chanfilter", "cache.db")
}

// parser reads typed environment values and keeps the first error.
type parser struct {
	err error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func (p *parser) list(key string) []string {
	return dedupe.Strings(strings.Split(os.Getenv(key), ","))
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
