package bridge

import (
	"os"
	"strconv"
	"time"
)

// RedisConfig says where the event feed goes and how much of it may be
// buffered while Redis is slow.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces the feed channel so several canvases can share one
	// Redis. The channel is Prefix + "events".
	Prefix string

	// QueueSize bounds the frames waiting to be published. Frames beyond it
	// are dropped.
	QueueSize int

	// PublishTimeout caps one PUBLISH round trip.
	PublishTimeout time.Duration
}

// DefaultRedisConfig points at a local Redis.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:           "localhost:6379",
		Prefix:         "canvas:",
		QueueSize:      256,
		PublishTimeout: 2 * time.Second,
	}
}

// RedisConfigFromEnv overlays REDIS_ADDR, REDIS_PASSWORD, REDIS_DB,
// REDIS_EVENTS_PREFIX, REDIS_EVENTS_QUEUE and REDIS_PUBLISH_TIMEOUT on the
// defaults. Values that do not parse keep the default.
func RedisConfigFromEnv() *RedisConfig {
	cfg := DefaultRedisConfig()
	cfg.Addr = envOr("REDIS_ADDR", cfg.Addr)
	cfg.Password = envOr("REDIS_PASSWORD", cfg.Password)
	cfg.Prefix = envOr("REDIS_EVENTS_PREFIX", cfg.Prefix)

	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.DB = db
	}
	if n, err := strconv.Atoi(os.Getenv("REDIS_EVENTS_QUEUE")); err == nil && n > 0 {
		cfg.QueueSize = n
	}
	if d, err := time.ParseDuration(os.Getenv("REDIS_PUBLISH_TIMEOUT")); err == nil && d > 0 {
		cfg.PublishTimeout = d
	}
	return cfg
}

// Channel is the pub/sub channel events are published on.
func (c *RedisConfig) Channel() string { return c.Prefix + "events" }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
