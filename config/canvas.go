package config

import (
	"os"
	"strconv"
	"time"
)

// ServerConfig holds canvas server configuration.
type ServerConfig struct {
	Port            int           `json:"port"`
	SendBuffer      int           `json:"send_buffer"`
	MaxMessageBytes int64         `json:"max_message_bytes"`
	PingInterval    time.Duration `json:"ping_interval"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ReadBufferSize  int           `json:"read_buffer_size"`
	WriteBufferSize int           `json:"write_buffer_size"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:            3000,
		SendBuffer:      256,
		MaxMessageBytes: 1 << 20,
		PingInterval:    30 * time.Second,
		WriteTimeout:    10 * time.Second,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// ConfigFromEnv loads server configuration from environment variables.
// Falls back to defaults for any missing or unparsable values.
func ConfigFromEnv() *ServerConfig {
	cfg := DefaultConfig()

	cfg.Port = envInt("PORT", cfg.Port)
	cfg.SendBuffer = envInt("CANVAS_SEND_BUFFER", cfg.SendBuffer)
	cfg.MaxMessageBytes = int64(envInt("CANVAS_MAX_MESSAGE_BYTES", int(cfg.MaxMessageBytes)))
	cfg.PingInterval = envDuration("CANVAS_PING_INTERVAL", cfg.PingInterval)
	cfg.WriteTimeout = envDuration("CANVAS_WRITE_TIMEOUT", cfg.WriteTimeout)
	return cfg
}

// ClientConfig holds settings for a canvas client connection.
type ClientConfig struct {
	URL               string        `json:"url"`
	UserID            string        `json:"user_id"`
	MaxAttempts       int           `json:"max_attempts"`
	BaseDelay         time.Duration `json:"base_delay"`
	HandshakeTimeout  time.Duration `json:"handshake_timeout"`
	OutboundQueueSize int           `json:"outbound_queue_size"`
}

// DefaultClientConfig returns the default client configuration: five
// reconnection attempts, waiting 2s, 4s, 6s, 8s and 10s.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		URL:               "ws://localhost:3000/ws",
		MaxAttempts:       5,
		BaseDelay:         2 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		OutboundQueueSize: 64,
	}
}

// ClientConfigFromEnv loads client configuration from environment variables.
func ClientConfigFromEnv() *ClientConfig {
	cfg := DefaultClientConfig()

	if url := os.Getenv("CANVAS_URL"); url != "" {
		cfg.URL = url
	}
	if id := os.Getenv("CANVAS_USER_ID"); id != "" {
		cfg.UserID = id
	}
	cfg.MaxAttempts = envInt("CANVAS_RECONNECT_ATTEMPTS", cfg.MaxAttempts)
	cfg.BaseDelay = envDuration("CANVAS_RECONNECT_DELAY", cfg.BaseDelay)
	return cfg
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			return v
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if v, err := time.ParseDuration(s); err == nil && v >= 0 {
			return v
		}
	}
	return def
}
