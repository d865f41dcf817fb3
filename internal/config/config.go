package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all service configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Stream  StreamConfig
	Reply   ReplyConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	stream, err := loadStreamConfig()
	if err != nil {
		return nil, err
	}

	replyCfg, err := loadReplyConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Storage: loadStorageConfig(),
		Stream:  stream,
		Reply:   replyCfg,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// StorageConfig describes where chat state is persisted. An empty path keeps
// everything in memory.
type StorageConfig struct {
	Path string
}

func loadStorageConfig() StorageConfig {
	// Set-but-empty means the caller explicitly asked for the in-memory
	// store; only an unset variable falls back to the default file.
	raw, ok := os.LookupEnv("CUREBOT_DB_PATH")
	if !ok {
		return StorageConfig{Path: "curebot.db"}
	}
	return StorageConfig{Path: strings.TrimSpace(raw)}
}

// StreamConfig controls the fragment cadence of assistant replies.
type StreamConfig struct {
	Interval time.Duration
}

func loadStreamConfig() (StreamConfig, error) {
	ms, err := parseOptionalIntEnv("STREAM_INTERVAL_MS")
	if err != nil {
		return StreamConfig{}, err
	}

	interval := 25 * time.Millisecond
	if ms != nil {
		if *ms < 1 {
			return StreamConfig{}, fmt.Errorf("STREAM_INTERVAL_MS must be positive, got %d", *ms)
		}
		interval = time.Duration(*ms) * time.Millisecond
	}

	return StreamConfig{Interval: interval}, nil
}

// ReplyConfig controls the reply generator's random source. Seed is optional;
// nil means seed from the clock.
type ReplyConfig struct {
	Seed *int64
}

func loadReplyConfig() (ReplyConfig, error) {
	raw, ok := os.LookupEnv("REPLY_SEED")
	if !ok {
		return ReplyConfig{}, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return ReplyConfig{}, nil
	}

	seed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return ReplyConfig{}, fmt.Errorf("invalid REPLY_SEED value %q: %w", value, err)
	}
	return ReplyConfig{Seed: &seed}, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
