// Package config provides configuration management for the ingest sensor.
//
// The configuration is loaded from a JSON file and contains settings for the
// packet capture loop, the collector delivery client, the dedup cache, the
// Steam cache watcher, the local status API, and logging. Default values are
// provided for every field so the sensor runs with no configuration file at
// all; a partial file overrides only what it names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config represents the complete application configuration
type Config struct {
	Capture    CaptureConfig    `json:"capture"`
	Collector  CollectorConfig  `json:"collector"`
	Cache      CacheConfig      `json:"cache"`
	SteamCache SteamCacheConfig `json:"steam_cache"`
	API        APIConfig        `json:"api"`
	Statlocker StatlockerConfig `json:"statlocker"`
	Journal    JournalConfig    `json:"journal"`
	Logging    LoggingConfig    `json:"logging"`
}

// CaptureConfig contains packet capture settings
type CaptureConfig struct {
	Interface     string `json:"interface"`
	AutoDetect    bool   `json:"auto_detect"`
	BPFFilter     string `json:"bpf_filter"`
	Promiscuous   bool   `json:"promiscuous"`
	RateLimit     int    `json:"rate_limit_per_second"`
	RestartDelay  int    `json:"restart_delay_seconds"`
	TableCap      int    `json:"connection_table_cap"`
	IdleTimeout   int    `json:"idle_timeout_seconds"`
	BufferCap     int    `json:"stream_buffer_cap_bytes"`
	MinFrameBytes int    `json:"min_frame_bytes"`
}

// CollectorConfig contains delivery settings for the remote collector
type CollectorConfig struct {
	Endpoint     string `json:"endpoint"`
	MaxAttempts  int    `json:"max_attempts"`
	RetryDelay   int    `json:"retry_delay_seconds"`
	Timeout      int    `json:"timeout_seconds"`
	MaxMatchID   uint64 `json:"max_match_id"`
}

// CacheConfig contains ingestion dedup cache settings
type CacheConfig struct {
	MaxEntries int `json:"max_entries"`
}

// SteamCacheConfig contains Steam HTTP cache watcher settings
type SteamCacheConfig struct {
	Enabled     bool   `json:"enabled"`
	Directory   string `json:"directory"`
	InitialScan bool   `json:"initial_scan"`
}

// APIConfig contains local status API settings
type APIConfig struct {
	Enabled            bool   `json:"enabled"`
	Host               string `json:"host"`
	Port               int    `json:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
}

// StatlockerConfig contains Statlocker notification settings
type StatlockerConfig struct {
	Enabled bool `json:"enabled"`
}

// JournalConfig contains audit journal settings
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			Interface:     "",
			AutoDetect:    true,
			BPFFilter:     "tcp port 80",
			Promiscuous:   true,
			RateLimit:     10000,
			RestartDelay:  1,
			TableCap:      1000,
			IdleTimeout:   30,
			BufferCap:     16 * 1024,
			MinFrameBytes: 60,
		},
		Collector: CollectorConfig{
			Endpoint:    "https://api.deadlock-api.com/v1/matches/salts",
			MaxAttempts: 10,
			RetryDelay:  3,
			Timeout:     10,
			MaxMatchID:  100_000_000,
		},
		Cache: CacheConfig{
			MaxEntries: 10_000,
		},
		SteamCache: SteamCacheConfig{
			Enabled:     true,
			Directory:   "",
			InitialScan: true,
		},
		API: APIConfig{
			Enabled:            true,
			Host:               "127.0.0.1",
			Port:               8675,
			RateLimitPerMinute: 100,
		},
		Statlocker: StatlockerConfig{
			Enabled: true,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadConfig reads and parses the configuration file at path. A missing file
// is not an error; the defaults are returned unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the sensor cannot run with
func (c *Config) Validate() error {
	if c.Collector.Endpoint == "" {
		return fmt.Errorf("collector endpoint must not be empty")
	}
	if c.Collector.MaxAttempts < 1 {
		return fmt.Errorf("collector max_attempts must be at least 1, got %d", c.Collector.MaxAttempts)
	}
	if c.Capture.TableCap < 1 {
		return fmt.Errorf("connection_table_cap must be at least 1, got %d", c.Capture.TableCap)
	}
	if c.Capture.BufferCap < 1 {
		return fmt.Errorf("stream_buffer_cap_bytes must be at least 1, got %d", c.Capture.BufferCap)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache max_entries must be at least 1, got %d", c.Cache.MaxEntries)
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		return fmt.Errorf("api port must be between 1 and 65535, got %d", c.API.Port)
	}
	return nil
}
