// SPDX-License-Identifier: MIT

// Package config provides configuration management for the bridge daemon.
// Precedence is ENV > file > defaults; the file is strict YAML.
package config

import (
	"fmt"
	"net"
	"time"
)

// ServerConfig bounds the HTTP server. There is no write timeout: the event
// stream endpoint holds its response open indefinitely.
type ServerConfig struct {
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RedisConfig selects the redis backend's connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StoreConfig selects the bucket store backend. Path is the data directory
// for file-backed backends (file, sqlite, badger).
type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

// Config is the resolved daemon configuration.
type Config struct {
	ListenAddr      string       `yaml:"listen"`
	LogLevel        string       `yaml:"logLevel"`
	LogService      string       `yaml:"logService"`
	Store           StoreConfig  `yaml:"store"`
	Server          ServerConfig `yaml:"server"`
	EventBuffer     int          `yaml:"eventBuffer"`
	AnalyticsBuffer int          `yaml:"analyticsBuffer"`
	RateLimit       int          `yaml:"rateLimit"`
}

var storeBackends = map[string]bool{
	"memory": true,
	"file":   true,
	"sqlite": true,
	"badger": true,
	"redis":  true,
}

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg Config) error {
	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		return fmt.Errorf("listen: invalid address %q: %w", cfg.ListenAddr, err)
	}
	if !storeBackends[cfg.Store.Backend] {
		return fmt.Errorf("store.backend: unknown backend %q", cfg.Store.Backend)
	}
	switch cfg.Store.Backend {
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr: required for the redis backend")
		}
	case "file", "sqlite", "badger":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path: required for the %s backend", cfg.Store.Backend)
		}
	}
	if cfg.EventBuffer < 1 {
		return fmt.Errorf("eventBuffer: must be >= 1 (got %d)", cfg.EventBuffer)
	}
	if cfg.AnalyticsBuffer < 1 {
		return fmt.Errorf("analyticsBuffer: must be >= 1 (got %d)", cfg.AnalyticsBuffer)
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("rateLimit: must be >= 0 (got %d)", cfg.RateLimit)
	}
	return nil
}
