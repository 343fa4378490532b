// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by
// unknown keys. Use errors.Is instead of string matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader; configPath may be empty for env-only operation.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load resolves the configuration: defaults, then the YAML file when
// configured, then environment overrides, then validation.
func (l *Loader) Load() (Config, error) {
	cfg := defaults()

	if l.configPath != "" {
		if err := l.mergeFile(&cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	l.mergeEnv(&cfg)

	if cfg.Store.Path != "" {
		if abs, err := filepath.Abs(cfg.Store.Path); err == nil {
			cfg.Store.Path = abs
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		LogService: "bridged",
		Store: StoreConfig{
			Backend: "file",
			Path:    "./data",
		},
		Server: ServerConfig{
			ReadTimeout:     15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		EventBuffer:     1000,
		AnalyticsBuffer: 100,
		RateLimit:       100,
	}
}

// mergeFile decodes the YAML file strictly: unknown keys are an error so a
// typo never silently falls back to a default.
func (l *Loader) mergeFile(cfg *Config) error {
	raw, err := os.ReadFile(l.configPath) // #nosec G304 -- path is operator-supplied
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return err
	}
	return nil
}

// mergeEnv applies environment overrides, the highest precedence layer.
func (l *Loader) mergeEnv(cfg *Config) {
	cfg.ListenAddr = l.envString("BRIDGE_LISTEN", cfg.ListenAddr)
	cfg.LogLevel = l.envString("BRIDGE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("BRIDGE_LOG_SERVICE", cfg.LogService)

	cfg.Store.Backend = l.envString("BRIDGE_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = l.envString("BRIDGE_STORE_PATH", cfg.Store.Path)
	cfg.Store.Redis.Addr = l.envString("BRIDGE_REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = l.envString("BRIDGE_REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = l.envInt("BRIDGE_REDIS_DB", cfg.Store.Redis.DB)

	cfg.Server.ReadTimeout = l.envDuration("BRIDGE_SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.IdleTimeout = l.envDuration("BRIDGE_SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = l.envDuration("BRIDGE_SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.EventBuffer = l.envInt("BRIDGE_EVENT_BUFFER", cfg.EventBuffer)
	cfg.AnalyticsBuffer = l.envInt("BRIDGE_ANALYTICS_BUFFER", cfg.AnalyticsBuffer)
	cfg.RateLimit = l.envInt("BRIDGE_RATE_LIMIT", cfg.RateLimit)
}
