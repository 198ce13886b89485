// Package config loads server configuration from an optional yaml file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Zero-config startup works:
// every field has a usable default.
type Config struct {
	// Addr is the listen address of the HTTP/WebSocket server.
	Addr string `yaml:"addr"`

	// DBPath is the sqlite database file.
	DBPath string `yaml:"db_path"`

	// AdminToken guards the administrative purge endpoint. When empty,
	// the endpoint refuses every request.
	AdminToken string `yaml:"admin_token"`

	// MetricsTTL is the freshness window for cached aggregate figures.
	MetricsTTL time.Duration `yaml:"metrics_ttl"`

	// SendTimeout bounds one websocket fan-out write.
	SendTimeout time.Duration `yaml:"send_timeout"`

	LogLevel string `yaml:"log_level"`
	LogPath  string `yaml:"log_path"`
}

func Default() Config {
	return Config{
		Addr:        ":8000",
		DBPath:      "balcao.db",
		MetricsTTL:  15 * time.Second,
		SendTimeout: 5 * time.Second,
		LogLevel:    "info",
	}
}

// Load reads path when it exists, then applies environment overrides.
// An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file is fine; env and defaults carry the day.
		case err != nil:
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BALCAO_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		// Platform-provided port, as on Railway-style deployments.
		if _, err := strconv.Atoi(v); err == nil {
			cfg.Addr = ":" + v
		}
	}
	if v := os.Getenv("BALCAO_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("BALCAO_ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}
	if v := os.Getenv("BALCAO_METRICS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MetricsTTL = d
		}
	}
	if v := os.Getenv("BALCAO_SEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SendTimeout = d
		}
	}
	if v := os.Getenv("BALCAO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BALCAO_LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
}
