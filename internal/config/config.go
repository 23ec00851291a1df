// Package config manages cadence configuration from the environment.
//
// Configuration comes from two places:
//   - .env / process environment: deployment settings (listen address,
//     data directory, log settings, admin token)
//   - platform defaults that gate quota tiers for non-paying tenants
//     (queue limit, track length limit) and the administrator account list
//
// The mutable platform defaults can be reloaded at runtime by the watcher
// when the .env file changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr  string
	MetricsAddr string
	DataDir     string

	// Platform defaults for the free tier
	QueueLimit       int
	TrackLengthLimit time.Duration

	// AdminIDs are platform administrator account IDs; they receive
	// unbounded quota tiers and may call the key-generation API.
	AdminIDs []string

	// AdminToken gates the administrative HTTP endpoints. Empty disables
	// them entirely.
	AdminToken string

	// Logging settings
	LogLevel  string
	LogFormat string
}

// Defaults is the reloadable subset handed to the registry.
type Defaults struct {
	QueueLimit       int
	TrackLengthLimit time.Duration
	AdminIDs         []string
}

// Defaults returns the reloadable subset of the configuration.
func (c *Config) Defaults() Defaults {
	return Defaults{
		QueueLimit:       c.QueueLimit,
		TrackLengthLimit: c.TrackLengthLimit,
		AdminIDs:         append([]string(nil), c.AdminIDs...),
	}
}

// EnvPath returns the path of the .env file the watcher monitors.
func (c *Config) EnvPath() string {
	return filepath.Join(c.DataDir, ".env")
}

// Load reads configuration from the environment, preferring an .env file
// in the data directory, then one in the working directory.
func Load() (*Config, error) {
	dataDir := "/var/lib/cadence"
	if dir := os.Getenv("CADENCE_DATA_DIR"); dir != "" {
		dataDir = dir
	}

	envFile := filepath.Join(dataDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Overload(envFile); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg("Failed to load .env file")
		}
	}
	// Also try the current directory for development setups.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:       ":7800",
		MetricsAddr:      ":9800",
		DataDir:          dataDir,
		QueueLimit:       20,
		TrackLengthLimit: 2 * time.Hour,
		LogLevel:         "info",
		LogFormat:        "auto",
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reload re-reads the .env file and the environment into a fresh Config.
// Used by the watcher; only the Defaults subset is applied live.
func (c *Config) Reload() (*Config, error) {
	if _, err := os.Stat(c.EnvPath()); err == nil {
		if err := godotenv.Overload(c.EnvPath()); err != nil {
			return nil, fmt.Errorf("reload %s: %w", c.EnvPath(), err)
		}
	}
	fresh := *c
	fresh.AdminIDs = nil
	if err := fresh.applyEnv(); err != nil {
		return nil, err
	}
	return &fresh, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CADENCE_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("CADENCE_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("CADENCE_QUEUE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid CADENCE_QUEUE_LIMIT %q", v)
		}
		c.QueueLimit = n
	}
	if v := os.Getenv("CADENCE_TRACK_LENGTH_LIMIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid CADENCE_TRACK_LENGTH_LIMIT %q", v)
		}
		c.TrackLengthLimit = d
	}
	if v := os.Getenv("CADENCE_ADMIN_IDS"); v != "" {
		c.AdminIDs = splitIDs(v)
	}
	if v := os.Getenv("CADENCE_ADMIN_TOKEN"); v != "" {
		c.AdminToken = v
	}
	if v := os.Getenv("CADENCE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CADENCE_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	return nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
