// Package common provides shared utilities for jobforge: configuration,
// structured logging, and build metadata.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for jobforge.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Store       StoreConfig    `toml:"store"`
	JobQueue    JobQueueConfig `toml:"job_queue"`
	Dirmon      DirmonConfig   `toml:"dirmon"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds the event-hub HTTP listener configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StoreConfig holds the document store (SurrealDB) connection settings.
type StoreConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// JobQueueConfig holds dispatcher and worker tuning knobs.
type JobQueueConfig struct {
	MaxConcurrent      int    `toml:"max_concurrent"`
	DefaultMaxAttempts int    `toml:"default_max_attempts"`
	PollInterval       string `toml:"poll_interval"`
	PurgeAfter         string `toml:"purge_after"`
	InlineMode         bool   `toml:"inline_mode"` // bootstraps the process-wide inline switch
}

// GetPollInterval parses PollInterval, defaulting to 1s.
func (c *JobQueueConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// GetPurgeAfter parses PurgeAfter, defaulting to 24h.
func (c *JobQueueConfig) GetPurgeAfter() time.Duration {
	d, err := time.ParseDuration(c.PurgeAfter)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// DirmonConfig holds directory-monitor tuning knobs.
type DirmonConfig struct {
	ScanInterval            string   `toml:"scan_interval"`
	WhitelistPaths          []string `toml:"whitelist_paths"`
	DefaultArchiveDirectory string   `toml:"default_archive_directory"`
}

// GetScanInterval parses ScanInterval, defaulting to 5s.
func (c *DirmonConfig) GetScanInterval() time.Duration {
	d, err := time.ParseDuration(c.ScanInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8420,
		},
		Store: StoreConfig{
			Address:   "ws://localhost:8000/rpc",
			Namespace: "jobforge",
			Database:  "jobforge",
			Username:  "root",
			Password:  "root",
		},
		JobQueue: JobQueueConfig{
			MaxConcurrent:      5,
			DefaultMaxAttempts: 3,
			PollInterval:       "1s",
			PurgeAfter:         "24h",
		},
		Dirmon: DirmonConfig{
			ScanInterval:            "5s",
			DefaultArchiveDirectory: "archive",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "json",
			Outputs: []string{"console"},
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("JOBFORGE_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("JOBFORGE_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("JOBFORGE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("JOBFORGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if addr := os.Getenv("JOBFORGE_STORE_ADDRESS"); addr != "" {
		config.Store.Address = addr
	}
	if wp := os.Getenv("JOBFORGE_WHITELIST_PATHS"); wp != "" {
		config.Dirmon.WhitelistPaths = filterEmpty(strings.Split(wp, string(filepath.ListSeparator)))
	}
	if os.Getenv("JOBFORGE_INLINE_MODE") == "true" {
		config.JobQueue.InlineMode = true
	}
}

func filterEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
