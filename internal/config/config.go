// Package config loads console configuration from an optional YAML file
// with OPSCRIBE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything tunable about the console.
type Config struct {
	BackendURL string `yaml:"backend_url"`
	TokenFile  string `yaml:"token_file"`
	OperatorID string `yaml:"operator_id"`

	// CaptureCommand is the subprocess producing raw mono s16le PCM on
	// stdout, e.g. ffmpeg or arecord.
	CaptureCommand []string `yaml:"capture_command"`
	SampleRate     int      `yaml:"sample_rate"`
	ChunkIntervalMS int     `yaml:"chunk_interval_ms"`

	ReconnectBaseMS      int `yaml:"reconnect_base_ms"`
	ReconnectMaxAttempts int `yaml:"reconnect_max_attempts"`

	BackupDB      string   `yaml:"backup_db"`
	OutputFormats []string `yaml:"output_formats"`
}

// Default returns the shipped defaults.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		BackendURL: "http://localhost:8787",
		TokenFile:  filepath.Join(home, ".opscribe", "token"),
		OperatorID: "operator",
		CaptureCommand: []string{
			"ffmpeg", "-loglevel", "quiet",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", "16000",
			"-f", "s16le", "-",
		},
		SampleRate:           16000,
		ChunkIntervalMS:      1000,
		ReconnectBaseMS:      2000,
		ReconnectMaxAttempts: 5,
		BackupDB:             filepath.Join(home, ".opscribe", "backups.sqlite"),
		OutputFormats:        []string{"text"},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".opscribe", "config.yaml")
}

// Load reads the config file at path when it exists, then applies env
// overrides. A missing file is not an error; defaults carry.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults carry
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPSCRIBE_BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv("OPSCRIBE_TOKEN_FILE"); v != "" {
		c.TokenFile = v
	}
	if v := os.Getenv("OPSCRIBE_OPERATOR_ID"); v != "" {
		c.OperatorID = v
	}
	if v := os.Getenv("OPSCRIBE_CAPTURE_COMMAND"); v != "" {
		c.CaptureCommand = strings.Fields(v)
	}
	if n, ok := envInt("OPSCRIBE_SAMPLE_RATE"); ok {
		c.SampleRate = n
	}
	if n, ok := envInt("OPSCRIBE_CHUNK_INTERVAL_MS"); ok {
		c.ChunkIntervalMS = n
	}
	if n, ok := envInt("OPSCRIBE_RECONNECT_BASE_MS"); ok {
		c.ReconnectBaseMS = n
	}
	if n, ok := envInt("OPSCRIBE_RECONNECT_MAX_ATTEMPTS"); ok {
		c.ReconnectMaxAttempts = n
	}
	if v := os.Getenv("OPSCRIBE_BACKUP_DB"); v != "" {
		c.BackupDB = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ChunkInterval returns the audio slice duration.
func (c Config) ChunkInterval() time.Duration {
	return time.Duration(c.ChunkIntervalMS) * time.Millisecond
}

// ReconnectBase returns the base reconnection delay.
func (c Config) ReconnectBase() time.Duration {
	return time.Duration(c.ReconnectBaseMS) * time.Millisecond
}

// ChunkBytes returns the raw size of one audio slice (mono s16le).
func (c Config) ChunkBytes() int {
	return c.SampleRate * 2 * c.ChunkIntervalMS / 1000
}
