package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/tagpivot/config.yaml"

// Config holds all tagpivot configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Retention RetentionConfig `yaml:"retention"`
	Capture   CaptureConfig   `yaml:"capture"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type RetentionConfig struct {
	Days               int `yaml:"days"`
	MaxEvents          int `yaml:"max_events"`
	PruneIntervalHours int `yaml:"prune_interval_hours"`
}

type CaptureConfig struct {
	DedupeWindowMs  int64 `yaml:"dedupe_window_ms"`
	MaxTagsPerEvent int   `yaml:"max_tags_per_event"`
}

type AnalysisConfig struct {
	WindowCandidates    []int `yaml:"window_candidates"`
	WindowMinTotal      int   `yaml:"window_min_total"`
	WindowMinUnique     int   `yaml:"window_min_unique"`
	BridgeDays          int   `yaml:"bridge_days"`
	BridgeTopK          int   `yaml:"bridge_top_k"`
	BridgeMinCo         int   `yaml:"bridge_min_co"`
	BridgeTopM          int   `yaml:"bridge_top_m"`
	PoleSize            int   `yaml:"pole_size"`
	PolarizationMinEvts int   `yaml:"polarization_min_events"`
	DownsampleCap       int   `yaml:"downsample_cap"`
}

type DaemonConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AuthToken      string `yaml:"auth_token"`
	MaxRequestSize int64  `yaml:"max_request_size"`
	RatePerSecond  int    `yaml:"rate_per_second"`
	RateBurst      int    `yaml:"rate_burst"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// DatabasePath resolves the configured SQLite file path.
func (c *Config) DatabasePath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
