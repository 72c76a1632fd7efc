package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration
type Config struct {
	Drive   DriveConfig   `yaml:"drive"`
	Archive ArchiveConfig `yaml:"archive"`
	Store   StoreConfig   `yaml:"store"`
}

// DriveConfig holds Drive API settings
type DriveConfig struct {
	APIBaseURL    string `yaml:"api_base_url"`
	UploadBaseURL string `yaml:"upload_base_url"`
	PageSize      int    `yaml:"page_size"`
	MaxPages      int    `yaml:"max_pages"`
}

// ArchiveConfig holds archive creation settings
type ArchiveConfig struct {
	Compression string `yaml:"compression"`
	OutputDir   string `yaml:"output_dir"`
}

// StoreConfig holds run-history store settings
type StoreConfig struct {
	DBPath string `yaml:"db_path"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Drive: DriveConfig{
			APIBaseURL:    "https://www.googleapis.com/drive/v3",
			UploadBaseURL: "https://www.googleapis.com/upload/drive/v3",
			PageSize:      1000,
			MaxPages:      10000,
		},
		Archive: ArchiveConfig{
			Compression: "xz",
			OutputDir:   "",
		},
		Store: StoreConfig{
			DBPath: "",
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"gdarch.yaml",
		"/etc/gdarch/gdarch.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "gdarch", "gdarch.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// DefaultDBPath resolves the run-history database location when the
// config leaves it empty.
func (c *Config) DefaultDBPath() string {
	if c.Store.DBPath != "" {
		return c.Store.DBPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "gdarch.db"
	}
	return filepath.Join(home, ".local", "state", "gdarch", "gdarch.db")
}
