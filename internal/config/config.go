// Package config provides configuration loading and structs for the Semblance engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engine.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Model   ModelConfig   `yaml:"model"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ModelConfig holds model selection and artifact resolution settings.
type ModelConfig struct {
	// ID is the model identifier; empty selects the built-in default model.
	ID string `yaml:"id"`
	// UseCPU forces CPU inference. Defaults to true when unset.
	UseCPU *bool `yaml:"use_cpu"`
	// MaxLength caps the tokenized sequence length.
	MaxLength int `yaml:"max_length"`
	// Endpoint is the artifact hub base URL.
	Endpoint string `yaml:"endpoint"`
	// CacheDir is where resolved artifacts are stored.
	CacheDir string `yaml:"cache_dir"`
}

// UseCPUOrDefault returns whether to force CPU inference; defaults to true when unset.
func (m *ModelConfig) UseCPUOrDefault() bool {
	if m.UseCPU != nil {
		return *m.UseCPU
	}
	return true
}

// RuntimeConfig holds ONNX Runtime settings.
type RuntimeConfig struct {
	// LibraryPath points at the onnxruntime shared library when it is not on
	// the default search path.
	LibraryPath string `yaml:"library_path"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	// Enabled toggles the embedding cache. Defaults to true when unset.
	Enabled *bool `yaml:"enabled"`
	// MemorySize is the in-memory LRU capacity.
	MemorySize int `yaml:"memory_size"`
	// DatabasePath enables the persistent SQLite tier when non-empty.
	DatabasePath string `yaml:"database_path"`
}

// EnabledOrDefault returns whether the embedding cache is on; defaults to true when unset.
func (c *CacheConfig) EnabledOrDefault() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Model.CacheDir = expandPath(cfg.Model.CacheDir, configDir)
	if cfg.Cache.DatabasePath != "" {
		cfg.Cache.DatabasePath = expandPath(cfg.Cache.DatabasePath, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
