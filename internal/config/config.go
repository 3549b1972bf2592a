// Package config loads the settings shared by the ohlg commands.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/internal/queue"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds command settings. Zero fields in a file keep their defaults.
type Config struct {
	// Params names the parameter set, see ohlg.ParameterSetNames.
	Params string `yaml:"params"`
	// Storage is a directory, or "mem" for an in-process store.
	Storage string `yaml:"storage"`
	// StorageMB caps the in-process store.
	StorageMB int64 `yaml:"storage_mb"`
	// Workers is the number of concurrent gate evaluators.
	Workers int `yaml:"workers"`
	// Queue names the job queue.
	Queue    string            `yaml:"queue"`
	Redis    queue.RedisConfig `yaml:"redis"`
	LogLevel string            `yaml:"log_level"`
	// Trials is the number of gate evaluations the demo runs.
	Trials int `yaml:"trials"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Params:    "default",
		Storage:   "/tmp/ohlg-storage",
		StorageMB: 1024,
		Workers:   4,
		Queue:     "default",
		Redis:     queue.RedisConfig{Addr: "localhost:6379"},
		LogLevel:  "info",
		Trials:    100,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c Config) Validate() error {
	if _, err := ohlg.ParametersLiteralByName(c.Params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Trials < 1 {
		return fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidConfig, c.Trials)
	}
	if c.Storage == "" {
		return fmt.Errorf("%w: storage is empty", ErrInvalidConfig)
	}
	return nil
}
