// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned by FindConfig when no candidate exists.
var ErrConfigNotFound = errors.New("config file not found")

// EnvProjectPath names the environment variable that selects the project.
const EnvProjectPath = "VIBEFOUNDRY_PROJECT_PATH"

// Candidate file names, in lookup order.
var configNames = []string{
	"vibefoundry.hjson",
	"vibefoundry.json",
	"vibefoundry.yaml",
	"vibefoundry.yml",
}

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path. Files ending
// in .yaml or .yml are parsed as YAML, everything else as HJSON (which
// includes plain JSON).
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := hjson.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse hjson: %w", err)
		}
	}

	// Round-trip through JSON so both formats share the struct tags.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// FindConfig returns the first candidate config file found in dirs.
func (l *Loader) FindConfig(dirs ...string) (string, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	for _, dir := range dirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				abs, err := filepath.Abs(path)
				if err != nil {
					return path, nil
				}
				return abs, nil
			}
		}
	}

	return "", fmt.Errorf("%w (looked for %s)", ErrConfigNotFound, strings.Join(configNames, ", "))
}

// ApplyEnv overlays settings taken from the environment.
func ApplyEnv(cfg *Config) {
	if p := os.Getenv(EnvProjectPath); p != "" {
		cfg.Project.Path = p
	}
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	// Terminal defaults
	if cfg.Terminal.Rows == 0 {
		cfg.Terminal.Rows = 24
	}
	if cfg.Terminal.Cols == 0 {
		cfg.Terminal.Cols = 80
	}
	if cfg.Terminal.PollInterval == "" {
		cfg.Terminal.PollInterval = "20ms"
	}
	if cfg.Terminal.StopTimeout == "" {
		cfg.Terminal.StopTimeout = "2s"
	}

	// Watch defaults
	if cfg.Watch.Interval == "" {
		cfg.Watch.Interval = "1s"
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "500ms"
	}
	if cfg.Watch.DebounceHorizon == "" {
		cfg.Watch.DebounceHorizon = "10s"
	}
	if cfg.Watch.Keepalive == "" {
		cfg.Watch.Keepalive = "30s"
	}

	// Script defaults
	if cfg.Scripts.Python == "" {
		cfg.Scripts.Python = "python3"
	}
	if cfg.Scripts.Timeout == "" {
		cfg.Scripts.Timeout = "5m"
	}

	// Sync defaults
	if cfg.Sync.Timeout == "" {
		cfg.Sync.Timeout = "30s"
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = 4
	}

	// Events defaults
	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 1000
	}
	if cfg.Events.History.MaxAge == "" {
		cfg.Events.History.MaxAge = "1h"
	}
}
