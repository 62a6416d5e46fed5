// Package config loads the planner's YAML configuration: a single
// Config struct, yaml tags, a Default() constructor, and a Load
// function that never requires a config file to exist.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SearchConfig bounds the planner's depth-first search.
type SearchConfig struct {
	// MaxPlanLength bounds plan_for_every_goal's search depth.
	MaxPlanLength int `yaml:"max_plan_length"`
	// AllowOneStepTowards toggles whether one_step_towards goals may be
	// selected at all (disabling it is useful for pure replay/validation).
	AllowOneStepTowards bool `yaml:"allow_one_step_towards"`
}

// LoggingConfig controls the shared zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config holds all planner configuration.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns production defaults.
func Default() Config {
	return Config{
		Search: SearchConfig{
			MaxPlanLength:       100,
			AllowOneStepTowards: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Load reads a YAML config file at path, overlaying it on Default().
// A missing file is not an error; it just yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
