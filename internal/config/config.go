// Package config handles loading and validation of the optional awsops.yaml
// project configuration, which supplies per-project command defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up in the working
// directory.
const FileName = "awsops.yaml"

// ECSConfig holds defaults for the ecs subcommands.
type ECSConfig struct {
	Cluster                string `yaml:"cluster,omitempty"`
	Service                string `yaml:"service,omitempty"`
	PollingIntervalSeconds int    `yaml:"pollingIntervalSeconds,omitempty"`
	TimeoutSeconds         int    `yaml:"timeoutSeconds,omitempty"`
}

// PruneConfig holds defaults for task definition pruning.
type PruneConfig struct {
	FamilyPrefix string `yaml:"familyPrefix,omitempty"`
	KeepLatest   int    `yaml:"keepLatest,omitempty"`
	Delete       bool   `yaml:"delete,omitempty"`
}

// VariablesConfig holds defaults for load-variables.
type VariablesConfig struct {
	ARNs []string `yaml:"arns,omitempty"`
}

// Config is the root of awsops.yaml.
type Config struct {
	ECS       ECSConfig       `yaml:"ecs,omitempty"`
	Prune     PruneConfig     `yaml:"prune,omitempty"`
	Variables VariablesConfig `yaml:"variables,omitempty"`
}

// Load reads and parses awsops.yaml from the given directory. A missing file
// is not an error; it yields the zero configuration so flags alone drive the
// commands.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.ECS.PollingIntervalSeconds < 0 {
		return fmt.Errorf("ecs.pollingIntervalSeconds must be positive")
	}
	if cfg.ECS.TimeoutSeconds < 0 {
		return fmt.Errorf("ecs.timeoutSeconds must be positive")
	}
	if cfg.Prune.KeepLatest < 0 {
		return fmt.Errorf("prune.keepLatest must be positive")
	}
	return nil
}
