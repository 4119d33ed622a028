package main

import (
	"errors"
	"fmt"

	"github.com/jonathan/license-delivery/internal/config"
)

// loadConfig reads path, applies overrides, defaults and environment
// secrets, then validates the result.
func loadConfig(path string, override func(*config.Config)) (*config.Config, error) {
	if path == "" {
		return nil, errors.New("--config is required")
	}

	loaded, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if override != nil {
		override(loaded)
	}

	cfg := loaded.MergeWithDefaults(config.Defaults())
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
