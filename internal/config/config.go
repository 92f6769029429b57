// Package config resolves the gateway's runtime configuration from an
// optional YAML file plus environment overrides. The upstream credential is
// only ever read from the environment, never from the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of the serve command.
type Config struct {
	Listen   string   `yaml:"listen"`
	WSPath   string   `yaml:"ws_path"`
	Upstream Upstream `yaml:"upstream"`
	Store    Store    `yaml:"store"`
	Session  Session  `yaml:"session"`
}

// Upstream configures the Gemini Live connection. APIKey comes from the
// GEMINI_API_KEY environment variable.
type Upstream struct {
	APIKey   string `yaml:"-"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

// Store configures the memory database.
type Store struct {
	Path string `yaml:"path"`
}

// Session configures how upstream conversations are opened.
type Session struct {
	Instruction        string   `yaml:"instruction"`
	ResponseModalities []string `yaml:"response_modalities"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Listen: ":8080",
		WSPath: "/ws",
		Store: Store{
			Path: filepath.Join(home, ".murmur", "memories.db"),
		},
		Session: Session{
			Instruction:        "You are a helpful and friendly AI assistant.",
			ResponseModalities: []string{"AUDIO"},
		},
	}
}

// Load reads the file at path (if non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path) // #nosec G304
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Upstream.APIKey = os.Getenv("GEMINI_API_KEY")
	if v := os.Getenv("MURMUR_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("MURMUR_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}

	return cfg, nil
}
