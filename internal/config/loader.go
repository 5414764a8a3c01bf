// Package config loads the daemon configuration file. Flags override file
// values in cmd/llmd; zero values mean "unspecified" and are replaced by
// defaults there.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`

	// Memory budgeting across loaded sessions.
	BudgetMB int `json:"budget_mb" yaml:"budget_mb" toml:"budget_mb"`
	MarginMB int `json:"margin_mb" yaml:"margin_mb" toml:"margin_mb"`

	// Per-session generation settings.
	ContextLength   int `json:"context_length" yaml:"context_length" toml:"context_length"`
	Threads         int `json:"threads" yaml:"threads" toml:"threads"`
	MaxPromptTokens int `json:"max_prompt_tokens" yaml:"max_prompt_tokens" toml:"max_prompt_tokens"`
	MaxOutputBytes  int `json:"max_output_bytes" yaml:"max_output_bytes" toml:"max_output_bytes"`

	// Admission control.
	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
