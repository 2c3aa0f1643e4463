// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for llmchat.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. File location: ~/.llmchat/config.toml.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete llmchat configuration.
type Config struct {
	// DataDir is where the chat database and logs live.
	// Default: ~/.llmchat
	DataDir string `toml:"data_dir"`

	// AllowCPU permits running without a detected accelerator. Generation
	// on CPU is slow enough that it is opt-in.
	AllowCPU bool `toml:"allow_cpu"`

	// Ollama configuration
	Ollama OllamaConfig `toml:"ollama"`

	// Generation configuration
	Generate GenerateConfig `toml:"generate"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Logging configuration
	Log LogConfig `toml:"log"`
}

// OllamaConfig contains the connection settings for the Ollama backend.
type OllamaConfig struct {
	// URL is the base URL of the Ollama server
	URL string `toml:"url"`
	// Model is the model pulled and used for generation
	Model string `toml:"model"`
	// CheckTimeoutSecs bounds the startup reachability probe
	CheckTimeoutSecs int `toml:"check_timeout_secs"`
}

// GenerateConfig contains generation tuning.
type GenerateConfig struct {
	// StallTimeoutSecs fails a generation that produces no output for
	// this long. 0 disables the watchdog.
	StallTimeoutSecs int `toml:"stall_timeout_secs"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowStats displays tokens/sec in the status bar
	ShowStats bool `toml:"show_stats"`
	// Markdown renders assistant output as formatted markdown
	Markdown bool `toml:"markdown"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `toml:"level"`
	// File is the log file path (empty = <data_dir>/llmchat.log)
	File string `toml:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		AllowCPU: false,
		Ollama: OllamaConfig{
			URL:              "http://127.0.0.1:11434",
			Model:            "qwen2.5:7b",
			CheckTimeoutSecs: 5,
		},
		Generate: GenerateConfig{
			StallTimeoutSecs: 0,
		},
		UI: UIConfig{
			Theme:     "dark",
			ShowStats: true,
			Markdown:  true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the llmchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".llmchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when the file is absent. Environment overrides apply last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = defaults.Ollama.URL
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = defaults.Ollama.Model
	}
	if cfg.Ollama.CheckTimeoutSecs == 0 {
		cfg.Ollama.CheckTimeoutSecs = defaults.Ollama.CheckTimeoutSecs
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// ApplyEnvOverrides applies LLMCHAT_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LLMCHAT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LLMCHAT_OLLAMA_URL"); v != "" {
		c.Ollama.URL = v
	}
	if v := os.Getenv("LLMCHAT_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("LLMCHAT_ALLOW_CPU"); v != "" {
		c.AllowCPU = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("LLMCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// ResolveDataDir returns the effective data directory, defaulting to the
// config directory when unset.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return ConfigDir()
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# llmchat configuration file")
	fmt.Fprintln(file, "# Generated by llmchat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.Ollama.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "ollama.url",
			Message: fmt.Sprintf("not a valid URL: %q", c.Ollama.URL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "ollama.url",
			Message: fmt.Sprintf("unsupported scheme %q (use http or https)", u.Scheme),
		})
	}

	if c.Ollama.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "ollama.model",
			Message: "must not be empty",
		})
	}

	if c.Ollama.CheckTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "ollama.check_timeout_secs",
			Message: "must not be negative",
		})
	}

	if c.Generate.StallTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "generate.stall_timeout_secs",
			Message: "must not be negative",
		})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("unknown theme %q (valid: dark, light, auto)", c.UI.Theme),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q (valid: debug, info, warn, error)", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
