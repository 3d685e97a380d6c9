// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config handles steer configuration loading and persistence.
//
// Configuration sources, in precedence order:
//  1. Environment variables (STEER_*)
//  2. ~/.steer/config.toml
//  3. Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// Config is the main configuration structure for steer.
type Config struct {
	// Version of the configuration format.
	Version string `toml:"version" json:"version"`

	// Server settings for the steering backend.
	Server ServerConfig `toml:"server" json:"server"`

	// Chat settings for completion requests.
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Steering settings for feature modification.
	Steering SteeringConfig `toml:"steering" json:"steering"`

	// UI settings.
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	// BaseURL is the steering backend endpoint.
	BaseURL string `toml:"base_url" json:"base_url"`

	// TimeoutSecs is the per-request timeout for non-streaming calls.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	// HealthIntervalSecs is how often the TUI polls the health endpoint.
	HealthIntervalSecs int `toml:"health_interval_secs" json:"health_interval_secs"`
}

// ChatConfig contains completion request settings.
type ChatConfig struct {
	// MaxCompletionTokens caps generation length (0 = backend default).
	MaxCompletionTokens int `toml:"max_completion_tokens" json:"max_completion_tokens"`

	// Temperature for generation (0 = backend default).
	Temperature float64 `toml:"temperature" json:"temperature"`

	// TopP nucleus sampling parameter (0 = backend default).
	TopP float64 `toml:"top_p" json:"top_p"`
}

// SteeringConfig contains feature-steering settings.
type SteeringConfig struct {
	// MaxValue bounds manual steering magnitudes.
	MaxValue float64 `toml:"max_value" json:"max_value"`

	// AutoSteer enables automatic steering suggestions for each prompt.
	AutoSteer bool `toml:"auto_steer" json:"auto_steer"`

	// SearchTopK is how many results feature search requests.
	SearchTopK int `toml:"search_top_k" json:"search_top_k"`
}

// UIConfig contains user interface settings.
type UIConfig struct {
	// Theme: "dark", "light", or "auto" (detect from terminal).
	Theme string `toml:"theme" json:"theme"`

	// Markdown enables rendered markdown for assistant responses.
	Markdown bool `toml:"markdown" json:"markdown"`

	// SplitRatio is the comparison view's original-pane share (0.1-0.9).
	SplitRatio float64 `toml:"split_ratio" json:"split_ratio"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			BaseURL:            "http://127.0.0.1:8000",
			TimeoutSecs:        30,
			HealthIntervalSecs: 5,
		},
		Chat: ChatConfig{
			MaxCompletionTokens: 0,
			Temperature:         0,
			TopP:                0,
		},
		Steering: SteeringConfig{
			MaxValue:   1.0,
			AutoSteer:  false,
			SearchTopK: 10,
		},
		UI: UIConfig{
			Theme:      "auto",
			Markdown:   true,
			SplitRatio: 0.5,
		},
	}
}

// =============================================================================
// FILE PATHS
// =============================================================================

// ConfigDir returns the steer configuration directory (~/.steer).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".steer"), nil
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

// Load loads configuration from the config file, falling back to
// defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadTOML(cfg, path); err != nil {
				loadErr = fmt.Errorf("failed to load config: %w", err)
			} else {
				cfg.ApplyEnvOverrides()
				cfg.SetDefaults()
				if err := cfg.Validate(); err != nil {
					return nil, fmt.Errorf("invalid config: %w", err)
				}
				return cfg, nil
			}
		}
	}

	// Defaults path: still honor the environment and validate.
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
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
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# steer configuration file")
	fmt.Fprintln(file, "# Generated by steer - edit with care")
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "server.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Server.BaseURL),
			})
		}
	}

	if c.Server.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.Server.HealthIntervalSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.health_interval_secs",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Server.HealthIntervalSecs),
		})
	}

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: "must be between 0.0 and 2.0",
		})
	}

	if c.Chat.TopP < 0 || c.Chat.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.top_p",
			Message: "must be between 0.0 and 1.0",
		})
	}

	if c.Steering.MaxValue <= 0 || c.Steering.MaxValue > 1.0 {
		errs = append(errs, ValidationError{
			Field:   "steering.max_value",
			Message: fmt.Sprintf("must be in (0.0, 1.0], got %g", c.Steering.MaxValue),
		})
	}

	if c.Steering.SearchTopK < 1 || c.Steering.SearchTopK > 100 {
		errs = append(errs, ValidationError{
			Field:   "steering.search_top_k",
			Message: fmt.Sprintf("must be 1-100, got %d", c.Steering.SearchTopK),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if c.UI.SplitRatio < 0.1 || c.UI.SplitRatio > 0.9 {
		errs = append(errs, ValidationError{
			Field:   "ui.split_ratio",
			Message: fmt.Sprintf("must be 0.1-0.9, got %g", c.UI.SplitRatio),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills in zero values left by a sparse config file.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Server.HealthIntervalSecs == 0 {
		c.Server.HealthIntervalSecs = defaults.Server.HealthIntervalSecs
	}
	if c.Steering.MaxValue == 0 {
		c.Steering.MaxValue = defaults.Steering.MaxValue
	}
	if c.Steering.SearchTopK == 0 {
		c.Steering.SearchTopK = defaults.Steering.SearchTopK
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.SplitRatio == 0 {
		c.UI.SplitRatio = defaults.UI.SplitRatio
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - STEER_SERVER_URL: overrides server.base_url
//   - STEER_TIMEOUT_SECS: overrides server.timeout_secs
//   - STEER_AUTO: set to "1" or "true" to enable auto-steer
//   - STEER_THEME: overrides ui.theme
//   - STEER_NO_MARKDOWN: set to "1" or "true" to disable markdown rendering
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("STEER_SERVER_URL"); u != "" {
		c.Server.BaseURL = u
	}

	if secs := os.Getenv("STEER_TIMEOUT_SECS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n >= 0 {
			c.Server.TimeoutSecs = n
		}
	}

	if auto := os.Getenv("STEER_AUTO"); auto != "" {
		c.Steering.AutoSteer = auto == "1" || strings.ToLower(auto) == "true"
	}

	if theme := os.Getenv("STEER_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if noMD := os.Getenv("STEER_NO_MARKDOWN"); noMD != "" {
		if noMD == "1" || strings.ToLower(noMD) == "true" {
			c.UI.Markdown = false
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value by dot-notation key
// (e.g. "server.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	switch strings.ToLower(key) {
	case "version":
		return c.Version, nil
	case "server.base_url":
		return c.Server.BaseURL, nil
	case "server.timeout_secs":
		return c.Server.TimeoutSecs, nil
	case "server.health_interval_secs":
		return c.Server.HealthIntervalSecs, nil
	case "chat.max_completion_tokens":
		return c.Chat.MaxCompletionTokens, nil
	case "chat.temperature":
		return c.Chat.Temperature, nil
	case "chat.top_p":
		return c.Chat.TopP, nil
	case "steering.max_value":
		return c.Steering.MaxValue, nil
	case "steering.auto_steer":
		return c.Steering.AutoSteer, nil
	case "steering.search_top_k":
		return c.Steering.SearchTopK, nil
	case "ui.theme":
		return c.UI.Theme, nil
	case "ui.markdown":
		return c.UI.Markdown, nil
	case "ui.split_ratio":
		return c.UI.SplitRatio, nil
	}
	return nil, fmt.Errorf("unknown key: %s", key)
}

// Set sets a configuration value by dot-notation key from its string
// form, converting to the field's type.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "server.base_url":
		c.Server.BaseURL = value
	case "server.timeout_secs":
		return setInt(&c.Server.TimeoutSecs, value)
	case "server.health_interval_secs":
		return setInt(&c.Server.HealthIntervalSecs, value)
	case "chat.max_completion_tokens":
		return setInt(&c.Chat.MaxCompletionTokens, value)
	case "chat.temperature":
		return setFloat(&c.Chat.Temperature, value)
	case "chat.top_p":
		return setFloat(&c.Chat.TopP, value)
	case "steering.max_value":
		return setFloat(&c.Steering.MaxValue, value)
	case "steering.auto_steer":
		c.Steering.AutoSteer = parseBool(value)
	case "steering.search_top_k":
		return setInt(&c.Steering.SearchTopK, value)
	case "ui.theme":
		c.UI.Theme = value
	case "ui.markdown":
		c.UI.Markdown = parseBool(value)
	case "ui.split_ratio":
		return setFloat(&c.UI.SplitRatio, value)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"server.base_url",
		"server.timeout_secs",
		"server.health_interval_secs",
		"chat.max_completion_tokens",
		"chat.temperature",
		"chat.top_p",
		"steering.max_value",
		"steering.auto_steer",
		"steering.search_top_k",
		"ui.theme",
		"ui.markdown",
		"ui.split_ratio",
	}
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer value: %v", err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid float value: %v", err)
	}
	*dst = f
	return nil
}

func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			if cfg == nil {
				cfg = Default()
			}
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
