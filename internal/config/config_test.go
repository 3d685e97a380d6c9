// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and
// ReloadGlobal() can be safely called concurrently without races.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Server.BaseURL = "http://localhost:9999"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Server.BaseURL == "" {
		t.Error("Server base URL should not be empty")
	}
	if cfg.UI.Theme == "" {
		t.Error("UI theme should not be empty")
	}
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	ResetGlobalForTesting()
	_ = Global()

	custom := Default()
	custom.Server.BaseURL = "http://example.test:8000"
	SetGlobal(custom)

	if got := Global().Server.BaseURL; got != "http://example.test:8000" {
		t.Errorf("expected overwritten base URL, got %s", got)
	}
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.Server.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("unexpected default base URL: %s", cfg.Server.BaseURL)
	}
	if cfg.Server.HealthIntervalSecs != 5 {
		t.Errorf("unexpected default health interval: %d", cfg.Server.HealthIntervalSecs)
	}
	if cfg.Steering.MaxValue != 1.0 {
		t.Errorf("unexpected default steering max: %g", cfg.Steering.MaxValue)
	}
	if cfg.Steering.AutoSteer {
		t.Error("auto-steer should default to off")
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("unexpected default theme: %s", cfg.UI.Theme)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad url", func(c *Config) { c.Server.BaseURL = "not a url" }, true},
		{"negative timeout", func(c *Config) { c.Server.TimeoutSecs = -1 }, true},
		{"zero health interval", func(c *Config) { c.Server.HealthIntervalSecs = 0 }, true},
		{"temperature too high", func(c *Config) { c.Chat.Temperature = 3 }, true},
		{"top_p out of range", func(c *Config) { c.Chat.TopP = 1.5 }, true},
		{"steering max above bound", func(c *Config) { c.Steering.MaxValue = 1.5 }, true},
		{"steering max zero", func(c *Config) { c.Steering.MaxValue = 0 }, true},
		{"bad theme", func(c *Config) { c.UI.Theme = "sepia" }, true},
		{"split ratio out of range", func(c *Config) { c.UI.SplitRatio = 0.95 }, true},
		{"light theme ok", func(c *Config) { c.UI.Theme = "light" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("server.base_url", "http://localhost:1234"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := cfg.Get("server.base_url")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != "http://localhost:1234" {
		t.Errorf("unexpected value: %v", v)
	}

	if err := cfg.Set("steering.max_value", "0.8"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if cfg.Steering.MaxValue != 0.8 {
		t.Errorf("expected 0.8, got %g", cfg.Steering.MaxValue)
	}

	if err := cfg.Set("steering.auto_steer", "true"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !cfg.Steering.AutoSteer {
		t.Error("expected auto_steer enabled")
	}

	if err := cfg.Set("chat.temperature", "not-a-number"); err == nil {
		t.Error("expected error for bad float")
	}
	if err := cfg.Set("no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestConfig_GetAllKeysResolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("key %s did not resolve: %v", key, err)
		}
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STEER_SERVER_URL", "http://env.test:8000")
	t.Setenv("STEER_AUTO", "1")
	t.Setenv("STEER_THEME", "dark")
	t.Setenv("STEER_NO_MARKDOWN", "true")
	t.Setenv("STEER_TIMEOUT_SECS", "45")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "http://env.test:8000" {
		t.Errorf("base URL not overridden: %s", cfg.Server.BaseURL)
	}
	if !cfg.Steering.AutoSteer {
		t.Error("auto-steer not overridden")
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("theme not overridden: %s", cfg.UI.Theme)
	}
	if cfg.UI.Markdown {
		t.Error("markdown not disabled")
	}
	if cfg.Server.TimeoutSecs != 45 {
		t.Errorf("timeout not overridden: %d", cfg.Server.TimeoutSecs)
	}
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "http://roundtrip.test:8000"
	cfg.Steering.AutoSteer = true
	cfg.UI.SplitRatio = 0.6

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Server.BaseURL != cfg.Server.BaseURL {
		t.Errorf("base URL mismatch: %s", loaded.Server.BaseURL)
	}
	if !loaded.Steering.AutoSteer {
		t.Error("auto-steer lost in round trip")
	}
	if loaded.UI.SplitRatio != 0.6 {
		t.Errorf("split ratio mismatch: %g", loaded.UI.SplitRatio)
	}
}

// Sparse files fill in defaults for everything they omit.
func TestConfig_SparseFileFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	sparse := "[server]\nbase_url = \"http://sparse.test:8000\"\n"
	if err := os.WriteFile(path, []byte(sparse), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Server.BaseURL != "http://sparse.test:8000" {
		t.Errorf("explicit value lost: %s", cfg.Server.BaseURL)
	}
	if cfg.Server.HealthIntervalSecs != 5 {
		t.Errorf("default not filled: %d", cfg.Server.HealthIntervalSecs)
	}
	if cfg.Steering.MaxValue != 1.0 {
		t.Errorf("default not filled: %g", cfg.Steering.MaxValue)
	}
}

func TestConfig_LoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	bad := "[ui]\ntheme = \"sepia\"\n"
	if err := os.WriteFile(path, []byte(bad), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for invalid theme")
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, 50*time.Millisecond, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	cfg.Server.BaseURL = "http://reloaded.test:8000"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changed:
		if got.Server.BaseURL != "http://reloaded.test:8000" {
			t.Errorf("stale config delivered: %s", got.Server.BaseURL)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
