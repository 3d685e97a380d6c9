// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists lightweight UI preferences across sessions.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/steer-tui/internal/util"
)

// =============================================================================
// PREFERENCE TYPES
// =============================================================================

// Prefs holds per-user interface preferences. Unlike config, these are
// written by the TUI itself (theme toggles, pane resizes) rather than
// edited by hand.
type Prefs struct {
	// DarkMode is the user's explicit theme choice, overriding terminal
	// background detection.
	DarkMode bool `json:"dark_mode"`

	// DarkModeSet distinguishes "never toggled" from "toggled to light".
	DarkModeSet bool `json:"dark_mode_set"`

	// SplitSizes holds the comparison view pane shares (original,
	// steered). They always sum to 1.
	SplitSizes [2]float64 `json:"split_sizes"`
}

// Default returns the default preferences.
func Default() *Prefs {
	return &Prefs{
		DarkMode:   true,
		SplitSizes: [2]float64{0.5, 0.5},
	}
}

// ToggleDarkMode flips the theme choice and marks it explicit.
func (p *Prefs) ToggleDarkMode() {
	p.DarkMode = !p.DarkMode
	p.DarkModeSet = true
}

// SetSplit records the comparison pane split, clamped so neither pane
// collapses below a tenth of the width.
func (p *Prefs) SetSplit(original float64) {
	if original < 0.1 {
		original = 0.1
	}
	if original > 0.9 {
		original = 0.9
	}
	p.SplitSizes = [2]float64{original, 1 - original}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Path returns the preferences file location (~/.steer/prefs.json).
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".steer", "prefs.json"), nil
}

// Load reads preferences from path. A missing or corrupt file is not an
// error: preferences are best-effort state and fall back to defaults.
func Load(path string) *Prefs {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}

	p := Default()
	if err := json.Unmarshal(data, p); err != nil {
		return Default()
	}
	p.normalize()
	return p
}

// Save writes preferences to path.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func Save(p *Prefs, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// normalize repairs values a hand-edited or truncated file may carry.
func (p *Prefs) normalize() {
	total := p.SplitSizes[0] + p.SplitSizes[1]
	if p.SplitSizes[0] <= 0 || p.SplitSizes[1] <= 0 || total <= 0 {
		p.SplitSizes = [2]float64{0.5, 0.5}
		return
	}
	if total != 1 {
		p.SplitSizes[0] /= total
		p.SplitSizes[1] /= total
	}
}
