// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the steer TUI.
//
// The palette is defined once in colors.go as lipgloss.AdaptiveColor
// pairs; Theme assembles them into component styles. The theme mode
// comes from terminal background detection unless the user has saved an
// explicit preference, in which case NewThemeWithMode pins it.
//
// Steering state has a fixed color language: emerald for positive
// values, rose for negative, amber for pending (staged, unconfirmed),
// blue for confirmed.
package styles
