// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the steer TUI:
// rune- and width-aware string truncation and padding, numeric
// formatting for steering values, and crash-safe atomic file writes
// used by the preferences and configuration stores.
package util
