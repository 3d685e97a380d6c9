// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface: one-shot asks, a
// line-based chat REPL, status, feature inspection, and config
// management. Argument parsing is hand-rolled; the command set is small
// enough that a flag framework would be mostly ceremony.
package cli
