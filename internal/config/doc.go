// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config handles steer configuration loading, validation, and
// persistence.
//
// Configuration lives at ~/.steer/config.toml. Missing values fall back
// to defaults, and STEER_* environment variables override the file:
//
//	STEER_SERVER_URL    backend endpoint
//	STEER_TIMEOUT_SECS  request timeout
//	STEER_AUTO          enable auto-steer
//	STEER_THEME         dark/light/auto
//	STEER_NO_MARKDOWN   disable markdown rendering
//
// A process-wide instance is available through Global(), and Watcher
// reloads it when the file changes on disk.
package config
