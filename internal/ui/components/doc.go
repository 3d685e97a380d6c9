// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the steer
// TUI: the status bar with backend connection state, the feature panel
// with its steering sliders, the side-by-side comparison view, toasts,
// spinners, and code block rendering.
//
// Components are plain view structs rendered by the chat model; only
// the spinner participates in the Bubble Tea update loop.
package components
