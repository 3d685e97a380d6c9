// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - lipgloss styles for non-TUI command output.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/steer-tui/internal/ui/styles"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	valueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	successStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	steeredStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)
)
