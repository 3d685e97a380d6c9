// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the steer TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/steer-tui/internal/ui/styles"
	"github.com/jeranaias/steer-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// ConnState represents backend connection state as seen by the health
// poller.
type ConnState int

const (
	ConnConnecting ConnState = iota
	ConnConnected
	ConnDisconnected
)

// String returns the display string for the connection state.
func (c ConnState) String() string {
	switch c {
	case ConnConnected:
		return "Connected"
	case ConnDisconnected:
		return "Disconnected"
	default:
		return "Connecting..."
	}
}

// Icon returns a shape indicator for the connection state.
// ACCESSIBILITY: Uses distinct shapes alongside colors for colorblind users.
func (c ConnState) Icon() string {
	switch c {
	case ConnConnected:
		return styles.StatusIndicators.Active
	case ConnDisconnected:
		return styles.StatusIndicators.Error
	default:
		return styles.StatusIndicators.Pending
	}
}

// StatusBar renders the bottom status bar: connection state, variant,
// pending/confirmed steering counts, and workflow phase.
type StatusBar struct {
	Conn           ConnState
	VariantLabel   string // Current variant display label
	PendingCount   int    // Staged, unconfirmed modifications
	ConfirmedCount int    // Committed modifications
	Phase          string // Steering workflow phase ("" when idle)
	AutoSteer      bool   // Auto-steer toggle state
	Width          int
	ShowShortcuts  bool
	theme          *styles.Theme
}

// NewStatusBar creates a new StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Conn:          ConnConnecting,
		Width:         80,
		ShowShortcuts: true,
		theme:         theme,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetConn updates the connection state.
func (s *StatusBar) SetConn(conn ConnState) {
	s.Conn = conn
}

// SetSteering updates the steering counters shown in the bar.
func (s *StatusBar) SetSteering(pending, confirmed int, phase string) {
	s.PendingCount = pending
	s.ConfirmedCount = confirmed
	s.Phase = phase
}

// View renders the status bar.
func (s *StatusBar) View() string {
	if s.Width < 60 {
		return s.viewNarrow()
	}
	return s.viewWide()
}

// viewNarrow renders a compact bar: [icon] variant pending
func (s *StatusBar) viewNarrow() string {
	parts := []string{s.connStyle().Render(s.Conn.Icon())}

	if s.VariantLabel != "" {
		label := util.TruncateRunes(s.VariantLabel, 12)
		parts = append(parts, lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(label))
	}

	if s.PendingCount > 0 {
		parts = append(parts, s.theme.FeaturePendingMark.Render(
			"~"+util.IntToString(s.PendingCount)))
	}

	result := strings.Join(parts, " ")
	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Width(s.Width).
		Render(result)
}

// viewWide renders the full bar:
// [*] Connected | variant | ~2 pending | 1 steered | comparing | ^S steer ^C quit
func (s *StatusBar) viewWide() string {
	separator := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(" | ")

	parts := []string{
		s.connStyle().Render(s.Conn.Icon() + " " + s.Conn.String()),
	}

	if s.VariantLabel != "" {
		variantStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)
		parts = append(parts, variantStyle.Render(util.TruncateRunes(s.VariantLabel, 24)))
	}

	if s.AutoSteer {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.Purple).Bold(true).Render("AUTO"))
	}

	if s.PendingCount > 0 {
		parts = append(parts, s.theme.FeaturePendingMark.Render(
			util.IntToString(s.PendingCount)+" pending"))
	}
	if s.ConfirmedCount > 0 {
		parts = append(parts, s.theme.FeatureConfirmedMark.Render(
			util.IntToString(s.ConfirmedCount)+" steered"))
	}

	if s.Phase != "" {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.Amber).Italic(true).Render(s.Phase))
	}

	left := strings.Join(parts, separator)

	right := ""
	if s.ShowShortcuts {
		right = s.renderShortcuts()
	}

	spacing := s.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if spacing < 1 {
		spacing = 1
	}

	result := left + strings.Repeat(" ", spacing) + right

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Padding(0, 1).
		Width(s.Width).
		Render(result)
}

// renderShortcuts renders keyboard shortcut hints.
func (s *StatusBar) renderShortcuts() string {
	keyStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted)

	shortcuts := []string{
		keyStyle.Render("^F") + descStyle.Render("features"),
		keyStyle.Render("^C") + descStyle.Render("quit"),
	}

	return strings.Join(shortcuts, " ")
}

// connStyle returns the style for the current connection state.
func (s *StatusBar) connStyle() lipgloss.Style {
	switch s.Conn {
	case ConnConnected:
		return s.theme.StatusConnected
	case ConnDisconnected:
		return s.theme.StatusDisconnected
	default:
		return s.theme.StatusConnecting
	}
}
