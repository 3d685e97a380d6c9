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
// COMPARISON VIEW COMPONENT
// =============================================================================

// Comparison renders the side-by-side original vs. steered responses
// while both streams are in flight and during confirm/cancel.
type Comparison struct {
	Original string
	Steered  string

	// AppliedFeatures are the labels shown above the steered pane.
	AppliedFeatures []string

	Width      int
	Height     int
	SplitRatio float64 // Original pane's share of the width

	theme *styles.Theme
}

// NewComparison creates a comparison view.
func NewComparison(theme *styles.Theme) *Comparison {
	return &Comparison{
		Width:      80,
		Height:     20,
		SplitRatio: 0.5,
		theme:      theme,
	}
}

// SetSize updates the view dimensions.
func (c *Comparison) SetSize(width, height int) {
	c.Width = width
	c.Height = height
}

// SetContent updates both response buffers.
func (c *Comparison) SetContent(original, steered string) {
	c.Original = original
	c.Steered = steered
}

// View renders the two panes side by side, or stacked when the
// terminal is too narrow for a useful split.
func (c *Comparison) View() string {
	if c.Width < 60 {
		return c.viewStacked()
	}
	return c.viewSplit()
}

// viewSplit renders the panes horizontally per the split ratio.
func (c *Comparison) viewSplit() string {
	ratio := c.SplitRatio
	if ratio < 0.1 {
		ratio = 0.1
	}
	if ratio > 0.9 {
		ratio = 0.9
	}

	// One column of gap between the panes; borders and padding eat
	// four columns per pane.
	originalWidth := int(float64(c.Width-1) * ratio)
	steeredWidth := c.Width - 1 - originalWidth

	left := c.renderPane("Original", c.Original, originalWidth, c.theme.OriginalPane)
	right := c.renderPane(c.steeredTitle(), c.Steered, steeredWidth, c.theme.SteeredPane)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

// viewStacked renders the panes vertically.
func (c *Comparison) viewStacked() string {
	top := c.renderPane("Original", c.Original, c.Width, c.theme.OriginalPane)
	bottom := c.renderPane(c.steeredTitle(), c.Steered, c.Width, c.theme.SteeredPane)
	return top + "\n" + bottom
}

// renderPane renders one titled response pane.
func (c *Comparison) renderPane(title, content string, width int, style lipgloss.Style) string {
	inner := width - 4
	if inner < 10 {
		inner = 10
	}

	header := c.theme.PaneTitle.Width(inner).Render(title)
	body := wrapText(content, inner)

	return style.Width(width - 2).Render(header + "\n" + body)
}

// steeredTitle includes the applied feature labels when they fit.
func (c *Comparison) steeredTitle() string {
	if len(c.AppliedFeatures) == 0 {
		return "Steered"
	}
	joined := strings.Join(c.AppliedFeatures, ", ")
	return "Steered (" + util.TruncateRunes(joined, 40) + ")"
}

// ActionBar renders the confirm/cancel prompt shown under the panes.
func (c *Comparison) ActionBar() string {
	key := lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	desc := lipgloss.NewStyle().Foreground(styles.TextMuted)

	return c.theme.ComparisonBar.Render(
		key.Render("y") + desc.Render(" confirm steering  ") +
			key.Render("n") + desc.Render(" cancel and keep original"))
}

// wrapText wraps content to width, breaking long words.
// UNICODE: wraps by display width, not byte or rune count.
func wrapText(text string, width int) string {
	if width < 1 {
		return text
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		for util.StringWidth(line) > width {
			cut := util.TruncateRunesNoEllipsis(line, width)
			// Prefer breaking at the last space in the cut.
			if idx := strings.LastIndex(cut, " "); idx > 0 {
				cut = cut[:idx]
			}
			out = append(out, cut)
			line = strings.TrimLeft(strings.TrimPrefix(line, cut), " ")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
