// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the steer TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/ui/styles"
	"github.com/jeranaias/steer-tui/internal/util"
)

// =============================================================================
// FEATURE PANEL COMPONENT
// =============================================================================

// sliderWidth is the character width of the steering slider track.
const sliderWidth = 21

// FeaturePanel renders the feature table: one row per feature with its
// label, activation gauge, and steering slider. One row is selected for
// keyboard editing.
type FeaturePanel struct {
	Features []api.Feature
	Selected int
	Offset   int // First visible row, for scrolling
	Width    int
	Height   int
	MaxSteer float64 // Slider bound, mirrors the steering limit
	Editing  bool    // Selected row's slider has focus

	theme *styles.Theme
}

// NewFeaturePanel creates a feature panel.
func NewFeaturePanel(theme *styles.Theme) *FeaturePanel {
	return &FeaturePanel{
		Width:    48,
		Height:   20,
		MaxSteer: 1.0,
		theme:    theme,
	}
}

// SetFeatures replaces the feature rows, keeping the selection in
// bounds.
func (p *FeaturePanel) SetFeatures(features []api.Feature) {
	p.Features = features
	if p.Selected >= len(features) {
		p.Selected = len(features) - 1
	}
	if p.Selected < 0 {
		p.Selected = 0
	}
	p.clampOffset()
}

// SetSize updates the panel dimensions.
func (p *FeaturePanel) SetSize(width, height int) {
	p.Width = width
	p.Height = height
	p.clampOffset()
}

// MoveSelection moves the selected row by delta, scrolling as needed.
func (p *FeaturePanel) MoveSelection(delta int) {
	p.Selected += delta
	if p.Selected < 0 {
		p.Selected = 0
	}
	if p.Selected >= len(p.Features) {
		p.Selected = len(p.Features) - 1
	}
	p.clampOffset()
}

// SelectedFeature returns the currently selected feature, if any.
func (p *FeaturePanel) SelectedFeature() (api.Feature, bool) {
	if p.Selected < 0 || p.Selected >= len(p.Features) {
		return api.Feature{}, false
	}
	return p.Features[p.Selected], true
}

// clampOffset keeps the selected row visible.
func (p *FeaturePanel) clampOffset() {
	visible := p.visibleRows()
	if visible < 1 {
		visible = 1
	}
	if p.Selected < p.Offset {
		p.Offset = p.Selected
	}
	if p.Selected >= p.Offset+visible {
		p.Offset = p.Selected - visible + 1
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// visibleRows returns how many feature rows fit in the panel.
func (p *FeaturePanel) visibleRows() int {
	// Border, title, and column header consume four lines.
	return p.Height - 4
}

// View renders the feature panel.
func (p *FeaturePanel) View() string {
	var b strings.Builder

	title := p.theme.PaneTitle.Render("Features")
	b.WriteString(title)
	b.WriteString("\n")

	if len(p.Features) == 0 {
		b.WriteString(p.theme.ComparisonBar.Render("no features loaded"))
		return p.theme.FeaturePanel.Width(p.Width).Render(b.String())
	}

	visible := p.visibleRows()
	end := p.Offset + visible
	if end > len(p.Features) {
		end = len(p.Features)
	}

	labelWidth := p.Width - sliderWidth - 10
	if labelWidth < 8 {
		labelWidth = 8
	}

	for i := p.Offset; i < end; i++ {
		f := p.Features[i]
		row := p.renderRow(f, labelWidth, i == p.Selected)
		b.WriteString(row)
		b.WriteString("\n")
	}

	if end < len(p.Features) {
		more := util.IntToString(len(p.Features)-end) + " more"
		b.WriteString(p.theme.ComparisonBar.Render("... " + more))
	}

	return p.theme.FeaturePanel.Width(p.Width).Render(b.String())
}

// renderRow renders one feature row: marker, label, value, slider.
func (p *FeaturePanel) renderRow(f api.Feature, labelWidth int, selected bool) string {
	marker := " "
	switch {
	case f.HasPending():
		marker = p.theme.FeaturePendingMark.Render("~")
	case f.IsModified():
		marker = p.theme.FeatureConfirmedMark.Render("*")
	}

	label := util.PadRight(util.TruncateRunes(f.Label, labelWidth), labelWidth)

	value := p.effectiveValue(f)
	valueText := util.SteerValueString(value)
	valueStyle := lipgloss.NewStyle().Foreground(styles.SteerValueColor(value))

	slider := p.renderSlider(value, selected && p.Editing)

	row := marker + " " + label + " " + valueStyle.Render(valueText) + " " + slider
	if selected {
		return p.theme.FeatureRowSelected.Render(row)
	}
	return p.theme.FeatureRow.Render(row)
}

// effectiveValue is what the slider shows: the pending value when one
// is staged, the confirmed modification otherwise.
func (p *FeaturePanel) effectiveValue(f api.Feature) float64 {
	if f.PendingModification != nil {
		return *f.PendingModification
	}
	return f.Modification
}

// renderSlider renders the value position on a [-max, +max] track:
// [----------|----------] with the handle at the value's position.
func (p *FeaturePanel) renderSlider(value float64, focused bool) string {
	if p.MaxSteer <= 0 {
		return ""
	}

	clamped := value
	if clamped > p.MaxSteer {
		clamped = p.MaxSteer
	}
	if clamped < -p.MaxSteer {
		clamped = -p.MaxSteer
	}

	// Map [-max, max] onto track positions [0, sliderWidth-1].
	pos := int((clamped + p.MaxSteer) / (2 * p.MaxSteer) * float64(sliderWidth-1))
	if pos < 0 {
		pos = 0
	}
	if pos > sliderWidth-1 {
		pos = sliderWidth - 1
	}

	handle := "|"
	if focused {
		handle = "#"
	}

	track := p.theme.SliderTrack.Render(strings.Repeat("-", pos)) +
		p.theme.SliderHandle.Render(handle) +
		p.theme.SliderTrack.Render(strings.Repeat("-", sliderWidth-1-pos))

	return "[" + track + "]"
}

// RenderActivation renders an activation magnitude gauge used in the
// inspect view.
func RenderActivation(activation float64, width int, theme *styles.Theme) string {
	if width < 4 {
		width = 4
	}
	mag := activation
	if mag < 0 {
		mag = -mag
	}
	if mag > 1 {
		mag = 1
	}
	filled := int(mag * float64(width))
	if filled > width {
		filled = width
	}
	return theme.FeatureActivation.Render(strings.Repeat("#", filled)) +
		theme.SliderTrack.Render(strings.Repeat("-", width-filled))
}
