// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewThemeWithMode(t *testing.T) {
	dark := NewThemeWithMode(true)
	if !dark.IsDark {
		t.Error("expected dark theme")
	}

	light := NewThemeWithMode(false)
	if light.IsDark {
		t.Error("expected light theme")
	}
}

func TestTheme_LayoutModes(t *testing.T) {
	theme := NewThemeWithMode(true)

	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	for _, tt := range tests {
		theme.SetSize(tt.width, 40)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: got layout %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestSteerValueColor(t *testing.T) {
	if SteerValueColor(0.5) != SteerPositive {
		t.Error("positive value should use positive color")
	}
	if SteerValueColor(-0.5) != SteerNegative {
		t.Error("negative value should use negative color")
	}
	if SteerValueColor(0) != TextMuted {
		t.Error("zero should use muted color")
	}
}

// Status renders carry a shape indicator so state is readable without
// color.
func TestRenderStatus_IncludesIndicators(t *testing.T) {
	if !strings.Contains(RenderSuccess("saved"), "[OK]") {
		t.Error("success render missing indicator")
	}
	if !strings.Contains(RenderError("failed"), "[X]") {
		t.Error("error render missing indicator")
	}
	if !strings.Contains(RenderWarning("careful"), "[!]") {
		t.Error("warning render missing indicator")
	}
	if !strings.Contains(RenderInfo("note"), "[i]") {
		t.Error("info render missing indicator")
	}
}
