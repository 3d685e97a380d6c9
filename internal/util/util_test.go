// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"shorter than max", "hello", 10, "hello"},
		{"exactly max", "hello", 5, "hello"},
		{"needs truncation", "hello world", 8, "hello..."},
		{"zero max", "hello", 0, ""},
		{"tiny max no ellipsis", "hello", 2, "he"},
		{"multibyte preserved", "héllo wörld", 8, "héllo..."},
		{"cjk counted as runes", "日本語のテキスト", 5, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateRunes(tt.input, tt.max))
		})
	}
}

func TestTruncateRunesNoEllipsis(t *testing.T) {
	assert.Equal(t, "hello", TruncateRunesNoEllipsis("hello world", 5))
	assert.Equal(t, "日本語", TruncateRunesNoEllipsis("日本語のテキスト", 3))
	assert.Equal(t, "", TruncateRunesNoEllipsis("hello", 0))
}

func TestTruncateWidth(t *testing.T) {
	// CJK characters are two columns wide.
	assert.Equal(t, "日本", TruncateWidth("日本語", 5))
	assert.Equal(t, "hello", TruncateWidth("hello", 5))
	assert.Equal(t, "he...", TruncateWidth("hello world", 5))
	assert.Equal(t, "", TruncateWidth("hello", 0))
}

func TestPadding(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, "   ab", PadLeft("ab", 5))
	// Double-width runes consume two columns of the target width.
	assert.Equal(t, "日 ", PadRight("日", 3))
	assert.Equal(t, "toolong", PadRight("toolong", 3))
}

func TestStringWidth(t *testing.T) {
	assert.Equal(t, 5, StringWidth("hello"))
	assert.Equal(t, 6, StringWidth("日本語"))
	assert.Equal(t, 0, StringWidth(""))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "first", FirstLine("first\nsecond\nthird"))
	assert.Equal(t, "only", FirstLine("  only  "))
	assert.Equal(t, "", FirstLine("\n\n"))
}

func TestSteerValueString(t *testing.T) {
	assert.Equal(t, "+0.40", SteerValueString(0.4))
	assert.Equal(t, "-0.25", SteerValueString(-0.25))
	assert.Equal(t, "0.00", SteerValueString(0))
}

func TestParseSteerValue(t *testing.T) {
	v, err := ParseSteerValue("+0.4")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, v, 1e-9)

	v, err = ParseSteerValue("-0.25")
	require.NoError(t, err)
	assert.InDelta(t, -0.25, v, 1e-9)

	_, err = ParseSteerValue("not-a-number")
	assert.Error(t, err)
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "prefs.json")

	require.NoError(t, AtomicWriteFile(path, []byte(`{"dark_mode":true}`), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"dark_mode":true}`, string(data))

	// Overwrite replaces the previous contents completely.
	require.NoError(t, AtomicWriteFile(path, []byte(`{}`), 0644))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
