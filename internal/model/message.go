// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"` // Content being streamed, merged into Content when done

	// VariantID records which variant generated an assistant message.
	VariantID string `json:"variant_id,omitempty"`

	// Steered marks assistant messages whose content was replaced by a
	// confirmed steered response.
	Steered bool `json:"steered,omitempty"`

	// Performance metrics (for assistant messages)
	ChunkCount    int           `json:"chunk_count,omitempty"`
	TTFT          time.Duration `json:"ttft_ns,omitempty"`           // Time to first token
	TotalDuration time.Duration `json:"total_duration_ns,omitempty"` // Total generation time
	ChunksPerSec  float64       `json:"chunks_per_sec,omitempty"`    // Generation speed
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new empty assistant message in streaming
// state. Content accumulates via AppendDelta until FinalizeStream.
func NewAssistantMessage() *Message {
	return &Message{
		ID:          generateID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendDelta appends streamed text to a streaming message.
func (m *Message) AppendDelta(delta string) {
	if m.IsStreaming {
		m.streamContent.WriteString(delta)
	}
}

// FinalizeStream completes streaming and sets statistics.
func (m *Message) FinalizeStream(stats *Statistics) {
	if !m.IsStreaming {
		return
	}

	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false

	if stats != nil {
		m.TTFT = stats.TTFT
		m.TotalDuration = stats.TotalDuration
		m.ChunkCount = stats.Chunks
		m.ChunksPerSec = stats.ChunksPerSecond
	}
}

// ReplaceContent swaps the message content, used when a confirmed steered
// response replaces the original assistant reply.
func (m *Message) ReplaceContent(content string) {
	if m.IsStreaming {
		m.streamContent.Reset()
		m.IsStreaming = false
	}
	m.Content = content
	m.Steered = true
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.GetDisplayContent()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// FormatStats returns a formatted string of message statistics.
func (m *Message) FormatStats() string {
	if m.Role != RoleAssistant || m.TotalDuration == 0 {
		return ""
	}

	// Format: "2.5s | 128 chunks | 51.0 chunk/s | TTFT 234ms"
	totalSec := m.TotalDuration.Seconds()
	ttftMs := m.TTFT.Milliseconds()

	return formatDuration(totalSec) + " | " +
		formatInt(m.ChunkCount) + " chunks | " +
		formatFloat64(m.ChunksPerSec) + " chunk/s | " +
		"TTFT " + formatInt(int(ttftMs)) + "ms"
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics holds timing and chunk count information for a generation.
type Statistics struct {
	// Timestamps
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Chunk count
	Chunks int

	// Derived metrics (computed on Finalize)
	TTFT            time.Duration
	TotalDuration   time.Duration
	ChunksPerSecond float64
}

// NewStatistics creates a new Statistics with the start time set.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
	}
}

// RecordFirstToken records when the first token was received.
func (s *Statistics) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes the final statistics.
func (s *Statistics) Finalize(chunks int) {
	s.EndTime = time.Now()
	s.Chunks = chunks
	s.TotalDuration = s.EndTime.Sub(s.StartTime)

	if s.TotalDuration > 0 {
		s.ChunksPerSecond = float64(chunks) / s.TotalDuration.Seconds()
	}
}

// Format returns a formatted string of the statistics.
func (s *Statistics) Format() string {
	totalSec := s.TotalDuration.Seconds()
	ttftMs := s.TTFT.Milliseconds()

	return formatDuration(totalSec) + " | " +
		formatInt(s.Chunks) + " chunks | " +
		formatFloat64(s.ChunksPerSecond) + " chunk/s | " +
		"TTFT " + formatInt(int(ttftMs)) + "ms"
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}

// formatInt formats an integer without using fmt.
// Handles negative numbers and zero correctly.
func formatInt(n int) string {
	if n == 0 {
		return "0"
	}

	// math.MinInt64 would overflow on negation
	if n == -9223372036854775808 {
		return "-9223372036854775808"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	if negative {
		return "-" + string(digits)
	}
	return string(digits)
}

// formatFloat64 formats a float with one decimal place, truncating rather
// than rounding. Display only.
func formatFloat64(f float64) string {
	if f != f { // NaN check
		return "NaN"
	}

	whole := int(f)
	absF := f
	if f < 0 {
		absF = -f
	}
	absWhole := whole
	if whole < 0 {
		absWhole = -whole
	}
	frac := int((absF - float64(absWhole)) * 10)

	return formatInt(whole) + "." + formatInt(frac)
}

// formatDuration formats seconds as a nice duration string.
func formatDuration(seconds float64) string {
	if seconds < 1 {
		ms := int(seconds * 1000)
		return formatInt(ms) + "ms"
	}
	return formatFloat64(seconds) + "s"
}
