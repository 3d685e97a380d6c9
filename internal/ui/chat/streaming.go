// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main TUI view: the conversation transcript,
// the input line, the feature panel, and the comparison workflow.
//
// This file implements batched stream rendering. Tokens arrive much
// faster than a terminal can usefully repaint; the buffer coalesces them
// and releases at most ~30 flushes per second.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

const (
	// streamBatchSize is how many deltas accumulate before a flush
	// becomes eligible regardless of elapsed time.
	streamBatchSize = 15

	// streamFlushInterval caps the repaint rate at ~30fps.
	streamFlushInterval = 33 * time.Millisecond
)

// StreamingBuffer coalesces stream deltas between repaints.
// PERFORMANCE: per-token viewport updates made long responses unusable
// over slow terminals; batching keeps the render cost flat.
type StreamingBuffer struct {
	mu        sync.Mutex
	buf       strings.Builder
	pending   int
	lastFlush time.Time
}

// NewStreamingBuffer creates an empty buffer.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{lastFlush: time.Now()}
}

// Write appends one delta.
func (b *StreamingBuffer) Write(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(delta)
	b.pending++
}

// Flush returns the buffered content when a flush is due: either the
// batch is full or the flush interval has elapsed. The second return is
// false when nothing should be released yet.
func (b *StreamingBuffer) Flush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == 0 {
		return "", false
	}
	if b.pending < streamBatchSize && time.Since(b.lastFlush) < streamFlushInterval {
		return "", false
	}
	return b.drainLocked(), true
}

// ForceFlush returns everything buffered regardless of cadence. Used on
// stream completion so the tail is never lost.
func (b *StreamingBuffer) ForceFlush() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drainLocked()
}

// Reset discards buffered content for a new stream.
func (b *StreamingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
	b.pending = 0
	b.lastFlush = time.Now()
}

// Pending returns the number of unflushed deltas.
func (b *StreamingBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

func (b *StreamingBuffer) drainLocked() string {
	out := b.buf.String()
	b.buf.Reset()
	b.pending = 0
	b.lastFlush = time.Now()
	return out
}

// streamTickCmd schedules the next flush tick.
func streamTickCmd() tea.Cmd {
	return tea.Tick(streamFlushInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg(t)
	})
}
