// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the feature steering backend.
package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// dataPrefix marks payload lines in the SSE-style completion stream.
var dataPrefix = []byte("data:")

// StreamReader handles line-by-line parsing of "data: {...}" streaming
// responses. Malformed or unrecognized lines are skipped without aborting
// the stream; an explicit error event terminates it.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	chunkCount  int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			if chunk != nil {
				if chunk.Error != nil {
					return chunk.Error
				}
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single line from the stream.
// Returns (nil, nil) for lines that carry no payload.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Try to process the last line even on EOF
		if len(line) == 0 {
			return nil, err
		}
	}

	line = bytes.TrimSpace(line)

	// Skip blank separator lines and anything that is not a data line
	// (comments, event names) without aborting the stream.
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return nil, nil
	}
	payload := bytes.TrimSpace(bytes.TrimPrefix(line, dataPrefix))
	if len(payload) == 0 {
		return nil, nil
	}

	var event streamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// Skip malformed lines
		return nil, nil
	}

	switch event.Type {
	case eventChunk:
		if event.Delta != "" {
			s.accumulator.WriteString(event.Delta)
			s.chunkCount++
		}
		return &StreamChunk{Delta: event.Delta}, nil

	case eventDone:
		content := event.Content
		if content == "" {
			content = s.accumulator.String()
		}
		return &StreamChunk{
			Done:       true,
			Content:    content,
			VariantID:  event.VariantID,
			Comparison: event.ComparisonResult,
		}, nil

	case eventError:
		msg := event.Error
		if msg == "" {
			msg = "backend reported a stream error"
		}
		return &StreamChunk{
			Error: &ClientError{Type: ErrTypeStream, Message: msg},
		}, nil

	default:
		// Unknown event types are skipped, not fatal.
		return nil, nil
	}
}

// GetAccumulated returns all accumulated delta content.
func (s *StreamReader) GetAccumulated() string {
	return s.accumulator.String()
}

// GetChunkCount returns the number of non-empty deltas received.
func (s *StreamReader) GetChunkCount() int {
	return s.chunkCount
}

// =============================================================================
// RAW TEXT STREAM
// =============================================================================

// TextCallback receives raw assistant text as it arrives.
type TextCallback func(delta string)

// processTextStream reads a raw byte stream of assistant text and invokes
// the callback per read. Used by the conversation message endpoint, which
// streams plain text rather than data lines.
func processTextStream(ctx context.Context, r io.Reader, callback TextCallback) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			n, err := r.Read(buf)
			if n > 0 {
				callback(string(buf[:n]))
			}
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return &ClientError{Type: ErrTypeStream, Message: "stream read failed", Cause: err}
			}
		}
	}
}

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// StreamStats holds statistics collected during streaming. The backend
// reports no timing of its own, so everything here is measured client-side.
type StreamStats struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Chunks is the number of non-empty deltas received.
	Chunks int

	// Computed
	TTFT            time.Duration // Time to first token
	TotalDuration   time.Duration
	ChunksPerSecond float64
}

// NewStreamStats creates a new StreamStats with start time set.
func NewStreamStats() *StreamStats {
	return &StreamStats{
		StartTime: time.Now(),
	}
}

// RecordFirstToken marks the time of first token arrival.
func (s *StreamStats) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes final statistics at stream completion.
func (s *StreamStats) Finalize() {
	s.EndTime = time.Now()
	s.TotalDuration = s.EndTime.Sub(s.StartTime)

	gen := s.EndTime.Sub(s.FirstTokenTime)
	if !s.FirstTokenTime.IsZero() && gen > 0 {
		s.ChunksPerSecond = float64(s.Chunks) / gen.Seconds()
	}
}

// Format returns a formatted string representation.
func (s *StreamStats) Format() string {
	return formatStatsDuration(s.TotalDuration.Seconds()) + " | " +
		formatStatsInt(s.Chunks) + " chunks | " +
		formatStatsFloat(s.ChunksPerSecond) + " chunk/s | " +
		"TTFT " + formatStatsInt(int(s.TTFT.Milliseconds())) + "ms"
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// formatStatsInt formats an integer without using fmt.
func formatStatsInt(n int) string {
	if n == 0 {
		return "0"
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

// formatStatsFloat formats a float with one decimal place.
func formatStatsFloat(f float64) string {
	whole := int(f)
	frac := int((f - float64(whole)) * 10)
	if frac < 0 {
		frac = -frac
	}
	return formatStatsInt(whole) + "." + formatStatsInt(frac)
}

// formatStatsDuration formats seconds as a nice duration string.
func formatStatsDuration(seconds float64) string {
	if seconds < 1 {
		ms := int(seconds * 1000)
		return formatStatsInt(ms) + "ms"
	}
	return formatStatsFloat(seconds) + "s"
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects streaming chunks and builds statistics.
type StreamAccumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	content    strings.Builder
	Stats      *StreamStats
	Done       bool
	Error      error
	VariantID  string
	Comparison *ComparisonResult
}

// NewStreamAccumulator creates a new accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		Stats: NewStreamStats(),
	}
}

// Add processes a new chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.Error != nil {
		a.Error = chunk.Error
		a.Done = true
		return
	}

	// Record first token
	if chunk.Delta != "" {
		if a.content.Len() == 0 {
			a.Stats.RecordFirstToken()
		}
		a.content.WriteString(chunk.Delta)
		a.Stats.Chunks++
	}

	// Check if done
	if chunk.Done {
		a.Done = true
		a.VariantID = chunk.VariantID
		a.Comparison = chunk.Comparison
		a.Stats.Finalize()
	}
}

// GetContent returns the accumulated content.
func (a *StreamAccumulator) GetContent() string {
	return a.content.String()
}

// IsDone returns whether streaming is complete.
func (a *StreamAccumulator) IsDone() bool {
	return a.Done
}

// GetError returns any error that occurred.
func (a *StreamAccumulator) GetError() error {
	return a.Error
}

// GetStats returns the collected statistics.
func (a *StreamAccumulator) GetStats() *StreamStats {
	return a.Stats
}
