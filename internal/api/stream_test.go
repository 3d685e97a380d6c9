// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the feature steering backend.
package api

import (
	"context"
	"strings"
	"testing"
)

// =============================================================================
// STREAM READER TESTS
// =============================================================================

func TestStreamReader_Chunks(t *testing.T) {
	input := `data: {"type":"chunk","delta":"Hel"}
data: {"type":"chunk","delta":"lo"}
data: {"type":"done","content":"Hello","variant_id":"v1"}
`
	reader := NewStreamReader(strings.NewReader(input))

	var deltas []string
	var final StreamChunk
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		if chunk.Done {
			final = chunk
			return
		}
		deltas = append(deltas, chunk.Delta)
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(deltas) != 2 {
		t.Fatalf("deltas = %d, want 2", len(deltas))
	}
	if got := strings.Join(deltas, ""); got != "Hello" {
		t.Errorf("concatenated deltas = %q, want 'Hello'", got)
	}
	if !final.Done {
		t.Error("final chunk should have Done set")
	}
	if final.Content != "Hello" {
		t.Errorf("final Content = %q, want 'Hello'", final.Content)
	}
	if final.VariantID != "v1" {
		t.Errorf("final VariantID = %q, want 'v1'", final.VariantID)
	}
}

func TestStreamReader_SkipsMalformedLines(t *testing.T) {
	// Malformed JSON, blank lines, comments and unknown event types must
	// all be skipped without aborting the stream.
	input := `data: {"type":"chunk","delta":"a"}
data: {not json at all
: keepalive comment

event: something
data: {"type":"mystery","delta":"x"}
data: {"type":"chunk","delta":"b"}
data: {"type":"done"}
`
	reader := NewStreamReader(strings.NewReader(input))

	var got strings.Builder
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		got.WriteString(chunk.Delta)
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if got.String() != "ab" {
		t.Errorf("accumulated = %q, want 'ab'", got.String())
	}
}

func TestStreamReader_ErrorEventTerminates(t *testing.T) {
	input := `data: {"type":"chunk","delta":"partial"}
data: {"type":"error","error":"model overloaded"}
data: {"type":"chunk","delta":"never seen"}
`
	reader := NewStreamReader(strings.NewReader(input))

	var got strings.Builder
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		got.WriteString(chunk.Delta)
	})

	if err == nil {
		t.Fatal("Process() should return the backend-reported error")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error = %q, want it to carry the backend message", err.Error())
	}
	if got.String() != "partial" {
		t.Errorf("accumulated = %q, want only pre-error content", got.String())
	}
}

func TestStreamReader_DoneWithoutContentUsesAccumulated(t *testing.T) {
	input := `data: {"type":"chunk","delta":"one "}
data: {"type":"chunk","delta":"two"}
data: {"type":"done"}
`
	reader := NewStreamReader(strings.NewReader(input))

	var final StreamChunk
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		if chunk.Done {
			final = chunk
		}
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if final.Content != "one two" {
		t.Errorf("final Content = %q, want accumulated deltas", final.Content)
	}
	if reader.GetChunkCount() != 2 {
		t.Errorf("GetChunkCount() = %d, want 2", reader.GetChunkCount())
	}
}

func TestStreamReader_EOFWithoutDone(t *testing.T) {
	input := `data: {"type":"chunk","delta":"cut off"}
`
	reader := NewStreamReader(strings.NewReader(input))

	err := reader.Process(context.Background(), func(chunk StreamChunk) {})
	if err != nil {
		t.Fatalf("Process() error = %v, EOF without done should not be fatal", err)
	}
	if reader.GetAccumulated() != "cut off" {
		t.Errorf("GetAccumulated() = %q", reader.GetAccumulated())
	}
}

func TestStreamReader_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(strings.NewReader(`data: {"type":"chunk","delta":"x"}` + "\n"))
	err := reader.Process(ctx, func(chunk StreamChunk) {})

	if err != context.Canceled {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}
}

func TestStreamReader_ComparisonResultOnDone(t *testing.T) {
	input := `data: {"type":"done","content":"steered","comparison_result":{"original_response":"plain","steered_response":"steered"}}
`
	reader := NewStreamReader(strings.NewReader(input))

	var final StreamChunk
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		final = chunk
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if final.Comparison == nil {
		t.Fatal("Comparison should be populated on the final chunk")
	}
	if final.Comparison.OriginalResponse != "plain" {
		t.Errorf("OriginalResponse = %q", final.Comparison.OriginalResponse)
	}
	if final.Comparison.SteeredResponse != "steered" {
		t.Errorf("SteeredResponse = %q", final.Comparison.SteeredResponse)
	}
}

// =============================================================================
// RAW TEXT STREAM TESTS
// =============================================================================

func TestProcessTextStream(t *testing.T) {
	var got strings.Builder
	err := processTextStream(context.Background(), strings.NewReader("streamed assistant text"), func(delta string) {
		got.WriteString(delta)
	})
	if err != nil {
		t.Fatalf("processTextStream() error = %v", err)
	}
	if got.String() != "streamed assistant text" {
		t.Errorf("accumulated = %q", got.String())
	}
}

// =============================================================================
// ACCUMULATOR TESTS
// =============================================================================

func TestStreamAccumulator(t *testing.T) {
	acc := NewStreamAccumulator()

	acc.Add(StreamChunk{Delta: "Hello"})
	acc.Add(StreamChunk{Delta: " world"})

	if acc.IsDone() {
		t.Error("accumulator should not be done yet")
	}

	acc.Add(StreamChunk{Done: true, Content: "Hello world", VariantID: "v2"})

	if !acc.IsDone() {
		t.Error("accumulator should be done")
	}
	if acc.GetContent() != "Hello world" {
		t.Errorf("GetContent() = %q", acc.GetContent())
	}
	if acc.VariantID != "v2" {
		t.Errorf("VariantID = %q, want 'v2'", acc.VariantID)
	}
	if acc.GetStats().Chunks != 2 {
		t.Errorf("Chunks = %d, want 2", acc.GetStats().Chunks)
	}
	if acc.GetStats().TTFT <= 0 {
		t.Error("TTFT should be recorded on first delta")
	}
}

// Streaming concatenation is prefix-monotonic: at every point during a
// stream, the accumulated content is a prefix of the final content.
func TestStreamAccumulator_PrefixMonotonic(t *testing.T) {
	acc := NewStreamAccumulator()
	deltas := []string{"The ", "answer ", "is ", "42."}
	final := strings.Join(deltas, "")

	for _, d := range deltas {
		acc.Add(StreamChunk{Delta: d})
		if !strings.HasPrefix(final, acc.GetContent()) {
			t.Fatalf("intermediate content %q is not a prefix of %q", acc.GetContent(), final)
		}
	}

	acc.Add(StreamChunk{Done: true})
	if acc.GetContent() != final {
		t.Errorf("final content = %q, want %q", acc.GetContent(), final)
	}
}

func TestStreamAccumulator_Error(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Add(StreamChunk{Delta: "before"})
	acc.Add(StreamChunk{Error: ErrUnavailable})

	if !acc.IsDone() {
		t.Error("error should mark the accumulator done")
	}
	if acc.GetError() == nil {
		t.Error("GetError() should return the stream error")
	}
	if acc.GetContent() != "before" {
		t.Errorf("GetContent() = %q, content before the error must survive", acc.GetContent())
	}
}

// =============================================================================
// STATS TESTS
// =============================================================================

func TestStreamStats_Format(t *testing.T) {
	stats := NewStreamStats()
	stats.RecordFirstToken()
	stats.Chunks = 10
	stats.Finalize()

	s := stats.Format()
	if !strings.Contains(s, "chunks") || !strings.Contains(s, "TTFT") {
		t.Errorf("Format() = %q, want chunk count and TTFT", s)
	}
}
