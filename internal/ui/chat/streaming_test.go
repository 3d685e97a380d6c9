// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"testing"
	"time"
)

func TestStreamingBuffer_ThrottlesSmallBatches(t *testing.T) {
	b := NewStreamingBuffer()
	b.Write("hello")

	// Fresh buffer, single delta: neither the batch nor the interval
	// threshold is met.
	if _, ok := b.Flush(); ok {
		t.Error("flush released content before the interval elapsed")
	}

	b.lastFlush = time.Now().Add(-time.Second)
	chunk, ok := b.Flush()
	if !ok || chunk != "hello" {
		t.Errorf("expected flush after interval, got %q ok=%v", chunk, ok)
	}
}

func TestStreamingBuffer_FullBatchFlushesImmediately(t *testing.T) {
	b := NewStreamingBuffer()
	for i := 0; i < streamBatchSize; i++ {
		b.Write("x")
	}

	chunk, ok := b.Flush()
	if !ok {
		t.Fatal("full batch did not flush")
	}
	if len(chunk) != streamBatchSize {
		t.Errorf("expected %d bytes, got %d", streamBatchSize, len(chunk))
	}
}

func TestStreamingBuffer_ForceFlushDrainsEverything(t *testing.T) {
	b := NewStreamingBuffer()
	b.Write("tail ")
	b.Write("content")

	if got := b.ForceFlush(); got != "tail content" {
		t.Errorf("force flush got %q", got)
	}
	if b.Pending() != 0 {
		t.Error("buffer not drained")
	}
	if got := b.ForceFlush(); got != "" {
		t.Errorf("second force flush got %q", got)
	}
}

func TestStreamingBuffer_EmptyFlushIsNoop(t *testing.T) {
	b := NewStreamingBuffer()
	if chunk, ok := b.Flush(); ok || chunk != "" {
		t.Errorf("empty buffer flushed %q", chunk)
	}
}

func TestStreamingBuffer_Reset(t *testing.T) {
	b := NewStreamingBuffer()
	b.Write("stale")
	b.Reset()

	if b.Pending() != 0 {
		t.Error("reset kept pending deltas")
	}
	if got := b.ForceFlush(); got != "" {
		t.Errorf("reset kept content %q", got)
	}
}

func TestStreamingBuffer_ConcurrentWrites(t *testing.T) {
	b := NewStreamingBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Write("a")
			}
		}()
	}
	wg.Wait()

	if got := len(b.ForceFlush()); got != 1000 {
		t.Errorf("expected 1000 bytes, got %d", got)
	}
}
