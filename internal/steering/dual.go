// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package steering implements the pending-modification workflow and the
// comparison state machine.
package steering

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/steer-tui/internal/api"
)

// =============================================================================
// GENERATION TOKENS
// =============================================================================

// Generation identifies one logical generation (a single stream or a
// comparison pair). Starting a new generation cancels its predecessor's
// context, and deltas carrying a stale generation id are dropped rather
// than overwriting newer state. This replaces implicit supersession,
// where an old in-flight stream would keep running and could clobber the
// slot a newer one writes to.
type Generation struct {
	ID     string
	Ctx    context.Context
	cancel context.CancelFunc
}

// Cancel stops the generation's in-flight work.
func (g *Generation) Cancel() {
	g.cancel()
}

// StartGeneration begins a new logical generation, cancelling any
// predecessor.
func (c *Controller) StartGeneration(parent context.Context) *Generation {
	ctx, cancel := context.WithCancel(parent)
	gen := &Generation{
		ID:     uuid.NewString(),
		Ctx:    ctx,
		cancel: cancel,
	}

	c.mu.Lock()
	if c.gen != nil {
		c.gen.cancel()
	}
	c.gen = gen
	c.mu.Unlock()

	return gen
}

// CancelGeneration cancels the active generation, if any.
func (c *Controller) CancelGeneration() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != nil {
		c.gen.cancel()
		c.gen = nil
	}
}

// IsCurrentGeneration reports whether the id names the active generation.
func (c *Controller) IsCurrentGeneration(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != nil && c.gen.ID == id
}

// =============================================================================
// SLOTS AND EVENTS
// =============================================================================

// Slot names one of the two comparison response buffers.
type Slot int

const (
	SlotOriginal Slot = iota
	SlotSteered
)

// String returns the slot name.
func (s Slot) String() string {
	if s == SlotSteered {
		return "steered"
	}
	return "original"
}

// Event is one observation from a comparison stream: a delta, a per-slot
// completion, or an error. Events are tagged with the generation that
// produced them so stale ones can be dropped.
type Event struct {
	GenerationID string
	Slot         Slot
	Delta        string
	Done         bool
	Err          error
}

// =============================================================================
// DUAL-STREAM COORDINATOR
// =============================================================================

// RunComparison drives the two comparison generations concurrently: the
// baseline request against the un-steered variant and the steered request
// against the variant with pending modifications applied. Each stream is
// an independent cooperative task producing a finite sequence of deltas;
// the coordinator merges only their completion signals and guarantees
// nothing about ordering between the two sequences; per-slot append
// order is the only invariant.
//
// emit is called from both stream goroutines; callers that are not
// thread-safe should funnel events through a channel.
func RunComparison(gen *Generation, client *api.Client, baseline, steered api.ChatCompletionRequest, emit func(Event)) error {
	g, gctx := errgroup.WithContext(gen.Ctx)

	run := func(slot Slot, req api.ChatCompletionRequest) func() error {
		return func() error {
			err := client.ChatCompletionStream(gctx, req, func(chunk api.StreamChunk) {
				if chunk.Done {
					emit(Event{GenerationID: gen.ID, Slot: slot, Done: true})
					return
				}
				if chunk.Delta != "" {
					emit(Event{GenerationID: gen.ID, Slot: slot, Delta: chunk.Delta})
				}
			})
			if err != nil {
				emit(Event{GenerationID: gen.ID, Slot: slot, Err: err})
			}
			return err
		}
	}

	g.Go(run(SlotOriginal, baseline))
	g.Go(run(SlotSteered, steered))

	return g.Wait()
}

// RunSingle drives one generation stream, emitting slot-tagged events so
// the same ApplyEvent path and staleness guard cover the single-response
// flow.
func RunSingle(gen *Generation, client *api.Client, req api.ChatCompletionRequest, slot Slot, emit func(Event)) error {
	err := client.ChatCompletionStream(gen.Ctx, req, func(chunk api.StreamChunk) {
		if chunk.Done {
			emit(Event{GenerationID: gen.ID, Slot: slot, Done: true})
			return
		}
		if chunk.Delta != "" {
			emit(Event{GenerationID: gen.ID, Slot: slot, Delta: chunk.Delta})
		}
	})
	if err != nil {
		emit(Event{GenerationID: gen.ID, Slot: slot, Err: err})
	}
	return err
}
