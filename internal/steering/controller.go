// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package steering implements the pending-modification workflow and the
// comparison state machine.
package steering

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jeranaias/steer-tui/internal/api"
)

// =============================================================================
// PHASES
// =============================================================================

// Phase enumerates the steering workflow states. Every error path lands
// back in PhaseIdle with the error recorded for display, so the UI never
// shows two contradictory loading states at once.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseApplyingPending
	PhaseGenerating
	PhaseComparing
	PhaseConfirming
	PhaseCanceling
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseApplyingPending:
		return "applying"
	case PhaseGenerating:
		return "generating"
	case PhaseComparing:
		return "comparing"
	case PhaseConfirming:
		return "confirming"
	case PhaseCanceling:
		return "canceling"
	default:
		return "unknown"
	}
}

// IsBusy reports whether a steering operation is in flight.
func (p Phase) IsBusy() bool {
	return p != PhaseIdle && p != PhaseComparing
}

// =============================================================================
// LIMITS
// =============================================================================

const (
	// MaxSteerValue bounds user-entered steering values. A client-side
	// slider limit, not a backend contract.
	MaxSteerValue = 1.0

	// MaxAutoSteerValue bounds backend-suggested steering values.
	MaxAutoSteerValue = 0.6

	// MaxAutoSteerFeatures caps how many auto-steer suggestions are staged.
	MaxAutoSteerFeatures = 2
)

// steerCallInterval throttles per-feature steer calls so a slider drag
// does not flood the backend with one request per pixel.
const steerCallInterval = 100 * time.Millisecond

// =============================================================================
// PENDING ENTRIES
// =============================================================================

// pendingEntry is one staged, uncommitted modification. A zero Value
// means the stage is a clear: the backend keeps no explicit zero edits,
// so zero is expressed as a clear call rather than a steer-to-zero.
type pendingEntry struct {
	UUID  string // optional; label-keyed calls are used when absent
	Value float64
}

// PendingFeature is the exported view of a staged modification.
type PendingFeature struct {
	Label string
	UUID  string
	Value float64
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the steering workflow state: the pending and confirmed
// modification maps, the comparison response buffers, and the local
// mirror of the backend variant. All methods are safe for concurrent use;
// in the TUI they are driven from the update loop and tea.Cmd goroutines.
type Controller struct {
	mu     sync.Mutex
	client *api.Client

	variantID string
	phase     Phase
	lastErr   error

	// pending maps feature label to its staged entry. Staging the same
	// label twice overwrites; the map size equals the number of distinct
	// labels touched.
	pending   map[string]pendingEntry
	confirmed map[string]float64

	// Comparison buffers. originalResponse snapshots the pre-steering
	// reply and is never mutated once taken; the original/steered stream
	// buffers grow monotonically and independently.
	originalResponse string
	originalBuf      strings.Builder
	steeredBuf       strings.Builder
	bufDone          [2]bool

	// variant mirrors the backend's confirmed edit set. Eventually
	// consistent; refreshed after every confirm, cancel and steer.
	variant *api.VariantState

	// limiters throttles steer calls per feature label.
	limiters map[string]*rate.Limiter

	gen *Generation
}

// NewController creates a controller for a variant.
func NewController(client *api.Client, variantID string) *Controller {
	return &Controller{
		client:    client,
		variantID: variantID,
		phase:     PhaseIdle,
		pending:   make(map[string]pendingEntry),
		confirmed: make(map[string]float64),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Phase returns the current workflow phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Err returns the error recorded by the last failed transition, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// VariantID returns the variant the controller steers.
func (c *Controller) VariantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.variantID
}

// SetVariantID repoints the controller at a different variant, clearing
// workflow state.
func (c *Controller) SetVariantID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variantID = id
	c.pending = make(map[string]pendingEntry)
	c.confirmed = make(map[string]float64)
	c.resetComparisonLocked()
	c.phase = PhaseIdle
	c.lastErr = nil
}

// PendingCount returns the number of distinct labels with staged
// modifications.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// PendingValue returns the staged value for a label.
func (c *Controller) PendingValue(label string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.pending[label]
	return e.Value, ok
}

// PendingFeatures returns the staged modifications, in no particular order.
func (c *Controller) PendingFeatures() []PendingFeature {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PendingFeature, 0, len(c.pending))
	for label, e := range c.pending {
		out = append(out, PendingFeature{Label: label, UUID: e.UUID, Value: e.Value})
	}
	return out
}

// ConfirmedValue returns the confirmed modification for a label.
func (c *Controller) ConfirmedValue(label string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.confirmed[label]
	return v, ok
}

// Variant returns the local mirror of the backend variant state.
func (c *Controller) Variant() *api.VariantState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.variant
}

// IsComparing reports whether a side-by-side comparison is on screen.
func (c *Controller) IsComparing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseComparing
}

// OriginalResponse returns the snapshotted pre-steering reply.
func (c *Controller) OriginalResponse() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.originalResponse
}

// ComparisonBuffers returns the current contents of the original and
// steered stream buffers.
func (c *Controller) ComparisonBuffers() (original, steered string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.originalBuf.String(), c.steeredBuf.String()
}

// =============================================================================
// STAGING
// =============================================================================

// StagePending stages a modification for a feature label. Values are
// clamped to the slider bound. Staging is idempotent per label: the last
// value wins. A value of exactly zero stages a clear.
func (c *Controller) StagePending(label, uuid string, value float64) {
	value = clamp(value, MaxSteerValue)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[label] = pendingEntry{UUID: uuid, Value: value}
}

// UnstagePending drops a staged modification without touching the backend.
func (c *Controller) UnstagePending(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, label)
}

// =============================================================================
// APPLY
// =============================================================================

// ApplyPending mirrors every staged modification to the backend. Features
// are independent keys, so the calls run concurrently; per-feature rate
// limiting keeps slider drags from flooding the backend. Partial failures
// are not rolled back: the first error is returned and the controller
// drops to idle with the error recorded, leaving any applied features
// applied.
func (c *Controller) ApplyPending(ctx context.Context) error {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.phase = PhaseApplyingPending
	c.lastErr = nil
	variantID := c.variantID
	entries := make(map[string]pendingEntry, len(c.pending))
	for label, e := range c.pending {
		entries[label] = e
	}
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for label, entry := range entries {
		label, entry := label, entry
		g.Go(func() error {
			return c.applyOne(gctx, variantID, label, entry)
		})
	}

	if err := g.Wait(); err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.phase = PhaseIdle
	c.mu.Unlock()
	return nil
}

// applyOne issues the steer or clear call for a single staged entry.
func (c *Controller) applyOne(ctx context.Context, variantID, label string, entry pendingEntry) error {
	if err := c.limiter(label).Wait(ctx); err != nil {
		return err
	}

	// Zero is a clear, not a steer-to-zero: keeps backend state minimal.
	if entry.Value == 0 {
		return c.client.ClearSessionFeature(ctx, variantID, label)
	}

	if entry.UUID != "" {
		_, err := c.client.SteerFeature(ctx, variantID, entry.UUID, entry.Value)
		return err
	}
	_, err := c.client.SteerSessionFeature(ctx, variantID, label, entry.Value)
	return err
}

// limiter returns the rate limiter for a feature label.
func (c *Controller) limiter(label string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[label]
	if !ok {
		l = rate.NewLimiter(rate.Every(steerCallInterval), 1)
		c.limiters[label] = l
	}
	return l
}

// =============================================================================
// COMPARISON LIFECYCLE
// =============================================================================

// BeginComparison snapshots the pre-steering response and moves to the
// generating phase. The snapshot is immutable for the rest of the
// workflow: cancel restores it, confirm discards it.
func (c *Controller) BeginComparison(currentResponse string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.originalResponse = currentResponse
	c.originalBuf.Reset()
	c.steeredBuf.Reset()
	c.bufDone = [2]bool{}
	c.phase = PhaseGenerating
	c.lastErr = nil
}

// ApplyEvent folds a dual-stream event into the comparison buffers.
// Events from superseded generations are dropped. Appends are per-buffer
// monotonic; no ordering holds between the two buffers. When both slots
// have completed, the phase advances to comparing. Returns true if the
// event was accepted.
func (c *Controller) ApplyEvent(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen == nil || e.GenerationID != c.gen.ID {
		return false // stale generation
	}

	if e.Err != nil {
		c.failLocked(e.Err)
		return true
	}

	switch e.Slot {
	case SlotOriginal:
		c.originalBuf.WriteString(e.Delta)
	case SlotSteered:
		c.steeredBuf.WriteString(e.Delta)
	}

	if e.Done {
		c.bufDone[e.Slot] = true
		if c.bufDone[SlotOriginal] && c.bufDone[SlotSteered] {
			c.phase = PhaseComparing
		}
	}
	return true
}

// =============================================================================
// CONFIRM / CANCEL
// =============================================================================

// Confirm accepts the steered response: pending modifications are
// committed backend-side and promoted to confirmed, the comparison is
// dismissed, and the steered content is returned so the caller can
// replace the last assistant message in history. After Confirm no pending
// modifications remain and the comparison is off.
func (c *Controller) Confirm(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.phase != PhaseComparing {
		c.mu.Unlock()
		return "", &api.ClientError{Type: api.ErrTypeUnknown, Message: "nothing to confirm"}
	}
	c.phase = PhaseConfirming
	variantID := c.variantID
	steered := c.steeredBuf.String()
	c.mu.Unlock()

	if err := c.client.CommitChanges(ctx, variantID); err != nil {
		c.fail(err)
		return "", err
	}

	c.mu.Lock()
	for label, e := range c.pending {
		if e.Value == 0 {
			delete(c.confirmed, label)
		} else {
			c.confirmed[label] = e.Value
		}
	}
	c.pending = make(map[string]pendingEntry)
	c.resetComparisonLocked()
	c.phase = PhaseIdle
	c.mu.Unlock()

	// Background refresh of the variant mirror; fail-soft.
	c.refreshVariant(ctx)

	return steered, nil
}

// Cancel rejects the steered response: every pending label is explicitly
// cleared backend-side, pending changes are rejected, the variant mirror
// is refreshed, and the pre-steering response snapshot is returned so the
// caller can restore the current display. Conversation history is never
// touched and the original response is never mutated.
func (c *Controller) Cancel(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.phase = PhaseCanceling
	variantID := c.variantID
	original := c.originalResponse
	labels := make([]string, 0, len(c.pending))
	for label := range c.pending {
		labels = append(labels, label)
	}
	c.mu.Unlock()

	for _, label := range labels {
		if err := c.client.ClearSessionFeature(ctx, variantID, label); err != nil {
			c.fail(err)
			return original, err
		}
	}

	if err := c.client.RejectChanges(ctx, variantID); err != nil {
		c.fail(err)
		return original, err
	}

	c.mu.Lock()
	c.pending = make(map[string]pendingEntry)
	c.resetComparisonLocked()
	c.phase = PhaseIdle
	c.mu.Unlock()

	c.refreshVariant(ctx)

	return original, nil
}

// =============================================================================
// VARIANT MIRROR
// =============================================================================

// refreshVariant re-fetches the backend variant state. A background read:
// on failure the previous mirror is kept (fail-soft) and the error is not
// surfaced to the workflow.
func (c *Controller) refreshVariant(ctx context.Context) {
	state, err := c.client.GetVariant(ctx, c.VariantID())
	if err != nil {
		return
	}
	c.mu.Lock()
	c.variant = state
	c.mu.Unlock()
}

// =============================================================================
// ERROR HANDLING
// =============================================================================

// fail drops the workflow to idle, recording the error for display.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failLocked(err)
}

func (c *Controller) failLocked(err error) {
	c.phase = PhaseIdle
	c.lastErr = err
	c.resetComparisonLocked()
}

// resetComparisonLocked discards the comparison buffers and any active
// generation. Callers hold c.mu.
func (c *Controller) resetComparisonLocked() {
	c.originalBuf.Reset()
	c.steeredBuf.Reset()
	c.bufDone = [2]bool{}
	if c.gen != nil {
		c.gen.cancel()
		c.gen = nil
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// clamp bounds v to [-limit, limit].
func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
