// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package steering

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/steer-tui/internal/api"
)

// completionServer streams scripted deltas keyed by the request's
// variant id.
func completionServer(t *testing.T, scripts map[string][]string) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		deltas, ok := scripts[req.VariantID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			payload, _ := json.Marshal(map[string]string{"type": "chunk", "delta": d})
			w.Write([]byte("data: "))
			w.Write(payload)
			w.Write([]byte("\n"))
		}
		w.Write([]byte(`data: {"type":"done"}` + "\n"))
	}))
	t.Cleanup(srv.Close)
	return api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL})
}

// collect funnels emitted events into a controller through a mutex, the
// way the TUI funnels them through program messages.
func collect(c *Controller) (func(Event), *sync.Mutex) {
	var mu sync.Mutex
	return func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		c.ApplyEvent(e)
	}, &mu
}

func TestRunComparison_BothSlotsComplete(t *testing.T) {
	client := completionServer(t, map[string][]string{
		"base":    {"plain ", "reply"},
		"steered": {"steered ", "reply"},
	})

	c := NewController(client, "steered")
	c.BeginComparison("previous reply")
	gen := c.StartGeneration(context.Background())
	emit, _ := collect(c)

	err := RunComparison(gen, client,
		api.ChatCompletionRequest{VariantID: "base"},
		api.ChatCompletionRequest{VariantID: "steered"},
		emit)
	require.NoError(t, err)

	original, steered := c.ComparisonBuffers()
	assert.Equal(t, "plain reply", original)
	assert.Equal(t, "steered reply", steered)
	assert.Equal(t, PhaseComparing, c.Phase())
}

func TestRunComparison_OneStreamFailing(t *testing.T) {
	client := completionServer(t, map[string][]string{
		"base": {"plain"},
		// "steered" missing: backend responds 404
	})

	c := NewController(client, "steered")
	c.BeginComparison("previous reply")
	gen := c.StartGeneration(context.Background())
	emit, _ := collect(c)

	err := RunComparison(gen, client,
		api.ChatCompletionRequest{VariantID: "base"},
		api.ChatCompletionRequest{VariantID: "steered"},
		emit)
	require.Error(t, err)

	// Error path: back to idle with the error recorded, no stuck
	// comparing state.
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Error(t, c.Err())
}

func TestRunComparison_CancelledGeneration(t *testing.T) {
	client := completionServer(t, map[string][]string{
		"base":    {"x"},
		"steered": {"y"},
	})

	c := NewController(client, "steered")
	gen := c.StartGeneration(context.Background())
	gen.Cancel()
	emit, _ := collect(c)

	err := RunComparison(gen, client,
		api.ChatCompletionRequest{VariantID: "base"},
		api.ChatCompletionRequest{VariantID: "steered"},
		emit)
	assert.Error(t, err)
}

func TestRunSingle_DeliversSlotTaggedEvents(t *testing.T) {
	client := completionServer(t, map[string][]string{
		"base": {"a", "b", "c"},
	})

	c := NewController(client, "base")
	c.BeginComparison("")
	gen := c.StartGeneration(context.Background())

	var events []Event
	err := RunSingle(gen, client, api.ChatCompletionRequest{VariantID: "base"}, SlotOriginal, func(e Event) {
		events = append(events, e)
		c.ApplyEvent(e)
	})
	require.NoError(t, err)

	require.Len(t, events, 4) // three deltas + done
	for _, e := range events {
		assert.Equal(t, gen.ID, e.GenerationID)
		assert.Equal(t, SlotOriginal, e.Slot)
	}

	original, _ := c.ComparisonBuffers()
	assert.Equal(t, "abc", original)
}

// =============================================================================
// AUTO-STEER ORCHESTRATOR TESTS
// =============================================================================

type autoSteerScript struct {
	resp       api.AutoSteerResponse
	steerCalls int
	mu         sync.Mutex
}

func autoSteerServer(t *testing.T, script *autoSteerScript) *api.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/variants/var-1/auto-steer", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(script.resp)
	})
	mux.HandleFunc("/api/v1/features/steer", func(w http.ResponseWriter, r *http.Request) {
		script.mu.Lock()
		script.steerCalls++
		script.mu.Unlock()
		json.NewEncoder(w).Encode(api.SteerResponse{Success: true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL, SessionID: "s"})
}

func TestAutoSteerer_StagesAndAppliesSuggestions(t *testing.T) {
	script := &autoSteerScript{resp: api.AutoSteerResponse{
		Success:        true,
		SearchKeywords: []string{"pirate", "nautical"},
		SuggestedFeatures: []api.SuggestedFeature{
			{Label: "pirate speech", Value: 0.5},
			{Label: "nautical terms", Value: -0.4},
		},
	}}
	client := autoSteerServer(t, script)
	c := NewController(client, "var-1")

	plan, err := NewAutoSteerer(client, c).Run(context.Background(), "talk like a pirate", nil)
	require.NoError(t, err)

	assert.False(t, plan.Fallback)
	assert.Equal(t, []string{"pirate", "nautical"}, plan.Keywords)
	require.Len(t, plan.Staged, 2)
	assert.Equal(t, 2, script.steerCalls)
	assert.Equal(t, 2, c.PendingCount())
}

// Empty suggestions: no steer calls, caller falls back to the single
// response path, and the comparison state stays idle throughout.
func TestAutoSteerer_EmptySuggestionsFallsBack(t *testing.T) {
	script := &autoSteerScript{resp: api.AutoSteerResponse{Success: false}}
	client := autoSteerServer(t, script)
	c := NewController(client, "var-1")

	plan, err := NewAutoSteerer(client, c).Run(context.Background(), "anything", nil)
	require.NoError(t, err)

	assert.True(t, plan.Fallback)
	assert.NotEmpty(t, plan.Note)
	assert.Equal(t, 0, script.steerCalls)
	assert.Equal(t, 0, c.PendingCount())
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.False(t, c.IsComparing())
}

func TestAutoSteerer_ClampsAndCapsSuggestions(t *testing.T) {
	script := &autoSteerScript{resp: api.AutoSteerResponse{
		Success: true,
		SuggestedFeatures: []api.SuggestedFeature{
			{Label: "a", Value: 2.0},  // clamped to MaxAutoSteerValue
			{Label: "b", Value: -2.0}, // clamped to -MaxAutoSteerValue
			{Label: "c", Value: 0.1},  // beyond the cap, dropped
		},
	}}
	client := autoSteerServer(t, script)
	c := NewController(client, "var-1")

	plan, err := NewAutoSteerer(client, c).Run(context.Background(), "q", nil)
	require.NoError(t, err)

	require.Len(t, plan.Staged, MaxAutoSteerFeatures)
	assert.InDelta(t, MaxAutoSteerValue, plan.Staged[0].Value, 1e-9)
	assert.InDelta(t, -MaxAutoSteerValue, plan.Staged[1].Value, 1e-9)
	_, ok := c.PendingValue("c")
	assert.False(t, ok)
}

func TestAutoSteerer_RequestErrorFallsBack(t *testing.T) {
	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: "http://127.0.0.1:1"})
	c := NewController(client, "var-1")

	plan, err := NewAutoSteerer(client, c).Run(context.Background(), "q", nil)
	require.Error(t, err)
	assert.True(t, plan.Fallback)
	assert.Equal(t, PhaseIdle, c.Phase())
}
