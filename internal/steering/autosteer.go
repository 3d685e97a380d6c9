// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package steering implements the pending-modification workflow and the
// comparison state machine.
package steering

import (
	"context"

	"github.com/jeranaias/steer-tui/internal/api"
)

// contextTurns is how many recent transcript messages accompany an
// auto-steer suggestion request.
const contextTurns = 6

// =============================================================================
// AUTO-STEER ORCHESTRATOR
// =============================================================================

// Plan is the outcome of an auto-steer suggestion round.
type Plan struct {
	// Fallback means no comparison will run: the caller should generate
	// a normal single response and tell the user why.
	Fallback bool
	Note     string

	// Keywords the backend derived from the query, for display.
	Keywords []string

	// Staged suggestions, already applied as pending modifications.
	Staged []PendingFeature
}

// AutoSteerer requests suggested feature deltas for a query, stages them
// as pending, and applies them, leaving the controller ready for a
// dual-stream comparison.
type AutoSteerer struct {
	client     *api.Client
	controller *Controller
}

// NewAutoSteerer creates an auto-steer orchestrator.
func NewAutoSteerer(client *api.Client, controller *Controller) *AutoSteerer {
	return &AutoSteerer{client: client, controller: controller}
}

// Run asks the backend for suggestions and stages them. An empty
// suggestion set is not an error: the returned plan directs the caller to
// the single-response path and the comparison state stays idle. Any error
// mid-flow resets the workflow to idle and likewise falls back, so the UI
// is never left in a stuck steering state.
func (a *AutoSteerer) Run(ctx context.Context, query string, history []api.ChatMessage) (*Plan, error) {
	variantID := a.controller.VariantID()

	resp, err := a.client.AutoSteer(ctx, variantID, api.AutoSteerRequest{
		Query:               query,
		CurrentVariantID:    variantID,
		ConversationContext: tail(history, contextTurns),
	})
	if err != nil {
		a.controller.fail(err)
		return &Plan{Fallback: true, Note: "auto-steer unavailable"}, err
	}

	if !resp.Success || len(resp.SuggestedFeatures) == 0 {
		return &Plan{
			Fallback: true,
			Note:     "no steering suggestions for this prompt",
			Keywords: resp.SearchKeywords,
		}, nil
	}

	suggestions := resp.SuggestedFeatures
	if len(suggestions) > MaxAutoSteerFeatures {
		suggestions = suggestions[:MaxAutoSteerFeatures]
	}

	staged := make([]PendingFeature, 0, len(suggestions))
	for _, s := range suggestions {
		value := clamp(s.Value, MaxAutoSteerValue)
		a.controller.StagePending(s.Label, s.UUID, value)
		staged = append(staged, PendingFeature{Label: s.Label, UUID: s.UUID, Value: value})
	}

	if err := a.controller.ApplyPending(ctx); err != nil {
		// ApplyPending already dropped the controller to idle.
		return &Plan{Fallback: true, Note: "could not apply suggested features"}, err
	}

	return &Plan{Keywords: resp.SearchKeywords, Staged: staged}, nil
}

// tail returns the last n elements of msgs.
func tail(msgs []api.ChatMessage, n int) []api.ChatMessage {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
