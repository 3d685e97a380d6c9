// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main TUI view: the conversation transcript,
// the input line, the feature panel, and the comparison workflow.
//
// This file defines the Bubble Tea message taxonomy. Every asynchronous
// result enters the update loop as one of these types.
package chat

import (
	"time"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/steering"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// StreamEventMsg carries one event from an in-flight generation stream.
// The embedded event is generation-tagged; the update loop drops events
// whose generation is no longer current.
type StreamEventMsg struct {
	Event steering.Event
}

// StreamFinishedMsg signals that a generation's driver goroutine
// returned. Err is the stream error, nil on clean completion.
type StreamFinishedMsg struct {
	GenerationID string
	Err          error
}

// StreamTickMsg drives the flush cadence for buffered stream content.
type StreamTickMsg time.Time

// =============================================================================
// BACKEND MESSAGES
// =============================================================================

// ConversationCreatedMsg is the result of the startup conversation call.
type ConversationCreatedMsg struct {
	Conversation *api.Conversation
	Err          error
}

// HealthMsg is the result of a health probe.
type HealthMsg struct {
	Err error
}

// HealthTickMsg schedules the next health probe.
type HealthTickMsg time.Time

// FeaturesLoadedMsg carries a refreshed feature table.
type FeaturesLoadedMsg struct {
	Features []api.Feature
	Err      error
}

// SearchResultMsg carries semantic feature search results.
type SearchResultMsg struct {
	Query    string
	Features []api.Feature
	Err      error
}

// InspectResultMsg carries the features activating on recent messages.
type InspectResultMsg struct {
	Features []api.Feature
	Err      error
}

// ClustersLoadedMsg carries on-demand feature clusters.
type ClustersLoadedMsg struct {
	Clusters []api.Cluster
	Err      error
}

// VariantReloadedMsg carries the refreshed variant edit set.
type VariantReloadedMsg struct {
	Variant *api.VariantState
	Err     error
}

// =============================================================================
// STEERING MESSAGES
// =============================================================================

// PendingAppliedMsg is the result of pushing staged modifications to the
// backend ahead of a comparison.
type PendingAppliedMsg struct {
	Err error
}

// AutoSteerPlanMsg is the result of an auto-steer suggestion round.
type AutoSteerPlanMsg struct {
	Plan *steering.Plan
	Err  error
}

// ConfirmResultMsg is the result of confirming a comparison. Final is
// the response text promoted into the transcript.
type ConfirmResultMsg struct {
	Final string
	Err   error
}

// CancelResultMsg is the result of cancelling a comparison. Restored is
// the original response kept in the transcript.
type CancelResultMsg struct {
	Restored string
	Err      error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// ToastTickMsg prunes expired toasts.
type ToastTickMsg time.Time

// ThemeChangedMsg signals a dark/light mode switch.
type ThemeChangedMsg struct {
	Dark bool
}

// ConfigReloadedMsg signals that the config file changed on disk.
type ConfigReloadedMsg struct{}
