// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the feature steering backend.
package api

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatMessage represents a chat message in the conversation transcript.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatCompletionRequest is the request body for /api/v1/chat/completions.
type ChatCompletionRequest struct {
	Messages  []ChatMessage `json:"messages"`
	VariantID string        `json:"variant_id"`
	SessionID string        `json:"session_id,omitempty"`
	Stream    bool          `json:"stream"`
	AutoSteer bool          `json:"auto_steer,omitempty"`

	// Sampling settings; zero values defer to the backend's defaults.
	MaxCompletionTokens int     `json:"max_completion_tokens,omitempty"`
	Temperature         float64 `json:"temperature,omitempty"`
	TopP                float64 `json:"top_p,omitempty"`
}

// FeatureRequest addresses a single feature in session-keyed feature
// operations (/api/v1/features/steer and /api/v1/features/clear).
type FeatureRequest struct {
	SessionID    string   `json:"session_id"`
	VariantID    string   `json:"variant_id"`
	FeatureLabel string   `json:"feature_label"`
	Value        *float64 `json:"value,omitempty"` // nil for clear
}

// InspectRequest is the request body for /api/v1/features/inspect.
type InspectRequest struct {
	Messages  []ChatMessage `json:"messages"`
	SessionID string        `json:"session_id"`
	VariantID string        `json:"variant_id"`
}

// SearchRequest is the request body for /api/v1/features/search.
type SearchRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	VariantID string `json:"variant_id"`
	TopK      int    `json:"top_k,omitempty"`
}

// ClusterRequest is the request body for /api/v1/features/cluster.
type ClusterRequest struct {
	SessionID string   `json:"session_id"`
	VariantID string   `json:"variant_id"`
	Labels    []string `json:"feature_labels,omitempty"`
}

// SteerValueRequest is the body for /variants/{id}/features/{uuid}/steer.
type SteerValueRequest struct {
	Value float64 `json:"value"`
}

// AutoSteerRequest is the request body for /variants/{id}/auto-steer.
type AutoSteerRequest struct {
	Query               string        `json:"query"`
	CurrentVariantID    string        `json:"current_variant_id"`
	ConversationContext []ChatMessage `json:"conversation_context,omitempty"`
}

// SendMessageRequest is the body for /conversations/{id}/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// Feature is a named internal model feature with its measured activation
// and the user-set steering offset.
type Feature struct {
	UUID                string   `json:"uuid"`
	Label               string   `json:"label"`
	Activation          float64  `json:"activation"`
	Modification        float64  `json:"modification"`
	PendingModification *float64 `json:"pending_modification,omitempty"`
}

// HasPending reports whether a modification has been staged but not yet
// committed for this feature.
func (f *Feature) HasPending() bool {
	return f.PendingModification != nil
}

// IsModified reports whether the feature carries a confirmed steering offset.
func (f *Feature) IsModified() bool {
	return f.Modification != 0
}

// VariantRef identifies a variant by uuid and display label.
type VariantRef struct {
	UUID  string `json:"uuid"`
	Label string `json:"label"`
}

// Conversation is the response from POST /conversations.
type Conversation struct {
	UUID           string     `json:"uuid"`
	CurrentVariant VariantRef `json:"current_variant"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SteerResponse is the response to a per-feature steer call.
type SteerResponse struct {
	Success             bool     `json:"success"`
	FeatureUUID         string   `json:"feature_uuid"`
	PendingModification *float64 `json:"pending_modification,omitempty"`
}

// AckResponse is the minimal success envelope returned by commit-changes,
// reject-changes and the session-keyed clear call.
type AckResponse struct {
	Success bool `json:"success"`
}

// SuggestedFeature is one auto-steer suggestion: a feature label and the
// steering value the backend proposes for it.
type SuggestedFeature struct {
	UUID  string  `json:"uuid,omitempty"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// AutoSteerResponse is the response from /variants/{id}/auto-steer.
type AutoSteerResponse struct {
	Success           bool               `json:"success"`
	SearchKeywords    []string           `json:"search_keywords,omitempty"`
	SuggestedFeatures []SuggestedFeature `json:"suggested_features"`
}

// ClusterType distinguishes backend-curated groupings from ones generated
// for the current feature set.
type ClusterType string

const (
	ClusterPredefined ClusterType = "predefined"
	ClusterDynamic    ClusterType = "dynamic"
)

// Cluster is a named grouping of features returned by the cluster call.
type Cluster struct {
	Name     string      `json:"name"`
	Type     ClusterType `json:"type"`
	Features []Feature   `json:"features"`
}

// ChatCompletionResponse is the non-streamed response from
// /api/v1/chat/completions.
type ChatCompletionResponse struct {
	Content          string            `json:"content"`
	VariantID        string            `json:"variant_id,omitempty"`
	ComparisonResult *ComparisonResult `json:"comparison_result,omitempty"`
}

// ComparisonResult carries the backend's view of an auto-steer comparison,
// delivered on the final stream event when auto_steer was requested.
type ComparisonResult struct {
	OriginalResponse string             `json:"original_response,omitempty"`
	SteeredResponse  string             `json:"steered_response,omitempty"`
	AppliedFeatures  []SuggestedFeature `json:"applied_features,omitempty"`
}

// =============================================================================
// VARIANT STATE (tagged, versioned schema)
// =============================================================================

// VariantStateVersion is the schema version this client understands.
// Payloads with a different version are rejected on receipt rather than
// interpreted as loosely-typed JSON.
const VariantStateVersion = 1

// VariantEdit is one confirmed steering edit in a variant.
type VariantEdit struct {
	FeatureLabel string  `json:"feature_label"`
	Value        float64 `json:"value"`
}

// VariantState is the client-side mirror of the backend variant: the set
// of confirmed feature edits. It is refreshed after every confirm, cancel
// and feature-mutating call; eventually consistent, never the source of
// truth.
type VariantState struct {
	SchemaVersion int           `json:"schema_version"`
	UUID          string        `json:"uuid"`
	Label         string        `json:"label,omitempty"`
	Edits         []VariantEdit `json:"edits"`
}

// Validate rejects unknown schema shapes instead of trusting them.
func (v *VariantState) Validate() error {
	if v.SchemaVersion != VariantStateVersion {
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "unsupported variant schema version",
		}
	}
	if v.UUID == "" {
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "variant state missing uuid",
		}
	}
	for _, e := range v.Edits {
		if e.FeatureLabel == "" {
			return &ClientError{
				Type:    ErrTypeInvalidResponse,
				Message: "variant edit missing feature label",
			}
		}
	}
	return nil
}

// Edit returns the confirmed value for a feature label, if present.
func (v *VariantState) Edit(label string) (float64, bool) {
	for _, e := range v.Edits {
		if e.FeatureLabel == label {
			return e.Value, true
		}
	}
	return 0, false
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Event type tags on chat completion stream lines.
const (
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

// streamEvent is the wire shape of one "data: {...}" line.
type streamEvent struct {
	Type             string            `json:"type"`
	Delta            string            `json:"delta,omitempty"`
	Content          string            `json:"content,omitempty"`
	VariantID        string            `json:"variant_id,omitempty"`
	ComparisonResult *ComparisonResult `json:"comparison_result,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// StreamChunk represents a single decoded chunk from a streaming response.
type StreamChunk struct {
	// Delta is the incremental text carried by this chunk.
	Delta string

	// Done marks the final chunk. Content and ComparisonResult are only
	// populated on the final chunk.
	Done       bool
	Content    string
	VariantID  string
	Comparison *ComparisonResult

	// Error if any occurred during streaming.
	Error error
}

// =============================================================================
// HELPER METHODS
// =============================================================================

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// backendError is the error envelope backend endpoints return on non-OK
// status.
type backendError struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (e *backendError) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}
