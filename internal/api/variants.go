// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the feature steering backend.
package api

import (
	"context"
	"net/url"
	"strconv"
)

// =============================================================================
// CONVERSATIONS
// =============================================================================

// CreateConversation starts a new backend conversation and returns its
// identifier along with the variant it starts from.
func (c *Client) CreateConversation(ctx context.Context) (*Conversation, error) {
	var result Conversation
	if err := c.postJSON(ctx, "/conversations", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StreamConversationMessage posts a user message to a conversation and
// streams the assistant reply as raw text. The callback receives text as
// it arrives; blocks until the stream completes or the context is
// cancelled.
func (c *Client) StreamConversationMessage(ctx context.Context, conversationID, content string, callback TextCallback) error {
	body, err := c.openStream(ctx, "/conversations/"+url.PathEscape(conversationID)+"/messages", SendMessageRequest{Content: content})
	if err != nil {
		return err
	}
	defer body.Close()

	return processTextStream(ctx, body, callback)
}

// TableFeatures fetches the feature table for a conversation: every
// feature the backend currently exposes, with activations and any pending
// or confirmed modifications.
func (c *Client) TableFeatures(ctx context.Context, conversationID string) ([]Feature, error) {
	var result []Feature
	if err := c.getJSON(ctx, "/conversations/"+url.PathEscape(conversationID)+"/table-features", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// VARIANT STEERING
// =============================================================================

// SteerFeature stages a steering value for a feature on a variant. The
// value remains pending until CommitChanges or RejectChanges.
func (c *Client) SteerFeature(ctx context.Context, variantID, featureUUID string, value float64) (*SteerResponse, error) {
	path := "/variants/" + url.PathEscape(variantID) + "/features/" + url.PathEscape(featureUUID) + "/steer"
	var result SteerResponse
	if err := c.postJSON(ctx, path, SteerValueRequest{Value: value}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CommitChanges promotes all pending modifications on a variant to
// confirmed edits.
func (c *Client) CommitChanges(ctx context.Context, variantID string) error {
	var result AckResponse
	if err := c.postJSON(ctx, "/variants/"+url.PathEscape(variantID)+"/commit-changes", nil, &result); err != nil {
		return err
	}
	if !result.Success {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "backend rejected commit"}
	}
	return nil
}

// RejectChanges discards all pending modifications on a variant.
func (c *Client) RejectChanges(ctx context.Context, variantID string) error {
	var result AckResponse
	if err := c.postJSON(ctx, "/variants/"+url.PathEscape(variantID)+"/reject-changes", nil, &result); err != nil {
		return err
	}
	if !result.Success {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "backend rejected rollback"}
	}
	return nil
}

// SearchVariantFeatures searches the feature space of a variant.
func (c *Client) SearchVariantFeatures(ctx context.Context, variantID, query string, topK int) ([]Feature, error) {
	path := "/variants/" + url.PathEscape(variantID) + "/features/search?query=" + url.QueryEscape(query)
	if topK > 0 {
		path += "&top_k=" + strconv.Itoa(topK)
	}
	var result []Feature
	if err := c.getJSON(ctx, path, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// AutoSteer asks the backend for suggested feature deltas matching a
// query, given recent conversation context. An unsuccessful response with
// no suggestions is not an error; callers fall back to the single-response
// path.
func (c *Client) AutoSteer(ctx context.Context, variantID string, req AutoSteerRequest) (*AutoSteerResponse, error) {
	if req.CurrentVariantID == "" {
		req.CurrentVariantID = variantID
	}
	var result AutoSteerResponse
	if err := c.postJSON(ctx, "/variants/"+url.PathEscape(variantID)+"/auto-steer", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetVariant fetches the variant's confirmed edit set. The payload is
// validated on receipt; unknown schema shapes are rejected rather than
// passed through.
func (c *Client) GetVariant(ctx context.Context, variantID string) (*VariantState, error) {
	var result VariantState
	if err := c.getJSON(ctx, "/variants/"+url.PathEscape(variantID), &result); err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}
