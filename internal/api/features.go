// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the feature steering backend.
package api

import (
	"context"
	"net/url"
)

// =============================================================================
// SESSION-KEYED FEATURE OPERATIONS
// =============================================================================

// InspectFeatures asks the backend which features activate on the given
// messages for the current variant.
func (c *Client) InspectFeatures(ctx context.Context, req InspectRequest) ([]Feature, error) {
	if req.SessionID == "" {
		req.SessionID = c.config.SessionID
	}
	var result []Feature
	if err := c.postJSON(ctx, "/api/v1/features/inspect", req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SteerSessionFeature stages a steering value for a feature addressed by
// label within the session.
func (c *Client) SteerSessionFeature(ctx context.Context, variantID, featureLabel string, value float64) (*SteerResponse, error) {
	req := FeatureRequest{
		SessionID:    c.config.SessionID,
		VariantID:    variantID,
		FeatureLabel: featureLabel,
		Value:        &value,
	}
	var result SteerResponse
	if err := c.postJSON(ctx, "/api/v1/features/steer", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearSessionFeature removes any modification (pending or confirmed) for
// a feature addressed by label. Clearing is the canonical way to express
// "steer to zero": the backend keeps no explicit zero edits.
func (c *Client) ClearSessionFeature(ctx context.Context, variantID, featureLabel string) error {
	req := FeatureRequest{
		SessionID:    c.config.SessionID,
		VariantID:    variantID,
		FeatureLabel: featureLabel,
	}
	var result AckResponse
	if err := c.postJSON(ctx, "/api/v1/features/clear", req, &result); err != nil {
		return err
	}
	if !result.Success {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "backend rejected clear"}
	}
	return nil
}

// SearchSessionFeatures searches the feature space within the session.
func (c *Client) SearchSessionFeatures(ctx context.Context, req SearchRequest) ([]Feature, error) {
	if req.SessionID == "" {
		req.SessionID = c.config.SessionID
	}
	var result []Feature
	if err := c.postJSON(ctx, "/api/v1/features/search", req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ClusterFeatures groups the given features into named clusters for
// display. Clusters are regenerated on demand and never persisted.
func (c *Client) ClusterFeatures(ctx context.Context, req ClusterRequest) ([]Cluster, error) {
	if req.SessionID == "" {
		req.SessionID = c.config.SessionID
	}
	var result []Cluster
	if err := c.postJSON(ctx, "/api/v1/features/cluster", req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ModifiedFeatures returns the features with confirmed modifications for
// the session and variant.
func (c *Client) ModifiedFeatures(ctx context.Context, variantID string) ([]Feature, error) {
	path := "/api/v1/features/modified?session_id=" + url.QueryEscape(c.config.SessionID) +
		"&variant_id=" + url.QueryEscape(variantID)
	var result []Feature
	if err := c.getJSON(ctx, path, &result); err != nil {
		return nil, err
	}
	return result, nil
}
