// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the feature steering backend.
package api

import "context"

// =============================================================================
// CHAT COMPLETIONS
// =============================================================================

// ChatCompletion sends a non-streaming completion request and returns the
// complete response.
func (c *Client) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req.Stream = false
	var result ChatCompletionResponse
	if err := c.postJSON(ctx, "/api/v1/chat/completions", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ChatCompletionStream sends a streaming completion request and calls the
// callback for each chunk. The callback is called synchronously in the
// order chunks are received. Returns when streaming is complete or an
// error occurs.
func (c *Client) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	req.Stream = true

	body, err := c.openStream(ctx, "/api/v1/chat/completions", req)
	if err != nil {
		return err
	}
	defer body.Close()

	reader := NewStreamReader(body)
	return reader.Process(ctx, callback)
}

// ChatCompletionStreamChan sends a streaming completion request and
// returns a channel of chunks. The channel is closed when streaming is
// complete or an error occurs. Errors are delivered as chunks with the
// Error field set.
func (c *Client) ChatCompletionStreamChan(ctx context.Context, req ChatCompletionRequest) <-chan StreamChunk {
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		err := c.ChatCompletionStream(ctx, req, func(chunk StreamChunk) {
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		})

		if err != nil {
			select {
			case ch <- StreamChunk{Error: err, Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return ch
}
