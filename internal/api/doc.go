// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the feature steering backend.
//
// The backend hosts the model and performs feature inspection, steering,
// clustering and auto-steer suggestion generation; this package only
// issues requests and parses responses and streams. Chat completions
// arrive as SSE-style "data: {...}" lines; conversation messages arrive
// as a raw text byte stream. There is no retry policy: a failed request
// or stream surfaces immediately to the caller, which decides between
// fail-soft (background reads keep prior data) and fail-loud (writes the
// user is waiting on raise an error).
package api
