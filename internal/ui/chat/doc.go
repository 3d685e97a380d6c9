// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main TUI view: the conversation transcript,
// the input line, the feature panel, and the comparison workflow.
//
// The package is built around the Bubble Tea update loop. Streaming
// deltas do not touch the model directly: stream goroutines emit
// steering.Event values into a channel, a listen command surfaces them as
// messages, and the update loop applies them. Events carry the generation
// id that produced them, so a superseded stream can never clobber the
// transcript.
//
// Rendering batches at ~30fps through a StreamingBuffer rather than
// redrawing per token.
package chat
