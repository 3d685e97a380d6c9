// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and
// messages: roles, streaming message accumulation, per-generation
// statistics, and the transcript operations the steering workflow needs
// (tail replacement on confirm, truncation for regenerate).
package model
