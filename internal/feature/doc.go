// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package feature holds the client-side view of model features: a
// label-keyed store replaced wholesale on every backend reload, plus the
// display clusters the backend groups features into. Nothing here is
// persisted; the store lives and dies with the session.
package feature
