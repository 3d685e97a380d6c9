// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package steering implements the pending-modification workflow: staging
// feature values, mirroring them to the backend, the side-by-side
// comparison of original vs. steered generations, and the confirm/cancel
// semantics that promote or discard staged changes.
//
// The workflow is a small state machine (idle, applying, generating,
// comparing, confirming, canceling). Every logical generation carries an
// explicit cancellation token; starting a new one cancels its predecessor
// and events from superseded generations are dropped on arrival.
package steering
