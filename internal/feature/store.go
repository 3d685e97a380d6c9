// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package feature holds the client-side view of model features.
package feature

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/jeranaias/steer-tui/internal/api"
)

// =============================================================================
// FEATURE STORE
// =============================================================================

// Store is the client-side map of feature label to current state, derived
// from inspection, search and cluster responses. Its contents are replaced
// wholesale on every reload rather than patched in place, so readers never
// observe a half-updated view. Features live only for the session: the
// store is cleared when the conversation resets.
type Store struct {
	mu       sync.RWMutex
	byLabel  map[string]api.Feature
	clusters []api.Cluster
}

// NewStore creates an empty feature store.
func NewStore() *Store {
	return &Store{
		byLabel: make(map[string]api.Feature),
	}
}

// Replace swaps the entire feature set with the given reload result.
func (s *Store) Replace(features []api.Feature) {
	next := make(map[string]api.Feature, len(features))
	for _, f := range features {
		next[f.Label] = f
	}

	s.mu.Lock()
	s.byLabel = next
	s.mu.Unlock()
}

// Merge adds or overwrites features without discarding the rest, used for
// search results that should appear alongside the inspected set.
func (s *Store) Merge(features []api.Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range features {
		s.byLabel[f.Label] = f
	}
}

// Get returns the feature with the given label.
func (s *Store) Get(label string) (api.Feature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.byLabel[label]
	return f, ok
}

// Len returns the number of features in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byLabel)
}

// All returns every feature sorted by activation strength, strongest
// first. The slice is a copy; mutating it does not affect the store.
func (s *Store) All() []api.Feature {
	s.mu.RLock()
	features := make([]api.Feature, 0, len(s.byLabel))
	for _, f := range s.byLabel {
		features = append(features, f)
	}
	s.mu.RUnlock()

	sortByActivation(features)
	return features
}

// Filter returns features whose label contains the query, case
// insensitive, sorted by activation strength.
func (s *Store) Filter(query string) []api.Feature {
	query = strings.ToLower(query)

	s.mu.RLock()
	var features []api.Feature
	for _, f := range s.byLabel {
		if strings.Contains(strings.ToLower(f.Label), query) {
			features = append(features, f)
		}
	}
	s.mu.RUnlock()

	sortByActivation(features)
	return features
}

// Pending returns the features with a staged-but-unconfirmed modification.
func (s *Store) Pending() []api.Feature {
	s.mu.RLock()
	var features []api.Feature
	for _, f := range s.byLabel {
		if f.HasPending() {
			features = append(features, f)
		}
	}
	s.mu.RUnlock()

	sortByActivation(features)
	return features
}

// Modified returns the features with a confirmed steering offset.
func (s *Store) Modified() []api.Feature {
	s.mu.RLock()
	var features []api.Feature
	for _, f := range s.byLabel {
		if f.IsModified() {
			features = append(features, f)
		}
	}
	s.mu.RUnlock()

	sortByActivation(features)
	return features
}

// Clear empties the store. Called on conversation reset.
func (s *Store) Clear() {
	s.mu.Lock()
	s.byLabel = make(map[string]api.Feature)
	s.clusters = nil
	s.mu.Unlock()
}

// =============================================================================
// CLUSTERS
// =============================================================================

// SetClusters replaces the display clusters. Clusters are a presentation
// grouping only: they are regenerated on demand and never persisted.
func (s *Store) SetClusters(clusters []api.Cluster) {
	s.mu.Lock()
	s.clusters = clusters
	s.mu.Unlock()
}

// Clusters returns the current display clusters.
func (s *Store) Clusters() []api.Cluster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clusters
}

// =============================================================================
// HELPERS
// =============================================================================

// sortByActivation orders features by |activation| descending, with label
// as a deterministic tie-break.
func sortByActivation(features []api.Feature) {
	sort.SliceStable(features, func(i, j int) bool {
		ai := math.Abs(features[i].Activation)
		aj := math.Abs(features[j].Activation)
		if ai != aj {
			return ai > aj
		}
		return features[i].Label < features[j].Label
	})
}
