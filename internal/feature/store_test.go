// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/steer-tui/internal/api"
)

func ptr(v float64) *float64 { return &v }

func seedStore() *Store {
	s := NewStore()
	s.Replace([]api.Feature{
		{UUID: "f1", Label: "formality", Activation: 0.9},
		{UUID: "f2", Label: "humor", Activation: -0.5, Modification: 0.3},
		{UUID: "f3", Label: "pirate speech", Activation: 0.1, PendingModification: ptr(0.6)},
	})
	return s
}

func TestStore_ReplaceIsWholesale(t *testing.T) {
	s := seedStore()
	require.Equal(t, 3, s.Len())

	s.Replace([]api.Feature{{UUID: "f9", Label: "brevity", Activation: 0.2}})

	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("formality")
	assert.False(t, ok, "stale features must not survive a reload")
	_, ok = s.Get("brevity")
	assert.True(t, ok)
}

func TestStore_AllSortedByActivationStrength(t *testing.T) {
	s := seedStore()

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "formality", all[0].Label)     // |0.9|
	assert.Equal(t, "humor", all[1].Label)         // |-0.5|
	assert.Equal(t, "pirate speech", all[2].Label) // |0.1|
}

func TestStore_AllReturnsCopy(t *testing.T) {
	s := seedStore()

	all := s.All()
	all[0].Label = "clobbered"

	fresh := s.All()
	assert.Equal(t, "formality", fresh[0].Label)
}

func TestStore_Filter(t *testing.T) {
	s := seedStore()

	got := s.Filter("OR")
	require.Len(t, got, 2) // formality, humor
	assert.Equal(t, "formality", got[0].Label)

	assert.Empty(t, s.Filter("no such feature"))
	assert.Len(t, s.Filter(""), 3)
}

func TestStore_PendingAndModified(t *testing.T) {
	s := seedStore()

	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "pirate speech", pending[0].Label)

	modified := s.Modified()
	require.Len(t, modified, 1)
	assert.Equal(t, "humor", modified[0].Label)
}

func TestStore_Merge(t *testing.T) {
	s := seedStore()

	s.Merge([]api.Feature{
		{UUID: "f4", Label: "verbosity", Activation: 0.4},
		{UUID: "f1", Label: "formality", Activation: 0.95},
	})

	assert.Equal(t, 4, s.Len())
	f, ok := s.Get("formality")
	require.True(t, ok)
	assert.InDelta(t, 0.95, f.Activation, 1e-9, "merge overwrites existing labels")
}

func TestStore_Clear(t *testing.T) {
	s := seedStore()
	s.SetClusters([]api.Cluster{{Name: "tone", Type: api.ClusterPredefined}})

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Clusters())
}

func TestStore_Clusters(t *testing.T) {
	s := NewStore()
	s.SetClusters([]api.Cluster{
		{Name: "tone", Type: api.ClusterPredefined, Features: []api.Feature{{Label: "formality"}}},
		{Name: "topic: sea", Type: api.ClusterDynamic},
	})

	clusters := s.Clusters()
	require.Len(t, clusters, 2)
	assert.Equal(t, api.ClusterPredefined, clusters[0].Type)
	assert.Equal(t, api.ClusterDynamic, clusters[1].Type)
}
