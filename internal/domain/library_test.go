// SPDX-License-Identifier: MIT

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_LaterBucketWins(t *testing.T) {
	now := time.Now()

	library := NewLibraryBucket("uid-1")
	recent := &LibraryBucket{UID: "uid-1", Items: map[string]LibraryItem{
		"tt1": {ID: "tt1", Name: "recent copy", MTime: now},
		"tt2": {ID: "tt2", Name: "only recent", MTime: now},
	}}
	full := &LibraryBucket{UID: "uid-1", Items: map[string]LibraryItem{
		"tt1": {ID: "tt1", Name: "full copy", MTime: now.Add(time.Hour)},
		"tt3": {ID: "tt3", Name: "only full", MTime: now},
	}}

	library.Merge(recent)
	library.Merge(full)

	require.Len(t, library.Items, 3)
	assert.Equal(t, "full copy", library.Items["tt1"].Name)
	assert.Equal(t, "only recent", library.Items["tt2"].Name)
	assert.Equal(t, "only full", library.Items["tt3"].Name)
}

func TestMerge_NilOtherIsNoop(t *testing.T) {
	library := NewLibraryBucket("uid-1")
	library.Merge(nil)
	assert.Empty(t, library.Items)
}

func TestContains(t *testing.T) {
	library := &LibraryBucket{Items: map[string]LibraryItem{
		"live":    {ID: "live"},
		"removed": {ID: "removed", Removed: true},
	}}

	assert.True(t, library.Contains("live"))
	assert.False(t, library.Contains("removed"))
	assert.False(t, library.Contains("absent"))

	var nilBucket *LibraryBucket
	assert.False(t, nilBucket.Contains("live"))
}

func TestProfileAddonLookup(t *testing.T) {
	profile := &Profile{Addons: []Descriptor{
		{TransportURL: "https://cinemeta.example/manifest.json", Manifest: Manifest{ID: "cinemeta"}},
	}}

	require.NotNil(t, profile.Addon("https://cinemeta.example/manifest.json"))
	assert.Nil(t, profile.Addon("https://other.example/manifest.json"))
}

func TestMetaItemVideoLookup(t *testing.T) {
	item := &MetaItem{Videos: []Video{{ID: "v1"}, {ID: "v2"}}}
	require.NotNil(t, item.Video("v2"))
	assert.Nil(t, item.Video("v3"))
}
