package versionstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/versionstore"
)

func TestCachingStore_GetServesFromCacheAfterAppend(t *testing.T) {
	backing := versionstore.NewInMemoryStore()
	cached, err := versionstore.NewCachingStore(backing, 8)
	require.NoError(t, err)

	id, err := cached.Append(versionstore.Version{Snapshot: config.New("a")})
	require.NoError(t, err)

	v, err := cached.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "a", v.Snapshot.Description)
}

func TestCachingStore_LatestTracksMostRecentAppend(t *testing.T) {
	backing := versionstore.NewInMemoryStore()
	cached, err := versionstore.NewCachingStore(backing, 8)
	require.NoError(t, err)

	cached.Append(versionstore.Version{Snapshot: config.New("a")})
	cached.Append(versionstore.Version{Snapshot: config.New("b")})

	v, ok := cached.Latest()
	require.True(t, ok)
	assert.Equal(t, "b", v.Snapshot.Description)
}

func TestCachingStore_GetFallsBackToBackingOnMiss(t *testing.T) {
	backing := versionstore.NewInMemoryStore()
	id, _ := backing.Append(versionstore.Version{Snapshot: config.New("preexisting")})

	cached, err := versionstore.NewCachingStore(backing, 8)
	require.NoError(t, err)

	v, err := cached.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "preexisting", v.Snapshot.Description)
}
