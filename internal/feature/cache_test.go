package feature

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRoundsToFivePlaces(t *testing.T) {
	// Coordinates that agree to 5 decimal places share a key.
	assert.Equal(t, Key(4.215001, 73.538004), Key(4.2150012, 73.5380041))
	assert.Equal(t, Key(4.21500, 73.53800), Key(4.215004, 73.538004))

	// Coordinates that differ at the 5th place do not.
	assert.NotEqual(t, Key(4.21500, 73.53800), Key(4.21501, 73.53800))
	assert.NotEqual(t, Key(4.21500, 73.53800), Key(4.21500, 73.53801))

	// Swapping lat and lon must not collide.
	assert.NotEqual(t, Key(4.21500, 73.53800), Key(73.53800, 4.21500))
}

func TestFileCacheRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "poi_cache") // does not exist yet
	c := NewFileCache(dir, 24*time.Hour)

	fs := Set{NearbyCafes: 3, FootTraffic: 75, RoadDistance: 150}
	key := Key(4.2150, 73.5380)

	_, ok := c.Get(key)
	assert.False(t, ok)

	// Put creates the directory on first use.
	require.NoError(t, c.Put(key, fs))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, fs, got)
}

func TestFileCacheExpiry(t *testing.T) {
	now := time.Now()
	clock := &now
	c := NewFileCache(t.TempDir(), 24*time.Hour, WithClock(func() time.Time { return *clock }))

	key := Key(4.2150, 73.5380)
	require.NoError(t, c.Put(key, Set{NearbyCafes: 1}))

	// Just inside the window.
	later := now.Add(23 * time.Hour)
	clock = &later
	_, ok := c.Get(key)
	assert.True(t, ok)

	// Past the window the entry reads as absent but is not deleted.
	expired := now.Add(25 * time.Hour)
	clock = &expired
	_, ok = c.Get(key)
	assert.False(t, ok)

	entries, err := os.ReadDir(c.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCache(dir, 24*time.Hour)
	key := Key(4.2150, 73.5380)

	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".json"), []byte("{not json"), 0o644))
	_, ok := c.Get(key)
	assert.False(t, ok)

	// Bad timestamp is also a miss.
	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".json"),
		[]byte(`{"timestamp":"yesterday","data":{"nearby_cafes":1}}`), 0o644))
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestFileCachePutOverwrites(t *testing.T) {
	c := NewFileCache(t.TempDir(), 24*time.Hour)
	key := Key(4.2150, 73.5380)

	require.NoError(t, c.Put(key, Set{NearbyCafes: 1}))
	require.NoError(t, c.Put(key, Set{NearbyCafes: 9}))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 9.0, got[NearbyCafes])
}

func TestFileCachePurge(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	clock := &now
	c := NewFileCache(dir, 24*time.Hour, WithClock(func() time.Time { return *clock }))

	require.NoError(t, c.Put(Key(4.2150, 73.5380), Set{NearbyCafes: 1}))

	later := now.Add(12 * time.Hour)
	clock = &later
	require.NoError(t, c.Put(Key(4.2160, 73.5390), Set{NearbyParks: 2}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("nope"), 0o644))

	// 30h after the first put: first entry and the garbage file are stale.
	purgeTime := now.Add(30 * time.Hour)
	clock = &purgeTime
	removed, err := c.Purge()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok := c.Get(Key(4.2160, 73.5390))
	assert.True(t, ok, "fresh entry survives purge")
}

func TestFileCachePurgeMissingDir(t *testing.T) {
	c := NewFileCache(filepath.Join(t.TempDir(), "never-created"), time.Hour)
	removed, err := c.Purge()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestMemCacheTTL(t *testing.T) {
	now := time.Now()
	clock := &now
	c := NewMemCache(time.Hour, WithMemClock(func() time.Time { return *clock }))

	require.NoError(t, c.Put("k", Set{NearbyCafes: 2}))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2.0, got[NearbyCafes])

	expired := now.Add(2 * time.Hour)
	clock = &expired
	_, ok = c.Get("k")
	assert.False(t, ok)
}
