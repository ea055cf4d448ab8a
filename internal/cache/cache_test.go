package cache

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New(1024, PolicyLRU)

	c.Set("a", "value-a", time.Minute)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value-a", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestTTLExpiry(t *testing.T) {
	now := time.Now()
	c := New(1024, PolicyLRU)
	c.SetClock(func() time.Time { return now })

	c.Set("a", "v", time.Minute)

	now = now.Add(30 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	now = now.Add(31 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired entry must miss")
	assert.Empty(t, c.Keys("*"), "lazy expiry must remove the entry")
}

func TestRemoveExpiredSweep(t *testing.T) {
	now := time.Now()
	c := New(1024, PolicyLRU)
	c.SetClock(func() time.Time { return now })

	c.Set("a", "v", time.Minute)
	c.Set("b", "v", time.Hour)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, c.RemoveExpired())
	assert.Equal(t, 1, c.Stats().ItemCount)
}

func TestEvictionUnderPressure(t *testing.T) {
	// Each string value JSON-encodes to ~102 bytes; budget fits 3 of them.
	payload := strings.Repeat("x", 100)
	c := New(350, PolicyLRU)

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		c.Set(k, payload, time.Minute)
		stats := c.Stats()
		assert.LessOrEqual(t, stats.CurrentSize, stats.MaxSize, "after inserting %s", k)
	}
	assert.Greater(t, c.Stats().Evictions, int64(0))
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	payload := strings.Repeat("x", 100)
	c := New(350, PolicyLRU)

	c.Set("a", payload, time.Minute)
	c.Set("b", payload, time.Minute)
	c.Set("c", payload, time.Minute)

	// Touch a so b becomes the LRU victim.
	_, _ = c.Get("a")
	c.Set("d", payload, time.Minute)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestFIFOEvictsOldestInsert(t *testing.T) {
	payload := strings.Repeat("x", 100)
	c := New(350, PolicyFIFO)

	c.Set("a", payload, time.Minute)
	c.Set("b", payload, time.Minute)
	c.Set("c", payload, time.Minute)

	// Access does not save a under FIFO.
	_, _ = c.Get("a")
	c.Set("d", payload, time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok, "a is the oldest insert and must go first")
}

func TestLFUEvictsLeastFrequentlyUsed(t *testing.T) {
	payload := strings.Repeat("x", 100)
	c := New(350, PolicyLFU)

	c.Set("a", payload, time.Minute)
	c.Set("b", payload, time.Minute)
	c.Set("c", payload, time.Minute)

	_, _ = c.Get("a")
	_, _ = c.Get("a")
	_, _ = c.Get("c")

	c.Set("d", payload, time.Minute)

	_, ok := c.Get("b")
	assert.False(t, ok, "b has zero accesses and must go first")
}

func TestOversizedEntryRejected(t *testing.T) {
	c := New(64, PolicyLRU)
	c.Set("small", "ok", time.Minute)
	c.Set("huge", strings.Repeat("x", 500), time.Minute)

	_, ok := c.Get("huge")
	assert.False(t, ok)
	_, ok = c.Get("small")
	assert.True(t, ok, "oversized insert must not wipe existing entries")
}

func TestKeysGlob(t *testing.T) {
	c := New(4096, PolicyLRU)
	c.Set("availability:p1:2026-09-01:30", 1, time.Minute)
	c.Set("availability:p1:2026-09-02:30", 1, time.Minute)
	c.Set("availability:p2:2026-09-01:30", 1, time.Minute)

	keys := c.Keys("availability:p1:*")
	assert.Len(t, keys, 2)

	assert.Equal(t, 2, c.DeleteMatching("availability:p1:*"))
	assert.Len(t, c.Keys("*"), 1)

	// Repeat invalidation is a no-op.
	assert.Equal(t, 0, c.DeleteMatching("availability:p1:*"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := New(4096, PolicyLRU)
	c.Set("a", map[string]int{"n": 1}, time.Hour)
	c.Set("b", "text", time.Hour)

	var buf bytes.Buffer
	require.NoError(t, c.Export(&buf))

	restored := New(4096, PolicyLRU)
	require.NoError(t, restored.Import(&buf))
	assert.Len(t, restored.Keys("*"), 2)
}

func TestImportMalformedLeavesState(t *testing.T) {
	c := New(4096, PolicyLRU)
	c.Set("keep", "v", time.Hour)

	err := c.Import(strings.NewReader("{not json"))
	require.ErrorIs(t, err, ErrCacheImport)

	_, ok := c.Get("keep")
	assert.True(t, ok)
}

func TestSetReplacesExisting(t *testing.T) {
	c := New(4096, PolicyLRU)
	c.Set("a", "first", time.Minute)
	c.Set("a", "second", time.Minute)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "second", got)
	assert.Equal(t, 1, c.Stats().ItemCount)
}
