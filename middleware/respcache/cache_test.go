package respcache_test

import (
	"strconv"
	"testing"
	"time"

	"admin-gateway/middleware/respcache"
	"admin-gateway/middleware/respcache/domain"
	"admin-gateway/middleware/respcache/infra"

	"github.com/mailgun/holster/v4/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache() *respcache.Cache {
	return respcache.New(infra.NewMemoryStore())
}

func TestCache_GetAfterSetUntilTTL(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	c := newCache()
	v := domain.Value{Status: 200, Body: []byte("ok")}
	c.Set("k", v, time.Minute)

	clock.Advance(59 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, v.Body, got.Body)

	// exatamente em ExpiresAt já é expirado
	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, uint64(1), st.Sets)
	assert.Zero(t, st.Size)
	assert.InDelta(t, 0.5, st.HitRate, 0.0001)
}

func TestCache_SetUsesDefaultTTL(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	c := respcache.New(infra.NewMemoryStore(), respcache.WithDefaultTTL(10*time.Second))
	c.Set("k", domain.Value{Status: 200}, 0)

	clock.Advance(9 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)
	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_SetSweepsExpiredEntries(t *testing.T) {
	defer clock.Freeze(clock.Now()).Unfreeze()

	c := newCache()
	c.Set("old", domain.Value{Status: 200}, time.Second)
	clock.Advance(2 * time.Second)
	c.Set("new", domain.Value{Status: 200}, time.Minute)

	assert.Equal(t, 1, c.Stats().Size)
}

func TestCache_InvalidateRemovesExactlyMatches(t *testing.T) {
	c := newCache()
	for i := 0; i < 3; i++ {
		c.Set("suppliers:page="+strconv.Itoa(i), domain.Value{Status: 200}, time.Minute)
	}
	c.Set("suppliers-archive:", domain.Value{Status: 200}, time.Minute)
	c.Set("products:", domain.Value{Status: 200}, time.Minute)

	removed, err := c.Invalidate("^suppliers:")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, c.Stats().Size)

	_, ok := c.Get("suppliers-archive:")
	assert.True(t, ok)
}

func TestCache_InvalidateRejectsBadPattern(t *testing.T) {
	c := newCache()
	_, err := c.Invalidate("([")
	assert.Error(t, err)
}

func TestCache_ClearResetsCounters(t *testing.T) {
	c := newCache()
	c.Set("k", domain.Value{Status: 200}, time.Minute)
	c.Get("k")
	c.Clear()

	assert.Equal(t, domain.Stats{}, c.Stats())
}

func TestCollector_ReportsStats(t *testing.T) {
	c := newCache()
	c.Set("k", domain.Value{Status: 200}, time.Minute)
	c.Get("k")
	c.Get("missing")

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(respcache.NewCollector(c)))

	families, err := reg.Gather()
	require.NoError(t, err)

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	assert.True(t, found["respcache_access_count"])
	assert.True(t, found["respcache_size"])
}
