package radixcache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prefixkv/radixcache"
	"github.com/prefixkv/radixcache/testpool"
)

// Scenario 5 — cache_unfinished_request round-trip (spec §8): a
// request's fill tokens are inserted into an empty cache, its
// PrefixIndices then cover every token, and its pin moves from the
// root to the new tip. Freeing of redundant slots is covered by
// TestCacheUnfinishedRequestFreesRedundantSlots below.
func TestCacheUnfinishedRequestRoundTrip(t *testing.T) {
	pool := testpool.New(64)
	cache := radixcache.NewCache(pool)

	reqIdx := pool.NewReq(4)
	req := &radixcache.Request{
		FillIDs:    radixcache.Tokens{1, 2, 3, 4},
		ReqPoolIdx: reqIdx,
		LastNode:   cache.Root(),
	}
	cache.Pin(req.LastNode)

	cache.CacheUnfinishedRequest(req, pool)

	require.Len(t, req.PrefixIndices, 4)
	require.NotSame(t, cache.Root(), req.LastNode)
	require.True(t, req.LastNode.Pinned())

	matched, _ := cache.MatchPrefix(radixcache.Tokens{1, 2, 3, 4})
	require.Len(t, matched, 4)
}

func TestCacheUnfinishedRequestFreesRedundantSlots(t *testing.T) {
	pool := testpool.New(64)
	cache := radixcache.NewCache(pool)

	// Prime the cache with the same tokens under a different request so
	// the second request's fill allocates slots that become redundant.
	primerIdx := pool.NewReq(4)
	primer := &radixcache.Request{
		FillIDs:    radixcache.Tokens{1, 2, 3, 4},
		ReqPoolIdx: primerIdx,
		LastNode:   cache.Root(),
	}
	cache.Pin(primer.LastNode)
	cache.CacheUnfinishedRequest(primer, pool)
	cache.CacheFinishedRequest(primer, pool)

	before := pool.InUseCount()

	reqIdx := pool.NewReq(4)
	req := &radixcache.Request{
		FillIDs:    radixcache.Tokens{1, 2, 3, 4},
		ReqPoolIdx: reqIdx,
		LastNode:   cache.Root(),
	}
	cache.Pin(req.LastNode)
	cache.CacheUnfinishedRequest(req, pool)

	// The 4 newly-allocated slots for req's fill should have all been
	// freed back to the pool since the full prefix was already cached.
	require.Equal(t, before, pool.InUseCount())
}

// Scenario 6 — reset drops the whole tree and zeroes accounting.
func TestCacheReset(t *testing.T) {
	pool := testpool.New(64)
	cache := radixcache.NewCache(pool)

	cache.Insert(radixcache.Tokens{1, 2, 3}, radixcache.Slots{10, 11, 12})
	require.Equal(t, 3, cache.TotalSize())

	cache.Reset()

	require.Equal(t, 0, cache.TotalSize())
	require.Equal(t, 0, cache.EvictableSize())

	matched, node := cache.MatchPrefix(radixcache.Tokens{1, 2, 3})
	require.Nil(t, matched)
	require.Same(t, cache.Root(), node)
}

func TestCacheFinishedRequestReleasesRowAndUnpins(t *testing.T) {
	pool := testpool.New(64)
	cache := radixcache.NewCache(pool)

	reqIdx := pool.NewReq(3)
	req := &radixcache.Request{
		FillIDs:    radixcache.Tokens{1, 2, 3},
		ReqPoolIdx: reqIdx,
		LastNode:   cache.Root(),
	}
	cache.Pin(req.LastNode)
	cache.CacheUnfinishedRequest(req, pool)

	cache.CacheFinishedRequest(req, pool)

	require.False(t, req.LastNode.Pinned())
}

func TestDisabledCacheIsPassthrough(t *testing.T) {
	pool := testpool.New(64)
	cache := radixcache.NewCache(pool, radixcache.WithDisabled())

	n := cache.Insert(radixcache.Tokens{1, 2, 3}, radixcache.Slots{10, 11, 12})
	require.Equal(t, 0, n)

	matched, node := cache.MatchPrefix(radixcache.Tokens{1, 2, 3})
	require.Nil(t, matched)
	require.Same(t, cache.Root(), node)

	reqIdx := pool.NewReq(3)
	req := &radixcache.Request{
		FillIDs:    radixcache.Tokens{1, 2, 3},
		ReqPoolIdx: reqIdx,
		LastNode:   cache.Root(),
	}
	cache.CacheFinishedRequest(req, pool)
	require.Equal(t, 0, pool.InUseCount())
}

func TestEvictViaFacadeFreesThroughPool(t *testing.T) {
	pool := testpool.New(64)
	cache := radixcache.NewCache(pool)

	cache.Insert(radixcache.Tokens{1, 2, 3}, pool.Alloc(3))
	require.Equal(t, 3, pool.InUseCount())

	res := cache.Evict(1<<30, nil)
	require.True(t, res.Progressed)
	require.Equal(t, 0, pool.InUseCount())
}
