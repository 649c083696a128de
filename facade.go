package radixcache

import "log/slog"

// Cache is the glue contract the scheduler drives: MatchPrefix before
// scheduling a request, CacheUnfinishedRequest on each decode
// checkpoint, CacheFinishedRequest on completion, and Evict when the
// token pool reports memory pressure. It is not internally
// synchronized (spec §5): every exported method must run to
// completion on one goroutine before another is called.
type Cache struct {
	tree *prefixTree
	pool TokenPool

	disabled bool
	log      *slog.Logger
	metrics  *metrics

	// inCallback is set while pool.Free runs (spec §5: the callback
	// "must itself not re-enter the cache"). A re-entrant call that
	// itself frees slots panics; methods that free nothing do not check
	// it.
	inCallback bool
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithDisabled puts the cache in disable mode: every operation
// degenerates to a pass-through (spec §4.E), preserving the interface
// for A/B benchmarking without the cache actually caching anything.
func WithDisabled() Option {
	return func(c *Cache) { c.disabled = true }
}

// WithLogger attaches a structured logger for eviction and reset
// events. A Cache built without this option logs nothing.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics attaches a Prometheus collector set built by NewMetrics.
// A Cache built without this option records no metrics.
func WithMetrics(m *metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// NewCache constructs a Cache backed by pool. Every path that releases
// slots calls pool.Free: Evict, the redundant-slot free in
// CacheUnfinishedRequest/CacheFinishedRequest, and the disabled-mode
// pass-through of CacheFinishedRequest. A nil pool therefore panics
// the first time any slot is released.
func NewCache(pool TokenPool, opts ...Option) *Cache {
	c := &Cache{
		tree: newPrefixTree(),
		pool: pool,
		log:  nopLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.setGauges(0, 0)
	return c
}

func (c *Cache) enterCallback() {
	if c.inCallback {
		panic("radixcache: cache mutated from within the free callback")
	}
	c.inCallback = true
}

func (c *Cache) exitCallback() {
	c.inCallback = false
}

// MatchPrefix locates the longest cached prefix of tokens. It is a
// pure read: it updates recency timestamps but does not pin anything.
// Empty input, and disabled mode, both return (nil, root).
func (c *Cache) MatchPrefix(tokens Tokens) (Slots, *TreeNode) {
	if c.disabled {
		return nil, c.tree.root
	}
	slots, node := c.tree.matchPrefix(tokens)
	c.metrics.observeMatch(len(slots))
	return slots, node
}

// Insert installs tokens/slots as a path in the tree and returns the
// length of the prefix that was already present. Disabled mode always
// returns 0 without touching the tree.
func (c *Cache) Insert(tokens Tokens, slots Slots) int {
	if c.disabled {
		return 0
	}
	n := c.tree.insert(tokens, slots)
	c.metrics.setGauges(c.tree.evictableSize, c.tree.totalSize())
	return n
}

// Pin increments the pin counter along the path from node to the
// root. No-op in disabled mode.
func (c *Cache) Pin(node *TreeNode) {
	if c.disabled {
		return
	}
	c.tree.pin(node)
}

// Unpin decrements the pin counter along the path from node to the
// root. No-op in disabled mode.
func (c *Cache) Unpin(node *TreeNode) {
	if c.disabled {
		return
	}
	c.tree.unpin(node)
}

// CacheUnfinishedRequest inserts req's current fill tokens, frees the
// slots that were already present and redundantly re-allocated,
// re-matches to find the updated tip, rewrites req's slot-pool row
// over the newly-covered range, and swaps the pin from the old tip to
// the new one (spec §4.E).
func (c *Cache) CacheUnfinishedRequest(req *Request, rowPool RequestSlotPool) {
	if c.disabled {
		return
	}

	tokenIDs := req.FillIDs
	slots := rowPool.ReqToToken(req.ReqPoolIdx, len(tokenIDs))
	slotsCopy := make(Slots, len(slots))
	copy(slotsCopy, slots)

	oldPrefixLen := len(req.PrefixIndices)
	newPrefixLen := c.tree.insert(tokenIDs, slotsCopy)
	c.freeCallback(slots[oldPrefixLen:newPrefixLen])

	newIndices, newLastNode := c.tree.matchPrefix(tokenIDs)

	rowPool.SetReqToToken(req.ReqPoolIdx, oldPrefixLen, len(newIndices), newIndices[oldPrefixLen:])

	c.tree.unpin(req.LastNode)
	c.tree.pin(newLastNode)

	req.PrefixIndices = newIndices
	req.LastNode = newLastNode

	c.metrics.setGauges(c.tree.evictableSize, c.tree.totalSize())
}

// CacheFinishedRequest performs the same insert/free as
// CacheUnfinishedRequest, then releases the request's slot-pool row
// and unpins its tip without re-pinning (spec §4.E).
func (c *Cache) CacheFinishedRequest(req *Request, rowPool RequestSlotPool) {
	tokenIDs := req.FillIDs
	slots := rowPool.ReqToToken(req.ReqPoolIdx, len(tokenIDs))

	if c.disabled {
		c.freeCallback(slots)
		rowPool.FreeReq(req.ReqPoolIdx)
		return
	}

	slotsCopy := make(Slots, len(slots))
	copy(slotsCopy, slots)

	oldPrefixLen := len(req.PrefixIndices)
	newPrefixLen := c.tree.insert(tokenIDs, slotsCopy)
	c.freeCallback(slots[oldPrefixLen:newPrefixLen])

	rowPool.FreeReq(req.ReqPoolIdx)
	c.tree.unpin(req.LastNode)

	c.metrics.setGauges(c.tree.evictableSize, c.tree.totalSize())
}

func (c *Cache) freeCallback(slots Slots) {
	if len(slots) == 0 {
		return
	}
	c.enterCallback()
	defer c.exitCallback()
	c.pool.Free(slots)
}

// Evict frees cached KV slots from unpinned leaves, oldest first,
// until at least numTokens have been freed or no further progress is
// possible. reserved, if non-nil, spares any node it contains (e.g.
// the tips of queued-but-not-yet-scheduled requests) even though
// unpinned. No-op in disabled mode.
func (c *Cache) Evict(numTokens int, reserved map[*TreeNode]struct{}) EvictResult {
	if c.disabled {
		return EvictResult{Progressed: true}
	}

	res := c.tree.evict(numTokens, c.freeCallback, reserved)

	logEvict(c.log, numTokens, res)
	c.metrics.observeEvict(res)
	c.metrics.setGauges(c.tree.evictableSize, c.tree.totalSize())

	return res
}

// EvictableSize returns the aggregate slot count held in unpinned,
// non-root nodes: the upper bound on what one Evict call can free.
func (c *Cache) EvictableSize() int {
	return c.tree.evictableSize
}

// TotalSize recomputes the total slot count held anywhere in the tree.
func (c *Cache) TotalSize() int {
	return c.tree.totalSize()
}

// Reset drops the entire tree and re-initializes it with a root whose
// lock count is 1 and evictable size is 0. Slots previously held are
// not returned through the pool — Reset assumes the caller is tearing
// down or has already drained the pool (spec §4.E).
func (c *Cache) Reset() {
	freed := c.tree.totalSize()
	c.tree = newPrefixTree()
	logReset(c.log, freed)
	c.metrics.setGauges(0, 0)
}

// Root returns the tree's root node. Useful as the initial LastNode
// for a brand-new request.
func (c *Cache) Root() *TreeNode {
	return c.tree.root
}
