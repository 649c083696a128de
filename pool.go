package radixcache

// TokenPool is the external KV-slot storage pool. The cache never
// allocates or frees tensors itself; it only returns slot indices to
// the pool when it evicts or drops them, and trusts the pool to have
// supplied every slot index that ever appears in a request's token
// row. Out of scope per spec §1; consumed only through this interface.
type TokenPool interface {
	// Free returns a batch of KV-slot indices to the pool. The pool
	// does not assume idempotence: the cache must call Free exactly
	// once per index it releases.
	Free(Slots)
}

// RequestSlotPool accessors the per-request row of slot indices
// assigned to a request's token positions, supporting in-place
// assignment over subranges. Out of scope per spec §1.
type RequestSlotPool interface {
	// ReqToToken returns the slot indices assigned to reqPoolIdx's
	// first n positions.
	ReqToToken(reqPoolIdx int, n int) Slots
	// SetReqToToken overwrites reqPoolIdx's token row over [start, end)
	// with the given canonical slot indices.
	SetReqToToken(reqPoolIdx int, start, end int, indices Slots)
	// FreeReq releases a request's slot-pool row.
	FreeReq(reqPoolIdx int)
}

// Request is the scheduler's in-flight request object. The cache only
// reads FillIDs and ReqPoolIdx, and mutates PrefixIndices/LastNode.
// Out of scope per spec §1.
type Request struct {
	// FillIDs is the token sequence to cache: the request's current
	// input and generated tokens up to (but not including) the
	// position still being decoded.
	FillIDs Tokens
	// ReqPoolIdx is this request's handle in the request-slot pool.
	ReqPoolIdx int
	// PrefixIndices is the slot-index sequence the cache has matched
	// for this request so far. Updated by CacheUnfinishedRequest.
	PrefixIndices Slots
	// LastNode is the deepest tree node this request currently pins.
	// Updated by CacheUnfinishedRequest; CacheFinishedRequest unpins it
	// and leaves the field as it is.
	LastNode *TreeNode
}
