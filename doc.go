// Package radixcache implements a prefix-sharing KV cache for an LLM
// serving runtime: a compressed trie (radix tree) keyed on token IDs,
// a pin (reference-count) discipline that protects in-use prefixes
// from eviction, and a recency-ordered eviction policy that reclaims
// storage in an external KV storage pool under memory pressure.
//
// The cache is designed for single-threaded cooperative use from a
// scheduler's event loop; it does no internal locking. Wrap a *Cache
// in an external mutex, or shard by root subtree, to use it from
// multiple goroutines.
package radixcache
