package radixcache

import (
	"math"
	"runtime"
)

// ShardMapper maps a request's first token to a shard index. Good
// mappers distribute first tokens roughly uniformly.
type ShardMapper interface {
	Shard(first TokenID, numShards int) int
}

// modMapper is the default ShardMapper: first token modulo shard
// count. Adequate when the vocabulary is large relative to numShards,
// mirroring the teacher's StringMapper XOR-of-bytes default.
type modMapper struct{}

func (modMapper) Shard(first TokenID, numShards int) int {
	s := int(first) % numShards
	if s < 0 {
		s += numShards
	}
	return s
}

// ShardedCache shards an otherwise single-threaded Cache by root
// subtree: every request's tokens are routed, by their first token, to
// one of N independent Cache instances, each safe to drive from its
// own goroutine. This is the architecture spec §5 prescribes as the
// alternative to wrapping a single Cache in one external mutex:
// "re-architect to shard by root subtree". Generalized from the
// teacher's Sharded[K,V] (github.com/c-pro/geche/shard.go), which
// shards by a full key hash rather than by first-token — the tree's
// own prefix locality makes first-token sharding the natural choice
// here, since everything under one root subtree already lives on one
// shard.
type ShardedCache struct {
	N      int
	shards []*Cache
	mapper ShardMapper
}

// NewShardedCache creates numShards Cache instances via factory and
// returns a ShardedCache that routes by keyMapper (or the default
// modulo mapper if keyMapper is nil). numShards <= 0 picks the nearest
// power of two at or above runtime.NumCPU(), matching the teacher's
// defaultShardNumber.
func NewShardedCache(factory func() *Cache, numShards int, keyMapper ShardMapper) *ShardedCache {
	if numShards <= 0 {
		numShards = defaultShardNumber()
	}
	if keyMapper == nil {
		keyMapper = modMapper{}
	}

	s := &ShardedCache{N: numShards, mapper: keyMapper}
	for i := 0; i < numShards; i++ {
		s.shards = append(s.shards, factory())
	}
	return s
}

func defaultShardNumber() int {
	return 1 << int(math.Ceil(math.Log2(float64(runtime.NumCPU()))))
}

func (s *ShardedCache) shardFor(tokens Tokens) *Cache {
	if len(tokens) == 0 {
		return s.shards[0]
	}
	return s.shards[s.mapper.Shard(tokens[0], s.N)]
}

// RootFor returns the root node of the shard that owns tokens' first
// token, for use as a new Request's initial LastNode.
func (s *ShardedCache) RootFor(tokens Tokens) *TreeNode {
	return s.shardFor(tokens).Root()
}

// MatchPrefix routes to the shard owning tokens' first token.
func (s *ShardedCache) MatchPrefix(tokens Tokens) (Slots, *TreeNode) {
	return s.shardFor(tokens).MatchPrefix(tokens)
}

// Insert routes to the shard owning tokens' first token.
func (s *ShardedCache) Insert(tokens Tokens, slots Slots) int {
	return s.shardFor(tokens).Insert(tokens, slots)
}

// CacheUnfinishedRequest routes to the shard owning req's first token.
// A request's first token never changes across its lifetime, so it
// always lands on the same shard as its earlier checkpoints.
func (s *ShardedCache) CacheUnfinishedRequest(req *Request, rowPool RequestSlotPool) {
	s.shardFor(req.FillIDs).CacheUnfinishedRequest(req, rowPool)
}

// CacheFinishedRequest routes to the shard owning req's first token.
func (s *ShardedCache) CacheFinishedRequest(req *Request, rowPool RequestSlotPool) {
	s.shardFor(req.FillIDs).CacheFinishedRequest(req, rowPool)
}

// Evict asks every shard to free its fair share of numTokens, in
// shard order, stopping early once the total meets the target.
func (s *ShardedCache) Evict(numTokens int, reserved map[*TreeNode]struct{}) EvictResult {
	perShard := numTokens / s.N
	if perShard == 0 {
		perShard = numTokens
	}

	total := EvictResult{Progressed: true}
	for _, shard := range s.shards {
		if total.TokensFreed >= numTokens {
			break
		}
		res := shard.Evict(perShard, reserved)
		total.TokensFreed += res.TokensFreed
	}
	total.Progressed = total.TokensFreed >= numTokens
	return total
}

// EvictableSize sums every shard's evictable size.
func (s *ShardedCache) EvictableSize() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.EvictableSize()
	}
	return total
}

// TotalSize sums every shard's total size.
func (s *ShardedCache) TotalSize() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.TotalSize()
	}
	return total
}

// Reset resets every shard.
func (s *ShardedCache) Reset() {
	for _, shard := range s.shards {
		shard.Reset()
	}
}
