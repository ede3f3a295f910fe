package cache

import (
	"context"
	"time"

	"github.com/nobletooth/ltsc/pkg/types"
)

// ResultCache memoizes Compress outcomes by the exact token sequence that
// produced them. Callers that re-compress the same or overlapping windows
// repeatedly (a streaming producer replaying a chunk, a batch job retrying
// after a partial failure) skip discovery, selection, and dictionary building
// entirely on a hit.
type ResultCache struct {
	layer Layer[string, types.CompressionResult]
	ttl   time.Duration
}

// NewResultCache builds a ResultCache backed by a sharded HyperClock: shardCount
// shards, each holding up to capacity/shardCount entries, evicted by the CLOCK
// second-chance algorithm once full and reaped on tickInterval once past ttl.
// Pass shardCount of 1 for a single unsharded HyperClock.
func NewResultCache(ctx context.Context, capacity, shardCount int, ttl, tickInterval time.Duration) *ResultCache {
	perShard := capacity / shardCount
	if perShard < 1 {
		perShard = 1
	}
	sharded := NewShardedCache(func() Layer[string, types.CompressionResult] {
		return NewHyperClock[string, types.CompressionResult](ctx, perShard, tickInterval, nil)
	}, shardCount)
	return &ResultCache{layer: sharded, ttl: ttl}
}

// Get looks up a previously cached CompressionResult for tokens.
func (r *ResultCache) Get(tokens types.TokenSeq) (types.CompressionResult, bool) {
	return r.layer.Get(types.SubsequenceKey(tokens))
}

// Put records result under tokens' key, evicting an older entry if its shard
// is full.
func (r *ResultCache) Put(tokens types.TokenSeq, result types.CompressionResult) {
	r.layer.Add(types.SubsequenceKey(tokens), result, r.ttl)
}

// Purge drops every cached result.
func (r *ResultCache) Purge() {
	r.layer.Purge()
}
