package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobletooth/ltsc/pkg/types"
)

func TestResultCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	rc := NewResultCache(ctx, 10 /*capacity*/, 2 /*shardCount*/, time.Minute /*ttl*/, time.Second /*tickInterval*/)

	tokens := types.TokenSeq{1, 2, 3, 1, 2, 3}
	_, found := rc.Get(tokens)
	assert.False(t, found, "should miss before anything is cached")

	want := types.CompressionResult{OriginalLength: len(tokens), CompressedLength: 4}
	rc.Put(tokens, want)

	got, found := rc.Get(tokens)
	require.True(t, found, "should hit after Put")
	assert.Equal(t, want, got)
}

func TestResultCache_DistinctSequencesDontCollide(t *testing.T) {
	ctx := context.Background()
	rc := NewResultCache(ctx, 10, 4, time.Minute, time.Second)

	a := types.TokenSeq{1, 2, 3}
	b := types.TokenSeq{3, 2, 1}
	rc.Put(a, types.CompressionResult{OriginalLength: 3, CompressedLength: 1})
	rc.Put(b, types.CompressionResult{OriginalLength: 3, CompressedLength: 2})

	gotA, _ := rc.Get(a)
	gotB, _ := rc.Get(b)
	assert.Equal(t, 1, gotA.CompressedLength)
	assert.Equal(t, 2, gotB.CompressedLength)
}

func TestResultCache_PurgeClearsEverything(t *testing.T) {
	ctx := context.Background()
	rc := NewResultCache(ctx, 10, 1, time.Minute, time.Second)

	tokens := types.TokenSeq{5, 6, 7}
	rc.Put(tokens, types.CompressionResult{OriginalLength: 3})
	rc.Purge()

	_, found := rc.Get(tokens)
	assert.False(t, found, "Purge should evict every cached entry")
}
