package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobletooth/ltsc/pkg/cache"
	"github.com/nobletooth/ltsc/pkg/types"
)

func TestCompressCached_HitReturnsSameResult(t *testing.T) {
	resultCache := cache.NewResultCache(context.Background(), 16, 2, time.Minute, time.Second)
	tokens := cyclePattern(types.TokenSeq{1, 2, 3, 4, 5}, 50)
	cfg := types.DefaultCompressionConfig()

	first, err := CompressCached(resultCache, tokens, cfg, types.DefaultNextMetaToken)
	require.NoError(t, err)

	second, err := CompressCached(resultCache, tokens, cfg, types.DefaultNextMetaToken)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompressCached_NilCacheStillWorks(t *testing.T) {
	tokens := cyclePattern(types.TokenSeq{1, 2, 3, 4, 5}, 50)
	cfg := types.DefaultCompressionConfig()

	result, err := CompressCached(nil, tokens, cfg, types.DefaultNextMetaToken)
	require.NoError(t, err)
	assert.Less(t, result.CompressedLength, result.OriginalLength)
}
