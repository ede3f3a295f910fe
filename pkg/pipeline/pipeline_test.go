package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobletooth/ltsc/pkg/types"
)

func cyclePattern(pattern types.TokenSeq, total int) types.TokenSeq {
	out := make(types.TokenSeq, total)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

func TestCompressSimple(t *testing.T) {
	tokens := cyclePattern(types.TokenSeq{1, 2, 3, 4, 5}, 50)
	cfg := types.DefaultCompressionConfig()

	result, err := Compress(tokens, cfg, types.DefaultNextMetaToken)
	require.NoError(t, err)

	assert.Less(t, result.CompressedLength, result.OriginalLength)
	assert.Less(t, result.CompressionRatio(), 1.0)
}

func TestCompressRoundTrip(t *testing.T) {
	tokens := cyclePattern(types.TokenSeq{1, 2, 3, 4, 5}, 50)
	cfg := types.DefaultCompressionConfig()
	cfg.Verify = true

	result, err := Compress(tokens, cfg, types.DefaultNextMetaToken)
	require.NoError(t, err)

	restored := Decompress(result.SerializedTokens, cfg)
	assert.Equal(t, tokens, restored)
}

func TestCompressNoCompressionSmallInput(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 3}
	cfg := types.DefaultCompressionConfig()

	result, err := Compress(tokens, cfg, types.DefaultNextMetaToken)
	require.NoError(t, err)

	assert.Equal(t, tokens, result.SerializedTokens)
	assert.Equal(t, 1.0, result.CompressionRatio())
}

func TestCompressInvalidConfig(t *testing.T) {
	cfg := types.DefaultCompressionConfig()
	cfg.MinSubsequenceLength = 1

	_, err := Compress(types.TokenSeq{1, 2, 3, 4}, cfg, types.DefaultNextMetaToken)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStreamingCompressor(t *testing.T) {
	cfg := types.DefaultCompressionConfig()
	compressor := NewStreamingCompressor(cfg)

	compressor.AddChunk(types.TokenSeq{1, 2, 3, 1, 2, 3, 1, 2, 3})
	compressor.AddChunk(types.TokenSeq{1, 2, 3, 1, 2, 3})

	result, err := compressor.Finish()
	require.NoError(t, err)
	assert.Equal(t, 15, result.OriginalLength)
}

func TestStreamingCompressorMemoryUsage(t *testing.T) {
	compressor := NewStreamingCompressor(types.DefaultCompressionConfig())
	compressor.AddChunk(types.TokenSeq{1, 2, 3})
	compressor.AddChunk(types.TokenSeq{4, 5})
	assert.Equal(t, (3+2)*4, compressor.MemoryUsage())
}

func TestDiscoverPatterns(t *testing.T) {
	tokens := cyclePattern(types.TokenSeq{1, 2, 3}, 15)
	candidates := DiscoverPatterns(tokens, 2, 4)
	assert.NotEmpty(t, candidates)
}

func TestHierarchicalCompressionStaysLossless(t *testing.T) {
	inner := cyclePattern(types.TokenSeq{1, 2}, 20)
	tokens := append(append(types.TokenSeq{}, inner...), inner...)
	tokens = append(tokens, cyclePattern(types.TokenSeq{9, 8, 7}, 30)...)

	cfg := types.DefaultCompressionConfig()
	cfg.HierarchicalMaxDepth = 3
	cfg.Verify = true

	result, err := Compress(tokens, cfg, types.DefaultNextMetaToken)
	require.NoError(t, err)

	restored := Decompress(result.SerializedTokens, cfg)
	assert.Equal(t, tokens, restored)
}
