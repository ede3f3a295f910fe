// Package ltsc is the public entry point for lossless token sequence
// compression: Compress, Decompress, DiscoverPatterns, and a StreamingCompressor
// for producers that build a token sequence incrementally. Everything here is
// a thin, documented wrapper around the internal discovery/selection/dictionary
// pipeline, kept stable so callers don't need to reach into pkg/pipeline directly.
package ltsc

import (
	"context"
	"time"

	"github.com/nobletooth/ltsc/pkg/cache"
	"github.com/nobletooth/ltsc/pkg/pipeline"
	"github.com/nobletooth/ltsc/pkg/types"
)

// FormatVersion identifies the wire framing this package produces. It is
// informational only: it is never written into a serialized token stream, so
// bumping it doesn't by itself require a migration.
const FormatVersion uint32 = 1

// Config, Candidate, Occurrence, and CompressionResult are re-exported so
// callers don't need to import pkg/types directly for common usage.
type (
	Config            = types.CompressionConfig
	Candidate         = types.Candidate
	Occurrence        = types.Occurrence
	CompressionResult = types.CompressionResult
	Token             = types.Token
	TokenSeq          = types.TokenSeq
)

// DefaultConfig returns the standard tuned compression configuration.
func DefaultConfig() Config {
	return types.DefaultCompressionConfig()
}

// ErrInvalidConfig and ErrVerificationFailed are re-exported so callers can
// errors.Is against them without importing pkg/pipeline.
var (
	ErrInvalidConfig      = pipeline.ErrInvalidConfig
	ErrVerificationFailed = pipeline.ErrVerificationFailed
)

// Compress runs discovery, selection, and dictionary building over tokens,
// returning a CompressionResult whose SerializedTokens is either the
// dictionary-framed compressed stream or, when nothing was worth replacing,
// the original tokens unchanged (NoCompression, not an error).
func Compress(tokens TokenSeq, cfg Config) (CompressionResult, error) {
	return pipeline.Compress(tokens, cfg, cfg.NextMetaToken)
}

// Decompress reverses Compress: it parses the dictionary frame out of tokens
// and expands meta-tokens in the body back to their original subsequences.
func Decompress(tokens TokenSeq, cfg Config) TokenSeq {
	return pipeline.Decompress(tokens, cfg)
}

// DiscoverPatterns exposes raw repeated-subsequence discovery without running
// a full compress, for analysis or building a static dictionary ahead of time.
func DiscoverPatterns(tokens TokenSeq, minLength, maxLength int) []Candidate {
	return pipeline.DiscoverPatterns(tokens, minLength, maxLength)
}

// StreamingCompressor accumulates token chunks and compresses them as a
// single sequence once Finish is called.
type StreamingCompressor = pipeline.StreamingCompressor

// NewStreamingCompressor builds a StreamingCompressor against cfg.
func NewStreamingCompressor(cfg Config) *StreamingCompressor {
	return pipeline.NewStreamingCompressor(cfg)
}

// ResultCache memoizes Compress outcomes by exact input token sequence.
type ResultCache = cache.ResultCache

// NewResultCache builds a ResultCache with capacity entries spread across
// shardCount shards, each entry expiring after ttl.
func NewResultCache(ctx context.Context, capacity, shardCount int, ttl time.Duration) *ResultCache {
	return cache.NewResultCache(ctx, capacity, shardCount, ttl, ttl/4+time.Second)
}

// CompressCached is Compress backed by a ResultCache: an exact repeat of
// tokens returns the cached result without re-running the pipeline.
func CompressCached(resultCache *ResultCache, tokens TokenSeq, cfg Config) (CompressionResult, error) {
	return pipeline.CompressCached(resultCache, tokens, cfg, cfg.NextMetaToken)
}
