package pipeline

import (
	"github.com/nobletooth/ltsc/pkg/cache"
	"github.com/nobletooth/ltsc/pkg/types"
)

// CompressCached wraps Compress with a ResultCache lookup: an exact repeat of
// tokens returns the previously computed result without re-running discovery,
// selection, or dictionary building. A miss falls through to Compress and
// populates the cache for next time.
func CompressCached(resultCache *cache.ResultCache, tokens types.TokenSeq, cfg types.CompressionConfig,
	nextMetaToken types.Token) (types.CompressionResult, error) {
	if resultCache != nil {
		if cached, ok := resultCache.Get(tokens); ok {
			return cached, nil
		}
	}

	result, err := Compress(tokens, cfg, nextMetaToken)
	if err != nil {
		return types.CompressionResult{}, err
	}
	if resultCache != nil {
		resultCache.Put(tokens, result)
	}
	return result, nil
}
