// Package pipeline orchestrates a full compress or decompress call: gating on
// input size, running discovery and selection, building and serializing the
// dictionary, and optionally verifying the round-trip and running further
// hierarchical passes over the body.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nobletooth/ltsc/pkg/dictionary"
	"github.com/nobletooth/ltsc/pkg/discovery"
	"github.com/nobletooth/ltsc/pkg/metrics"
	"github.com/nobletooth/ltsc/pkg/selection"
	"github.com/nobletooth/ltsc/pkg/types"
)

// ErrVerificationFailed is returned when Compress is asked to verify its own
// output (CompressionConfig.Verify) and the round-trip doesn't reproduce the
// original tokens.
var ErrVerificationFailed = errors.New("compression verification failed: round-trip mismatch")

// ErrInvalidConfig is returned when a CompressionConfig has a value no
// compression run could act on.
var ErrInvalidConfig = errors.New("invalid compression configuration")

// minHierarchicalImprovement is the minimum fractional size reduction a
// hierarchical pass must achieve over the previous serialized size to be
// kept; passes below this are discarded and hierarchical compression stops.
const minHierarchicalImprovement = 0.02

// validateConfig checks config invariants that would otherwise make discovery
// or selection misbehave silently.
func validateConfig(cfg types.CompressionConfig) error {
	if cfg.MinSubsequenceLength < 2 {
		return fmt.Errorf("%w: MinSubsequenceLength must be >= 2, got %d", ErrInvalidConfig, cfg.MinSubsequenceLength)
	}
	if cfg.MaxSubsequenceLength < cfg.MinSubsequenceLength {
		return fmt.Errorf("%w: MaxSubsequenceLength (%d) must be >= MinSubsequenceLength (%d)",
			ErrInvalidConfig, cfg.MaxSubsequenceLength, cfg.MinSubsequenceLength)
	}
	if cfg.DictStartToken == cfg.DictEndToken {
		return fmt.Errorf("%w: DictStartToken and DictEndToken must differ", ErrInvalidConfig)
	}
	if cfg.HierarchicalMaxDepth < 1 {
		return fmt.Errorf("%w: HierarchicalMaxDepth must be >= 1, got %d", ErrInvalidConfig, cfg.HierarchicalMaxDepth)
	}
	return nil
}

func discoveryConfigFrom(cfg types.CompressionConfig) discovery.Config {
	return discovery.Config{
		MinLength:      cfg.MinSubsequenceLength,
		MaxLength:      cfg.MaxSubsequenceLength,
		MinOccurrences: 2,
		ExtraCost:      cfg.ExtraCost(),
	}
}

// Compress runs a single compress call against cfg, producing either a
// compressed CompressionResult or NoCompression when no replacement would
// help. NoCompression is a normal outcome, not an error.
func Compress(tokens types.TokenSeq, cfg types.CompressionConfig, nextMetaToken types.Token) (types.CompressionResult, error) {
	if err := validateConfig(cfg); err != nil {
		return types.CompressionResult{}, err
	}
	return compressInternal(tokens, cfg, nextMetaToken)
}

func compressInternal(tokens types.TokenSeq, cfg types.CompressionConfig, nextMetaToken types.Token) (types.CompressionResult, error) {
	m := &types.CompressionMetrics{}

	if len(tokens) < cfg.MinSubsequenceLength*2 {
		return types.NoCompression(tokens), nil
	}

	discoveryCfg := discoveryConfigFrom(cfg)

	discoveryStart := metrics.Now()
	candidates := discovery.DiscoverCombined(tokens, discoveryCfg)
	m.DiscoveryTimeMS = metrics.ElapsedMS(discoveryStart)
	if len(candidates) == 0 {
		metrics.ObserveNoCompression("empty_candidates")
		return types.NoCompression(tokens), nil
	}
	m.CandidatesDiscovered = len(candidates)

	selectionStart := metrics.Now()
	selected := selection.SelectOccurrences(candidates, cfg.SelectionMode, discoveryCfg.ExtraCost)
	m.SelectionTimeMS = metrics.ElapsedMS(selectionStart)
	if len(selected.Selected) == 0 {
		metrics.ObserveNoCompression("empty_selection")
		return types.NoCompression(tokens), nil
	}
	m.CandidatesSelected = len(selected.Selected)

	dict := dictionary.BuildDictionary(selected.Selected, cfg, nextMetaToken)
	if len(dict.Entries) == 0 {
		metrics.ObserveNoCompression("empty_dictionary")
		return types.NoCompression(tokens), nil
	}

	body := dictionary.BuildBody(tokens, selected.Selected, dict)

	if len(dict.Tokens)+len(body) >= len(tokens) {
		metrics.ObserveNoCompression("no_size_reduction")
		return types.NoCompression(tokens), nil
	}

	serializeStart := metrics.Now()
	result := dictionary.SerializeResult(dict, body, tokens)
	m.SerializationTimeMS = metrics.ElapsedMS(serializeStart)
	m.TotalTimeMS = m.DiscoveryTimeMS + m.SelectionTimeMS + m.SerializationTimeMS
	result.Metrics = m

	if cfg.Verify {
		restored := dictionary.Decompress(result.SerializedTokens, dict.Entries, cfg)
		if !tokensEqual(restored, tokens) {
			slog.Error("Compression round-trip verification failed.",
				"originalLength", len(tokens), "restoredLength", len(restored))
			return types.CompressionResult{}, ErrVerificationFailed
		}
	}

	if cfg.HierarchicalEnabled && cfg.HierarchicalMaxDepth > 1 {
		result = applyHierarchical(result, cfg, nextMetaToken+types.Token(len(dict.Entries)))
	}

	metrics.ObserveCompression(result)
	return result, nil
}

// applyHierarchical re-runs discovery/selection/dictionary on the current
// body up to HierarchicalMaxDepth-1 further times, folding each accepted pass
// into the running result. A pass is kept only if it improves the serialized
// size by at least minHierarchicalImprovement; the first pass that doesn't
// stops the loop.
func applyHierarchical(result types.CompressionResult, cfg types.CompressionConfig, nextMetaToken types.Token) types.CompressionResult {
	discoveryCfg := discoveryConfigFrom(cfg)

	for depth := 1; depth < cfg.HierarchicalMaxDepth; depth++ {
		body := result.BodyTokens
		if len(body) < cfg.MinSubsequenceLength*2 {
			break
		}

		candidates := discovery.DiscoverCombined(body, discoveryCfg)
		if len(candidates) == 0 {
			break
		}

		selected := selection.SelectOccurrences(candidates, cfg.SelectionMode, discoveryCfg.ExtraCost)
		if len(selected.Selected) == 0 {
			break
		}

		newDict := dictionary.BuildDictionary(selected.Selected, cfg, nextMetaToken)
		if len(newDict.Entries) == 0 {
			break
		}

		newBody := dictionary.BuildBody(body, selected.Selected, newDict)
		newCompressedLen := len(result.DictionaryTokens) + len(newDict.Tokens) + len(newBody)

		improvement := 1.0 - float64(newCompressedLen)/float64(result.CompressedLength)
		if improvement < minHierarchicalImprovement {
			break
		}

		mergedDictTokens := mergeDictionaryFrames(result.DictionaryTokens, newDict.Tokens, cfg)

		mergedMap := make(map[types.Token]types.TokenSeq, len(result.DictionaryMap)+len(newDict.Entries))
		for mt, def := range result.DictionaryMap {
			mergedMap[mt] = def
		}
		for mt, def := range newDict.Entries {
			mergedMap[mt] = def
		}

		serialized := make(types.TokenSeq, 0, len(mergedDictTokens)+len(newBody))
		serialized = append(serialized, mergedDictTokens...)
		serialized = append(serialized, newBody...)

		result = types.CompressionResult{
			OriginalTokens:   result.OriginalTokens,
			SerializedTokens: serialized,
			DictionaryTokens: mergedDictTokens,
			BodyTokens:       newBody,
			DictionaryMap:    mergedMap,
			OriginalLength:   result.OriginalLength,
			CompressedLength: len(serialized),
			Metrics:          result.Metrics,
		}

		nextMetaToken += types.Token(len(newDict.Entries))
	}

	return result
}

// mergeDictionaryFrames splices a second dictionary frame's entries into the
// first, stripping the first frame's closing delimiter and the second
// frame's opening delimiter so the result is still a single well-formed
// DICT_START..DICT_END span.
func mergeDictionaryFrames(existing, incoming types.TokenSeq, cfg types.CompressionConfig) types.TokenSeq {
	merged := existing
	for i := len(merged) - 1; i >= 0; i-- {
		if merged[i] == cfg.DictEndToken {
			merged = merged[:i]
			break
		}
	}

	entriesStart := 0
	for i, t := range incoming {
		if t != cfg.DictStartToken {
			entriesStart = i
			break
		}
	}

	out := make(types.TokenSeq, 0, len(merged)+len(incoming)-entriesStart)
	out = append(out, merged...)
	out = append(out, incoming[entriesStart:]...)
	return out
}

func tokensEqual(a, b types.TokenSeq) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Decompress reverses Compress: it parses the dictionary frame out of tokens
// and iteratively expands meta-tokens in the body.
func Decompress(tokens types.TokenSeq, cfg types.CompressionConfig) types.TokenSeq {
	dict := dictionary.ParseDictionary(tokens, cfg)
	return dictionary.Decompress(tokens, dict, cfg)
}

// DiscoverPatterns exposes raw pattern discovery without running a full
// compress, for analysis or static-dictionary construction.
func DiscoverPatterns(tokens types.TokenSeq, minLength, maxLength int) []types.Candidate {
	cfg := discovery.Config{MinLength: minLength, MaxLength: maxLength, MinOccurrences: 2, ExtraCost: 1}
	return discovery.DiscoverCandidates(tokens, cfg)
}

// StreamingCompressor accumulates token chunks and compresses them as one
// sequence on Finish, for callers that produce tokens incrementally. Every
// added chunk is copied and kept in memory until Finish; MemoryUsage reports
// how much that is.
type StreamingCompressor struct {
	chunks        []types.TokenSeq
	cfg           types.CompressionConfig
	nextMetaToken types.Token
}

// NewStreamingCompressor builds a StreamingCompressor against cfg.
func NewStreamingCompressor(cfg types.CompressionConfig) *StreamingCompressor {
	return &StreamingCompressor{cfg: cfg, nextMetaToken: cfg.NextMetaToken}
}

// AddChunk appends a chunk of tokens to the pending sequence.
func (s *StreamingCompressor) AddChunk(tokens types.TokenSeq) {
	chunk := make(types.TokenSeq, len(tokens))
	copy(chunk, tokens)
	s.chunks = append(s.chunks, chunk)
}

// Finish concatenates every added chunk and compresses the result.
func (s *StreamingCompressor) Finish() (types.CompressionResult, error) {
	totalLen := 0
	for _, c := range s.chunks {
		totalLen += len(c)
	}
	all := make(types.TokenSeq, 0, totalLen)
	for _, c := range s.chunks {
		all = append(all, c...)
	}
	return Compress(all, s.cfg, s.nextMetaToken)
}

// MemoryUsage estimates the bytes held by pending chunks, assuming 4 bytes
// per token.
func (s *StreamingCompressor) MemoryUsage() int {
	total := 0
	for _, c := range s.chunks {
		total += len(c) * 4
	}
	return total
}
