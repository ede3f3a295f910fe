// Package discovery finds repeated token subsequences worth compressing,
// using either a suffix-array/LCP-interval sweep or a fixed-length hash-grouping
// scan, and can merge the two into a single deduplicated candidate stream.
package discovery

import (
	"iter"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/nobletooth/ltsc/pkg/scan"
	"github.com/nobletooth/ltsc/pkg/suffixarray"
	"github.com/nobletooth/ltsc/pkg/types"
	"github.com/nobletooth/ltsc/pkg/utils"
)

// Config tunes both discovery strategies.
type Config struct {
	MinLength      int
	MaxLength      int
	MinOccurrences int
	ExtraCost      int
}

// DefaultConfig mirrors the standard tuned discovery defaults.
func DefaultConfig() Config {
	return Config{MinLength: 2, MaxLength: 8, MinOccurrences: 2, ExtraCost: 1}
}

// patternKey encodes a token subsequence into a byte string suitable as both
// an exact map key and a bloom filter member.
func patternKey(pattern types.TokenSeq) []byte {
	return []byte(types.SubsequenceKey(pattern))
}

// seenSet tracks discovered patterns with a bloom filter fast-path ahead of
// the authoritative map, the same two-stage membership check an on-disk
// block index uses before a definitive read.
type seenSet struct {
	filter *bloom.BloomFilter
	exact  map[string]int
}

func newSeenSet(estimatedPatterns uint) *seenSet {
	if estimatedPatterns == 0 {
		estimatedPatterns = 1
	}
	return &seenSet{
		filter: bloom.NewWithEstimates(estimatedPatterns, 0.01),
		exact:  make(map[string]int),
	}
}

func (s *seenSet) index(pattern types.TokenSeq) (int, bool) {
	key := patternKey(pattern)
	if !s.filter.Test(key) {
		return 0, false
	}
	idx, ok := s.exact[string(key)]
	return idx, ok
}

func (s *seenSet) record(pattern types.TokenSeq, index int) {
	key := patternKey(pattern)
	s.filter.Add(key)
	s.exact[string(key)] = index
}

// DiscoverCandidates finds repeated subsequences via suffix array LCP
// intervals: every interval of suffixes sharing a prefix of length >= minLen
// is a candidate family, explored at every length up to the interval's LCP
// value.
func DiscoverCandidates(tokens types.TokenSeq, cfg Config) []types.Candidate {
	if len(tokens) < cfg.MinLength*2 {
		return nil
	}

	sa := suffixarray.Build(tokens)
	intervals := sa.LCPIntervals(cfg.MinLength)

	var candidates []types.Candidate
	seen := newSeenSet(uint(len(intervals)))

	for _, interval := range intervals {
		count := interval.End - interval.Start + 1
		if count < cfg.MinOccurrences {
			continue
		}

		positions := append([]int(nil), sa.Array[interval.Start:interval.End+1]...)

		maxLen := interval.Value
		if cfg.MaxLength < maxLen {
			maxLen = cfg.MaxLength
		}
		for length := cfg.MinLength; length <= maxLen; length++ {
			minCount := types.MinCountForCompressibility(length, cfg.ExtraCost)
			if count < minCount {
				continue
			}
			if len(positions) == 0 {
				continue
			}
			firstPos := positions[0]
			if firstPos+length > len(tokens) {
				continue
			}
			pattern := append(types.TokenSeq(nil), tokens[firstPos:firstPos+length]...)

			if _, ok := seen.index(pattern); ok {
				continue
			}

			sortedPositions := append([]int(nil), positions...)
			sort.Ints(sortedPositions)
			nonOverlapping := suffixarray.NonOverlappingPositions(sortedPositions, length)
			if len(nonOverlapping) < minCount {
				continue
			}
			if !types.IsCompressible(length, len(nonOverlapping), cfg.ExtraCost) {
				continue
			}

			seen.record(pattern, len(candidates))
			candidates = append(candidates, types.NewCandidate(pattern, nonOverlapping))
		}
	}

	sortByPotentialSavings(candidates, cfg.ExtraCost)
	return candidates
}

// computePotentialSavings estimates the token-count reduction a candidate
// would buy if every one of its occurrences were replaced.
func computePotentialSavings(c types.Candidate, extraCost int) int64 {
	return types.ComputeSavings(c.Length, len(c.Positions), extraCost)
}

func sortByPotentialSavings(candidates []types.Candidate, extraCost int) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return computePotentialSavings(candidates[i], extraCost) > computePotentialSavings(candidates[j], extraCost)
	})
}

// DiscoverFixedLength groups every length-n window by its token content via
// hashing, which is cheaper than a full suffix array when the caller already
// knows the exact pattern length to look for.
func DiscoverFixedLength(tokens types.TokenSeq, length, extraCost int) []types.Candidate {
	if len(tokens) < length || length <= 0 {
		return nil
	}

	minCount := types.MinCountForCompressibility(length, extraCost)
	positionsByPattern := make(map[string][]int)
	patternByKey := make(map[string]types.TokenSeq)

	for i := 0; i+length <= len(tokens); i++ {
		pattern := tokens[i : i+length]
		key := string(patternKey(pattern))
		positionsByPattern[key] = append(positionsByPattern[key], i)
		if _, ok := patternByKey[key]; !ok {
			patternByKey[key] = append(types.TokenSeq(nil), pattern...)
		}
	}

	var candidates []types.Candidate
	for key, positions := range positionsByPattern {
		if len(positions) < minCount {
			continue
		}
		nonOverlapping := suffixarray.NonOverlappingPositions(positions, length)
		if len(nonOverlapping) < minCount {
			continue
		}
		if !types.IsCompressible(length, len(nonOverlapping), extraCost) {
			continue
		}
		candidates = append(candidates, types.NewCandidate(patternByKey[key], nonOverlapping))
	}

	sortByPotentialSavings(candidates, extraCost)
	return candidates
}

// DiscoverHierarchical runs the interval-based discovery for up to depth
// levels. Only the first level is currently populated: applying compression
// and re-discovering on the result body is the pipeline's job, not
// discovery's, so deeper levels are left for the caller to drive.
func DiscoverHierarchical(tokens types.TokenSeq, cfg Config, depth int) [][]types.Candidate {
	var levels [][]types.Candidate
	for level := 0; level < depth; level++ {
		candidates := DiscoverCandidates(tokens, cfg)
		if len(candidates) == 0 {
			break
		}
		levels = append(levels, candidates)
		break
	}
	return levels
}

// DeduplicateCandidates merges candidates sharing the same subsequence,
// unioning their occurrence positions. First-seen order is preserved.
func DeduplicateCandidates(candidates []types.Candidate) []types.Candidate {
	seen := make(map[string]int)
	result := make([]types.Candidate, 0, len(candidates))

	for _, c := range candidates {
		key := string(patternKey(c.Subsequence))
		if idx, ok := seen[key]; ok {
			existing := &result[idx]
			merged := append(append([]int(nil), existing.Positions...), c.Positions...)
			sort.Ints(merged)
			merged = dedupInts(merged)
			existing.Positions = merged
			continue
		}
		seen[key] = len(result)
		result = append(result, c)
	}

	return result
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// DiscoverCombined runs the interval-based and fixed-length strategies side
// by side for every length in [cfg.MinLength, cfg.MaxLength] and merges their
// outputs through a priority k-way merge, favoring interval-based hits over
// fixed-length hits on a pattern collision, before deduplicating.
func DiscoverCombined(tokens types.TokenSeq, cfg Config) []types.Candidate {
	intervalCandidates := DiscoverCandidates(tokens, cfg)

	var fixedCandidates []types.Candidate
	for length := cfg.MinLength; length <= cfg.MaxLength; length++ {
		fixedCandidates = append(fixedCandidates, DiscoverFixedLength(tokens, length, cfg.ExtraCost)...)
	}

	cmp := func(a, b string) int {
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	}

	merged, err := scan.MultiHead(cmp, []iter.Seq[utils.Pair[string, types.Candidate]]{
		candidateSeq(intervalCandidates),
		candidateSeq(fixedCandidates),
	})
	if err != nil {
		utils.RaiseInvariant("discovery", "combined_merge_failed",
			"Combined discovery merge failed; falling back to interval-only candidates.", "error", err)
		return DeduplicateCandidates(intervalCandidates)
	}

	var out []types.Candidate
	for pair := range merged {
		out = append(out, pair.Value)
	}
	return DeduplicateCandidates(out)
}

// candidateSeq converts a candidate slice, sorted by subsequence key, into
// the sorted iterator sequence MultiHead expects.
func candidateSeq(candidates []types.Candidate) iter.Seq[utils.Pair[string, types.Candidate]] {
	sorted := append([]types.Candidate(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		return string(patternKey(sorted[i].Subsequence)) < string(patternKey(sorted[j].Subsequence))
	})
	return func(yield func(utils.Pair[string, types.Candidate]) bool) {
		for _, c := range sorted {
			if !yield(utils.Pair[string, types.Candidate]{Key: string(patternKey(c.Subsequence)), Value: c}) {
				return
			}
		}
	}
}
