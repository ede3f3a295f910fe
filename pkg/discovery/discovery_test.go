package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nobletooth/ltsc/pkg/types"
)

func TestDiscoverCandidatesEmpty(t *testing.T) {
	assert.Empty(t, DiscoverCandidates(nil, DefaultConfig()))
}

func TestDiscoverCandidatesTooShort(t *testing.T) {
	assert.Empty(t, DiscoverCandidates(types.TokenSeq{1, 2}, DefaultConfig()))
}

func TestDiscoverCandidatesRepeatedPattern(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3}
	cfg := Config{MinLength: 2, MaxLength: 4, MinOccurrences: 2, ExtraCost: 1}

	candidates := DiscoverCandidates(tokens, cfg)
	assert.NotEmpty(t, candidates)

	for _, c := range candidates {
		assert.True(t, types.IsCompressible(c.Length, len(c.Positions), cfg.ExtraCost))
	}
}

func TestDiscoverCandidatesSortedBySavingsDescending(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 3, 1, 2, 3, 1, 2, 3, 4, 5, 4, 5}
	cfg := Config{MinLength: 2, MaxLength: 4, MinOccurrences: 2, ExtraCost: 1}

	candidates := DiscoverCandidates(tokens, cfg)
	for i := 1; i < len(candidates); i++ {
		prev := computePotentialSavings(candidates[i-1], cfg.ExtraCost)
		curr := computePotentialSavings(candidates[i], cfg.ExtraCost)
		assert.GreaterOrEqual(t, prev, curr)
	}
}

func TestDiscoverFixedLength(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 1, 2, 1, 2, 1, 2, 1, 2}
	candidates := DiscoverFixedLength(tokens, 2, 1)

	assert.NotEmpty(t, candidates)
	found := false
	for _, c := range candidates {
		if equalSeq(c.Subsequence, types.TokenSeq{1, 2}) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiscoverFixedLengthNonOverlapping(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 1, 2, 1, 2}
	candidates := DiscoverFixedLength(tokens, 2, 1)

	for _, c := range candidates {
		prevEnd := 0
		for _, pos := range c.Positions {
			assert.GreaterOrEqual(t, pos, prevEnd)
			prevEnd = pos + c.Length
		}
	}
}

func TestDeduplicateCandidates(t *testing.T) {
	c1 := types.NewCandidate(types.TokenSeq{1, 2}, []int{0, 4, 8})
	c2 := types.NewCandidate(types.TokenSeq{1, 2}, []int{2, 6, 10})
	c3 := types.NewCandidate(types.TokenSeq{3, 4}, []int{1, 5})

	result := DeduplicateCandidates([]types.Candidate{c1, c2, c3})
	assert.Len(t, result, 2)

	for _, c := range result {
		if equalSeq(c.Subsequence, types.TokenSeq{1, 2}) {
			assert.Len(t, c.Positions, 6)
		}
	}
}

func TestComputePotentialSavings(t *testing.T) {
	c := types.NewCandidate(types.TokenSeq{1, 2, 3}, []int{0, 4, 8, 12, 16})
	assert.Equal(t, int64(5), computePotentialSavings(c, 1))
}

func TestDiscoverHierarchicalSingleLevel(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3}
	levels := DiscoverHierarchical(tokens, DefaultConfig(), 3)
	assert.Len(t, levels, 1)
}

func TestDiscoverCombinedMergesBothStrategies(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 3, 1, 2, 3, 1, 2, 3, 4, 5, 4, 5, 4, 5}
	cfg := Config{MinLength: 2, MaxLength: 3, MinOccurrences: 2, ExtraCost: 1}

	combined := DiscoverCombined(tokens, cfg)
	assert.NotEmpty(t, combined)

	seen := make(map[string]bool)
	for _, c := range combined {
		key := string(patternKey(c.Subsequence))
		assert.False(t, seen[key], "combined discovery must not yield duplicate subsequences")
		seen[key] = true
	}
}

func equalSeq(a, b types.TokenSeq) bool {
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
