package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nobletooth/ltsc/pkg/types"
)

func makeCandidate(subseq types.TokenSeq, positions []int) types.Candidate {
	return types.NewCandidate(subseq, positions)
}

func TestSelectGreedyEmpty(t *testing.T) {
	result := SelectGreedy(nil, 1)
	assert.Empty(t, result.Selected)
}

func TestSelectGreedyNotCompressible(t *testing.T) {
	cand := makeCandidate(types.TokenSeq{1, 2}, []int{0, 4, 8})
	result := SelectGreedy([]types.Candidate{cand}, 1)
	assert.Empty(t, result.Selected)
}

func TestSelectGreedyCompressible(t *testing.T) {
	cand := makeCandidate(types.TokenSeq{1, 2}, []int{0, 3, 6, 9, 12})
	result := SelectGreedy([]types.Candidate{cand}, 1)
	assert.Len(t, result.Selected, 5)
}

func TestSelectOptimalCompressible(t *testing.T) {
	cand := makeCandidate(types.TokenSeq{1, 2}, []int{0, 3, 6, 9, 12})
	result := SelectOptimal([]types.Candidate{cand}, 1)
	assert.Len(t, result.Selected, 5)
}

func TestSelectNonOverlapping(t *testing.T) {
	cand1 := makeCandidate(types.TokenSeq{1, 2, 3}, []int{0, 6, 12})
	cand2 := makeCandidate(types.TokenSeq{2, 3, 4}, []int{1, 7, 13})

	result := SelectGreedy([]types.Candidate{cand1, cand2}, 1)

	occupied := make(map[int]bool)
	for _, occ := range result.Selected {
		for p := occ.Start; p < occ.Start+occ.Length; p++ {
			assert.False(t, occupied[p], "position %d covered by multiple occurrences", p)
			occupied[p] = true
		}
	}
}

func TestSavingsDensity(t *testing.T) {
	occ := types.Occurrence{Start: 0, Length: 4, Subsequence: types.TokenSeq{1, 2, 3, 4}}
	density := savingsDensity(occ)
	assert.InDelta(t, 0.75, density, 0.001)
}

func TestSelectOccurrencesDispatch(t *testing.T) {
	cand := makeCandidate(types.TokenSeq{1, 2}, []int{0, 3, 6, 9, 12})

	greedy := SelectOccurrences([]types.Candidate{cand}, "greedy", 1)
	optimal := SelectOccurrences([]types.Candidate{cand}, "optimal", 1)
	fallback := SelectOccurrences([]types.Candidate{cand}, "unknown", 1)

	assert.Len(t, greedy.Selected, 5)
	assert.Len(t, optimal.Selected, 5)
	assert.Len(t, fallback.Selected, 5)
}
