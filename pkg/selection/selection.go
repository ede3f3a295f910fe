// Package selection chooses a maximal non-overlapping subset of candidate
// occurrences to actually replace, using either a greedy density-ranked pass
// or a weighted interval-scheduling DP, each wrapped in an iterative
// viability-refinement loop that drops patterns which don't pan out.
package selection

import (
	"math"
	"sort"

	"github.com/nobletooth/ltsc/pkg/types"
)

// maxRefinementIterations bounds the compressibility refinement loop in both
// selection strategies.
const maxRefinementIterations = 10

// Result is the outcome of an occurrence selection pass.
type Result struct {
	// Selected occurrences, sorted by start position.
	Selected []types.Occurrence
}

// savingsDensity scores an occurrence by savings per position consumed, with
// a small priority bonus.
func savingsDensity(occ types.Occurrence) float64 {
	if occ.Length <= 1 {
		return 0.0
	}
	patternSavings := float64(occ.Length) - 1.0
	density := patternSavings / float64(occ.Length)
	return density + float64(occ.Priority)*0.1
}

// buildOccurrences flattens every candidate's positions into individual
// occurrences, sorted by (end, start).
func buildOccurrences(candidates []types.Candidate) []types.Occurrence {
	var occurrences []types.Occurrence
	for _, cand := range candidates {
		for _, pos := range cand.Positions {
			occurrences = append(occurrences, types.Occurrence{
				Start:       pos,
				Length:      cand.Length,
				Subsequence: cand.Subsequence,
				Priority:    cand.Priority,
				Patches:     cand.Patches[pos],
			})
		}
	}
	sort.Slice(occurrences, func(i, j int) bool {
		ei, ej := occurrences[i].End(), occurrences[j].End()
		if ei != ej {
			return ei < ej
		}
		return occurrences[i].Start < occurrences[j].Start
	})
	return occurrences
}

// estimateNonOverlappingCount estimates, for a group of occurrences sharing a
// subsequence, how many would survive a left-to-right greedy overlap filter.
func estimateNonOverlappingCount(occs []types.Occurrence) int {
	if len(occs) == 0 {
		return 0
	}
	starts := make([]int, len(occs))
	for i, o := range occs {
		starts[i] = o.Start
	}
	sort.Ints(starts)

	length := occs[0].Length
	count := 0
	nextFree := 0
	for _, pos := range starts {
		if pos >= nextFree {
			count++
			nextFree = pos + length
		}
	}
	return count
}

func subsequenceKey(seq types.TokenSeq) string {
	return types.SubsequenceKey(seq)
}

// SelectGreedy selects non-overlapping occurrences by iteratively: ranking by
// savings density, greedily accepting non-overlapping picks, then dropping
// any subsequence whose accepted count didn't clear the compressibility bar
// and retrying, up to maxRefinementIterations times.
func SelectGreedy(candidates []types.Candidate, extraCost int) Result {
	if len(candidates) == 0 {
		return Result{}
	}

	occurrences := buildOccurrences(candidates)
	if len(occurrences) == 0 {
		return Result{}
	}

	subseqToOccs := make(map[string][]int)
	for i, occ := range occurrences {
		key := subsequenceKey(occ.Subsequence)
		subseqToOccs[key] = append(subseqToOccs[key], i)
	}

	minCountCache := make(map[int]int)
	getMinCount := func(length int) int {
		if v, ok := minCountCache[length]; ok {
			return v
		}
		v := types.MinCountForCompressibility(length, extraCost)
		minCountCache[length] = v
		return v
	}

	viableSubseqs := make(map[string]bool)
	for key, indices := range subseqToOccs {
		length := occurrences[indices[0]].Length
		if len(indices) >= getMinCount(length) {
			viableSubseqs[key] = true
		}
	}

	viableIndices := make([]int, 0, len(occurrences))
	for i, occ := range occurrences {
		if viableSubseqs[subsequenceKey(occ.Subsequence)] {
			viableIndices = append(viableIndices, i)
		}
	}
	if len(viableIndices) == 0 {
		return Result{}
	}

	var selectedIndices []int
	subseqCounts := make(map[string]int)

	for iteration := 0; iteration < maxRefinementIterations; iteration++ {
		sort.SliceStable(viableIndices, func(a, b int) bool {
			ia, ib := viableIndices[a], viableIndices[b]
			da, db := savingsDensity(occurrences[ia]), savingsDensity(occurrences[ib])
			if da != db {
				return da > db
			}
			return occurrences[ia].Start < occurrences[ib].Start
		})

		selectedIndices = selectedIndices[:0]
		for k := range subseqCounts {
			delete(subseqCounts, k)
		}
		subseqLength := make(map[string]int)
		occupied := make(map[int]bool)

		for _, idx := range viableIndices {
			occ := occurrences[idx]
			clashes := false
			for p := occ.Start; p < occ.Start+occ.Length; p++ {
				if occupied[p] {
					clashes = true
					break
				}
			}
			if clashes {
				continue
			}

			selectedIndices = append(selectedIndices, idx)
			for p := occ.Start; p < occ.Start+occ.Length; p++ {
				occupied[p] = true
			}
			key := subsequenceKey(occ.Subsequence)
			subseqCounts[key]++
			subseqLength[key] = occ.Length
		}

		nonCompressible := make(map[string]bool)
		for key, count := range subseqCounts {
			if !types.IsCompressible(subseqLength[key], count, extraCost) {
				nonCompressible[key] = true
			}
		}

		if len(nonCompressible) == 0 {
			break
		}

		for key := range nonCompressible {
			delete(viableSubseqs, key)
		}
		filtered := viableIndices[:0]
		for _, idx := range viableIndices {
			if viableSubseqs[subsequenceKey(occurrences[idx].Subsequence)] {
				filtered = append(filtered, idx)
			}
		}
		viableIndices = filtered

		if len(viableIndices) == 0 {
			selectedIndices = nil
			break
		}
	}

	var finalSelected []types.Occurrence
	for _, idx := range selectedIndices {
		occ := occurrences[idx]
		count := subseqCounts[subsequenceKey(occ.Subsequence)]
		if types.IsCompressible(occ.Length, count, extraCost) {
			finalSelected = append(finalSelected, occ)
		}
	}
	sort.Slice(finalSelected, func(i, j int) bool { return finalSelected[i].Start < finalSelected[j].Start })

	return Result{Selected: finalSelected}
}

// SelectOptimal selects non-overlapping occurrences via weighted interval
// scheduling: a DP over occurrences sorted by end position, where each
// occurrence's weight trades off its raw token savings against its share of
// the dictionary entry's fixed overhead, refined the same way SelectGreedy is.
func SelectOptimal(candidates []types.Candidate, extraCost int) Result {
	if len(candidates) == 0 {
		return Result{}
	}

	occurrences := buildOccurrences(candidates)
	if len(occurrences) == 0 {
		return Result{}
	}

	subseqToOccs := make(map[string][]int)
	for i, occ := range occurrences {
		key := subsequenceKey(occ.Subsequence)
		subseqToOccs[key] = append(subseqToOccs[key], i)
	}

	viableSubseqs := make(map[string]bool)
	for key, indices := range subseqToOccs {
		length := occurrences[indices[0]].Length
		if len(indices) >= types.MinCountForCompressibility(length, extraCost) {
			viableSubseqs[key] = true
		}
	}

	viableIndices := make([]int, 0, len(occurrences))
	for i, occ := range occurrences {
		if viableSubseqs[subsequenceKey(occ.Subsequence)] {
			viableIndices = append(viableIndices, i)
		}
	}
	if len(viableIndices) == 0 {
		return Result{}
	}

	var selectedIndices []int
	grouped := make(map[string][]int)

	for iteration := 0; iteration < maxRefinementIterations; iteration++ {
		sort.SliceStable(viableIndices, func(a, b int) bool {
			ia, ib := viableIndices[a], viableIndices[b]
			ea, eb := occurrences[ia].End(), occurrences[ib].End()
			if ea != eb {
				return ea < eb
			}
			return occurrences[ia].Start < occurrences[ib].Start
		})

		if len(viableIndices) == 0 {
			return Result{}
		}

		n := len(viableIndices)
		ends := make([]int, n)
		for i, idx := range viableIndices {
			ends[i] = occurrences[idx].End()
		}

		p := make([]int, n)
		for i := 0; i < n; i++ {
			occStart := occurrences[viableIndices[i]].Start
			lo, hi, found := 0, i-1, -1
			for lo <= hi {
				mid := (lo + hi) / 2
				if ends[mid] <= occStart {
					found = mid
					lo = mid + 1
				} else {
					hi = mid - 1
				}
			}
			p[i] = found
		}

		subseqExpected := make(map[string]int)
		bySubseq := make(map[string][]types.Occurrence)
		for _, idx := range viableIndices {
			key := subsequenceKey(occurrences[idx].Subsequence)
			bySubseq[key] = append(bySubseq[key], occurrences[idx])
		}
		for key, occs := range bySubseq {
			subseqExpected[key] = estimateNonOverlappingCount(occs)
		}

		weights := make([]float64, n)
		for i, idx := range viableIndices {
			occ := occurrences[idx]
			key := subsequenceKey(occ.Subsequence)
			expected := subseqExpected[key]
			if expected == 0 {
				expected = 1
			}
			dictCost := float64(1+occ.Length+extraCost) / float64(expected)
			savings := float64(occ.Length) - 1.0 - dictCost
			weights[i] = math.Max(savings, 0.0) + float64(occ.Priority)*0.5
		}

		dp := make([]float64, n)
		choose := make([]bool, n)
		for i := 0; i < n; i++ {
			take := weights[i]
			if p[i] >= 0 {
				take += dp[p[i]]
			}
			skip := 0.0
			if i > 0 {
				skip = dp[i-1]
			}
			if take > skip {
				dp[i] = take
				choose[i] = true
			} else {
				dp[i] = skip
			}
		}

		selectedIndices = selectedIndices[:0]
		for i := n - 1; i >= 0; {
			if choose[i] {
				selectedIndices = append(selectedIndices, viableIndices[i])
				i = p[i]
			} else {
				i--
			}
		}
		for l, r := 0, len(selectedIndices)-1; l < r; l, r = l+1, r-1 {
			selectedIndices[l], selectedIndices[r] = selectedIndices[r], selectedIndices[l]
		}

		for k := range grouped {
			delete(grouped, k)
		}
		for _, idx := range selectedIndices {
			key := subsequenceKey(occurrences[idx].Subsequence)
			grouped[key] = append(grouped[key], idx)
		}

		nonCompressible := make(map[string]bool)
		for key, indices := range grouped {
			length := occurrences[indices[0]].Length
			if !types.IsCompressible(length, len(indices), extraCost) {
				nonCompressible[key] = true
			}
		}

		if len(nonCompressible) == 0 {
			break
		}

		for key := range nonCompressible {
			delete(viableSubseqs, key)
		}
		filtered := viableIndices[:0]
		for _, idx := range viableIndices {
			if viableSubseqs[subsequenceKey(occurrences[idx].Subsequence)] {
				filtered = append(filtered, idx)
			}
		}
		viableIndices = filtered
	}

	var finalSelected []types.Occurrence
	for _, indices := range grouped {
		length := occurrences[indices[0]].Length
		if types.IsCompressible(length, len(indices), extraCost) {
			for _, idx := range indices {
				finalSelected = append(finalSelected, occurrences[idx])
			}
		}
	}
	sort.Slice(finalSelected, func(i, j int) bool { return finalSelected[i].Start < finalSelected[j].Start })

	return Result{Selected: finalSelected}
}

// SelectOccurrences dispatches to SelectGreedy or SelectOptimal by mode,
// defaulting to greedy for any unrecognized value.
func SelectOccurrences(candidates []types.Candidate, mode string, extraCost int) Result {
	switch mode {
	case "optimal":
		return SelectOptimal(candidates, extraCost)
	default:
		return SelectGreedy(candidates, extraCost)
	}
}
