// Package suffixarray builds a suffix array and LCP array over a token
// sequence using prefix doubling and Kasai's algorithm, and enumerates the
// LCP intervals that mark repeated substrings.
package suffixarray

import (
	"sort"

	"github.com/nobletooth/ltsc/pkg/types"
)

// SuffixArray pairs a suffix array with its LCP array over the same token
// sequence. Array[i] is the start position of the i-th lexicographically
// smallest suffix; LCP[i] is the shared prefix length between Array[i] and
// Array[i+1].
type SuffixArray struct {
	Array []int
	LCP   []int
}

// Build constructs the suffix array and LCP array for tokens using the
// doubling algorithm. Time complexity O(n log^2 n).
func Build(tokens types.TokenSeq) SuffixArray {
	n := len(tokens)
	if n == 0 {
		return SuffixArray{}
	}

	rank := rankTokens(tokens)
	sa := make([]int, n)
	for i := range sa {
		sa[i] = i
	}
	tmp := make([]int, n)

	keyAt := func(i, k int) (int, int) {
		second := 0
		if i+k < n {
			second = rank[i+k]
		}
		return rank[i], second
	}

	for k := 1; ; k *= 2 {
		sort.Slice(sa, func(i, j int) bool {
			a, b := sa[i], sa[j]
			ra, rak := keyAt(a, k)
			rb, rbk := keyAt(b, k)
			if ra != rb {
				return ra < rb
			}
			return rak < rbk
		})

		tmp[sa[0]] = 1
		for i := 1; i < n; i++ {
			prev, curr := sa[i-1], sa[i]
			pr, prk := keyAt(prev, k)
			cr, crk := keyAt(curr, k)
			inc := 0
			if pr != cr || prk != crk {
				inc = 1
			}
			tmp[curr] = tmp[prev] + inc
		}
		copy(rank, tmp)

		if rank[sa[n-1]] == n {
			break
		}
	}

	return SuffixArray{Array: sa, LCP: buildLCP(tokens, sa)}
}

// rankTokens dense-ranks tokens by value: the k-th smallest distinct value
// gets rank k (1-indexed), so the smallest value gets rank 1.
func rankTokens(tokens types.TokenSeq) []int {
	unique := make([]types.Token, len(tokens))
	copy(unique, tokens)
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	unique = dedupSorted(unique)

	mapping := make(map[types.Token]int, len(unique))
	for i, t := range unique {
		mapping[t] = i + 1
	}

	rank := make([]int, len(tokens))
	for i, t := range tokens {
		rank[i] = mapping[t]
	}
	return rank
}

func dedupSorted(tokens []types.Token) []types.Token {
	if len(tokens) == 0 {
		return tokens
	}
	out := tokens[:1]
	for _, t := range tokens[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}

// buildLCP computes LCP via Kasai's algorithm. Time complexity O(n).
func buildLCP(tokens types.TokenSeq, sa []int) []int {
	n := len(tokens)
	if n == 0 {
		return nil
	}
	lcp := make([]int, n-1)

	inv := make([]int, n)
	for i, idx := range sa {
		inv[idx] = i
	}

	h := 0
	for i := 0; i < n; i++ {
		pos := inv[i]
		if pos == n-1 {
			h = 0
			continue
		}
		j := sa[pos+1]
		for i+h < n && j+h < n && tokens[i+h] == tokens[j+h] {
			h++
		}
		lcp[pos] = h
		if h > 0 {
			h--
		}
	}
	return lcp
}

// Interval is a maximal LCP interval [Start, End] (inclusive SA indices)
// whose pairwise LCPs are all >= Value.
type Interval struct {
	Start, End, Value int
}

// LCPIntervals enumerates LCP intervals with Value >= minLen using a
// monotonic stack.
func (sa SuffixArray) LCPIntervals(minLen int) []Interval {
	if len(sa.LCP) == 0 {
		return nil
	}

	type frame struct{ start, lcp int }
	var stack []frame
	var intervals []Interval

	for i, lcpValue := range sa.LCP {
		start := i
		for len(stack) > 0 && stack[len(stack)-1].lcp > lcpValue {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.lcp >= minLen {
				intervals = append(intervals, Interval{Start: top.start, End: i, Value: top.lcp})
			}
			start = top.start
		}
		if len(stack) == 0 || stack[len(stack)-1].lcp < lcpValue {
			stack = append(stack, frame{start: start, lcp: lcpValue})
		}
	}

	n := len(sa.LCP)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.lcp >= minLen {
			intervals = append(intervals, Interval{Start: top.start, End: n, Value: top.lcp})
		}
	}

	return intervals
}

// CountNonOverlapping counts how many of the (sorted) positions can be kept
// without overlap when each occupies [pos, pos+length).
func CountNonOverlapping(positions []int, length int) int {
	count := 0
	nextFree := 0
	for _, pos := range positions {
		if pos >= nextFree {
			count++
			nextFree = pos + length
		}
	}
	return count
}

// NonOverlappingPositions extracts the non-overlapping subset of a sorted
// position list via left-to-right greedy acceptance.
func NonOverlappingPositions(positions []int, length int) []int {
	result := make([]int, 0, len(positions))
	nextFree := 0
	for _, pos := range positions {
		if pos >= nextFree {
			result = append(result, pos)
			nextFree = pos + length
		}
	}
	return result
}
