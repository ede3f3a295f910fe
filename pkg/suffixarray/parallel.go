package suffixarray

import (
	"runtime"
	"sort"
	"sync"

	"github.com/nobletooth/ltsc/pkg/types"
)

// ParallelThreshold is the minimum input size at which BuildAuto switches to
// the parallel construction path. Below it, parallelism overhead outweighs
// the benefit, so the sequential path runs instead.
const ParallelThreshold = 10_000

// BuildAuto builds a suffix array, using the parallel doubling algorithm when
// enableParallel is true and len(tokens) >= ParallelThreshold, and the
// sequential path otherwise. Output is required to be bit-identical to
// Build(tokens) for any input.
func BuildAuto(tokens types.TokenSeq, enableParallel bool) SuffixArray {
	if !enableParallel || len(tokens) < ParallelThreshold {
		return Build(tokens)
	}
	return buildParallel(tokens)
}

// buildParallel mirrors Build, replacing the initial dense-ranking and each
// doubling iteration's sort with parallel equivalents. Rank recomputation and
// Kasai's LCP pass stay sequential: both carry data dependencies across the
// full array.
func buildParallel(tokens types.TokenSeq) SuffixArray {
	n := len(tokens)
	if n == 0 {
		return SuffixArray{}
	}

	rank := rankTokensParallel(tokens)
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
		parallelSort(sa, func(a, b int) bool {
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

// rankTokensParallel dense-ranks tokens the same way rankTokens does, but
// sorts the unique-value set and maps ranks back onto the input in parallel.
func rankTokensParallel(tokens types.TokenSeq) []int {
	unique := make([]types.Token, len(tokens))
	copy(unique, tokens)
	parallelSort(unique, func(a, b types.Token) bool { return a < b })
	unique = dedupSorted(unique)

	mapping := make(map[types.Token]int, len(unique))
	for i, t := range unique {
		mapping[t] = i + 1
	}

	rank := make([]int, len(tokens))
	parallelMap(len(tokens), func(i int) {
		rank[i] = mapping[tokens[i]]
	})
	return rank
}

// parallelSortMinSize is the smallest input that bothers splitting into
// chunks; below it the overhead of spawning goroutines and merging exceeds
// whatever a single sequential sort would have cost.
const parallelSortMinSize = 2048

// parallelSort splits data into GOMAXPROCS contiguous chunks, sorts each
// chunk concurrently, then merges the sorted chunks back into data with a
// pairwise merge tree. Within a doubling iteration, elements that compare
// equal under less always end up with the same key on the next pass, so
// their relative order after the merge doesn't affect correctness; only the
// grouping does, and the merge preserves it exactly.
func parallelSort[T any](data []T, less func(a, b T) bool) {
	n := len(data)
	if n < parallelSortMinSize {
		sort.Slice(data, func(i, j int) bool { return less(data[i], data[j]) })
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		sort.Slice(data, func(i, j int) bool { return less(data[i], data[j]) })
		return
	}

	chunkSize := (n + workers - 1) / workers
	chunks := make([][]T, 0, workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, data[start:end])
	}

	var wg sync.WaitGroup
	for _, chunk := range chunks {
		wg.Add(1)
		go func(c []T) {
			defer wg.Done()
			sort.Slice(c, func(i, j int) bool { return less(c[i], c[j]) })
		}(chunk)
	}
	wg.Wait()

	copy(data, mergeSortedChunks(chunks, less))
}

// mergeSortedChunks reduces a set of independently-sorted chunks into a
// single sorted slice by repeatedly merging adjacent pairs.
func mergeSortedChunks[T any](chunks [][]T, less func(a, b T) bool) []T {
	for len(chunks) > 1 {
		next := make([][]T, 0, (len(chunks)+1)/2)
		for i := 0; i < len(chunks); i += 2 {
			if i+1 < len(chunks) {
				next = append(next, mergeTwoSorted(chunks[i], chunks[i+1], less))
			} else {
				next = append(next, chunks[i])
			}
		}
		chunks = next
	}
	if len(chunks) == 0 {
		return nil
	}
	return chunks[0]
}

// mergeTwoSorted merges two already-sorted slices, preferring a on ties so
// the merge is deterministic regardless of chunk count or worker count.
func mergeTwoSorted[T any](a, b []T, less func(a, b T) bool) []T {
	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if less(b[j], a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// parallelMap applies fn(i) for i in [0, n) across GOMAXPROCS goroutines.
func parallelMap(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= n {
			break
		}
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}
