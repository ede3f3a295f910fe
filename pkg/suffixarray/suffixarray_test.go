package suffixarray

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nobletooth/ltsc/pkg/types"
)

func TestBuildSimple(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 3, 1, 2, 3}
	sa := Build(tokens)

	sorted := append([]int(nil), sa.Array...)
	sort.Ints(sorted)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, sorted)
}

func TestBuildEmpty(t *testing.T) {
	sa := Build(types.TokenSeq{})
	assert.Empty(t, sa.Array)
	assert.Empty(t, sa.LCP)
}

func TestBuildSingle(t *testing.T) {
	sa := Build(types.TokenSeq{42})
	assert.Equal(t, []int{0}, sa.Array)
	assert.Empty(t, sa.LCP)
}

func TestBuildRepeated(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 1, 2}
	sa := Build(tokens)

	maxLCP := 0
	for _, v := range sa.LCP {
		if v > maxLCP {
			maxLCP = v
		}
	}
	assert.GreaterOrEqual(t, maxLCP, 2)
}

func TestLCPIntervals(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 3, 1, 2, 3, 1, 2, 3}
	sa := Build(tokens)

	intervals := sa.LCPIntervals(2)
	assert.NotEmpty(t, intervals)
}

func TestLCPIntervalsEmptyOnNoRepeats(t *testing.T) {
	tokens := types.TokenSeq{1, 2, 3, 4, 5}
	sa := Build(tokens)
	assert.Empty(t, sa.LCPIntervals(2))
}

func TestCountNonOverlapping(t *testing.T) {
	positions := []int{0, 2, 4, 6, 8}
	assert.Equal(t, 5, CountNonOverlapping(positions, 2))
	assert.Equal(t, 3, CountNonOverlapping(positions, 3))
}

func TestNonOverlappingPositions(t *testing.T) {
	positions := []int{0, 1, 2, 5, 6, 10}
	result := NonOverlappingPositions(positions, 3)
	assert.Equal(t, []int{0, 5, 10}, result)
}

func TestBuildAutoMatchesSequentialBelowThreshold(t *testing.T) {
	tokens := make(types.TokenSeq, 0, 50)
	for i := 0; i < 50; i++ {
		tokens = append(tokens, types.Token(i%7))
	}

	want := Build(tokens)
	got := BuildAuto(tokens, true)
	assert.Equal(t, want, got)
}

func TestBuildAutoMatchesSequentialAboveThreshold(t *testing.T) {
	n := ParallelThreshold + 500
	tokens := make(types.TokenSeq, 0, n)
	for i := 0; i < n; i++ {
		tokens = append(tokens, types.Token(i%13))
	}

	want := Build(tokens)
	got := BuildAuto(tokens, true)
	assert.Equal(t, want.Array, got.Array)
	assert.Equal(t, want.LCP, got.LCP)
}

func TestBuildAutoDisabledStaysSequential(t *testing.T) {
	n := ParallelThreshold + 10
	tokens := make(types.TokenSeq, 0, n)
	for i := 0; i < n; i++ {
		tokens = append(tokens, types.Token(i%5))
	}

	want := Build(tokens)
	got := BuildAuto(tokens, false)
	assert.Equal(t, want, got)
}
