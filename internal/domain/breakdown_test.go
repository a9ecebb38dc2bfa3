package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleRatings() []BookRating {
	return []BookRating{
		{Username: "a", Scores: allScores(5, 5, 5, 5, 4)}, // 4.8 -> 5 stars
		{Username: "b", Scores: allScores(3, 3, 3, 3, 3)}, // 3.0 -> 3 stars
		{Username: "c", Scores: allScores(1, 1, 1, 1, 1)}, // 1.0 -> 1 star
	}
}

// ============================================================================
// Breakdown.Add Tests
// ============================================================================

func TestBuildBreakdown_Buckets(t *testing.T) {
	b := BuildBreakdown(sampleRatings())

	assert.Equal(t, [MaxScore]int64{1, 0, 1, 0, 1}, b.Stars)
	assert.Equal(t, int64(3), b.Total())
}

func TestBreakdown_UnratedRecordIsExcluded(t *testing.T) {
	var b Breakdown
	b.Add(Scores{})
	b.Add(Scores{Style: IntPtr(0)})

	assert.Zero(t, b)
	assert.Equal(t, int64(0), b.Total())
}

func TestBreakdown_AverageAboveFiveClampsToTopBucket(t *testing.T) {
	var b Breakdown
	b.Add(Scores{Style: IntPtr(9)})
	b.Add(Scores{Style: IntPtr(1 << 60)})

	assert.Equal(t, int64(2), b.Stars[4])
	assert.Equal(t, int64(10), b.CategorySum[0])
	assert.InDelta(t, 5.0, b.Snapshot().Overall.Average, 1e-9)
}

func TestContribution_SingleRecord(t *testing.T) {
	c := Contribution(allScores(5, 5, 5, 5, 4))

	assert.Equal(t, [MaxScore]int64{0, 0, 0, 0, 1}, c.Stars)
	assert.Equal(t, [NumCategories]int64{5, 5, 5, 5, 4}, c.CategorySum)
	assert.Equal(t, [NumCategories]int64{1, 1, 1, 1, 1}, c.CategoryCount)
	assert.Equal(t, int64(480), c.AverageSum)
}

// ============================================================================
// Breakdown.Merge Tests
// ============================================================================

func TestBreakdown_MergeMatchesSequentialFold(t *testing.T) {
	ratings := sampleRatings()
	whole := BuildBreakdown(ratings)

	left := BuildBreakdown(ratings[:1])
	right := BuildBreakdown(ratings[1:])
	right.Merge(left)

	assert.Equal(t, whole, right)
}

func TestBreakdown_MergeEmptyIsIdentity(t *testing.T) {
	b := BuildBreakdown(sampleRatings())
	before := b
	b.Merge(Breakdown{})

	assert.Equal(t, before, b)
}

// ============================================================================
// Breakdown.Snapshot Tests
// ============================================================================

func TestSnapshot_Values(t *testing.T) {
	snap := BuildBreakdown(sampleRatings()).Snapshot()

	assert.Equal(t, int64(3), snap.TotalRatings)
	assert.Equal(t, map[string]int64{"1": 1, "2": 0, "3": 1, "4": 0, "5": 1}, snap.StarCounts)
	assert.InDelta(t, 3.0, snap.CategoryAverages["style"], 1e-9)
	// (4+3+1)/3 = 2.666...
	assert.InDelta(t, 2.67, snap.CategoryAverages["edition"], 1e-9)
	// (4.8+3.0+1.0)/3 = 2.933...
	assert.InDelta(t, 2.93, snap.Overall.Average, 1e-9)
	assert.Equal(t, 3, snap.Overall.Stars)
	assert.Equal(t, LabelAcceptable, snap.Overall.Label)
}

func TestSnapshot_Empty(t *testing.T) {
	snap := Breakdown{}.Snapshot()

	assert.Equal(t, int64(0), snap.TotalRatings)
	assert.Len(t, snap.StarCounts, MaxScore)
	assert.Empty(t, snap.CategoryAverages)
	assert.Equal(t, LabelNotRated, snap.Overall.Label)
	assert.Equal(t, 0, snap.Overall.Stars)
}

func TestSnapshot_OmitsUnratedCategories(t *testing.T) {
	var b Breakdown
	b.Add(Scores{Style: IntPtr(4)})
	b.Add(Scores{Style: IntPtr(5), Content: IntPtr(2)})

	snap := b.Snapshot()
	assert.Len(t, snap.CategoryAverages, 2)
	assert.InDelta(t, 4.5, snap.CategoryAverages["style"], 1e-9)
	assert.InDelta(t, 2.0, snap.CategoryAverages["content"], 1e-9)
	_, ok := snap.CategoryAverages["edition"]
	assert.False(t, ok)
}

// allScores rates every category.
func allScores(style, content, pleasantness, originality, edition int) Scores {
	return Scores{
		Style:        IntPtr(style),
		Content:      IntPtr(content),
		Pleasantness: IntPtr(pleasantness),
		Originality:  IntPtr(originality),
		Edition:      IntPtr(edition),
	}
}
