package domain

// NumCategories is the number of rating categories.
const NumCategories = 5

// Categories lists the category names in canonical order.
var Categories = [NumCategories]string{"style", "content", "pleasantness", "originality", "edition"}

// Breakdown is the running fold of a book's ratings. It keeps only integer
// counters so partial folds can be merged in any order, or kept in a store
// that increments fields atomically.
type Breakdown struct {
	// Stars[i] counts ratings whose aggregate rounds to i+1 stars.
	Stars [MaxScore]int64 `json:"stars"`
	// CategorySum and CategoryCount accumulate present, positive scores.
	CategorySum   [NumCategories]int64 `json:"category_sum"`
	CategoryCount [NumCategories]int64 `json:"category_count"`
	// AverageSum is the sum of counted ratings' averages in hundredths.
	AverageSum int64 `json:"average_sum"`
}

// Contribution returns the breakdown of a single rating. A rating with no
// usable category contributes nothing.
func Contribution(s Scores) Breakdown {
	var b Breakdown
	agg := Aggregate(s)
	if agg.Average <= 0 {
		return b
	}
	for i, v := range s.Values() {
		if score, ok := usable(v); ok {
			b.CategorySum[i] = score
			b.CategoryCount[i] = 1
		}
	}
	b.Stars[bucketFor(agg.Average)-1] = 1
	b.AverageSum = int64(agg.Average*100 + 0.5)
	return b
}

// bucketFor places a positive average in a star bucket. A positive average
// that would round to zero stars still lands in the 1-star bucket.
func bucketFor(avg float64) int {
	return max(StarRating(avg), 1)
}

// Add folds one rating into the breakdown.
func (b *Breakdown) Add(s Scores) {
	b.Merge(Contribution(s))
}

// Merge adds another partial fold. Merging is associative and commutative.
func (b *Breakdown) Merge(o Breakdown) {
	for i := range b.Stars {
		b.Stars[i] += o.Stars[i]
	}
	for i := range b.CategorySum {
		b.CategorySum[i] += o.CategorySum[i]
		b.CategoryCount[i] += o.CategoryCount[i]
	}
	b.AverageSum += o.AverageSum
}

// Total returns the number of counted ratings.
func (b Breakdown) Total() int64 {
	var n int64
	for _, c := range b.Stars {
		n += c
	}
	return n
}

// BreakdownSnapshot is the read-only view of a Breakdown.
type BreakdownSnapshot struct {
	TotalRatings int64 `json:"total_ratings"`
	// StarCounts is keyed by star value, "1" through "5".
	StarCounts       map[string]int64   `json:"star_counts"`
	CategoryAverages map[string]float64 `json:"category_averages"`
	Overall          AggregateScore     `json:"overall"`
}

// Snapshot derives counts and rounded averages. Categories never rated are
// omitted from CategoryAverages.
func (b Breakdown) Snapshot() BreakdownSnapshot {
	snap := BreakdownSnapshot{
		TotalRatings:     b.Total(),
		StarCounts:       make(map[string]int64, MaxScore),
		CategoryAverages: make(map[string]float64, NumCategories),
		Overall:          AggregateScore{Label: LabelNotRated},
	}
	for i, c := range b.Stars {
		snap.StarCounts[starKey(i+1)] = c
	}
	for i, name := range Categories {
		if b.CategoryCount[i] > 0 {
			snap.CategoryAverages[name] = roundRatio(b.CategorySum[i], b.CategoryCount[i])
		}
	}
	if snap.TotalRatings > 0 {
		snap.Overall = scoreFor(roundRatio(b.AverageSum, snap.TotalRatings*100))
	}
	return snap
}

func starKey(stars int) string {
	return string(rune('0' + stars))
}

// BuildBreakdown folds a list of ratings in one pass.
func BuildBreakdown(ratings []BookRating) Breakdown {
	var b Breakdown
	for _, r := range ratings {
		b.Add(r.Scores)
	}
	return b
}
