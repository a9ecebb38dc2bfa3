package domain

import (
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/utafrali/babo/pkg/errors"
	pkgvalidator "github.com/utafrali/babo/pkg/validator"
)

// Score bounds and review limit for a rating submission.
const (
	MinScore        = 1
	MaxScore        = 5
	MaxReviewLength = 1000
)

// Quality labels, from best to worst.
const (
	LabelExcellent  = "Excellent"
	LabelVeryGood   = "Very good"
	LabelGood       = "Good"
	LabelFair       = "Fair"
	LabelAcceptable = "Acceptable"
	LabelMediocre   = "Mediocre"
	LabelPoor       = "Poor"
	LabelNotRated   = "Not rated"
)

func init() {
	pkgvalidator.MustRegister("score", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return f.Int() >= MinScore && f.Int() <= MaxScore
		default:
			return false
		}
	}, "must be between 1 and 5")
}

// Scores holds the five rating categories. A nil entry means the category
// was not rated.
type Scores struct {
	Style        *int `json:"style" validate:"omitempty,max=5"`
	Content      *int `json:"content" validate:"omitempty,max=5"`
	Pleasantness *int `json:"pleasantness" validate:"omitempty,max=5"`
	Originality  *int `json:"originality" validate:"omitempty,max=5"`
	Edition      *int `json:"edition" validate:"omitempty,max=5"`
}

// CheckRange reports scores above MaxScore. Missing and non-positive
// categories are allowed; they count as not rated.
func (s Scores) CheckRange() ValidationResult {
	return resultOf(pkgvalidator.Validate(s))
}

// usable returns a category's score capped at MaxScore, or false when the
// category does not take part in averages.
func usable(v *int) (int64, bool) {
	if v == nil || *v <= 0 {
		return 0, false
	}
	return int64(min(*v, MaxScore)), true
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// Values returns the categories in canonical order.
func (s Scores) Values() [NumCategories]*int {
	return [NumCategories]*int{s.Style, s.Content, s.Pleasantness, s.Originality, s.Edition}
}

func (s Scores) clone() Scores {
	cp := func(p *int) *int {
		if p == nil {
			return nil
		}
		return IntPtr(*p)
	}
	return Scores{
		Style:        cp(s.Style),
		Content:      cp(s.Content),
		Pleasantness: cp(s.Pleasantness),
		Originality:  cp(s.Originality),
		Edition:      cp(s.Edition),
	}
}

// RatingSubmission is a new five-category rating from one reader for one book.
// Field order defines the order validation messages are reported in.
type RatingSubmission struct {
	Username     string `json:"username" validate:"notblank"`
	ISBN         string `json:"isbn" validate:"notblank"`
	Style        *int   `json:"style" validate:"required,score"`
	Content      *int   `json:"content" validate:"required,score"`
	Pleasantness *int   `json:"pleasantness" validate:"required,score"`
	Originality  *int   `json:"originality" validate:"required,score"`
	Edition      *int   `json:"edition" validate:"required,score"`
	Review       string `json:"review,omitempty" validate:"max=1000"`
}

// NewRatingSubmission trims the identifiers and review and copies the scores,
// so later changes to the caller's values cannot leak into the submission.
func NewRatingSubmission(username, isbn string, scores Scores, review string) RatingSubmission {
	s := scores.clone()
	return RatingSubmission{
		Username:     strings.TrimSpace(username),
		ISBN:         NormalizeISBN(isbn),
		Style:        s.Style,
		Content:      s.Content,
		Pleasantness: s.Pleasantness,
		Originality:  s.Originality,
		Edition:      s.Edition,
		Review:       strings.TrimSpace(review),
	}
}

// Scores returns the submission's category scores.
func (r RatingSubmission) Scores() Scores {
	return Scores{
		Style:        r.Style,
		Content:      r.Content,
		Pleasantness: r.Pleasantness,
		Originality:  r.Originality,
		Edition:      r.Edition,
	}
}

// ValidationResult lists every rule a submission violates.
type ValidationResult struct {
	Violations []string `json:"violations"`
}

// Valid reports whether no rule was violated.
func (v ValidationResult) Valid() bool {
	return len(v.Violations) == 0
}

// Err converts the result into a validation error, or nil when valid.
func (v ValidationResult) Err() error {
	if v.Valid() {
		return nil
	}
	return apperrors.ValidationFailed(v.Violations)
}

// Validate checks a new submission. Unlike Aggregate it requires all five
// categories.
func Validate(sub RatingSubmission) ValidationResult {
	return resultOf(pkgvalidator.Validate(sub))
}

func resultOf(err error) ValidationResult {
	if err == nil {
		return ValidationResult{Violations: []string{}}
	}
	if ve, ok := err.(*pkgvalidator.ValidationError); ok {
		return ValidationResult{Violations: ve.Messages()}
	}
	return ValidationResult{Violations: []string{err.Error()}}
}

// AggregateScore is the display form of a rating average.
type AggregateScore struct {
	Average float64 `json:"average"`
	Stars   int     `json:"stars"`
	Label   string  `json:"label"`
}

// Aggregate averages the categories that are present and positive, rounded
// half-up to two decimals. Scores above MaxScore count as MaxScore. No usable
// category yields a zero "Not rated" score.
func Aggregate(s Scores) AggregateScore {
	var sum, n int64
	for _, v := range s.Values() {
		if score, ok := usable(v); ok {
			sum += score
			n++
		}
	}
	if n == 0 {
		return AggregateScore{Label: LabelNotRated}
	}
	return scoreFor(roundRatio(sum, n))
}

func scoreFor(avg float64) AggregateScore {
	return AggregateScore{
		Average: avg,
		Stars:   StarRating(avg),
		Label:   QualityLabel(avg),
	}
}

// StarRating rounds an average half-up to whole stars in [0,5].
func StarRating(avg float64) int {
	if avg <= 0 {
		return 0
	}
	stars := int(math.Floor(avg + 0.5))
	return min(max(stars, 0), MaxScore)
}

// QualityLabel maps an average to its tier. Tiers are closed on the lower bound.
func QualityLabel(avg float64) string {
	switch {
	case avg <= 0:
		return LabelNotRated
	case avg >= 4.5:
		return LabelExcellent
	case avg >= 4.0:
		return LabelVeryGood
	case avg >= 3.5:
		return LabelGood
	case avg >= 3.0:
		return LabelFair
	case avg >= 2.5:
		return LabelAcceptable
	case avg >= 2.0:
		return LabelMediocre
	default:
		return LabelPoor
	}
}

// roundRatio returns sum/count rounded half-up to two decimals using integer
// arithmetic, so ratios such as 201/200 round to 1.01 rather than 1.0.
func roundRatio(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	neg := sum < 0
	if neg {
		sum = -sum
	}
	hundredths := (200*sum + count) / (2 * count)
	if neg {
		hundredths = -hundredths
	}
	return float64(hundredths) / 100
}

// BookRating is a stored rating as the upstream service returns it.
type BookRating struct {
	Username  string    `json:"username"`
	ISBN      string    `json:"isbn"`
	Scores    Scores    `json:"scores"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Aggregate returns the rating's display score.
func (r BookRating) Aggregate() AggregateScore {
	return Aggregate(r.Scores)
}
