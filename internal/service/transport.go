package service

import (
	"context"

	"github.com/utafrali/babo/internal/domain"
)

// Transport is the contract with the upstream BABO service. A non-nil error
// is a transport failure; Success == false is a domain rejection.
type Transport interface {
	SubmitRating(ctx context.Context, sub domain.RatingSubmission) (RatingResponse, error)
	FetchRecommendationPermission(ctx context.Context, username, targetISBN string) (PermissionResponse, error)
	SubmitRecommendation(ctx context.Context, username, targetISBN, candidateISBN string) (ItemResponse, error)
	FetchExistingRecommendations(ctx context.Context, username, targetISBN string) (ExistingResponse, error)
	FetchBookRatings(ctx context.Context, isbn string) (BookRatingsResponse, error)
}

// RatingResponse is the server's answer to a rating submission.
type RatingResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Rating  *domain.BookRating `json:"rating,omitempty"`
}

// PermissionResponse carries the server's view of the recommendation quota.
// MaxAllowed is nil when the server omits it.
type PermissionResponse struct {
	Success      bool   `json:"success"`
	CanRecommend bool   `json:"can_recommend"`
	CurrentCount int    `json:"current_count"`
	MaxAllowed   *int   `json:"max_allowed,omitempty"`
	Message      string `json:"message"`
}

// Quota converts the response into a domain quota.
func (p PermissionResponse) Quota() domain.RecommendationQuota {
	return domain.NewRecommendationQuota(p.CurrentCount, p.MaxAllowed, p.CanRecommend)
}

// ItemResponse is the server's answer to one recommendation.
type ItemResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ExistingRecommendation is a recommendation the user already made.
type ExistingRecommendation struct {
	CandidateISBN string `json:"candidate_isbn"`
	Title         string `json:"title,omitempty"`
}

// ExistingResponse lists the user's recommendations for one target book.
type ExistingResponse struct {
	Success         bool                     `json:"success"`
	Recommendations []ExistingRecommendation `json:"recommendations"`
	Message         string                   `json:"message"`
}

// ISBNs returns the candidate ISBNs in server order.
func (e ExistingResponse) ISBNs() []string {
	out := make([]string, 0, len(e.Recommendations))
	for _, r := range e.Recommendations {
		out = append(out, domain.NormalizeISBN(r.CandidateISBN))
	}
	return out
}

// BookRatingsResponse lists every stored rating of a book.
type BookRatingsResponse struct {
	Success bool                `json:"success"`
	Ratings []domain.BookRating `json:"ratings"`
	Message string              `json:"message"`
}
