package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/babo/internal/domain"
	"github.com/utafrali/babo/internal/repository/memory"
	apperrors "github.com/utafrali/babo/pkg/errors"
)

func newRatingService(tr *mockTransport, events EventPublisher) (*RatingService, *memory.BreakdownStore) {
	store := memory.NewBreakdownStore()
	return NewRatingService(tr, store, events, testLogger), store
}

func validRating() domain.RatingSubmission {
	return domain.NewRatingSubmission(testUser, testTarget, allScores(5, 5, 5, 5, 4), "loved it")
}

// ============================================================================
// Validate / Submit
// ============================================================================

func TestRatingService_ValidatePreviewsScore(t *testing.T) {
	svc, _ := newRatingService(&mockTransport{}, nil)

	res, score := svc.Validate(validRating())
	assert.True(t, res.Valid())
	assert.InDelta(t, 4.8, score.Average, 1e-9)
	assert.Equal(t, domain.LabelExcellent, score.Label)
}

func TestRatingService_Submit_InvalidNeverCallsTransport(t *testing.T) {
	tr := &mockTransport{}
	svc, _ := newRatingService(tr, nil)

	sub := validRating()
	sub.Style = domain.IntPtr(6)

	_, err := svc.Submit(context.Background(), sub)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{"style must be between 1 and 5"}, appErr.Details)
	tr.AssertNotCalled(t, "SubmitRating", mock.Anything, mock.Anything)
}

func TestRatingService_Submit_FoldsIntoBreakdown(t *testing.T) {
	tr := &mockTransport{}
	events := &fakeEvents{}
	svc, store := newRatingService(tr, events)

	sub := validRating()
	tr.On("SubmitRating", mock.Anything, sub).Return(RatingResponse{Success: true, Message: "Rating saved"}, nil)

	result, err := svc.Submit(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, "Rating saved", result.Message)
	assert.InDelta(t, 4.8, result.Score.Average, 1e-9)
	assert.Equal(t, int64(1), result.Breakdown.TotalRatings)
	assert.Equal(t, int64(1), result.Breakdown.StarCounts["5"])

	b, err := store.Get(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Total())
	require.Len(t, events.ratings, 1)
	tr.AssertExpectations(t)
}

func TestRatingService_Submit_PrefersServerScores(t *testing.T) {
	tr := &mockTransport{}
	svc, _ := newRatingService(tr, nil)

	stored := &domain.BookRating{Username: testUser, ISBN: testTarget, Scores: allScores(3, 3, 3, 3, 3)}
	tr.On("SubmitRating", mock.Anything, mock.Anything).Return(RatingResponse{Success: true, Rating: stored}, nil)

	result, err := svc.Submit(context.Background(), validRating())
	require.NoError(t, err)
	assert.Equal(t, domain.LabelFair, result.Score.Label)
	assert.Equal(t, int64(1), result.Breakdown.StarCounts["3"])
}

func TestRatingService_Submit_TransportFailure(t *testing.T) {
	tr := &mockTransport{}
	svc, store := newRatingService(tr, nil)
	tr.On("SubmitRating", mock.Anything, mock.Anything).Return(RatingResponse{}, errors.New("i/o timeout"))

	_, err := svc.Submit(context.Background(), validRating())
	require.Error(t, err)
	assert.True(t, apperrors.IsConnection(err))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "connection error", appErr.Message)

	b, _ := store.Get(context.Background(), testTarget)
	assert.Zero(t, b)
}

func TestRatingService_Submit_ServerRejection(t *testing.T) {
	tr := &mockTransport{}
	svc, store := newRatingService(tr, nil)
	tr.On("SubmitRating", mock.Anything, mock.Anything).
		Return(RatingResponse{Success: false, Message: "You already rated this book"}, nil)

	_, err := svc.Submit(context.Background(), validRating())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRejected))
	assert.Contains(t, err.Error(), "You already rated this book")

	b, _ := store.Get(context.Background(), testTarget)
	assert.Zero(t, b)
}

func TestRatingService_Submit_StoreFailureStillSucceeds(t *testing.T) {
	tr := &mockTransport{}
	svc := NewRatingService(tr, failingStore{}, nil, testLogger)
	tr.On("SubmitRating", mock.Anything, mock.Anything).Return(RatingResponse{Success: true}, nil)

	result, err := svc.Submit(context.Background(), validRating())
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Breakdown.TotalRatings)
}

// ============================================================================
// Breakdown
// ============================================================================

func TestRatingService_Breakdown_RequiresISBN(t *testing.T) {
	svc, _ := newRatingService(&mockTransport{}, nil)

	_, err := svc.Breakdown(context.Background(), " ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestRatingService_Breakdown_StoreError(t *testing.T) {
	svc := NewRatingService(&mockTransport{}, failingStore{}, nil, testLogger)

	_, err := svc.Breakdown(context.Background(), testTarget)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}

func TestRatingService_RebuildBreakdown(t *testing.T) {
	tr := &mockTransport{}
	events := &fakeEvents{}
	svc, store := newRatingService(tr, events)

	require.NoError(t, store.Add(context.Background(), testTarget, domain.Contribution(allScores(1, 1, 1, 1, 1))))

	tr.On("FetchBookRatings", mock.Anything, testTarget).Return(BookRatingsResponse{
		Success: true,
		Ratings: []domain.BookRating{
			{Username: "a", Scores: allScores(5, 5, 5, 5, 4)},
			{Username: "b", Scores: allScores(3, 3, 3, 3, 3)},
			{Username: "c", Scores: domain.Scores{}},
		},
	}, nil)

	snap, err := svc.RebuildBreakdown(context.Background(), "978-0-13-468599-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.TotalRatings)
	assert.Equal(t, int64(0), snap.StarCounts["1"])
	assert.InDelta(t, 3.9, snap.Overall.Average, 1e-9)

	got, err := svc.Breakdown(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Equal(t, []string{testTarget}, events.rebuilds)
}

func TestRatingService_RebuildBreakdown_Failures(t *testing.T) {
	tr := &mockTransport{}
	svc, _ := newRatingService(tr, nil)

	tr.On("FetchBookRatings", mock.Anything, "1").Return(BookRatingsResponse{}, errors.New("refused"))
	tr.On("FetchBookRatings", mock.Anything, "2").Return(BookRatingsResponse{Success: false, Message: "unknown book"}, nil)

	_, err := svc.RebuildBreakdown(context.Background(), "1")
	assert.True(t, apperrors.IsConnection(err))

	_, err = svc.RebuildBreakdown(context.Background(), "2")
	assert.True(t, errors.Is(err, apperrors.ErrRejected))
}

// allScores rates every category.
func allScores(style, content, pleasantness, originality, edition int) domain.Scores {
	return domain.Scores{
		Style:        domain.IntPtr(style),
		Content:      domain.IntPtr(content),
		Pleasantness: domain.IntPtr(pleasantness),
		Originality:  domain.IntPtr(originality),
		Edition:      domain.IntPtr(edition),
	}
}
