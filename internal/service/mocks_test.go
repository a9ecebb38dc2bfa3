package service

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/babo/internal/domain"
	"github.com/utafrali/babo/pkg/logger"
)

// --- Mock Transport ---

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) SubmitRating(ctx context.Context, sub domain.RatingSubmission) (RatingResponse, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(RatingResponse), args.Error(1)
}

func (m *mockTransport) FetchRecommendationPermission(ctx context.Context, username, targetISBN string) (PermissionResponse, error) {
	args := m.Called(ctx, username, targetISBN)
	return args.Get(0).(PermissionResponse), args.Error(1)
}

func (m *mockTransport) SubmitRecommendation(ctx context.Context, username, targetISBN, candidateISBN string) (ItemResponse, error) {
	args := m.Called(ctx, username, targetISBN, candidateISBN)
	return args.Get(0).(ItemResponse), args.Error(1)
}

func (m *mockTransport) FetchExistingRecommendations(ctx context.Context, username, targetISBN string) (ExistingResponse, error) {
	args := m.Called(ctx, username, targetISBN)
	return args.Get(0).(ExistingResponse), args.Error(1)
}

func (m *mockTransport) FetchBookRatings(ctx context.Context, isbn string) (BookRatingsResponse, error) {
	args := m.Called(ctx, isbn)
	return args.Get(0).(BookRatingsResponse), args.Error(1)
}

// --- Fake Event Publisher ---

type fakeEvents struct {
	mu         sync.Mutex
	ratings    []domain.AggregateScore
	rebuilds   []string
	outcomes   []domain.BatchOutcome
	publishErr error
}

func (f *fakeEvents) PublishRatingSubmitted(_ context.Context, _ domain.RatingSubmission, score domain.AggregateScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings = append(f.ratings, score)
	return f.publishErr
}

func (f *fakeEvents) PublishBreakdownRebuilt(_ context.Context, isbn string, _ domain.BreakdownSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuilds = append(f.rebuilds, isbn)
	return f.publishErr
}

func (f *fakeEvents) PublishBatchCompleted(_ context.Context, outcome domain.BatchOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	return f.publishErr
}

// --- Fake Breakdown Store ---

type failingStore struct{}

func (failingStore) Get(context.Context, string) (domain.Breakdown, error) {
	return domain.Breakdown{}, errors.New("store down")
}

func (failingStore) Add(context.Context, string, domain.Breakdown) error {
	return errors.New("store down")
}

func (failingStore) Replace(context.Context, string, domain.Breakdown) error {
	return errors.New("store down")
}

// --- Test Helpers ---

const (
	testUser   = "alice"
	testTarget = "9780134685991"
)

var testLogger = logger.Discard()

func permission(current int, can bool) PermissionResponse {
	return PermissionResponse{Success: true, CanRecommend: can, CurrentCount: current}
}
