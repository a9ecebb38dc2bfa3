package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/utafrali/babo/internal/domain"
	apperrors "github.com/utafrali/babo/pkg/errors"
)

// DefaultSessionTTL is how long an untouched recommendation session lives.
const DefaultSessionTTL = 30 * time.Minute

// SessionView is the read-only state of a recommendation session.
type SessionView struct {
	Username    string               `json:"username"`
	TargetISBN  string               `json:"target_isbn"`
	Quota       QuotaSnapshot        `json:"quota"`
	Existing    []string             `json:"existing"`
	Selection   domain.Selection     `json:"selection"`
	Submitting  bool                 `json:"submitting"`
	LastOutcome *domain.BatchOutcome `json:"last_outcome,omitempty"`
	OpenedAt    time.Time            `json:"opened_at"`
}

// session holds the state the desktop UI builds while choosing books to
// recommend for one target book.
type session struct {
	username string
	target   string
	guard    *QuotaGuard
	openedAt time.Time

	mu          sync.Mutex
	existing    []string
	selection   domain.Selection
	submitting  bool
	closed      bool
	lastOutcome *domain.BatchOutcome
}

// lockOpen locks s.mu and fails when the session has been closed or replaced.
// On error the mutex is already released.
func (s *session) lockOpen() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.Gone("recommendation session was closed; open it again")
	}
	return nil
}

// close marks the session closed unless a batch is in flight.
func (s *session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return false
	}
	s.closed = true
	return true
}

// viewLocked must be called with s.mu held.
func (s *session) viewLocked() SessionView {
	existing := make([]string, len(s.existing))
	copy(existing, s.existing)
	return SessionView{
		Username:    s.username,
		TargetISBN:  s.target,
		Quota:       s.guard.Snapshot(),
		Existing:    existing,
		Selection:   domain.NewSelection(s.selection.Items()...),
		Submitting:  s.submitting,
		LastOutcome: s.lastOutcome,
		OpenedAt:    s.openedAt,
	}
}

func (s *session) view() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// RecommendationService manages per user and target book recommendation
// sessions.
type RecommendationService struct {
	transport Transport
	batches   *BatchSubmitter
	sessions  *ttlcache.Cache[string, *session]
	logger    *slog.Logger

	// openMu serialises replacing a session.
	openMu sync.Mutex
}

// NewRecommendationService creates a new recommendation service. Sessions
// expire after ttl without access.
func NewRecommendationService(transport Transport, batches *BatchSubmitter, ttl time.Duration, logger *slog.Logger) *RecommendationService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &RecommendationService{
		transport: transport,
		batches:   batches,
		sessions:  ttlcache.New(ttlcache.WithTTL[string, *session](ttl)),
		logger:    logger,
	}
	s.sessions.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, *session]) {
		sess := item.Value()
		sess.mu.Lock()
		sess.closed = true
		sess.mu.Unlock()
		activeSessions.Set(float64(s.ActiveSessions()))
	})
	return s
}

// Run evicts expired sessions until ctx is done.
func (s *RecommendationService) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.sessions.Stop()
	}()
	s.sessions.Start()
}

// ActiveSessions returns the number of live sessions.
func (s *RecommendationService) ActiveSessions() int {
	return s.sessions.Len()
}

func sessionKey(username, target string) string {
	return username + "|" + target
}

func (s *RecommendationService) lookup(username, target string) (*session, error) {
	target = domain.NormalizeISBN(target)
	item := s.sessions.Get(sessionKey(username, target))
	if item == nil {
		return nil, apperrors.NotFound("recommendation session", target)
	}
	return item.Value(), nil
}

// OpenSession starts a fresh session for username and target, loading the
// existing recommendations and the quota from the server. When either fetch
// fails the session is kept with an unchecked quota and the error returned;
// opening again retries.
func (s *RecommendationService) OpenSession(ctx context.Context, username, targetISBN string) (SessionView, error) {
	target := domain.NormalizeISBN(targetISBN)
	if username == "" {
		return SessionView{}, apperrors.Unauthorized("username is required")
	}
	if target == "" {
		return SessionView{}, apperrors.InvalidInput("isbn is required")
	}

	sess := &session{
		username: username,
		target:   target,
		guard:    NewQuotaGuard(s.transport, username, target, s.logger),
		openedAt: time.Now().UTC(),
		existing: []string{},
	}
	if err := s.replace(sessionKey(username, target), sess); err != nil {
		return SessionView{}, err
	}

	existing, err := s.transport.FetchExistingRecommendations(ctx, username, target)
	if err != nil {
		return sess.view(), transportError(err)
	}
	if !existing.Success {
		return sess.view(), rejection(existing.Message, "existing recommendations could not be loaded")
	}
	sess.mu.Lock()
	sess.existing = existing.ISBNs()
	sess.mu.Unlock()

	if _, err := sess.guard.Refresh(ctx); err != nil {
		return sess.view(), err
	}

	s.logger.InfoContext(ctx, "recommendation session opened",
		slog.String("target_isbn", target),
		slog.String("quota_state", string(sess.guard.State())),
	)

	return sess.view(), nil
}

// replace closes the session stored under key and stores sess in its place.
// It fails while the old session has a batch in flight.
func (s *RecommendationService) replace(key string, sess *session) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	if item := s.sessions.Get(key); item != nil && !item.Value().close() {
		return apperrors.Conflict("a recommendation batch is still in flight for this book")
	}
	s.sessions.Set(key, sess, ttlcache.DefaultTTL)
	activeSessions.Set(float64(s.ActiveSessions()))
	return nil
}

// Session returns the current state of a session.
func (s *RecommendationService) Session(username, targetISBN string) (SessionView, error) {
	sess, err := s.lookup(username, targetISBN)
	if err != nil {
		return SessionView{}, err
	}
	return sess.view(), nil
}

// AddCandidate admits candidate into the selection if the guard allows it.
// Refusals are returned as SelectionRejected errors and change nothing.
func (s *RecommendationService) AddCandidate(ctx context.Context, username, targetISBN, candidate string) (SessionView, error) {
	sess, err := s.lookup(username, targetISBN)
	if err != nil {
		return SessionView{}, err
	}

	if err := sess.lockOpen(); err != nil {
		return SessionView{}, err
	}
	defer sess.mu.Unlock()

	if sess.submitting {
		return SessionView{}, apperrors.Conflict("a recommendation batch is in flight for this book")
	}

	res := sess.guard.ValidateSelection(sess.selection, candidate, sess.existing)
	if !res.Admitted {
		s.logger.DebugContext(ctx, "candidate refused",
			slog.String("target_isbn", sess.target),
			slog.String("reason", string(res.Reason)),
		)
		return sess.viewLocked(), res.Err()
	}
	sess.selection.Add(candidate)

	return sess.viewLocked(), nil
}

// RemoveCandidate drops candidate from the selection.
func (s *RecommendationService) RemoveCandidate(username, targetISBN, candidate string) (SessionView, error) {
	sess, err := s.lookup(username, targetISBN)
	if err != nil {
		return SessionView{}, err
	}

	if err := sess.lockOpen(); err != nil {
		return SessionView{}, err
	}
	defer sess.mu.Unlock()

	if sess.submitting {
		return SessionView{}, apperrors.Conflict("a recommendation batch is in flight for this book")
	}
	if !sess.selection.Remove(candidate) {
		return SessionView{}, apperrors.NotFound("selected book", domain.NormalizeISBN(candidate))
	}

	return sess.viewLocked(), nil
}

// SubmitSelection sends the whole selection as one batch. Successful books
// leave the selection and join the existing list; failed ones stay selected
// so the user can retry them. Only one batch per session runs at a time, and
// none goes out unless the quota is READY and still covers the selection.
func (s *RecommendationService) SubmitSelection(ctx context.Context, username, targetISBN string) (domain.BatchOutcome, error) {
	sess, err := s.lookup(username, targetISBN)
	if err != nil {
		return domain.BatchOutcome{}, err
	}
	return s.submit(ctx, sess)
}

func (s *RecommendationService) submit(ctx context.Context, sess *session) (domain.BatchOutcome, error) {
	if err := sess.lockOpen(); err != nil {
		return domain.BatchOutcome{}, err
	}
	if sess.submitting {
		sess.mu.Unlock()
		return domain.BatchOutcome{}, apperrors.Conflict("a recommendation batch is already in flight for this book")
	}
	if sess.selection.Len() == 0 {
		sess.mu.Unlock()
		return domain.BatchOutcome{}, apperrors.InvalidInput("selection is empty")
	}
	if res := sess.guard.ValidateBatch(sess.selection.Len()); !res.Admitted {
		sess.mu.Unlock()
		s.logger.InfoContext(ctx, "recommendation batch refused",
			slog.String("target_isbn", sess.target),
			slog.String("reason", string(res.Reason)),
		)
		return domain.BatchOutcome{}, res.Err()
	}
	sess.submitting = true
	sel := domain.NewSelection(sess.selection.Items()...)
	sess.mu.Unlock()

	submitOne := func(ctx context.Context, candidate string) error {
		resp, err := s.transport.SubmitRecommendation(ctx, sess.username, sess.target, candidate)
		if err != nil {
			return transportError(err)
		}
		if !resp.Success {
			return rejection(resp.Message, "recommendation was rejected")
		}
		return nil
	}

	outcome := s.batches.Submit(ctx, sess.username, sess.target, sel, submitOne, sess.guard)

	sess.mu.Lock()
	for _, isbn := range outcome.Succeeded {
		sess.selection.Remove(isbn)
		sess.existing = append(sess.existing, isbn)
	}
	sess.submitting = false
	sess.lastOutcome = &outcome
	sess.mu.Unlock()

	return outcome, nil
}

// CloseSession discards a session. A batch already in flight still completes
// but its result is only reported to the caller that submitted it.
func (s *RecommendationService) CloseSession(username, targetISBN string) {
	s.sessions.Delete(sessionKey(username, domain.NormalizeISBN(targetISBN)))
}
