package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/babo/internal/domain"
)

// QuotaSnapshot is a point-in-time view of a QuotaGuard.
type QuotaSnapshot struct {
	State          domain.QuotaState           `json:"state"`
	Quota          *domain.RecommendationQuota `json:"quota,omitempty"`
	RemainingSlots int                         `json:"remaining_slots"`
	CheckedAt      *time.Time                  `json:"checked_at,omitempty"`
}

// QuotaGuard tracks the recommendation quota of one user for one target book.
// Its quota is only ever replaced by a successful server fetch.
//
// States move UNCHECKED -> CHECKING -> READY or LOCKED. A failed fetch goes
// back to UNCHECKED; only READY admits candidates.
type QuotaGuard struct {
	transport Transport
	username  string
	target    string
	logger    *slog.Logger

	mu        sync.Mutex
	state     domain.QuotaState
	quota     domain.RecommendationQuota
	checkedAt time.Time
	gen       uint64
}

// NewQuotaGuard creates a guard in the UNCHECKED state.
func NewQuotaGuard(transport Transport, username, targetISBN string, logger *slog.Logger) *QuotaGuard {
	return &QuotaGuard{
		transport: transport,
		username:  username,
		target:    domain.NormalizeISBN(targetISBN),
		logger:    logger,
		state:     domain.QuotaUnchecked,
	}
}

// Refresh fetches the quota from the server and replaces the local copy
// wholesale. When several refreshes overlap, the last one started wins.
func (g *QuotaGuard) Refresh(ctx context.Context) (domain.RecommendationQuota, error) {
	g.mu.Lock()
	g.gen++
	gen := g.gen
	g.state = domain.QuotaChecking
	g.mu.Unlock()

	resp, err := g.transport.FetchRecommendationPermission(ctx, g.username, g.target)
	if err == nil && !resp.Success {
		err = rejection(resp.Message, "recommendation permission was refused")
	} else if err != nil {
		err = transportError(err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if gen != g.gen {
		// A newer refresh owns the state.
		return resp.Quota(), err
	}

	if err != nil {
		g.state = domain.QuotaUnchecked
		g.logger.WarnContext(ctx, "recommendation quota fetch failed",
			slog.String("target_isbn", g.target),
			slog.String("error", err.Error()),
		)
		return domain.RecommendationQuota{}, err
	}

	g.quota = resp.Quota()
	g.state = domain.StateFor(g.quota)
	g.checkedAt = time.Now().UTC()

	g.logger.DebugContext(ctx, "recommendation quota refreshed",
		slog.String("target_isbn", g.target),
		slog.String("state", string(g.state)),
		slog.Int("remaining", domain.RemainingSlots(g.quota)),
	)

	return g.quota, nil
}

// State returns the current guard state.
func (g *QuotaGuard) State() domain.QuotaState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Snapshot returns the guard's state and last confirmed quota.
func (g *QuotaGuard) Snapshot() QuotaSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := QuotaSnapshot{State: g.state}
	if g.state == domain.QuotaReady || g.state == domain.QuotaLocked {
		q := g.quota
		at := g.checkedAt
		snap.Quota = &q
		snap.RemainingSlots = domain.RemainingSlots(q)
		snap.CheckedAt = &at
	}
	return snap
}

// ValidateSelection decides whether candidate may join sel. Any state other
// than READY refuses without looking at the arithmetic.
func (g *QuotaGuard) ValidateSelection(sel domain.Selection, candidate string, existing []string) domain.AdmitResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != domain.QuotaReady {
		return g.refusalLocked()
	}
	return domain.ValidateSelectionAttempt(g.quota, sel, candidate, g.target, existing)
}

// ValidateBatch decides whether a selection of size books may go out as a
// batch. Leftovers of an earlier batch are refused once the quota is LOCKED
// or unknown.
func (g *QuotaGuard) ValidateBatch(size int) domain.AdmitResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != domain.QuotaReady {
		return g.refusalLocked()
	}
	return domain.ValidateBatchSize(g.quota, size)
}

// refusalLocked must be called with g.mu held and the state not READY.
func (g *QuotaGuard) refusalLocked() domain.AdmitResult {
	if g.state != domain.QuotaLocked {
		return domain.Refuse(domain.ReasonQuotaUnknown)
	}
	if !g.quota.CanRecommend {
		return domain.Refuse(domain.ReasonNotPermitted)
	}
	return domain.Refuse(domain.ReasonQuotaExceeded)
}
