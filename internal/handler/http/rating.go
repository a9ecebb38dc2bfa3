package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/babo/internal/domain"
	"github.com/utafrali/babo/internal/service"
	apperrors "github.com/utafrali/babo/pkg/errors"
	"github.com/utafrali/babo/pkg/httputil"
	"github.com/utafrali/babo/pkg/logger"
)

// RatingHandler handles HTTP requests for rating endpoints.
type RatingHandler struct {
	service *service.RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates a new rating HTTP handler.
func NewRatingHandler(svc *service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// RatingRequest is the JSON body of a rating. The reader comes from X-Username.
type RatingRequest struct {
	ISBN         string `json:"isbn"`
	Style        *int   `json:"style"`
	Content      *int   `json:"content"`
	Pleasantness *int   `json:"pleasantness"`
	Originality  *int   `json:"originality"`
	Edition      *int   `json:"edition"`
	Review       string `json:"review"`
}

func (req RatingRequest) submission(username string) domain.RatingSubmission {
	scores := domain.Scores{
		Style:        req.Style,
		Content:      req.Content,
		Pleasantness: req.Pleasantness,
		Originality:  req.Originality,
		Edition:      req.Edition,
	}
	return domain.NewRatingSubmission(username, req.ISBN, scores, req.Review)
}

// ValidationResponse is returned by the validate endpoint.
type ValidationResponse struct {
	Valid      bool                  `json:"valid"`
	Violations []string              `json:"violations"`
	Score      domain.AggregateScore `json:"score"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

// --- Handlers ---

// Validate handles POST /api/v1/ratings/validate. It never calls upstream.
func (h *RatingHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, score := h.service.Validate(req.submission(logger.UsernameFromContext(r.Context())))
	httputil.WriteData(w, http.StatusOK, ValidationResponse{
		Valid:      res.Valid(),
		Violations: res.Violations,
		Score:      score,
	})
}

// Submit handles POST /api/v1/ratings.
func (h *RatingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Submit(r.Context(), req.submission(logger.UsernameFromContext(r.Context())))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, result)
}

// Aggregate handles POST /api/v1/ratings/aggregate. Missing categories are
// left out of the average; scores above the maximum are refused.
func (h *RatingHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var scores domain.Scores
	if err := decodeJSON(w, r, &scores); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := scores.CheckRange().Err(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, domain.Aggregate(scores))
}

// GetBreakdown handles GET /api/v1/books/{isbn}/breakdown.
func (h *RatingHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Breakdown(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, snap)
}

// RebuildBreakdown handles POST /api/v1/books/{isbn}/breakdown/rebuild.
func (h *RatingHandler) RebuildBreakdown(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.RebuildBreakdown(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, snap)
}
