package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/babo/internal/service"
	"github.com/utafrali/babo/pkg/httputil"
	"github.com/utafrali/babo/pkg/logger"
	"github.com/utafrali/babo/pkg/validator"
)

// RecommendationHandler handles HTTP requests for recommendation sessions.
type RecommendationHandler struct {
	service *service.RecommendationService
	logger  *slog.Logger
}

// NewRecommendationHandler creates a new recommendation HTTP handler.
func NewRecommendationHandler(svc *service.RecommendationService, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service: svc,
		logger:  logger,
	}
}

// AddCandidateRequest is the JSON body for adding a book to the selection.
type AddCandidateRequest struct {
	ISBN string `json:"isbn" validate:"notblank,max=32"`
}

// OpenSession handles POST /api/v1/books/{isbn}/recommendations/session.
func (h *RecommendationHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.OpenSession(r.Context(), logger.UsernameFromContext(r.Context()), chi.URLParam(r, "isbn"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, view)
}

// GetSession handles GET /api/v1/books/{isbn}/recommendations/session.
func (h *RecommendationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Session(logger.UsernameFromContext(r.Context()), chi.URLParam(r, "isbn"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// CloseSession handles DELETE /api/v1/books/{isbn}/recommendations/session.
func (h *RecommendationHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.service.CloseSession(logger.UsernameFromContext(r.Context()), chi.URLParam(r, "isbn"))
	w.WriteHeader(http.StatusNoContent)
}

// AddCandidate handles POST /api/v1/books/{isbn}/recommendations/selection.
// A refused candidate answers 422 with the refusal reason in details.
func (h *RecommendationHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	var req AddCandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.AddCandidate(r.Context(), logger.UsernameFromContext(r.Context()), chi.URLParam(r, "isbn"), req.ISBN)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// RemoveCandidate handles DELETE /api/v1/books/{isbn}/recommendations/selection/{candidate}.
func (h *RecommendationHandler) RemoveCandidate(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveCandidate(
		logger.UsernameFromContext(r.Context()),
		chi.URLParam(r, "isbn"),
		chi.URLParam(r, "candidate"),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// Submit handles POST /api/v1/books/{isbn}/recommendations/submit. Partial
// and failed batches are still 200: the outcome describes each item.
func (h *RecommendationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.SubmitSelection(r.Context(), logger.UsernameFromContext(r.Context()), chi.URLParam(r, "isbn"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, outcome)
}
