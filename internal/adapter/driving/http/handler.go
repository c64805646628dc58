package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/reviewq/internal/application"
	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

// Ingester runs ingestion and refresh requests. IngestService satisfies it.
type Ingester interface {
	IngestNow(ctx context.Context, source string) error
	RefreshReview(ctx context.Context, id int64) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	reviews *application.ReviewService
	ingest  Ingester
	health  *application.HealthService
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	reviews *application.ReviewService,
	ingest Ingester,
	health *application.HealthService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		reviews: reviews,
		ingest:  ingest,
		health:  health,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterAPIRoutes registers all REST API routes on the provided mux.
// metrics, when non-nil, is served at /metrics.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /api/v1/reviews", h.ListReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", h.GetReview)
	mux.HandleFunc("POST /api/v1/reviews/{id}/lock", h.LockReview)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}/lock", h.UnlockReview)
	mux.HandleFunc("POST /api/v1/reviews/{id}/refresh", h.RefreshReview)
	mux.HandleFunc("POST /api/v1/reviews/{id}/tests", h.AddTest)
	mux.HandleFunc("GET /api/v1/reviews/{id}/history", h.History)
	mux.HandleFunc("POST /api/v1/ingest", h.Ingest)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

// ListReviews returns tracked reviews, optionally filtered by one or more
// ?state= values.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	var states []model.ReviewState
	for _, raw := range r.URL.Query()["state"] {
		st, err := model.ParseReviewState(raw)
		if err != nil || st == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid state %q", raw))
			return
		}
		states = append(states, st)
	}

	reviews, err := h.reviews.List(r.Context(), states...)
	if err != nil {
		h.serviceError(w, "failed to list reviews", err)
		return
	}

	now := h.now()
	resp := make([]ReviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		resp = append(resp, toReviewResponse(rv, now))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetReview returns a single review with its votes and test results.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}

	rv, err := h.reviews.Get(r.Context(), id)
	if err != nil {
		h.serviceError(w, "failed to get review", err, "id", id)
		return
	}

	writeJSON(w, http.StatusOK, toReviewDetailResponse(*rv, h.now()))
}

// LockReview claims a review for the user named in the request body.
func (h *Handler) LockReview(w http.ResponseWriter, r *http.Request) {
	h.lockAction(w, r, h.reviews.Lock)
}

// UnlockReview releases a review held by the user named in the request body.
func (h *Handler) UnlockReview(w http.ResponseWriter, r *http.Request) {
	h.lockAction(w, r, h.reviews.Unlock)
}

func (h *Handler) lockAction(w http.ResponseWriter, r *http.Request, action func(context.Context, int64, int64) error) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}

	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := action(r.Context(), id, req.UserID); err != nil {
		h.serviceError(w, "failed to change lock", err, "id", id, "user_id", req.UserID)
		return
	}

	h.GetReview(w, r)
}

// RefreshReview reconciles one review against its source immediately.
func (h *Handler) RefreshReview(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}

	if err := h.ingest.RefreshReview(r.Context(), id); err != nil {
		h.serviceError(w, "failed to refresh review", err, "id", id)
		return
	}

	h.GetReview(w, r)
}

// AddTest records a CI result against a review.
func (h *Handler) AddTest(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}

	var req AddTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	test, err := h.reviews.AddTest(r.Context(), id, model.ReviewTest{
		RequesterID: req.RequesterID,
		Status:      model.TestStatus(req.Status),
		URL:         req.URL,
		Substrate:   req.Substrate,
	})
	if err != nil {
		h.serviceError(w, "failed to add test", err, "id", id)
		return
	}

	writeJSON(w, http.StatusCreated, toTestResponse(*test))
}

// History returns the audit trail of a review, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}

	if _, err := h.reviews.Get(r.Context(), id); err != nil {
		h.serviceError(w, "failed to get review", err, "id", id)
		return
	}

	entries, err := h.reviews.History(r.Context(), id)
	if err != nil {
		h.serviceError(w, "failed to list history", err, "id", id)
		return
	}

	resp := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toHistoryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Ingest runs one ingestion pass for ?source= (or every source) and waits
// for it to finish.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")

	if err := h.ingest.IngestNow(r.Context(), source); err != nil {
		h.serviceError(w, "ingestion failed", err, "source", source)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{Status: "ok", Source: source})
}

// Health reports database reachability and per-source polling schedules.
// A degraded service answers 503 so container health checks fail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != application.HealthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, toHealthResponse(report))
}

// serviceError maps domain sentinel errors onto HTTP statuses. Anything
// unrecognised is logged and reported as an internal error.
func (h *Handler) serviceError(w http.ResponseWriter, msg string, err error, args ...any) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrMalformed), errors.Is(err, model.ErrMissingArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrUnsupportedType):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		h.logger.Error(msg, append(args, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// reviewID parses the {id} path value, writing a 400 response on failure.
func reviewID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return 0, false
	}
	return id, true
}
