// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/reviewq/internal/application"
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	reviews    *application.ReviewService
	noticeHTML string
	logger     *slog.Logger
	now        func() time.Time
}

// NewHandler creates a Handler. notice is optional markdown shown above the queue.
func NewHandler(reviews *application.ReviewService, notice string, logger *slog.Logger) *Handler {
	return &Handler{
		reviews:    reviews,
		noticeHTML: RenderNotice(notice),
		logger:     logger,
		now:        time.Now,
	}
}

// Queue renders the read-only review queue page.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	q, err := h.reviews.Queue(r.Context())
	if err != nil {
		h.logger.Error("failed to load queue", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := Layout("reviewq", QueuePage(toQueueViewModel(q, h.noticeHTML, h.now())))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render queue", "error", err)
	}
}
