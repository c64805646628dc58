// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// adaptiveTick is how often the loop checks for due sources in adaptive mode.
const adaptiveTick = 30 * time.Second

// ingestRequest represents a manual ingest or refresh trigger.
type ingestRequest struct {
	source   string
	reviewID int64
	done     chan error
}

// IngestService schedules the source plugins. All plugin work runs on the
// Start goroutine, one call at a time, so no api_url is ever reconciled
// concurrently.
type IngestService struct {
	plugins  []SourcePlugin
	bySlug   map[string]SourcePlugin
	reviews  driven.ReviewStore
	metrics  driven.IngestMetrics
	interval time.Duration
	adaptive bool
	requests chan ingestRequest
	now      func() time.Time

	mu        sync.RWMutex
	schedules map[string]*sourceSchedule
}

// NewIngestService creates an IngestService over the given plugins. With
// adaptive set, each source is polled on its own activity tier; otherwise all
// sources are polled every interval. metrics may be nil.
func NewIngestService(
	plugins []SourcePlugin,
	reviews driven.ReviewStore,
	metrics driven.IngestMetrics,
	interval time.Duration,
	adaptive bool,
) *IngestService {
	if metrics == nil {
		metrics = NopMetrics{}
	}

	bySlug := make(map[string]SourcePlugin, len(plugins))
	schedules := make(map[string]*sourceSchedule, len(plugins))
	for _, p := range plugins {
		bySlug[p.Slug()] = p
		schedules[p.Slug()] = &sourceSchedule{}
	}

	return &IngestService{
		plugins:   plugins,
		bySlug:    bySlug,
		reviews:   reviews,
		metrics:   metrics,
		interval:  interval,
		adaptive:  adaptive,
		requests:  make(chan ingestRequest),
		now:       time.Now,
		schedules: schedules,
	}
}

// Sources returns the slugs of the registered plugins in registration order.
func (s *IngestService) Sources() []string {
	out := make([]string, 0, len(s.plugins))
	for _, p := range s.plugins {
		out = append(out, p.Slug())
	}
	return out
}

// Start begins the ingest loop. It runs an immediate ingest of every source,
// then ingests on the configured schedule. It also serves manual requests.
// Start blocks until the context is canceled.
func (s *IngestService) Start(ctx context.Context) {
	s.ingestAll(ctx)

	tick := s.interval
	if s.adaptive {
		tick = adaptiveTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ingest service stopped")
			return
		case <-ticker.C:
			if s.adaptive {
				s.ingestDue(ctx)
			} else {
				s.ingestAll(ctx)
			}
		case req := <-s.requests:
			req.done <- s.handle(ctx, req)
		}
	}
}

// IngestNow asks the running loop to ingest one source, or every source when
// source is empty, bypassing the schedule. It blocks until the ingest
// completes or the context is canceled.
func (s *IngestService) IngestNow(ctx context.Context, source string) error {
	return s.submit(ctx, ingestRequest{source: source})
}

// RefreshReview asks the running loop to refresh one review from its source.
func (s *IngestService) RefreshReview(ctx context.Context, id int64) error {
	if id == 0 {
		return model.ErrMissingArgument
	}
	return s.submit(ctx, ingestRequest{reviewID: id})
}

func (s *IngestService) submit(ctx context.Context, req ingestRequest) error {
	done := make(chan error, 1)
	req.done = done

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce ingests one source, or every source when source is empty, on the
// calling goroutine. It must not be used while Start is running.
func (s *IngestService) RunOnce(ctx context.Context, source string) error {
	return s.handle(ctx, ingestRequest{source: source})
}

// RefreshOnce refreshes one review on the calling goroutine. It must not be
// used while Start is running.
func (s *IngestService) RefreshOnce(ctx context.Context, id int64) error {
	if id == 0 {
		return model.ErrMissingArgument
	}
	return s.handle(ctx, ingestRequest{reviewID: id})
}

// Schedules returns a snapshot of the per-source adaptive schedules.
func (s *IngestService) Schedules() map[string]ScheduleInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ScheduleInfo, len(s.schedules))
	for slug, sch := range s.schedules {
		out[slug] = ScheduleInfo{
			Tier:       sch.tier,
			NextPollAt: sch.nextPollAt,
			LastPolled: sch.lastPolled,
		}
	}
	return out
}

// handle dispatches a manual request.
func (s *IngestService) handle(ctx context.Context, req ingestRequest) error {
	if req.reviewID != 0 {
		return s.refresh(ctx, req.reviewID)
	}
	if req.source == "" {
		return s.ingestAll(ctx)
	}

	p, ok := s.bySlug[req.source]
	if !ok {
		return fmt.Errorf("source %q: %w", req.source, model.ErrNotFound)
	}
	return s.ingestSource(ctx, p)
}

// ingestAll ingests every source and reports how many failed.
func (s *IngestService) ingestAll(ctx context.Context) error {
	start := s.now()

	var failed int
	for _, p := range s.plugins {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.ingestSource(ctx, p); err != nil {
			failed++
		}
	}

	slog.Info("ingest cycle complete",
		"sources", len(s.plugins),
		"errors", failed,
		"duration", s.now().Sub(start).Round(time.Millisecond),
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed to ingest", failed, len(s.plugins))
	}
	return nil
}

// ingestDue ingests the sources whose adaptive schedule has come up.
func (s *IngestService) ingestDue(ctx context.Context) {
	now := s.now()
	for _, p := range s.plugins {
		if ctx.Err() != nil {
			return
		}

		s.mu.RLock()
		due := s.schedules[p.Slug()].due(now)
		s.mu.RUnlock()

		if due {
			_ = s.ingestSource(ctx, p)
		}
	}
}

// ingestSource runs one plugin and reschedules its source. Failures are
// logged here so callers only count them.
func (s *IngestService) ingestSource(ctx context.Context, p SourcePlugin) error {
	start := s.now()
	err := p.Ingest(ctx, "")
	elapsed := s.now().Sub(start)
	s.metrics.ObserveIngest(p.Slug(), elapsed, err)

	if err != nil {
		slog.Error("source ingest failed", "source", p.Slug(), "error", err)
	}

	freshest, ferr := s.reviews.FreshestUpdate(ctx, p.Slug())
	if ferr != nil {
		slog.Error("load freshest update failed", "source", p.Slug(), "error", ferr)
	}

	s.mu.Lock()
	sch := s.schedules[p.Slug()]
	sch.advance(s.now(), freshest)
	tier, next := sch.tier, sch.nextPollAt
	s.mu.Unlock()

	slog.Info("source ingested",
		"source", p.Slug(),
		"duration", elapsed.Round(time.Millisecond),
		"tier", tier.String(),
		"next_poll_at", next,
	)

	return err
}

// refresh re-fetches one review through the plugin of its source.
func (s *IngestService) refresh(ctx context.Context, id int64) error {
	r, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load review %d: %w", id, err)
	}
	if r == nil {
		return fmt.Errorf("review %d: %w", id, model.ErrNotFound)
	}

	p, ok := s.bySlug[r.SourceSlug]
	if !ok {
		return fmt.Errorf("review %d source %q has no plugin: %w", id, r.SourceSlug, model.ErrUnsupportedType)
	}

	slog.Info("manual review refresh requested", "review", id, "source", r.SourceSlug)
	return p.Refresh(ctx, r, 0)
}
