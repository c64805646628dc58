// Package metrics implements the IngestMetrics port with Prometheus collectors.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

const namespace = "reviewq"

// Compile-time interface satisfaction check.
var _ driven.IngestMetrics = (*Metrics)(nil)

// Metrics contains the Prometheus collectors for ingestion and the HTTP API.
type Metrics struct {
	ingestRunsTotal *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec
	reviewsTotal    *prometheus.CounterVec
	votesTotal      *prometheus.CounterVec
	lastSuccess     *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ingestRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_runs_total",
				Help:      "Total number of source ingestion runs",
			},
			[]string{"source", "status"}, // status: success, error, not_found, malformed
		),
		ingestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_seconds",
				Help:      "Time taken to ingest one source",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"source"},
		),
		reviewsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_reconciled_total",
				Help:      "Total number of reconciled reviews by outcome",
			},
			[]string{"source", "outcome"},
		),
		votesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_created_total",
				Help:      "Total number of votes derived from remote comments",
			},
			[]string{"source", "vote"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ingest_last_success_timestamp_seconds",
				Help:      "Unix time of the last successful ingestion per source",
			},
			[]string{"source"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Time taken to serve HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.ingestRunsTotal.Describe(ch)
	m.ingestDuration.Describe(ch)
	m.reviewsTotal.Describe(ch)
	m.votesTotal.Describe(ch)
	m.lastSuccess.Describe(ch)
	m.httpRequests.Describe(ch)
	m.httpDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.ingestRunsTotal.Collect(ch)
	m.ingestDuration.Collect(ch)
	m.reviewsTotal.Collect(ch)
	m.votesTotal.Collect(ch)
	m.lastSuccess.Collect(ch)
	m.httpRequests.Collect(ch)
	m.httpDuration.Collect(ch)
}

// ObserveIngest records one ingestion run of source.
func (m *Metrics) ObserveIngest(source string, duration time.Duration, err error) {
	m.ingestDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.ingestRunsTotal.WithLabelValues(source, ingestStatus(err)).Inc()
	if err == nil {
		m.lastSuccess.WithLabelValues(source).SetToCurrentTime()
	}
}

// ReviewReconciled counts one reconciled review.
func (m *Metrics) ReviewReconciled(source, outcome string) {
	m.reviewsTotal.WithLabelValues(source, outcome).Inc()
}

// VoteCreated counts one new vote.
func (m *Metrics) VoteCreated(source string, vote model.VoteKind) {
	m.votesTotal.WithLabelValues(source, string(vote)).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func ingestStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}
