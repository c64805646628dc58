// Package restapi holds the HTTP plumbing shared by the JSON remote clients:
// response caching, client-side rate limiting, a per-request timeout and the
// mapping of HTTP failures onto the domain sentinel errors.
package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRate    = 5
	maxErrorBody   = 512
)

// Options configures a Fetcher. Zero values select the defaults.
type Options struct {
	// HTTPClient replaces the caching client. Tests pass a client whose
	// transport is an httpmock.MockTransport.
	HTTPClient *http.Client
	// Timeout bounds each request, including rate limiter waits.
	Timeout time.Duration
	// RequestsPerSecond is the sustained request rate; bursts of the same size are allowed.
	RequestsPerSecond float64
	// UserAgent is sent with every request when set.
	UserAgent string
}

// Fetcher performs rate-limited JSON GET requests.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
}

// NewFetcher creates a Fetcher. Without an explicit HTTP client, responses
// are cached in memory and revalidated with ETag / Last-Modified.
func NewFetcher(opts Options) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Transport: httpcache.NewMemoryCacheTransport()}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRate
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &Fetcher{
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		timeout:   timeout,
		userAgent: opts.UserAgent,
	}
}

// GetJSON fetches rawURL and decodes the JSON body into out.
//
// A 404 or 410 response is wrapped as model.ErrNotFound and an undecodable
// body as model.ErrMalformed. Other failures are returned as plain errors
// so that callers treat them as transient.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	slog.Debug("remote api call",
		"url", rawURL,
		"status", resp.StatusCode,
		"cached", resp.Header.Get(httpcache.XFromCache) != "",
		"duration", time.Since(start).Round(time.Millisecond),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("requesting %s: %w", rawURL, model.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("requesting %s: unexpected status %d: %s", rawURL, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w: %w", rawURL, model.ErrMalformed, err)
	}
	return nil
}
