// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, authenticated when token is set)
func NewClient(token string, timeout time.Duration) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	rateLimitClient.Timeout = timeout

	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchPullRequests retrieves the open pull requests of a repository together
// with their submitted reviews. It handles pagination automatically.
func (c *Client) FetchPullRequests(ctx context.Context, repoFullName string) ([]model.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListOptions{
		State:     "open",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	allPRs := []model.PullRequest{}

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, wrapNotFound(resp, fmt.Errorf("listing pull requests for %s (page %d): %w", repoFullName, opts.Page, err))
		}

		logRateLimit(resp, repoFullName, opts.Page, len(prs))

		for _, pr := range prs {
			mapped := mapPullRequest(pr, repoFullName)
			mapped.Reviews, err = c.fetchReviews(ctx, owner, repo, mapped)
			if err != nil {
				return nil, err
			}
			allPRs = append(allPRs, mapped)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allPRs, nil
}

// FetchPullRequest retrieves a single pull request regardless of its state.
// A missing pull request is reported as model.ErrNotFound.
func (c *Client) FetchPullRequest(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, wrapNotFound(resp, fmt.Errorf("fetching %s#%d: %w", repoFullName, number, err))
	}

	logRateLimit(resp, fmt.Sprintf("%s#%d", repoFullName, number), 0, 1)

	mapped := mapPullRequest(pr, repoFullName)
	mapped.Reviews, err = c.fetchReviews(ctx, owner, repo, mapped)
	if err != nil {
		return nil, err
	}
	return &mapped, nil
}

// fetchReviews retrieves all submitted reviews for a pull request, oldest first.
func (c *Client) fetchReviews(ctx context.Context, owner, repo string, pr model.PullRequest) ([]model.Comment, error) {
	opts := &gh.ListOptions{PerPage: 100}
	var reviews []model.Comment

	for {
		page, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, pr.Number, opts)
		if err != nil {
			return nil, wrapNotFound(resp, fmt.Errorf("listing reviews for %s#%d (page %d): %w", pr.RepoFullName, pr.Number, opts.Page, err))
		}

		for _, r := range page {
			// Pending reviews are drafts only visible to their author.
			if r.GetState() == "PENDING" {
				continue
			}
			reviews = append(reviews, mapReview(r, pr.APIURL))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return reviews, nil
}

// wrapNotFound marks a 404 response as model.ErrNotFound.
func wrapNotFound(resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", model.ErrNotFound, err)
	}
	return err
}

// logRateLimit logs rate limit information from the GitHub API response.
// Warns when remaining calls drop below 100.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 && resp.Rate.Limit > 0 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapPullRequest converts a go-github PullRequest to a domain model PullRequest.
func mapPullRequest(pr *gh.PullRequest, repoFullName string) model.PullRequest {
	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}

	user := pr.GetUser()

	return model.PullRequest{
		APIURL:       pr.GetURL(),
		HTMLURL:      pr.GetHTMLURL(),
		RepoFullName: repoFullName,
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		State:        pr.GetState(),
		Draft:        pr.GetDraft(),
		Merged:       pr.GetMerged() || !pr.GetMergedAt().IsZero(),
		Author: model.Person{
			Username:    user.GetLogin(),
			DisplayName: user.GetName(),
			URL:         user.GetHTMLURL(),
		},
		Labels:    labels,
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}
}

// mapReview converts a go-github PullRequestReview to a domain model Comment.
// The review's API path doubles as its stable identifier.
func mapReview(r *gh.PullRequestReview, pullAPIURL string) model.Comment {
	user := r.GetUser()

	return model.Comment{
		SelfLink: fmt.Sprintf("%s/reviews/%d", pullAPIURL, r.GetID()),
		Author: model.Person{
			Username: user.GetLogin(),
			URL:      user.GetHTMLURL(),
		},
		Vote:        r.GetState(),
		Content:     r.GetBody(),
		DateCreated: r.GetSubmittedAt().Time,
	}
}

// splitRepo splits "owner/repo" into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
