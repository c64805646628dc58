package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// DefaultExcludeLabel marks pull requests that should leave the queue.
const DefaultExcludeLabel = "wontfix"

// GitHubPlugin ingests open pull requests of a fixed set of repositories.
type GitHubPlugin struct {
	pluginBase
	client       driven.GitHubClient
	repos        []string
	excludeLabel string
}

var _ SourcePlugin = (*GitHubPlugin)(nil)

// NewGitHubPlugin creates a GitHubPlugin. helpers and metrics may be nil.
func NewGitHubPlugin(client driven.GitHubClient, uow driven.UnitOfWork, helpers *Helpers, metrics driven.IngestMetrics, repos []string) *GitHubPlugin {
	return &GitHubPlugin{
		pluginBase:   newPluginBase(model.SourceGitHub, uow, helpers, metrics),
		client:       client,
		repos:        repos,
		excludeLabel: DefaultExcludeLabel,
	}
}

// Ingest reconciles the open pull requests of every configured repository.
// A failing repository does not stop the others.
func (p *GitHubPlugin) Ingest(ctx context.Context, person string) error {
	var errs []error
	for _, repo := range p.repos {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		prs, err := p.client.FetchPullRequests(ctx, repo)
		if err != nil {
			p.logger.Error("repo fetch failed", "repo", repo, "error", err)
			errs = append(errs, fmt.Errorf("fetch %s: %w", repo, err))
			continue
		}

		if person != "" {
			prs = filterBy(prs, func(pr model.PullRequest) string { return pr.Author.Username }, person)
		}

		if err := run(ctx, &p.pluginBase, "pull requests", prs, func(ctx context.Context, pr model.PullRequest) error {
			_, err := p.CreateFromPull(ctx, pr)
			return err
		}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repo, err))
		}
	}
	return errors.Join(errs...)
}

// CreateFromPull reconciles a pull request into an UPDATE review and records
// its submitted reviews as votes.
func (p *GitHubPlugin) CreateFromPull(ctx context.Context, pr model.PullRequest) (*model.Review, error) {
	var (
		review  *model.Review
		outcome string
	)

	err := p.inTx(ctx, func(tx driven.Tx) error {
		src, err := tx.References().SourceBySlug(ctx, model.SourceGitHub)
		if err != nil {
			return fmt.Errorf("load source: %w", err)
		}

		r, err := tx.Reviews().GetByAPIURL(ctx, pr.APIURL)
		if err != nil {
			return fmt.Errorf("lookup review: %w", err)
		}
		if r == nil {
			r = &model.Review{
				Type:    model.ReviewTypeUpdate,
				APIURL:  pr.APIURL,
				Created: pr.CreatedAt.UTC(),
			}
		}
		prev := snapshotOf(r)

		p.log("reconciling pull request", "repo", pr.RepoFullName, "pr", pr.Number)

		ownerID, err := p.helpers.OwnerID(ctx, tx, src.ID, pr.Author)
		if err != nil {
			return err
		}
		project, err := tx.References().EnsureProject(ctx, model.Project{
			Name: pr.RepoFullName,
			URL:  "https://github.com/" + pr.RepoFullName,
		})
		if err != nil {
			return fmt.Errorf("ensure project: %w", err)
		}

		r.Title = pr.Title
		r.URL = pr.HTMLURL
		r.OwnerID = ownerID
		r.SourceID = src.ID
		r.ProjectID = project.ID
		r.Syncd = p.now().UTC()

		var last *model.Person
		updated := latest(pr.CreatedAt, pr.UpdatedAt)
		if n := len(pr.Reviews); n > 0 {
			last = &pr.Reviews[n-1].Author
			updated = latest(updated, pr.Reviews[n-1].DateCreated)
		}
		r.Updated = updated.UTC()

		r.State = resolveState(PullState(pr), stateInputs{
			lastAuthor: last,
			followedBy: &pr.Author,
			tags:       pr.Labels,
			excludeTag: p.excludeLabel,
		})
		prev.settle(r)
		outcome = prev.outcome(r)

		if err := tx.Reviews().Save(ctx, r); err != nil {
			return fmt.Errorf("save review: %w", err)
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile pull request %s#%d: %w", pr.RepoFullName, pr.Number, err)
	}
	p.metrics.ReviewReconciled(p.slug, outcome)

	if err := p.deriveVotes(ctx, review, pr.Reviews); err != nil {
		return review, fmt.Errorf("record votes for %s#%d: %w", pr.RepoFullName, pr.Number, err)
	}
	return review, nil
}

// Refresh re-fetches the pull request behind a review.
func (p *GitHubPlugin) Refresh(ctx context.Context, record *model.Review, id int64) error {
	r, err := p.loadForRefresh(ctx, record, id)
	if err != nil {
		return err
	}
	if r.APIURL == "" {
		p.log("review has no api url, nothing to refresh", "review", r.ID)
		return nil
	}
	if r.Type != model.ReviewTypeUpdate {
		return fmt.Errorf("refresh review %d type %q: %w", r.ID, r.Type, model.ErrUnsupportedType)
	}

	repo, number, err := ParsePullAPIURL(r.APIURL)
	if handled, err := p.settleFetchError(ctx, r, err); handled {
		return err
	}

	pr, err := p.client.FetchPullRequest(ctx, repo, number)
	if handled, err := p.settleFetchError(ctx, r, err); handled {
		return err
	}

	_, err = p.CreateFromPull(ctx, *pr)
	return p.settleMalformed(ctx, r, err)
}

// ParsePullAPIURL splits https://api.github.com/repos/{owner}/{repo}/pulls/{n}
// into the repository full name and the pull request number.
func ParsePullAPIURL(apiURL string) (string, int, error) {
	_, rest, ok := strings.Cut(apiURL, "/repos/")
	if !ok {
		return "", 0, fmt.Errorf("pull request url %q: %w", apiURL, model.ErrMalformed)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 4 || parts[0] == "" || parts[1] == "" || parts[2] != "pulls" {
		return "", 0, fmt.Errorf("pull request url %q: %w", apiURL, model.ErrMalformed)
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("pull request url %q: %w", apiURL, model.ErrMalformed)
	}
	return parts[0] + "/" + parts[1], n, nil
}
