// Package launchpad implements the LaunchpadClient port against the
// Launchpad REST web service.
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ericfisherdev/reviewq/internal/adapter/driven/restapi"
	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// DefaultBaseURL is the root of the production Launchpad web service.
const DefaultBaseURL = "https://api.launchpad.net/devel/"

const (
	linkedBranchesFilter = "Show only Bugs with linked Branches"
	linkCacheTTL         = time.Hour
	linkCacheCleanup     = 10 * time.Minute
)

// Compile-time interface satisfaction check.
var _ driven.LaunchpadClient = (*Client)(nil)

// Client implements driven.LaunchpadClient. People and distro series are
// looked up once per hour; everything else is fetched on every call.
type Client struct {
	base   *url.URL
	fetch  *restapi.Fetcher
	people *cache.Cache
	series *cache.Cache
}

// NewClient creates a Launchpad client rooted at baseURL.
func NewClient(baseURL string, opts restapi.Options) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing launchpad base URL: %w", err)
	}

	return &Client{
		base:   u,
		fetch:  restapi.NewFetcher(opts),
		people: cache.New(linkCacheTTL, linkCacheCleanup),
		series: cache.New(linkCacheTTL, linkCacheCleanup),
	}, nil
}

// SearchBugTasks runs the searchTasks operation on a distribution.
func (c *Client) SearchBugTasks(ctx context.Context, distribution string, statuses, tags []string, linkedBranchesOnly bool) ([]model.BugTask, error) {
	q := url.Values{"ws.op": {"searchTasks"}}
	for _, s := range statuses {
		q.Add("status", s)
	}
	for _, t := range tags {
		q.Add("tags", t)
	}
	if linkedBranchesOnly {
		q.Set("linked_branches", linkedBranchesFilter)
	}

	entries, err := collect[bugTaskResource](ctx, c, c.resolve(distribution)+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("searching bug tasks of %s: %w", distribution, err)
	}

	tasks := make([]model.BugTask, 0, len(entries))
	for _, e := range entries {
		task, err := c.mapBugTask(ctx, e)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("skipping bug task", "self_link", e.SelfLink, "error", err)
			continue
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// MergeProposals runs the getMergeProposals operation on a distribution.
func (c *Client) MergeProposals(ctx context.Context, distribution string, statuses []string) ([]model.MergeProposal, error) {
	q := url.Values{"ws.op": {"getMergeProposals"}}
	for _, s := range statuses {
		q.Add("status", s)
	}

	entries, err := collect[mergeProposalResource](ctx, c, c.resolve(distribution)+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("listing merge proposals of %s: %w", distribution, err)
	}

	proposals := make([]model.MergeProposal, 0, len(entries))
	for _, e := range entries {
		mp, err := c.mapMergeProposal(ctx, e)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("skipping merge proposal", "self_link", e.SelfLink, "error", err)
			continue
		}
		proposals = append(proposals, *mp)
	}
	return proposals, nil
}

// LoadBugTask fetches a single bug task by its self_link. Only the task itself
// yields model.ErrNotFound or model.ErrMalformed; failures of the resources it
// links to are plain errors.
func (c *Client) LoadBugTask(ctx context.Context, selfLink string) (*model.BugTask, error) {
	var res bugTaskResource
	if err := c.fetch.GetJSON(ctx, c.resolve(selfLink), &res); err != nil {
		return nil, fmt.Errorf("loading bug task: %w", err)
	}
	return c.mapBugTask(ctx, res)
}

// LoadMergeProposal fetches a single merge proposal by its self_link, with
// the same error contract as LoadBugTask.
func (c *Client) LoadMergeProposal(ctx context.Context, selfLink string) (*model.MergeProposal, error) {
	var res mergeProposalResource
	if err := c.fetch.GetJSON(ctx, c.resolve(selfLink), &res); err != nil {
		return nil, fmt.Errorf("loading merge proposal: %w", err)
	}
	return c.mapMergeProposal(ctx, res)
}

func (c *Client) mapBugTask(ctx context.Context, res bugTaskResource) (*model.BugTask, error) {
	owner, err := c.person(ctx, res.OwnerLink)
	if err != nil {
		return nil, err
	}

	task := &model.BugTask{
		SelfLink:    res.SelfLink,
		WebLink:     res.WebLink,
		Status:      res.Status,
		Owner:       owner,
		TargetName:  res.BugTargetName,
		TargetLink:  res.TargetLink,
		DateCreated: res.DateCreated,
	}

	if res.AssigneeLink != "" {
		assignee, err := c.person(ctx, res.AssigneeLink)
		if err != nil {
			return nil, err
		}
		task.Assignee = &assignee
	}

	var bug bugResource
	if err := c.fetch.GetJSON(ctx, c.resolve(res.BugLink), &bug); err != nil {
		return nil, linked("loading bug of "+res.SelfLink, err)
	}
	task.Bug = model.Bug{
		Title:           bug.Title,
		Tags:            bug.Tags,
		DateLastMessage: bug.DateLastMessage,
		DateLastUpdated: bug.DateLastUpdated,
	}

	if bug.MessagesCollectionLink == "" {
		return task, nil
	}
	messages, err := collect[messageResource](ctx, c, c.resolve(bug.MessagesCollectionLink))
	if err != nil {
		return nil, linked("listing messages of "+res.SelfLink, err)
	}
	for _, m := range messages {
		author, err := c.person(ctx, m.OwnerLink)
		if err != nil {
			return nil, err
		}
		task.Bug.Messages = append(task.Bug.Messages, model.Comment{
			SelfLink:    m.SelfLink,
			Author:      author,
			Content:     m.Content,
			DateCreated: m.DateCreated,
		})
	}
	return task, nil
}

func (c *Client) mapMergeProposal(ctx context.Context, res mergeProposalResource) (*model.MergeProposal, error) {
	registrant, err := c.person(ctx, res.RegistrantLink)
	if err != nil {
		return nil, err
	}

	mp := &model.MergeProposal{
		SelfLink:     res.SelfLink,
		WebLink:      res.WebLink,
		QueueStatus:  res.QueueStatus,
		SourceBranch: strings.TrimPrefix(res.SourceGitPath, "refs/heads/"),
		Registrant:   registrant,
		DateCreated:  res.DateCreated,
	}

	if res.SourceBranchLink != "" {
		var branch branchResource
		err := c.fetch.GetJSON(ctx, c.resolve(res.SourceBranchLink), &branch)
		switch {
		case err == nil:
			mp.SourceBranch = branch.DisplayName
		case !errors.Is(err, model.ErrNotFound):
			return nil, linked("loading source branch of "+res.SelfLink, err)
		}
	}

	if res.TargetBranchLink != "" {
		mp.TargetSeries, err = c.targetSeries(ctx, res.TargetBranchLink)
		if err != nil {
			return nil, linked("resolving target series of "+res.SelfLink, err)
		}
	}

	if res.AllCommentsLink == "" {
		return mp, nil
	}
	comments, err := collect[codeReviewCommentResource](ctx, c, c.resolve(res.AllCommentsLink))
	if err != nil {
		return nil, linked("listing comments of "+res.SelfLink, err)
	}
	for _, cm := range comments {
		author, err := c.person(ctx, cm.AuthorLink)
		if err != nil {
			return nil, err
		}
		mp.Comments = append(mp.Comments, model.Comment{
			SelfLink:    cm.SelfLink,
			Author:      author,
			Vote:        cm.Vote,
			Content:     cm.MessageBody,
			DateCreated: cm.DateCreated,
		})
	}
	return mp, nil
}

// targetSeries follows branch -> source package -> distro series. Branches
// that do not belong to a source package, or whose chain has a missing link,
// have no series.
func (c *Client) targetSeries(ctx context.Context, branchLink string) (*model.RemoteSeries, error) {
	s, err := c.lookupSeries(ctx, branchLink)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

func (c *Client) lookupSeries(ctx context.Context, branchLink string) (*model.RemoteSeries, error) {
	var branch branchResource
	if err := c.fetch.GetJSON(ctx, c.resolve(branchLink), &branch); err != nil {
		return nil, err
	}
	if branch.SourcePackageLink == "" {
		return nil, nil
	}

	var pkg sourcePackageResource
	if err := c.fetch.GetJSON(ctx, c.resolve(branch.SourcePackageLink), &pkg); err != nil {
		return nil, err
	}
	if pkg.DistroSeriesLink == "" {
		return nil, nil
	}

	if cached, ok := c.series.Get(pkg.DistroSeriesLink); ok {
		s := cached.(model.RemoteSeries)
		return &s, nil
	}

	var res seriesResource
	if err := c.fetch.GetJSON(ctx, c.resolve(pkg.DistroSeriesLink), &res); err != nil {
		return nil, err
	}
	s := model.RemoteSeries{Name: res.DisplayName, Slug: res.Name, Active: res.Active}
	if s.Name == "" {
		s.Name = res.Name
	}
	c.series.Set(pkg.DistroSeriesLink, s, cache.DefaultExpiration)
	return &s, nil
}

// person resolves a person link. An empty link, or one to a person that no
// longer exists, yields the zero Person.
func (c *Client) person(ctx context.Context, link string) (model.Person, error) {
	if link == "" {
		return model.Person{}, nil
	}
	if cached, ok := c.people.Get(link); ok {
		return cached.(model.Person), nil
	}

	var res personResource
	err := c.fetch.GetJSON(ctx, c.resolve(link), &res)
	if errors.Is(err, model.ErrNotFound) {
		return model.Person{}, nil
	}
	if err != nil {
		return model.Person{}, linked("loading person", err)
	}

	p := model.Person{Username: res.Name, DisplayName: res.DisplayName, URL: res.WebLink}
	c.people.Set(link, p, cache.DefaultExpiration)
	return p, nil
}

// linked wraps the failure of a resource linked from the record being loaded.
// The not-found and malformed sentinels are flattened into the message so
// callers do not mistake them for the state of the record itself.
func linked(what string, err error) error {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrMalformed) {
		return fmt.Errorf("%s: %v", what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// resolve turns a relative resource path into an absolute URL. Links
// returned by the service are already absolute.
func (c *Client) resolve(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.IsAbs() {
		return link
	}
	return c.base.ResolveReference(u).String()
}

// collect reads every page of a collection.
func collect[T any](ctx context.Context, c *Client, link string) ([]T, error) {
	var all []T
	for link != "" {
		var page collection[T]
		if err := c.fetch.GetJSON(ctx, link, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Entries...)
		link = page.NextCollectionLink
	}
	return all, nil
}
