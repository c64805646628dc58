package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// DefaultExcludeTag marks Launchpad bugs that are not charm submissions.
const DefaultExcludeTag = "not-a-charm"

// DefaultBugStatuses are the bug task statuses searched on Launchpad.
var DefaultBugStatuses = []string{
	"New", "Incomplete", "Opinion", "Won't Fix", "Confirmed", "Triaged",
	"In Progress", "Fix Committed", "Fix Released", "Invalid",
	"Incomplete (with response)", "Incomplete (without response)",
}

// DefaultMergeStatuses are the merge proposal queue statuses searched on Launchpad.
var DefaultMergeStatuses = []string{
	"Work in progress", "Needs review", "Approved", "Rejected",
	"Merged", "Code failed to merge", "Queued", "Superseded",
}

// LaunchpadConfig selects what the Launchpad plugin ingests.
type LaunchpadConfig struct {
	Distribution  string
	BugStatuses   []string
	MergeStatuses []string
	ExcludeTag    string
}

func (c LaunchpadConfig) withDefaults() LaunchpadConfig {
	if c.Distribution == "" {
		c.Distribution = "charms"
	}
	if len(c.BugStatuses) == 0 {
		c.BugStatuses = DefaultBugStatuses
	}
	if len(c.MergeStatuses) == 0 {
		c.MergeStatuses = DefaultMergeStatuses
	}
	if c.ExcludeTag == "" {
		c.ExcludeTag = DefaultExcludeTag
	}
	return c
}

// LaunchpadPlugin ingests merge proposals and bug tasks of one Launchpad
// distribution.
type LaunchpadPlugin struct {
	pluginBase
	client driven.LaunchpadClient
	cfg    LaunchpadConfig
}

var _ SourcePlugin = (*LaunchpadPlugin)(nil)

// NewLaunchpadPlugin creates a LaunchpadPlugin. helpers and metrics may be nil.
func NewLaunchpadPlugin(client driven.LaunchpadClient, uow driven.UnitOfWork, helpers *Helpers, metrics driven.IngestMetrics, cfg LaunchpadConfig) *LaunchpadPlugin {
	return &LaunchpadPlugin{
		pluginBase: newPluginBase(model.SourceLaunchpad, uow, helpers, metrics),
		client:     client,
		cfg:        cfg.withDefaults(),
	}
}

// Ingest reconciles every merge proposal and creates reviews for bug tasks
// not seen before.
func (p *LaunchpadPlugin) Ingest(ctx context.Context, person string) error {
	return errors.Join(p.ingestMerges(ctx, person), p.ingestBugs(ctx, person))
}

func (p *LaunchpadPlugin) ingestMerges(ctx context.Context, person string) error {
	mps, err := p.client.MergeProposals(ctx, p.cfg.Distribution, p.cfg.MergeStatuses)
	if err != nil {
		return fmt.Errorf("list merge proposals: %w", err)
	}

	if person != "" {
		mps = filterBy(mps, func(mp model.MergeProposal) string { return mp.Registrant.Username }, person)
	}

	return run(ctx, &p.pluginBase, "merge proposals", mps, func(ctx context.Context, mp model.MergeProposal) error {
		_, err := p.CreateFromMerge(ctx, mp)
		return err
	})
}

func (p *LaunchpadPlugin) ingestBugs(ctx context.Context, person string) error {
	tags := []string{"-" + p.cfg.ExcludeTag}
	tasks, err := p.client.SearchBugTasks(ctx, p.cfg.Distribution, p.cfg.BugStatuses, tags, true)
	if err != nil {
		return fmt.Errorf("search bug tasks: %w", err)
	}

	if person != "" {
		tasks = filterBy(tasks, func(t model.BugTask) string { return t.Owner.Username }, person)
	}

	var fresh []model.BugTask
	for _, task := range tasks {
		// Package-level tasks duplicate the distribution-level one.
		if strings.Contains(task.WebLink, "+source") {
			continue
		}
		existing, err := p.uow.Reviews().GetByAPIURL(ctx, task.SelfLink)
		if err != nil {
			return fmt.Errorf("lookup review %s: %w", task.SelfLink, err)
		}
		if existing == nil {
			fresh = append(fresh, task)
		}
	}

	return run(ctx, &p.pluginBase, "bug tasks", fresh, func(ctx context.Context, task model.BugTask) error {
		_, err := p.CreateFromBug(ctx, task)
		return err
	})
}

// CreateFromMerge reconciles a merge proposal into an UPDATE review and
// records its comments as votes. Comments are not recorded when the target
// series is inactive.
func (p *LaunchpadPlugin) CreateFromMerge(ctx context.Context, mp model.MergeProposal) (*model.Review, error) {
	var (
		review  *model.Review
		outcome string
		active  = true
	)

	err := p.inTx(ctx, func(tx driven.Tx) error {
		src, err := tx.References().SourceBySlug(ctx, model.SourceLaunchpad)
		if err != nil {
			return fmt.Errorf("load source: %w", err)
		}

		r, err := tx.Reviews().GetByAPIURL(ctx, mp.SelfLink)
		if err != nil {
			return fmt.Errorf("lookup review: %w", err)
		}
		if r == nil {
			r = &model.Review{
				Type:    model.ReviewTypeUpdate,
				APIURL:  mp.SelfLink,
				Created: mp.DateCreated.UTC(),
			}
		}
		prev := snapshotOf(r)

		p.log("reconciling merge proposal", "api_url", mp.SelfLink, "queue_status", mp.QueueStatus)

		mapped, err := MapLaunchpadState(mp.QueueStatus)
		if err != nil {
			return err
		}
		ownerID, err := p.helpers.OwnerID(ctx, tx, src.ID, mp.Registrant)
		if err != nil {
			return err
		}

		r.URL = mp.WebLink
		r.Title = mp.SourceBranch
		r.OwnerID = ownerID
		r.SourceID = src.ID
		r.Syncd = p.now().UTC()

		switch {
		case mp.TargetSeries != nil:
			series, err := p.helpers.CreateSeries(ctx, tx, *mp.TargetSeries)
			if err != nil {
				return err
			}
			r.SeriesID = series.ID
			active = series.Active
		case r.SeriesSlug != "":
			series, err := tx.References().SeriesBySlug(ctx, r.SeriesSlug)
			if err != nil {
				return fmt.Errorf("load series %s: %w", r.SeriesSlug, err)
			}
			active = series.Active
		}

		var last *model.Person
		if n := len(mp.Comments); n > 0 {
			r.Updated = mp.Comments[n-1].DateCreated.UTC()
			last = &mp.Comments[n-1].Author
		} else {
			r.Updated = mp.DateCreated.UTC()
		}

		r.State = resolveState(mapped, stateInputs{
			seriesInactive: !active,
			lastAuthor:     last,
			followedBy:     &mp.Registrant,
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
		return nil, fmt.Errorf("reconcile merge proposal %s: %w", mp.SelfLink, err)
	}
	p.metrics.ReviewReconciled(p.slug, outcome)

	if !active {
		p.log("series inactive, skipping comments", "review", review.ID)
		return review, nil
	}
	if err := p.deriveVotes(ctx, review, mp.Comments); err != nil {
		return review, fmt.Errorf("record votes for %s: %w", mp.SelfLink, err)
	}
	return review, nil
}

// CreateFromBug reconciles a bug task into a NEW review and records the bug
// messages after the description as votes.
func (p *LaunchpadPlugin) CreateFromBug(ctx context.Context, task model.BugTask) (*model.Review, error) {
	bug := task.Bug

	var (
		review  *model.Review
		outcome string
	)

	err := p.inTx(ctx, func(tx driven.Tx) error {
		src, err := tx.References().SourceBySlug(ctx, model.SourceLaunchpad)
		if err != nil {
			return fmt.Errorf("load source: %w", err)
		}

		r, err := tx.Reviews().GetByAPIURL(ctx, task.SelfLink)
		if err != nil {
			return fmt.Errorf("lookup review: %w", err)
		}
		if r == nil {
			r = &model.Review{
				Type:    model.ReviewTypeNew,
				APIURL:  task.SelfLink,
				Created: task.DateCreated.UTC(),
			}
		}
		prev := snapshotOf(r)

		p.log("reconciling bug task", "api_url", task.SelfLink, "status", task.Status)

		mapped, err := BugState(task)
		if err != nil {
			return err
		}
		ownerID, err := p.helpers.OwnerID(ctx, tx, src.ID, task.Owner)
		if err != nil {
			return err
		}

		r.Title = bug.Title
		r.URL = task.WebLink
		r.OwnerID = ownerID
		r.SourceID = src.ID
		r.Syncd = p.now().UTC()
		r.Updated = latest(bug.DateLastMessage, bug.DateLastUpdated).UTC()

		if task.TargetLink != "" {
			project, err := tx.References().EnsureProject(ctx, model.Project{
				Name: task.TargetName,
				URL:  task.TargetLink,
			})
			if err != nil {
				return fmt.Errorf("ensure project: %w", err)
			}
			r.ProjectID = project.ID
		}

		var last *model.Person
		if n := len(bug.Messages); n > 0 {
			last = &bug.Messages[n-1].Author
		}

		r.State = resolveState(mapped, stateInputs{
			lastAuthor: last,
			followedBy: task.Assignee,
			tags:       bug.Tags,
			excludeTag: p.cfg.ExcludeTag,
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
		return nil, fmt.Errorf("reconcile bug task %s: %w", task.SelfLink, err)
	}
	p.metrics.ReviewReconciled(p.slug, outcome)

	if err := p.deriveVotes(ctx, review, bugComments(bug.Messages)); err != nil {
		return review, fmt.Errorf("record votes for %s: %w", task.SelfLink, err)
	}
	return review, nil
}

// bugComments drops the first message, which Launchpad always fills with the
// bug description.
func bugComments(msgs []model.Comment) []model.Comment {
	if len(msgs) == 0 {
		return nil
	}
	return msgs[1:]
}

// Refresh re-fetches a Launchpad review and reconciles it by type.
func (p *LaunchpadPlugin) Refresh(ctx context.Context, record *model.Review, id int64) error {
	r, err := p.loadForRefresh(ctx, record, id)
	if err != nil {
		return err
	}
	if r.APIURL == "" {
		p.log("review has no api url, nothing to refresh", "review", r.ID)
		return nil
	}

	switch r.Type {
	case model.ReviewTypeNew:
		task, err := p.client.LoadBugTask(ctx, r.APIURL)
		if handled, err := p.settleFetchError(ctx, r, err); handled {
			return err
		}
		_, err = p.CreateFromBug(ctx, *task)
		return p.settleMalformed(ctx, r, err)
	case model.ReviewTypeUpdate:
		mp, err := p.client.LoadMergeProposal(ctx, r.APIURL)
		if handled, err := p.settleFetchError(ctx, r, err); handled {
			return err
		}
		_, err = p.CreateFromMerge(ctx, *mp)
		return p.settleMalformed(ctx, r, err)
	default:
		return fmt.Errorf("refresh review %d type %q: %w", r.ID, r.Type, model.ErrUnsupportedType)
	}
}

func filterBy[T any](items []T, key func(T) string, want string) []T {
	var out []T
	for _, it := range items {
		if strings.EqualFold(key(it), want) {
			out = append(out, it)
		}
	}
	return out
}
