package application

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// DefaultQuestionTags are the Stack Exchange tags searched when none are configured.
var DefaultQuestionTags = []string{"juju", "maas", "openstack", "landscape"}

// AskUbuntuPlugin ingests tagged questions from a Stack Exchange site.
type AskUbuntuPlugin struct {
	pluginBase
	client driven.StackExchangeClient
	tags   []string
}

var _ SourcePlugin = (*AskUbuntuPlugin)(nil)

// NewAskUbuntuPlugin creates an AskUbuntuPlugin. helpers and metrics may be nil.
func NewAskUbuntuPlugin(client driven.StackExchangeClient, uow driven.UnitOfWork, helpers *Helpers, metrics driven.IngestMetrics, tags []string) *AskUbuntuPlugin {
	if len(tags) == 0 {
		tags = DefaultQuestionTags
	}
	return &AskUbuntuPlugin{
		pluginBase: newPluginBase(model.SourceAskUbuntu, uow, helpers, metrics),
		client:     client,
		tags:       tags,
	}
}

// Ingest reconciles every question matching the configured tags.
func (p *AskUbuntuPlugin) Ingest(ctx context.Context, person string) error {
	qs, err := p.client.SearchQuestions(ctx, p.tags)
	if err != nil {
		return fmt.Errorf("search questions: %w", err)
	}

	if person != "" {
		qs = filterBy(qs, func(q model.Question) string { return q.Owner.Username }, person)
	}

	return run(ctx, &p.pluginBase, "questions", qs, func(ctx context.Context, q model.Question) error {
		_, err := p.Create(ctx, q)
		return err
	})
}

// Create reconciles a question into a NEW review and records its answers and
// comments as votes.
func (p *AskUbuntuPlugin) Create(ctx context.Context, q model.Question) (*model.Review, error) {
	key, err := QuestionAPIURL(q)
	if err != nil {
		return nil, fmt.Errorf("reconcile question %d: %w", q.QuestionID, err)
	}

	var (
		review  *model.Review
		outcome string
	)

	err = p.inTx(ctx, func(tx driven.Tx) error {
		src, err := tx.References().SourceBySlug(ctx, model.SourceAskUbuntu)
		if err != nil {
			return fmt.Errorf("load source: %w", err)
		}
		category, err := tx.References().CategoryBySlug(ctx, model.SourceAskUbuntu)
		if err != nil {
			return fmt.Errorf("load category: %w", err)
		}

		r, err := tx.Reviews().GetByAPIURL(ctx, key)
		if err == nil && r == nil && q.Link != key {
			// Rows keyed by the full link are adopted and rekeyed below.
			r, err = tx.Reviews().GetByAPIURL(ctx, q.Link)
		}
		if err != nil {
			return fmt.Errorf("lookup review: %w", err)
		}
		if r == nil {
			r = &model.Review{
				Type:    model.ReviewTypeNew,
				Created: q.CreationDate.UTC(),
			}
		}
		prev := snapshotOf(r)

		p.log("reconciling question", "api_url", key, "answers", q.AnswerCount)

		ownerID, err := p.helpers.OwnerID(ctx, tx, src.ID, q.Owner)
		if err != nil {
			return err
		}

		r.Title = q.Title
		r.APIURL = key
		r.URL = q.Link
		r.OwnerID = ownerID
		r.SourceID = src.ID
		r.CategoryID = category.ID
		r.Syncd = p.now().UTC()

		var last *model.Person
		updated := latest(q.CreationDate, q.LastActivityDate)
		if n := len(q.Posts); n > 0 {
			last = &q.Posts[n-1].Author
			updated = latest(updated, q.Posts[n-1].DateCreated)
		}
		r.Updated = updated.UTC()

		r.State = resolveState(QuestionState(q), stateInputs{
			lastAuthor: last,
			followedBy: &q.Owner,
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
		return nil, fmt.Errorf("reconcile question %d: %w", q.QuestionID, err)
	}
	p.metrics.ReviewReconciled(p.slug, outcome)

	if err := p.deriveVotes(ctx, review, q.Posts); err != nil {
		return review, fmt.Errorf("record votes for question %d: %w", q.QuestionID, err)
	}
	return review, nil
}

// Refresh re-loads the question behind a review.
func (p *AskUbuntuPlugin) Refresh(ctx context.Context, record *model.Review, id int64) error {
	r, err := p.loadForRefresh(ctx, record, id)
	if err != nil {
		return err
	}
	if r.APIURL == "" {
		p.log("review has no api url, nothing to refresh", "review", r.ID)
		return nil
	}
	if r.Type != model.ReviewTypeNew {
		return fmt.Errorf("refresh review %d type %q: %w", r.ID, r.Type, model.ErrUnsupportedType)
	}

	qid, err := QuestionID(r.APIURL)
	if handled, err := p.settleFetchError(ctx, r, err); handled {
		return err
	}

	q, err := p.client.GetQuestion(ctx, qid)
	if handled, err := p.settleFetchError(ctx, r, err); handled {
		return err
	}

	_, err = p.Create(ctx, *q)
	return p.settleMalformed(ctx, r, err)
}

// QuestionAPIURL returns the key a question is stored under:
// https://<site>/questions/<id>. The title slug of the public link is dropped
// because it changes whenever the question is retitled.
func QuestionAPIURL(q model.Question) (string, error) {
	u, err := url.Parse(q.Link)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("question link %q: %w", q.Link, model.ErrMalformed)
	}

	id := q.QuestionID
	if id <= 0 {
		if id, err = QuestionID(q.Link); err != nil {
			return "", err
		}
	}
	return "https://" + u.Host + "/questions/" + strconv.FormatInt(id, 10), nil
}

// QuestionID extracts the numeric id from a question link such as
// https://askubuntu.com/questions/12345/some-title.
func QuestionID(link string) (int64, error) {
	_, rest, ok := strings.Cut(link, "/questions/")
	if !ok {
		return 0, fmt.Errorf("question link %q: %w", link, model.ErrMalformed)
	}
	idPart, _, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("question link %q: %w", link, model.ErrMalformed)
	}
	return id, nil
}
