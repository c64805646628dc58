package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// SourcePlugin ingests reviews from one remote source and refreshes reviews
// it created earlier.
type SourcePlugin interface {
	// Slug is the source slug the plugin's reviews are stored under.
	Slug() string
	// Ingest pulls the source's open items. A non-empty person limits the run
	// to items submitted by that remote username.
	Ingest(ctx context.Context, person string) error
	// Refresh re-fetches one review given either the loaded record or its id.
	Refresh(ctx context.Context, record *model.Review, id int64) error
}

// pluginBase carries the plumbing shared by every plugin.
type pluginBase struct {
	slug    string
	uow     driven.UnitOfWork
	helpers *Helpers
	metrics driven.IngestMetrics
	logger  *slog.Logger
	now     func() time.Time
}

func newPluginBase(slug string, uow driven.UnitOfWork, helpers *Helpers, metrics driven.IngestMetrics) pluginBase {
	if helpers == nil {
		helpers = NewHelpers()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return pluginBase{
		slug:    slug,
		uow:     uow,
		helpers: helpers,
		metrics: metrics,
		logger:  slog.Default().With("plugin", slug),
		now:     time.Now,
	}
}

// Slug returns the source slug.
func (b *pluginBase) Slug() string { return b.slug }

func (b *pluginBase) log(msg string, args ...any) {
	b.logger.Info(msg, args...)
}

// inTx runs fn in a transaction and drops memoized users when it fails.
func (b *pluginBase) inTx(ctx context.Context, fn func(tx driven.Tx) error) error {
	err := b.uow.WithinTx(ctx, fn)
	if err != nil {
		b.helpers.Forget()
	}
	return err
}

// loadForRefresh resolves the review a Refresh call targets.
func (b *pluginBase) loadForRefresh(ctx context.Context, record *model.Review, id int64) (*model.Review, error) {
	if record != nil {
		return record, nil
	}
	if id == 0 {
		return nil, model.ErrMissingArgument
	}

	r, err := b.uow.Reviews().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load review %d: %w", id, err)
	}
	if r == nil {
		return nil, fmt.Errorf("review %d: %w", id, model.ErrNotFound)
	}
	return r, nil
}

// settleFetchError turns a failed remote fetch into a terminal state: a
// missing remote record abandons the review and an undecodable one closes it.
// Other errors are returned unchanged. handled is false when err is nil.
func (b *pluginBase) settleFetchError(ctx context.Context, r *model.Review, err error) (handled bool, _ error) {
	if err == nil {
		return false, nil
	}

	var state model.ReviewState
	var outcome string
	switch {
	case errors.Is(err, model.ErrNotFound):
		state, outcome = model.StateAbandoned, driven.OutcomeAbandoned
	case errors.Is(err, model.ErrMalformed):
		state, outcome = model.StateClosed, driven.OutcomeClosed
	default:
		return true, fmt.Errorf("fetch %s: %w", r.APIURL, err)
	}

	b.log("remote record unusable, settling review",
		"review", r.ID, "api_url", r.APIURL, "state", string(state), "error", err)

	r.State = state
	r.Syncd = b.now().UTC()
	if saveErr := b.uow.WithinTx(ctx, func(tx driven.Tx) error {
		return tx.Reviews().Save(ctx, r)
	}); saveErr != nil {
		return true, fmt.Errorf("save settled review %d: %w", r.ID, saveErr)
	}

	b.metrics.ReviewReconciled(b.slug, outcome)
	return true, nil
}

// settleMalformed closes the review when reconciliation rejected a remote
// value, such as an unknown status.
func (b *pluginBase) settleMalformed(ctx context.Context, r *model.Review, err error) error {
	if errors.Is(err, model.ErrMalformed) {
		_, err = b.settleFetchError(ctx, r, err)
	}
	return err
}

// deriveVotes records one vote per comment, skipping comments that were
// already recorded. Each vote commits on its own so one bad comment does not
// discard the rest.
func (b *pluginBase) deriveVotes(ctx context.Context, review *model.Review, comments []model.Comment) error {
	var errs []error
	for _, c := range comments {
		if c.SelfLink == "" {
			continue
		}
		kind := DetermineSentiment(c)

		var created bool
		err := b.inTx(ctx, func(tx driven.Tx) error {
			ownerID, err := b.helpers.OwnerID(ctx, tx, review.SourceID, c.Author)
			if err != nil {
				return err
			}
			created, err = b.helpers.CreateVote(ctx, tx, &model.ReviewVote{
				CommentID: c.SelfLink,
				OwnerID:   ownerID,
				ReviewID:  review.ID,
				Vote:      kind,
				Created:   c.DateCreated.UTC(),
			})
			return err
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if created {
			b.metrics.VoteCreated(b.slug, kind)
		}
	}
	return errors.Join(errs...)
}

// run reconciles every item with fn and reports how many failed.
func run[T any](ctx context.Context, b *pluginBase, kind string, items []T, fn func(context.Context, T) error) error {
	var failed int
	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(ctx, item); err != nil {
			b.logger.Error("reconcile failed", "kind", kind, "error", err)
			failed++
		}
	}

	b.log("items reconciled", "kind", kind, "fetched", len(items), "errors", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d %s failed to reconcile", failed, len(items), kind)
	}
	return nil
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveIngest(string, time.Duration, error) {}
func (NopMetrics) ReviewReconciled(string, string)            {}
func (NopMetrics) VoteCreated(string, model.VoteKind)         {}
