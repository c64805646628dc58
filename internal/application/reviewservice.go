package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// History entry kinds written by reviewer actions.
const (
	HistoryLock   = "lock"
	HistoryUnlock = "unlock"
	HistoryTest   = "test"
)

// Queue is the review queue split by who is expected to act next.
type Queue struct {
	Reviewer  []model.Review // Waiting on a reviewer.
	Submitter []model.Review // Waiting on the submitter.
	Other     []model.Review // Merged, closed or abandoned.
}

// ReviewService serves the reviewer-facing use cases: listing the queue,
// claiming reviews and recording test results. Every mutation appends a
// ReviewHistory entry in the same transaction.
type ReviewService struct {
	uow driven.UnitOfWork
	now func() time.Time
}

// NewReviewService creates a new ReviewService.
func NewReviewService(uow driven.UnitOfWork) *ReviewService {
	return &ReviewService{uow: uow, now: time.Now}
}

// List returns reviews in the given states (all when none) with their votes
// and tests loaded.
func (s *ReviewService) List(ctx context.Context, states ...model.ReviewState) ([]model.Review, error) {
	reviews, err := s.uow.Reviews().List(ctx, states...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	for i := range reviews {
		if err := s.loadDetail(ctx, &reviews[i]); err != nil {
			return nil, err
		}
	}
	return reviews, nil
}

// Queue lists every review and splits it by who acts next.
func (s *ReviewService) Queue(ctx context.Context) (Queue, error) {
	reviews, err := s.List(ctx)
	if err != nil {
		return Queue{}, err
	}
	return SplitQueue(reviews), nil
}

// SplitQueue partitions reviews by follow-up direction, keeping their order.
func SplitQueue(reviews []model.Review) Queue {
	var q Queue
	for _, r := range reviews {
		switch {
		case r.ReviewerFollowup():
			q.Reviewer = append(q.Reviewer, r)
		case r.UserFollowup():
			q.Submitter = append(q.Submitter, r)
		default:
			q.Other = append(q.Other, r)
		}
	}
	return q
}

// Get returns one review with votes and tests, or model.ErrNotFound.
func (s *ReviewService) Get(ctx context.Context, id int64) (*model.Review, error) {
	r, err := s.uow.Reviews().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review %d: %w", id, err)
	}
	if r == nil {
		return nil, fmt.Errorf("review %d: %w", id, model.ErrNotFound)
	}
	if err := s.loadDetail(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) loadDetail(ctx context.Context, r *model.Review) error {
	votes, err := s.uow.Votes().ListByReview(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("list votes for review %d: %w", r.ID, err)
	}
	tests, err := s.uow.Tests().ListByReview(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("list tests for review %d: %w", r.ID, err)
	}
	r.Votes = votes
	r.Tests = tests
	return nil
}

// Lock claims the review for userID. Re-locking by the current holder
// refreshes the timestamp; a lock held by someone else yields model.ErrLocked.
func (s *ReviewService) Lock(ctx context.Context, id, userID int64) error {
	return s.uow.WithinTx(ctx, func(tx driven.Tx) error {
		r, user, err := s.loadForAction(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if r.IsLocked() && r.LockerID != userID {
			return fmt.Errorf("lock review %d held by %s: %w", id, r.LockerName, model.ErrLocked)
		}

		prev := r.LockerName
		r.Lock(user.ID, s.now())
		if err := tx.Reviews().Save(ctx, r); err != nil {
			return fmt.Errorf("save review %d: %w", id, err)
		}
		return s.record(ctx, tx, r, userID, HistoryLock, prev, user.Name)
	})
}

// Unlock releases the claim. Only the holder may release it; unlocking an
// unlocked review is a no-op.
func (s *ReviewService) Unlock(ctx context.Context, id, userID int64) error {
	return s.uow.WithinTx(ctx, func(tx driven.Tx) error {
		r, _, err := s.loadForAction(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if !r.IsLocked() {
			return nil
		}
		if r.LockerID != userID {
			return fmt.Errorf("unlock review %d held by %s: %w", id, r.LockerName, model.ErrLocked)
		}

		prev := r.LockerName
		r.Unlock()
		if err := tx.Reviews().Save(ctx, r); err != nil {
			return fmt.Errorf("save review %d: %w", id, err)
		}
		return s.record(ctx, tx, r, userID, HistoryUnlock, prev, "")
	})
}

// AddTest records a CI result against the review. The new result becomes the
// current one.
func (s *ReviewService) AddTest(ctx context.Context, id int64, test model.ReviewTest) (*model.ReviewTest, error) {
	switch test.Status {
	case model.TestPending, model.TestPass, model.TestFail:
	default:
		return nil, fmt.Errorf("test status %q: %w", test.Status, model.ErrMalformed)
	}

	err := s.uow.WithinTx(ctx, func(tx driven.Tx) error {
		r, err := tx.Reviews().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get review %d: %w", id, err)
		}
		if r == nil {
			return fmt.Errorf("review %d: %w", id, model.ErrNotFound)
		}

		prev := ""
		existing, err := tx.Tests().ListByReview(ctx, id)
		if err != nil {
			return fmt.Errorf("list tests for review %d: %w", id, err)
		}
		if n := len(existing); n > 0 {
			prev = string(existing[n-1].Status)
		}

		now := s.now().UTC()
		test.ReviewID = id
		if test.Created.IsZero() {
			test.Created = now
		}
		test.Updated = now
		if test.Status != model.TestPending && test.Finished.IsZero() {
			test.Finished = now
		}
		if err := tx.Tests().Add(ctx, &test); err != nil {
			return fmt.Errorf("add test to review %d: %w", id, err)
		}
		return s.record(ctx, tx, r, test.RequesterID, HistoryTest, prev, string(test.Status))
	})
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// History returns the audit entries of a review, oldest first.
func (s *ReviewService) History(ctx context.Context, id int64) ([]model.ReviewHistory, error) {
	entries, err := s.uow.History().ListByReview(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list history for review %d: %w", id, err)
	}
	return entries, nil
}

func (s *ReviewService) loadForAction(ctx context.Context, tx driven.Tx, id, userID int64) (*model.Review, *model.User, error) {
	r, err := tx.Reviews().GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get review %d: %w", id, err)
	}
	if r == nil {
		return nil, nil, fmt.Errorf("review %d: %w", id, model.ErrNotFound)
	}

	user, err := tx.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, nil, fmt.Errorf("user %d: %w", userID, model.ErrNotFound)
	}
	return r, user, nil
}

func (s *ReviewService) record(ctx context.Context, tx driven.Tx, r *model.Review, userID int64, what, prev, next string) error {
	entry := &model.ReviewHistory{
		ReviewID: r.ID,
		UserID:   userID,
		What:     what,
		Prev:     prev,
		New:      next,
		APIURL:   r.APIURL,
		Changed:  s.now().UTC(),
	}
	if err := tx.History().Append(ctx, entry); err != nil {
		return fmt.Errorf("append %s history for review %d: %w", what, r.ID, err)
	}
	return nil
}
