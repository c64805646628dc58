package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

// ReviewStore defines the driven port for review persistence.
// Lookups return nil, nil when the review does not exist.
type ReviewStore interface {
	GetByAPIURL(ctx context.Context, apiURL string) (*model.Review, error)
	GetByID(ctx context.Context, id int64) (*model.Review, error)
	// Save inserts the review when its ID is zero (assigning the new ID) and
	// updates it otherwise.
	Save(ctx context.Context, review *model.Review) error
	// List returns reviews in the given states, or all reviews when states is
	// empty, most recently updated first. Read-side joins are populated.
	List(ctx context.Context, states ...model.ReviewState) ([]model.Review, error)
	// FreshestUpdate returns the newest Updated timestamp among reviews of the
	// given source, or the zero time when there are none.
	FreshestUpdate(ctx context.Context, sourceSlug string) (time.Time, error)
}

// VoteStore defines the driven port for review vote persistence.
type VoteStore interface {
	GetByCommentID(ctx context.Context, commentID string) (*model.ReviewVote, error)
	// Create reports false when an already timestamped vote with the same
	// comment id exists and nothing was written.
	Create(ctx context.Context, vote *model.ReviewVote) (bool, error)
	ListByReview(ctx context.Context, reviewID int64) ([]model.ReviewVote, error)
}

// HistoryStore defines the driven port for the append-only review audit log.
type HistoryStore interface {
	Append(ctx context.Context, entry *model.ReviewHistory) error
	ListByReview(ctx context.Context, reviewID int64) ([]model.ReviewHistory, error)
}

// TestStore defines the driven port for CI results recorded against reviews.
type TestStore interface {
	Add(ctx context.Context, test *model.ReviewTest) error
	// ListByReview returns results ordered by ID; the last one is current.
	ListByReview(ctx context.Context, reviewID int64) ([]model.ReviewTest, error)
}

// UserStore defines the driven port for users and their remote profiles.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByProfile resolves the user owning the profile (sourceID, username).
	GetByProfile(ctx context.Context, sourceID int64, username string) (*model.User, error)
	// Create inserts the user and its first profile, assigning both IDs.
	Create(ctx context.Context, user *model.User, profile *model.Profile) error
	AddAddress(ctx context.Context, addr *model.Address) error
}

// ReferenceStore defines the driven port for the shared dimension entities.
// Slug lookups return model.ErrNotFound when the row does not exist.
type ReferenceStore interface {
	SourceBySlug(ctx context.Context, slug string) (*model.Source, error)
	CategoryBySlug(ctx context.Context, slug string) (*model.ReviewCategory, error)
	SeriesBySlug(ctx context.Context, slug string) (*model.Series, error)
	// EnsureSeries creates or updates the series with s.Slug so that its name
	// and Active flag match s.
	EnsureSeries(ctx context.Context, s model.Series) (*model.Series, error)
	// EnsureProject returns the project with the given URL, creating it when absent.
	EnsureProject(ctx context.Context, p model.Project) (*model.Project, error)
}

// Tx groups the stores that take part in one unit of work.
type Tx interface {
	Reviews() ReviewStore
	Votes() VoteStore
	History() HistoryStore
	Tests() TestStore
	Users() UserStore
	References() ReferenceStore
}

// UnitOfWork opens transactions. Outside WithinTx the embedded Tx stores run
// each statement on its own.
type UnitOfWork interface {
	Tx
	// WithinTx runs fn in a transaction that is committed when fn returns nil
	// and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
