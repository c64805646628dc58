package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// A unique name derived from t.Name() ensures isolation between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewMemoryDB(context.Background(), t.Name())
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// lpSource returns the seeded Launchpad source row.
func lpSource(t *testing.T, db *DB) *model.Source {
	t.Helper()
	src, err := NewReferenceRepo(db).SourceBySlug(context.Background(), model.SourceLaunchpad)
	require.NoError(t, err)
	return src
}

// addTestUser inserts a user with a Launchpad profile.
func addTestUser(t *testing.T, db *DB, username string) model.User {
	t.Helper()
	user := model.User{Name: username}
	profile := model.Profile{SourceID: lpSource(t, db).ID, Username: username}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), &user, &profile))
	return user
}

// makeReview builds an unsaved merge proposal review.
func makeReview(apiURL string, state model.ReviewState) model.Review {
	created := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	return model.Review{
		Title:   "lp:~dev/charms/trusty/mysql/fix",
		Type:    model.ReviewTypeUpdate,
		URL:     "https://code.launchpad.net/" + apiURL,
		APIURL:  apiURL,
		State:   state,
		Created: created,
		Updated: created,
		Syncd:   created,
	}
}
