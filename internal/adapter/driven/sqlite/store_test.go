package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

func TestStore_WithinTxCommits(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	review := makeReview("https://api.launchpad.net/1.0/tx/1", model.StatePending)
	err := store.WithinTx(ctx, func(tx driven.Tx) error {
		if err := tx.Reviews().Save(ctx, &review); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		got, err := tx.Reviews().GetByAPIURL(ctx, review.APIURL)
		require.NoError(t, err)
		require.NotNil(t, got)
		_, err = tx.Votes().Create(ctx, &model.ReviewVote{
			CommentID: "tx-c-1", ReviewID: review.ID, Vote: model.VoteComment, Created: time.Now().UTC(),
		})
		return err
	})
	require.NoError(t, err)

	got, err := store.Reviews().GetByAPIURL(ctx, review.APIURL)
	require.NoError(t, err)
	require.NotNil(t, got)

	votes, err := store.Votes().ListByReview(ctx, got.ID)
	require.NoError(t, err)
	assert.Len(t, votes, 1)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	boom := errors.New("boom")
	review := makeReview("https://api.launchpad.net/1.0/tx/2", model.StatePending)
	err := store.WithinTx(ctx, func(tx driven.Tx) error {
		require.NoError(t, tx.Reviews().Save(ctx, &review))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Reviews().GetByAPIURL(ctx, review.APIURL)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHistoryRepo_AppendAndList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	review := makeReview("https://api.launchpad.net/1.0/h/1", model.StatePending)
	require.NoError(t, NewReviewRepo(db).Save(ctx, &review))
	user := addTestUser(t, db, "dave")

	repo := NewHistoryRepo(db)
	require.NoError(t, repo.Append(ctx, &model.ReviewHistory{
		ReviewID: review.ID, UserID: user.ID, What: "lock", New: "dave", APIURL: review.APIURL,
	}))
	require.NoError(t, repo.Append(ctx, &model.ReviewHistory{
		ReviewID: review.ID, What: "state", Prev: "PENDING", New: "REVIEWED",
	}))

	entries, err := repo.ListByReview(ctx, review.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "lock", entries[0].What)
	assert.Equal(t, "dave", entries[0].UserName)
	assert.Equal(t, "state", entries[1].What)
	assert.Zero(t, entries[1].UserID)
	assert.False(t, entries[1].Changed.IsZero())
}

func TestTestRepo_OrderedByID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	review := makeReview("https://api.launchpad.net/1.0/t/1", model.StatePending)
	require.NoError(t, NewReviewRepo(db).Save(ctx, &review))

	repo := NewTestRepo(db)
	require.NoError(t, repo.Add(ctx, &model.ReviewTest{ReviewID: review.ID, Status: model.TestFail, Substrate: "lxc"}))
	require.NoError(t, repo.Add(ctx, &model.ReviewTest{ReviewID: review.ID, Status: model.TestPass, Substrate: "aws"}))

	tests, err := repo.ListByReview(ctx, review.ID)
	require.NoError(t, err)
	require.Len(t, tests, 2)

	review.Tests = tests
	current := review.CurrentTest()
	require.NotNil(t, current)
	assert.Equal(t, model.TestPass, current.Status)
	assert.Equal(t, "aws", current.Substrate)
	assert.Equal(t, "green", current.Color)
}

func TestUserRepo_GetByProfile(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db)

	user := addTestUser(t, db, "erin")

	got, err := repo.GetByProfile(ctx, lpSource(t, db).ID, "erin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)

	other, err := repo.GetByProfile(ctx, lpSource(t, db).ID, "nobody")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, repo.AddAddress(ctx, &model.Address{UserID: user.ID, Email: "erin@example.com"}))
}

func TestReferenceRepo_SeededSources(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReferenceRepo(db)
	ctx := context.Background()

	for _, slug := range []string{model.SourceLaunchpad, model.SourceAskUbuntu, model.SourceGitHub} {
		src, err := repo.SourceBySlug(ctx, slug)
		require.NoError(t, err, slug)
		assert.Equal(t, slug, src.Slug)
	}

	_, err := repo.SourceBySlug(ctx, "sourceforge")
	assert.ErrorIs(t, err, model.ErrNotFound)

	cat, err := repo.CategoryBySlug(ctx, model.SourceAskUbuntu)
	require.NoError(t, err)
	assert.Equal(t, "Ask Ubuntu", cat.Name)
}

func TestReferenceRepo_EnsureSeriesFollowsRemote(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReferenceRepo(db)
	ctx := context.Background()

	s, err := repo.EnsureSeries(ctx, model.Series{Name: "Precise", Slug: "precise", Active: true})
	require.NoError(t, err)
	assert.True(t, s.Active)

	again, err := repo.EnsureSeries(ctx, model.Series{Name: "Precise Pangolin", Slug: "precise", Active: false})
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
	assert.False(t, again.Active)
	assert.Equal(t, "Precise Pangolin", again.Name)

	stored, err := repo.SeriesBySlug(ctx, "precise")
	require.NoError(t, err)
	assert.False(t, stored.Active)

	_, err = repo.SeriesBySlug(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestReferenceRepo_EnsureProject(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReferenceRepo(db)
	ctx := context.Background()

	p, err := repo.EnsureProject(ctx, model.Project{Name: "mysql", URL: "https://launchpad.net/charms/+source/mysql"})
	require.NoError(t, err)

	again, err := repo.EnsureProject(ctx, model.Project{Name: "renamed", URL: "https://launchpad.net/charms/+source/mysql"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, "mysql", again.Name)
}
