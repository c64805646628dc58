package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

func TestReviewRepo_SaveInsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)
	ctx := context.Background()

	owner := addTestUser(t, db, "alice")
	review := makeReview("https://api.launchpad.net/1.0/~alice/mp/1", model.StatePending)
	review.OwnerID = owner.ID
	review.SourceID = lpSource(t, db).ID

	require.NoError(t, repo.Save(ctx, &review))
	require.NotZero(t, review.ID)

	got, err := repo.GetByAPIURL(ctx, review.APIURL)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, review.ID, got.ID)
	assert.Equal(t, model.ReviewTypeUpdate, got.Type)
	assert.Equal(t, model.StatePending, got.State)
	assert.Equal(t, "alice", got.OwnerName)
	assert.Equal(t, model.SourceLaunchpad, got.SourceSlug)
	assert.True(t, review.Created.Equal(got.Created))
	assert.False(t, got.IsLocked())
}

func TestReviewRepo_SaveUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)
	ctx := context.Background()

	locker := addTestUser(t, db, "bob")
	review := makeReview("https://api.launchpad.net/1.0/~alice/mp/2", model.StatePending)
	require.NoError(t, repo.Save(ctx, &review))

	lockedAt := time.Date(2026, 1, 21, 9, 30, 0, 0, time.UTC)
	review.State = model.StateReviewed
	review.Lock(locker.ID, lockedAt)
	require.NoError(t, repo.Save(ctx, &review))

	got, err := repo.GetByID(ctx, review.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, model.StateReviewed, got.State)
	assert.True(t, got.IsLocked())
	assert.Equal(t, "bob", got.LockerName)
	assert.True(t, lockedAt.Equal(got.Locked))

	got.Unlock()
	require.NoError(t, repo.Save(ctx, got))

	again, err := repo.GetByID(ctx, review.ID)
	require.NoError(t, err)
	assert.False(t, again.IsLocked())
	assert.Zero(t, again.LockerID)
}

func TestReviewRepo_SaveUpdateMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)

	review := makeReview("https://api.launchpad.net/1.0/~alice/mp/404", model.StatePending)
	review.ID = 404

	err := repo.Save(context.Background(), &review)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestReviewRepo_DuplicateAPIURL(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)
	ctx := context.Background()

	first := makeReview("https://api.launchpad.net/1.0/dup", model.StatePending)
	require.NoError(t, repo.Save(ctx, &first))

	second := makeReview("https://api.launchpad.net/1.0/dup", model.StateNew)
	err := repo.Save(ctx, &second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint")
}

func TestReviewRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)
	ctx := context.Background()

	got, err := repo.GetByAPIURL(ctx, "https://api.launchpad.net/1.0/nothing")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReviewRepo_ListByState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)
	ctx := context.Background()

	older := makeReview("https://api.launchpad.net/1.0/a", model.StatePending)
	newer := makeReview("https://api.launchpad.net/1.0/b", model.StatePending)
	newer.Updated = newer.Updated.Add(time.Hour)
	merged := makeReview("https://api.launchpad.net/1.0/c", model.StateMerged)

	for _, r := range []*model.Review{&older, &newer, &merged} {
		require.NoError(t, repo.Save(ctx, r))
	}

	pending, err := repo.List(ctx, model.StatePending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, newer.ID, pending[0].ID)
	assert.Equal(t, older.ID, pending[1].ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := repo.List(ctx, model.StateMerged, model.StateAbandoned)
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, merged.ID, some[0].ID)
}

func TestReviewRepo_FreshestUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)
	ctx := context.Background()

	got, err := repo.FreshestUpdate(ctx, model.SourceLaunchpad)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	srcID := lpSource(t, db).ID
	a := makeReview("https://api.launchpad.net/1.0/x", model.StatePending)
	a.SourceID = srcID
	b := makeReview("https://api.launchpad.net/1.0/y", model.StatePending)
	b.SourceID = srcID
	b.Updated = b.Updated.Add(3 * time.Hour)
	require.NoError(t, repo.Save(ctx, &a))
	require.NoError(t, repo.Save(ctx, &b))

	got, err = repo.FreshestUpdate(ctx, model.SourceLaunchpad)
	require.NoError(t, err)
	assert.True(t, b.Updated.Equal(got))
}
