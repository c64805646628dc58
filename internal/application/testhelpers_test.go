package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewq/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

// setupStore opens a migrated in-memory store private to the test.
func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()

	db, err := sqlite.NewMemoryDB(context.Background(), t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return sqlite.NewStore(db)
}

// addReviewer creates a local user with a Launchpad profile.
func addReviewer(t *testing.T, store *sqlite.Store, username string) model.User {
	t.Helper()

	ctx := context.Background()
	src, err := store.References().SourceBySlug(ctx, model.SourceLaunchpad)
	require.NoError(t, err)

	user := model.User{Name: username, IsCharmer: true}
	profile := model.Profile{SourceID: src.ID, Username: username, Name: username}
	require.NoError(t, store.Users().Create(ctx, &user, &profile))
	return user
}

var baseTime = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func person(name string) model.Person {
	return model.Person{
		Username:    name,
		DisplayName: name,
		URL:         "https://api.launchpad.net/devel/~" + name,
	}
}

// --- Fake remote clients ---

type fakeLaunchpad struct {
	merges []model.MergeProposal
	tasks  []model.BugTask

	loadedTask  *model.BugTask
	loadedMerge *model.MergeProposal
	loadErr     error
	loads       int
}

func (f *fakeLaunchpad) SearchBugTasks(_ context.Context, _ string, _, _ []string, _ bool) ([]model.BugTask, error) {
	return f.tasks, nil
}

func (f *fakeLaunchpad) MergeProposals(_ context.Context, _ string, _ []string) ([]model.MergeProposal, error) {
	return f.merges, nil
}

func (f *fakeLaunchpad) LoadBugTask(_ context.Context, _ string) (*model.BugTask, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.loadedTask, nil
}

func (f *fakeLaunchpad) LoadMergeProposal(_ context.Context, _ string) (*model.MergeProposal, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.loadedMerge, nil
}

type fakeStackExchange struct {
	questions []model.Question
	question  *model.Question
	getErr    error
	gotID     int64
}

func (f *fakeStackExchange) SearchQuestions(_ context.Context, _ []string) ([]model.Question, error) {
	return f.questions, nil
}

func (f *fakeStackExchange) GetQuestion(_ context.Context, id int64) (*model.Question, error) {
	f.gotID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.question, nil
}

type fakeGitHub struct {
	pulls    map[string][]model.PullRequest
	pull     *model.PullRequest
	fetchErr error
}

func (f *fakeGitHub) FetchPullRequests(_ context.Context, repo string) ([]model.PullRequest, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.pulls[repo], nil
}

func (f *fakeGitHub) FetchPullRequest(_ context.Context, _ string, _ int) (*model.PullRequest, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.pull, nil
}

// recordingMetrics counts observations by outcome.
type recordingMetrics struct {
	ingests  map[string]int
	outcomes map[string]int
	votes    map[model.VoteKind]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		ingests:  map[string]int{},
		outcomes: map[string]int{},
		votes:    map[model.VoteKind]int{},
	}
}

func (m *recordingMetrics) ObserveIngest(source string, _ time.Duration, _ error) {
	m.ingests[source]++
}

func (m *recordingMetrics) ReviewReconciled(_, outcome string) {
	m.outcomes[outcome]++
}

func (m *recordingMetrics) VoteCreated(_ string, vote model.VoteKind) {
	m.votes[vote]++
}
