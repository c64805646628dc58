package application_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewq/internal/application"
	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

const questionLink = "https://askubuntu.com/questions/4242/how-do-i-deploy-a-charm"

func seUser(id string) model.Person {
	return model.Person{Username: id, DisplayName: "user" + id, URL: "https://askubuntu.com/users/" + id}
}

func question(posts ...model.Comment) model.Question {
	return model.Question{
		QuestionID:       4242,
		Link:             questionLink,
		Title:            "How do I deploy a charm?",
		Tags:             []string{"juju"},
		Owner:            seUser("1"),
		AnswerCount:      len(posts),
		CreationDate:     baseTime,
		LastActivityDate: baseTime.Add(time.Hour),
		Posts:            posts,
	}
}

func post(n int, author string, score int, at time.Time) model.Comment {
	return model.Comment{
		SelfLink:    fmt.Sprintf("https://askubuntu.com/a/%d", n),
		Author:      seUser(author),
		Content:     "try juju deploy",
		Score:       score,
		DateCreated: at,
	}
}

func TestAskUbuntuIngest_CreatesAndIsIdempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	metrics := newRecordingMetrics()

	client := &fakeStackExchange{questions: []model.Question{question(
		post(1, "2", 3, baseTime.Add(2*time.Hour)),
		post(2, "3", -1, baseTime.Add(3*time.Hour)),
		post(3, "4", 0, baseTime.Add(4*time.Hour)),
	)}}
	plugin := application.NewAskUbuntuPlugin(client, store, nil, metrics, nil)

	require.NoError(t, plugin.Ingest(ctx, ""))
	require.NoError(t, plugin.Ingest(ctx, ""))

	reviews, err := store.Reviews().List(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	r := reviews[0]
	assert.Equal(t, model.ReviewTypeNew, r.Type)
	assert.Equal(t, model.StatePending, r.State)
	assert.Equal(t, model.SourceAskUbuntu, r.SourceSlug)
	assert.NotZero(t, r.CategoryID)
	assert.True(t, r.Updated.Equal(baseTime.Add(4*time.Hour)))

	votes := votesOf(t, store, r.ID)
	require.Len(t, votes, 3)

	assert.Equal(t, 1, metrics.outcomes["created"])
	assert.Equal(t, 1, metrics.outcomes["unchanged"])
	assert.Equal(t, 1, metrics.votes[model.VotePositive])
	assert.Equal(t, 1, metrics.votes[model.VoteNegative])
	assert.Equal(t, 1, metrics.votes[model.VoteComment])
}

func TestQuestionState(t *testing.T) {
	tests := []struct {
		name string
		mod  func(q *model.Question)
		want model.ReviewState
	}{
		{"unanswered", func(q *model.Question) { q.AnswerCount = 0 }, model.StateNew},
		{"answers pending", func(q *model.Question) { q.AnswerCount = 2 }, model.StatePending},
		{"answered", func(q *model.Question) { q.AnswerCount = 1; q.IsAnswered = true }, model.StateReviewed},
		{"accepted", func(q *model.Question) { q.IsAnswered = true; q.AcceptedAnswerID = 9 }, model.StateMerged},
		{"closed wins", func(q *model.Question) { q.AcceptedAnswerID = 9; q.ClosedDate = baseTime }, model.StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := question()
			tt.mod(&q)
			assert.Equal(t, tt.want, application.QuestionState(q))
		})
	}
}

func TestAskUbuntu_FollowUpWhenAskerReplies(t *testing.T) {
	store := setupStore(t)
	plugin := application.NewAskUbuntuPlugin(&fakeStackExchange{}, store, nil, nil, nil)

	q := question(post(1, "2", 1, baseTime.Add(time.Hour)), post(2, "1", 0, baseTime.Add(2*time.Hour)))
	q.IsAnswered = true

	review, err := plugin.Create(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, model.StateFollowUp, reload(t, store, review.ID).State)
}

func TestAskUbuntuRefresh(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	client := &fakeStackExchange{}
	plugin := application.NewAskUbuntuPlugin(client, store, nil, nil, nil)

	review, err := plugin.Create(ctx, question())
	require.NoError(t, err)

	answered := question(post(1, "2", 5, baseTime.Add(time.Hour)))
	answered.AcceptedAnswerID = 1
	client.question = &answered

	require.NoError(t, plugin.Refresh(ctx, nil, review.ID))
	assert.Equal(t, int64(4242), client.gotID)
	assert.Equal(t, model.StateMerged, reload(t, store, review.ID).State)

	client.getErr = fmt.Errorf("get: %w", model.ErrNotFound)
	require.NoError(t, plugin.Refresh(ctx, nil, review.ID))
	assert.Equal(t, model.StateAbandoned, reload(t, store, review.ID).State)
}

func TestAskUbuntuRefresh_BadStoredLinkCloses(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	client := &fakeStackExchange{}
	plugin := application.NewAskUbuntuPlugin(client, store, nil, nil, nil)

	review := model.Review{
		Type:    model.ReviewTypeNew,
		APIURL:  "https://askubuntu.com/q/oops",
		State:   model.StatePending,
		Created: baseTime,
		Updated: baseTime,
	}
	require.NoError(t, store.Reviews().Save(ctx, &review))

	require.NoError(t, plugin.Refresh(ctx, nil, review.ID))
	assert.Zero(t, client.gotID)
	assert.Equal(t, model.StateClosed, reload(t, store, review.ID).State)
}

func TestAskUbuntuIngest_RetitledQuestionKeepsOneReview(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := question(post(1, "2", 1, baseTime.Add(time.Hour)))
	client := &fakeStackExchange{questions: []model.Question{first}}
	plugin := application.NewAskUbuntuPlugin(client, store, nil, nil, nil)
	require.NoError(t, plugin.Ingest(ctx, ""))

	retitled := question(post(1, "2", 1, baseTime.Add(time.Hour)), post(2, "3", 0, baseTime.Add(2*time.Hour)))
	retitled.Title = "How do I deploy a local charm?"
	retitled.Link = "https://askubuntu.com/questions/4242/how-do-i-deploy-a-local-charm"
	client.questions = []model.Question{retitled}
	require.NoError(t, plugin.Ingest(ctx, ""))

	reviews, err := store.Reviews().List(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "https://askubuntu.com/questions/4242", reviews[0].APIURL)
	assert.Equal(t, retitled.Link, reviews[0].URL)
	assert.Equal(t, retitled.Title, reviews[0].Title)
	assert.Len(t, votesOf(t, store, reviews[0].ID), 2)
}

func TestAskUbuntuIngest_AdoptsReviewKeyedByFullLink(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	legacy := model.Review{
		Type:    model.ReviewTypeNew,
		APIURL:  questionLink,
		State:   model.StateNew,
		Created: baseTime,
		Updated: baseTime,
	}
	require.NoError(t, store.Reviews().Save(ctx, &legacy))

	plugin := application.NewAskUbuntuPlugin(&fakeStackExchange{questions: []model.Question{question()}}, store, nil, nil, nil)
	require.NoError(t, plugin.Ingest(ctx, ""))

	reviews, err := store.Reviews().List(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, legacy.ID, reviews[0].ID)
	assert.Equal(t, "https://askubuntu.com/questions/4242", reviews[0].APIURL)
}

func TestAskUbuntu_DeletedOwner(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	orphan := question(post(1, "2", 1, baseTime.Add(time.Hour)))
	orphan.Owner = model.Person{}
	orphan.Posts = append(orphan.Posts, model.Comment{
		SelfLink:    "https://askubuntu.com/posts/comments/77",
		Content:     "same problem here",
		DateCreated: baseTime.Add(2 * time.Hour),
	})
	client := &fakeStackExchange{questions: []model.Question{orphan}}
	plugin := application.NewAskUbuntuPlugin(client, store, nil, nil, nil)

	require.NoError(t, plugin.Ingest(ctx, ""))

	reviews, err := store.Reviews().List(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Zero(t, reviews[0].OwnerID)
	assert.Equal(t, model.StatePending, reviews[0].State)

	votes := votesOf(t, store, reviews[0].ID)
	require.Len(t, votes, 2, "comments by deleted accounts still count")

	client.question = &orphan
	require.NoError(t, plugin.Refresh(ctx, nil, reviews[0].ID))
	assert.Equal(t, model.StatePending, reload(t, store, reviews[0].ID).State, "a valid question is never closed")
}

func TestQuestionAPIURL(t *testing.T) {
	key, err := application.QuestionAPIURL(model.Question{QuestionID: 12345, Link: "https://askubuntu.com/questions/12345/some-title"})
	require.NoError(t, err)
	assert.Equal(t, "https://askubuntu.com/questions/12345", key)

	key, err = application.QuestionAPIURL(model.Question{Link: "https://askubuntu.com/questions/77/x"})
	require.NoError(t, err)
	assert.Equal(t, "https://askubuntu.com/questions/77", key)

	_, err = application.QuestionAPIURL(model.Question{QuestionID: 1, Link: "not a link"})
	assert.ErrorIs(t, err, model.ErrMalformed)
}

func TestQuestionID(t *testing.T) {
	id, err := application.QuestionID("https://askubuntu.com/questions/12345/some-title")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	id, err = application.QuestionID("https://askubuntu.com/questions/77")
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)

	_, err = application.QuestionID("https://askubuntu.com/users/1")
	assert.ErrorIs(t, err, model.ErrMalformed)
}

const pullURL = "https://api.github.com/repos/juju/charms/pulls/7"

func pullRequest(reviews ...model.Comment) model.PullRequest {
	return model.PullRequest{
		APIURL:       pullURL,
		HTMLURL:      "https://github.com/juju/charms/pull/7",
		RepoFullName: "juju/charms",
		Number:       7,
		Title:        "Add redis charm",
		State:        "open",
		Author:       model.Person{Username: "octo", URL: "https://github.com/octo"},
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime.Add(time.Hour),
		Reviews:      reviews,
	}
}

func ghReview(id int, login, state string, at time.Time) model.Comment {
	return model.Comment{
		SelfLink:    fmt.Sprintf("%s/reviews/%d", pullURL, id),
		Author:      model.Person{Username: login, URL: "https://github.com/" + login},
		Vote:        state,
		DateCreated: at,
	}
}

func TestGitHubIngest(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	client := &fakeGitHub{pulls: map[string][]model.PullRequest{
		"juju/charms": {pullRequest(
			ghReview(1, "alice", "CHANGES_REQUESTED", baseTime.Add(2*time.Hour)),
			ghReview(2, "bob", "APPROVED", baseTime.Add(3*time.Hour)),
		)},
	}}
	plugin := application.NewGitHubPlugin(client, store, nil, nil, []string{"juju/charms"})

	require.NoError(t, plugin.Ingest(ctx, ""))
	require.NoError(t, plugin.Ingest(ctx, ""))

	reviews, err := store.Reviews().List(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	r := reviews[0]
	assert.Equal(t, model.ReviewTypeUpdate, r.Type)
	assert.Equal(t, model.StateReady, r.State)
	assert.Equal(t, model.SourceGitHub, r.SourceSlug)
	assert.NotZero(t, r.ProjectID)
	assert.True(t, r.Updated.Equal(baseTime.Add(3*time.Hour)))

	votes := votesOf(t, store, r.ID)
	require.Len(t, votes, 2)
}

func TestPullState(t *testing.T) {
	tests := []struct {
		name string
		pr   model.PullRequest
		want model.ReviewState
	}{
		{"no reviews", pullRequest(), model.StatePending},
		{"approved", pullRequest(ghReview(1, "a", "APPROVED", baseTime)), model.StateReady},
		{"comment after changes requested", pullRequest(
			ghReview(1, "a", "CHANGES_REQUESTED", baseTime),
			ghReview(2, "b", "COMMENTED", baseTime),
		), model.StateReviewed},
		{"draft", func() model.PullRequest { p := pullRequest(); p.Draft = true; return p }(), model.StateInProgress},
		{"merged", func() model.PullRequest { p := pullRequest(); p.Merged = true; p.State = "closed"; return p }(), model.StateMerged},
		{"closed", func() model.PullRequest { p := pullRequest(); p.State = "closed"; return p }(), model.StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, application.PullState(tt.pr))
		})
	}
}

func TestGitHub_ExclusionLabelAbandons(t *testing.T) {
	store := setupStore(t)
	plugin := application.NewGitHubPlugin(&fakeGitHub{}, store, nil, nil, nil)

	pr := pullRequest()
	pr.Labels = []string{"wontfix"}
	review, err := plugin.CreateFromPull(context.Background(), pr)
	require.NoError(t, err)
	assert.Equal(t, model.StateAbandoned, reload(t, store, review.ID).State)
}

func TestGitHubRefresh(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	client := &fakeGitHub{}
	plugin := application.NewGitHubPlugin(client, store, nil, nil, nil)

	review, err := plugin.CreateFromPull(ctx, pullRequest())
	require.NoError(t, err)

	merged := pullRequest()
	merged.Merged = true
	merged.State = "closed"
	client.pull = &merged
	require.NoError(t, plugin.Refresh(ctx, nil, review.ID))
	assert.Equal(t, model.StateMerged, reload(t, store, review.ID).State)

	client.fetchErr = fmt.Errorf("fetch: %w", model.ErrNotFound)
	require.NoError(t, plugin.Refresh(ctx, nil, review.ID))
	assert.Equal(t, model.StateAbandoned, reload(t, store, review.ID).State)
}

func TestParsePullAPIURL(t *testing.T) {
	repo, n, err := application.ParsePullAPIURL(pullURL)
	require.NoError(t, err)
	assert.Equal(t, "juju/charms", repo)
	assert.Equal(t, 7, n)

	for _, bad := range []string{
		"https://github.com/juju/charms/pull/7",
		"https://api.github.com/repos/juju/charms/issues/7",
		"https://api.github.com/repos/juju/charms/pulls/x",
	} {
		_, _, err := application.ParsePullAPIURL(bad)
		assert.ErrorIs(t, err, model.ErrMalformed, bad)
	}
}
