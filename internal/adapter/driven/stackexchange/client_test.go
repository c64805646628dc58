package stackexchange_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewq/internal/adapter/driven/restapi"
	"github.com/ericfisherdev/reviewq/internal/adapter/driven/stackexchange"
	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

const base = "https://api.se.test/2.3/"

func newTestClient(t *testing.T, key string) (*stackexchange.Client, *httpmock.MockTransport) {
	t.Helper()

	mock := httpmock.NewMockTransport()
	client, err := stackexchange.NewClient(base, "askubuntu", key, restapi.Options{
		HTTPClient:        &http.Client{Transport: mock},
		Timeout:           time.Second,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)
	return client, mock
}

const (
	question1 = `{"question_id":1,"link":"https://askubuntu.com/questions/1/juju-bootstrap-fails","title":"juju bootstrap &quot;fails&quot;",
		"tags":["juju"],"owner":{"user_id":501,"display_name":"Ann &amp; Co","link":"https://askubuntu.com/users/501"},
		"is_answered":true,"answer_count":1,"accepted_answer_id":10,"score":4,
		"creation_date":1770000000,"last_activity_date":1770003600}`
	question2 = `{"question_id":2,"link":"https://askubuntu.com/questions/2/maas-nodes","title":"maas nodes",
		"tags":["juju","maas"],"owner":{"user_id":502,"display_name":"Ben"},
		"answer_count":0,"score":0,"creation_date":1770000100,"last_activity_date":1770000100,"closed_date":1770009999}`
)

func TestSearchQuestions(t *testing.T) {
	client, mock := newTestClient(t, "secret")

	mock.RegisterResponder(http.MethodGet, base+"search", func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "askubuntu", q.Get("site"))
		assert.Equal(t, "withbody", q.Get("filter"))
		assert.Equal(t, "secret", q.Get("key"))
		switch q.Get("tagged") {
		case "juju":
			return httpmock.NewStringResponse(http.StatusOK, `{"items":[`+question1+`,`+question2+`],"has_more":false,"quota_remaining":9000}`), nil
		case "maas":
			return httpmock.NewStringResponse(http.StatusOK, `{"items":[`+question2+`],"has_more":false}`), nil
		}
		t.Errorf("unexpected tag %q", q.Get("tagged"))
		return httpmock.NewStringResponse(http.StatusBadRequest, `{}`), nil
	})
	mock.RegisterResponder(http.MethodGet, base+"questions/1;2/answers", httpmock.NewStringResponder(http.StatusOK, `{"items":[
		{"answer_id":10,"question_id":1,"owner":{"user_id":600,"display_name":"Cat"},"body":"<p>Run <code>juju bootstrap --debug</code></p>","score":3,"creation_date":1770002000}
	]}`))
	mock.RegisterResponder(http.MethodGet, base+"questions/1;2/comments", httpmock.NewStringResponder(http.StatusOK, `{"items":[
		{"comment_id":100,"post_id":1,"owner":{"user_id":700},"body":"which version?","score":0,"creation_date":1770001000}
	]}`))
	mock.RegisterResponder(http.MethodGet, base+"answers/10/comments", httpmock.NewStringResponder(http.StatusOK, `{"items":[
		{"comment_id":101,"post_id":10,"owner":{"user_id":501},"body":"+1 that fixed it","score":1,"creation_date":1770003000}
	]}`))

	questions, err := client.SearchQuestions(context.Background(), []string{"juju", "maas"})
	require.NoError(t, err)
	require.Len(t, questions, 2, "questions found under several tags are merged")

	q := questions[0]
	assert.Equal(t, int64(1), q.QuestionID)
	assert.Equal(t, `juju bootstrap "fails"`, q.Title)
	assert.Equal(t, model.Person{Username: "501", DisplayName: "Ann & Co", URL: "https://askubuntu.com/users/501"}, q.Owner)
	assert.True(t, q.IsAnswered)
	assert.Equal(t, int64(10), q.AcceptedAnswerID)
	assert.Equal(t, time.Unix(1770000000, 0).UTC(), q.CreationDate)
	assert.True(t, q.ClosedDate.IsZero())

	require.Len(t, q.Posts, 3)
	assert.Equal(t, "https://askubuntu.com/posts/comments/100", q.Posts[0].SelfLink)
	assert.Equal(t, "https://askubuntu.com/a/10", q.Posts[1].SelfLink)
	assert.Contains(t, q.Posts[1].Content, "juju bootstrap --debug")
	assert.NotContains(t, q.Posts[1].Content, "<code>")
	assert.Equal(t, 3, q.Posts[1].Score)
	assert.Equal(t, "https://askubuntu.com/posts/comments/101", q.Posts[2].SelfLink)
	assert.Equal(t, "501", q.Posts[2].Author.Username)

	assert.False(t, questions[1].ClosedDate.IsZero())
	assert.Empty(t, questions[1].Posts)
}

func TestSearchQuestions_Pagination(t *testing.T) {
	client, mock := newTestClient(t, "")

	mock.RegisterResponder(http.MethodGet, base+"search", func(req *http.Request) (*http.Response, error) {
		assert.Empty(t, req.URL.Query().Get("key"))
		if req.URL.Query().Get("page") == "1" {
			return httpmock.NewStringResponse(http.StatusOK, `{"items":[`+question1+`],"has_more":true}`), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, `{"items":[`+question2+`],"has_more":false}`), nil
	})
	mock.RegisterResponder(http.MethodGet, base+"questions/1;2/answers", httpmock.NewStringResponder(http.StatusOK, `{"items":[]}`))
	mock.RegisterResponder(http.MethodGet, base+"questions/1;2/comments", httpmock.NewStringResponder(http.StatusOK, `{"items":[]}`))

	questions, err := client.SearchQuestions(context.Background(), []string{"juju"})
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, int64(2), questions[1].QuestionID)
}

func TestGetQuestion(t *testing.T) {
	client, mock := newTestClient(t, "")

	mock.RegisterResponder(http.MethodGet, base+"questions/1", httpmock.NewStringResponder(http.StatusOK, `{"items":[`+question1+`]}`))
	mock.RegisterResponder(http.MethodGet, base+"questions/1/answers", httpmock.NewStringResponder(http.StatusOK, `{"items":[]}`))
	mock.RegisterResponder(http.MethodGet, base+"questions/1/comments", httpmock.NewStringResponder(http.StatusOK, `{"items":[]}`))
	mock.RegisterResponder(http.MethodGet, base+"questions/3", httpmock.NewStringResponder(http.StatusOK, `{"items":[],"has_more":false}`))
	mock.RegisterResponder(http.MethodGet, base+"questions/4", httpmock.NewStringResponder(http.StatusOK, `not json`))

	q, err := client.GetQuestion(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "https://askubuntu.com/questions/1/juju-bootstrap-fails", q.Link)

	_, err = client.GetQuestion(context.Background(), 3)
	assert.ErrorIs(t, err, model.ErrNotFound, "deleted questions disappear from the results")

	_, err = client.GetQuestion(context.Background(), 4)
	assert.ErrorIs(t, err, model.ErrMalformed)
}
