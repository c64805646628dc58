// Package stackexchange implements the StackExchangeClient port against the
// Stack Exchange API 2.3.
package stackexchange

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/k3a/html2text"

	"github.com/ericfisherdev/reviewq/internal/adapter/driven/restapi"
	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// DefaultBaseURL is the root of the public Stack Exchange API.
const DefaultBaseURL = "https://api.stackexchange.com/2.3/"

// DefaultSite is the API site parameter for AskUbuntu.
const DefaultSite = "askubuntu"

const (
	pageSize = 100
	maxIDs   = 100 // vectorized endpoints accept at most 100 ids
	maxPages = 10
)

// Compile-time interface satisfaction check.
var _ driven.StackExchangeClient = (*Client)(nil)

// Client implements driven.StackExchangeClient for a single site.
type Client struct {
	base  *url.URL
	site  string
	key   string
	fetch *restapi.Fetcher
}

// NewClient creates a client for site. key is the optional application key
// that raises the daily quota.
func NewClient(baseURL, site, key string, opts restapi.Options) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if site == "" {
		site = DefaultSite
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing stack exchange base URL: %w", err)
	}

	return &Client{base: u, site: site, key: key, fetch: restapi.NewFetcher(opts)}, nil
}

// SearchQuestions returns recently active questions carrying any of tags.
// The API treats multiple tags as a conjunction, so each tag is searched on
// its own and the results are merged.
func (c *Client) SearchQuestions(ctx context.Context, tags []string) ([]model.Question, error) {
	seen := make(map[int64]bool)
	var items []questionItem

	for _, tag := range tags {
		found, err := pages[questionItem](ctx, c, "search", url.Values{
			"tagged": {tag},
			"sort":   {"activity"},
			"order":  {"desc"},
		})
		if err != nil {
			return nil, fmt.Errorf("searching questions tagged %s: %w", tag, err)
		}
		for _, q := range found {
			if seen[q.QuestionID] {
				continue
			}
			seen[q.QuestionID] = true
			items = append(items, q)
		}
	}

	return c.withPosts(ctx, items)
}

// GetQuestion loads one question with its answers and comments. A deleted or
// unknown question is reported as model.ErrNotFound.
func (c *Client) GetQuestion(ctx context.Context, id int64) (*model.Question, error) {
	items, err := pages[questionItem](ctx, c, "questions/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, fmt.Errorf("loading question %d: %w", id, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("loading question %d: %w", id, model.ErrNotFound)
	}

	questions, err := c.withPosts(ctx, items[:1])
	if err != nil {
		return nil, err
	}
	return &questions[0], nil
}

// withPosts maps questions and attaches their answers and all comments,
// oldest first.
func (c *Client) withPosts(ctx context.Context, items []questionItem) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(items))
	byID := make(map[int64]*model.Question, len(items))
	ids := make([]int64, 0, len(items))

	for _, it := range items {
		questions = append(questions, mapQuestion(it))
		ids = append(ids, it.QuestionID)
	}
	for i := range questions {
		byID[questions[i].QuestionID] = &questions[i]
	}

	// Comments on answers are attributed to the answer's question.
	answerOf := make(map[int64]int64)
	var answerIDs []int64

	for _, batch := range chunk(ids) {
		answers, err := pages[answerItem](ctx, c, "questions/"+joinIDs(batch)+"/answers", nil)
		if err != nil {
			return nil, fmt.Errorf("listing answers: %w", err)
		}
		for _, a := range answers {
			q := byID[a.QuestionID]
			if q == nil {
				continue
			}
			q.Posts = append(q.Posts, model.Comment{
				SelfLink:    siteLink(q.Link, "/a/", a.AnswerID),
				Author:      mapUser(a.Owner),
				Content:     plainText(a.Body),
				Score:       a.Score,
				DateCreated: epoch(a.CreationDate),
			})
			answerOf[a.AnswerID] = a.QuestionID
			answerIDs = append(answerIDs, a.AnswerID)
		}

		comments, err := pages[commentItem](ctx, c, "questions/"+joinIDs(batch)+"/comments", nil)
		if err != nil {
			return nil, fmt.Errorf("listing question comments: %w", err)
		}
		for _, cm := range comments {
			attachComment(byID[cm.PostID], cm)
		}
	}

	for _, batch := range chunk(answerIDs) {
		comments, err := pages[commentItem](ctx, c, "answers/"+joinIDs(batch)+"/comments", nil)
		if err != nil {
			return nil, fmt.Errorf("listing answer comments: %w", err)
		}
		for _, cm := range comments {
			attachComment(byID[answerOf[cm.PostID]], cm)
		}
	}

	for i := range questions {
		posts := questions[i].Posts
		sort.SliceStable(posts, func(a, b int) bool {
			return posts[a].DateCreated.Before(posts[b].DateCreated)
		})
	}
	return questions, nil
}

func attachComment(q *model.Question, cm commentItem) {
	if q == nil {
		return
	}
	q.Posts = append(q.Posts, model.Comment{
		SelfLink:    siteLink(q.Link, "/posts/comments/", cm.CommentID),
		Author:      mapUser(cm.Owner),
		Content:     plainText(cm.Body),
		Score:       cm.Score,
		DateCreated: epoch(cm.CreationDate),
	})
}

// pages reads every page of a list endpoint, up to maxPages.
func pages[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("site", c.site)
	q.Set("filter", "withbody")
	q.Set("pagesize", strconv.Itoa(pageSize))
	if c.key != "" {
		q.Set("key", c.key)
	}

	var all []T
	for page := 1; page <= maxPages; page++ {
		q.Set("page", strconv.Itoa(page))
		endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: q.Encode()}).String()

		var w wrapper[T]
		if err := c.fetch.GetJSON(ctx, endpoint, &w); err != nil {
			return nil, err
		}
		if w.ErrorID != 0 {
			return nil, fmt.Errorf("stack exchange error %d %s: %s", w.ErrorID, w.ErrorName, w.ErrorMessage)
		}
		if w.Backoff > 0 {
			slog.Warn("stack exchange requested backoff", "path", path, "seconds", w.Backoff)
		}
		if w.QuotaRemaining > 0 && w.QuotaRemaining < 100 {
			slog.Warn("stack exchange quota low", "remaining", w.QuotaRemaining)
		}

		all = append(all, w.Items...)
		if !w.HasMore {
			break
		}
	}
	return all, nil
}

func mapQuestion(it questionItem) model.Question {
	return model.Question{
		QuestionID:       it.QuestionID,
		Link:             it.Link,
		Title:            html.UnescapeString(it.Title),
		Tags:             it.Tags,
		Owner:            mapUser(it.Owner),
		IsAnswered:       it.IsAnswered,
		AnswerCount:      it.AnswerCount,
		AcceptedAnswerID: it.AcceptedAnswerID,
		Score:            it.Score,
		CreationDate:     epoch(it.CreationDate),
		LastActivityDate: epoch(it.LastActivityDate),
		ClosedDate:       epoch(it.ClosedDate),
	}
}

// mapUser keys people by numeric user id. Deleted users have none and map
// to the zero Person.
func mapUser(u shallowUser) model.Person {
	if u.UserID == 0 {
		return model.Person{}
	}
	return model.Person{
		Username:    strconv.FormatInt(u.UserID, 10),
		DisplayName: html.UnescapeString(u.DisplayName),
		URL:         u.Link,
	}
}

// plainText strips markup so sentiment markers are matched on visible text.
func plainText(body string) string {
	return strings.TrimSpace(html2text.HTML2Text(body))
}

// siteLink builds a permalink on the question's site.
func siteLink(questionLink, prefix string, id int64) string {
	u, err := url.Parse(questionLink)
	if err != nil || u.Host == "" {
		return prefix[1:] + strconv.FormatInt(id, 10)
	}
	return u.Scheme + "://" + u.Host + prefix + strconv.FormatInt(id, 10)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ";")
}

func chunk(ids []int64) [][]int64 {
	var out [][]int64
	for len(ids) > maxIDs {
		out = append(out, ids[:maxIDs])
		ids = ids[maxIDs:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
