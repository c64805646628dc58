package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/reviewq/internal/application"
	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ReviewResponse is the JSON representation of a review in the queue.
type ReviewResponse struct {
	ID               int64         `json:"id"`
	Title            string        `json:"title"`
	Type             string        `json:"type"`
	State            string        `json:"state"`
	URL              string        `json:"url"`
	APIURL           string        `json:"api_url"`
	Source           string        `json:"source"`
	Series           string        `json:"series,omitempty"`
	Owner            string        `json:"owner"`
	LockedBy         string        `json:"locked_by,omitempty"`
	LockedAt         string        `json:"locked_at,omitempty"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
	SyncedAt         string        `json:"synced_at,omitempty"`
	Age              string        `json:"age"`
	PositiveVotes    int           `json:"positive_votes"`
	NegativeVotes    int           `json:"negative_votes"`
	UserFollowup     bool          `json:"user_followup"`
	ReviewerFollowup bool          `json:"reviewer_followup"`
	CurrentTest      *TestResponse `json:"current_test,omitempty"`
}

// ReviewDetailResponse adds votes and test history to a ReviewResponse.
type ReviewDetailResponse struct {
	ReviewResponse
	Votes []VoteResponse `json:"votes"`
	Tests []TestResponse `json:"tests"`
}

// VoteResponse is the JSON representation of a review vote.
type VoteResponse struct {
	CommentID string `json:"comment_id"`
	Owner     string `json:"owner"`
	Vote      string `json:"vote"`
	CreatedAt string `json:"created_at"`
}

// TestResponse is the JSON representation of a CI result.
type TestResponse struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Color      string `json:"color,omitempty"`
	URL        string `json:"url,omitempty"`
	Substrate  string `json:"substrate,omitempty"`
	CreatedAt  string `json:"created_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	What      string `json:"what"`
	Prev      string `json:"prev"`
	New       string `json:"new"`
	User      string `json:"user,omitempty"`
	ChangedAt string `json:"changed_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status        string                    `json:"status"`
	Database      string                    `json:"database"`
	SchemaVersion uint                      `json:"schema_version"`
	SchemaDirty   bool                      `json:"schema_dirty"`
	Sources       map[string]SourceSchedule `json:"sources"`
	Time          string                    `json:"time"`
}

// SourceSchedule is the adaptive polling state of one source.
type SourceSchedule struct {
	Tier       string `json:"tier"`
	NextPollAt string `json:"next_poll_at,omitempty"`
	LastPolled string `json:"last_polled,omitempty"`
}

// IngestResponse acknowledges a completed ingestion pass.
type IngestResponse struct {
	Status string `json:"status"`
	Source string `json:"source,omitempty"`
}

// LockRequest is the JSON body for the lock and unlock endpoints.
type LockRequest struct {
	UserID int64 `json:"user_id"`
}

// AddTestRequest is the JSON body for the add test endpoint.
type AddTestRequest struct {
	RequesterID int64  `json:"requester_id"`
	Status      string `json:"status"`
	URL         string `json:"url"`
	Substrate   string `json:"substrate"`
}

// formatTime renders t as RFC 3339 in UTC, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// toReviewResponse converts a domain Review to its JSON response representation.
func toReviewResponse(r model.Review, now time.Time) ReviewResponse {
	resp := ReviewResponse{
		ID:               r.ID,
		Title:            r.Title,
		Type:             string(r.Type),
		State:            string(r.State),
		URL:              r.URL,
		APIURL:           r.APIURL,
		Source:           r.SourceSlug,
		Series:           r.SeriesSlug,
		Owner:            r.OwnerName,
		CreatedAt:        formatTime(r.Created),
		UpdatedAt:        formatTime(r.Updated),
		SyncedAt:         formatTime(r.Syncd),
		Age:              r.Age(now),
		PositiveVotes:    len(r.PositiveVotes()),
		NegativeVotes:    len(r.NegativeVotes()),
		UserFollowup:     r.UserFollowup(),
		ReviewerFollowup: r.ReviewerFollowup(),
	}

	if r.IsLocked() {
		resp.LockedBy = r.LockerName
		resp.LockedAt = formatTime(r.Locked)
	}
	if t := r.CurrentTest(); t != nil {
		tr := toTestResponse(*t)
		resp.CurrentTest = &tr
	}
	return resp
}

// toReviewDetailResponse converts a domain Review including its votes and tests.
func toReviewDetailResponse(r model.Review, now time.Time) ReviewDetailResponse {
	votes := make([]VoteResponse, 0, len(r.Votes))
	for _, v := range r.Votes {
		votes = append(votes, VoteResponse{
			CommentID: v.CommentID,
			Owner:     v.OwnerName,
			Vote:      string(v.Vote),
			CreatedAt: formatTime(v.Created),
		})
	}

	tests := make([]TestResponse, 0, len(r.Tests))
	for _, t := range r.Tests {
		tests = append(tests, toTestResponse(t))
	}

	return ReviewDetailResponse{
		ReviewResponse: toReviewResponse(r, now),
		Votes:          votes,
		Tests:          tests,
	}
}

// toTestResponse converts a domain ReviewTest to its JSON representation.
func toTestResponse(t model.ReviewTest) TestResponse {
	return TestResponse{
		ID:         t.ID,
		Status:     string(t.Status),
		Color:      t.Status.Color(),
		URL:        t.URL,
		Substrate:  t.Substrate,
		CreatedAt:  formatTime(t.Created),
		FinishedAt: formatTime(t.Finished),
	}
}

// toHistoryResponse converts a domain ReviewHistory to its JSON representation.
func toHistoryResponse(h model.ReviewHistory) HistoryResponse {
	return HistoryResponse{
		What:      h.What,
		Prev:      h.Prev,
		New:       h.New,
		User:      h.UserName,
		ChangedAt: formatTime(h.Changed),
	}
}

// toHealthResponse converts a HealthReport to its JSON representation.
func toHealthResponse(r application.HealthReport) HealthResponse {
	sources := make(map[string]SourceSchedule, len(r.Sources))
	for slug, s := range r.Sources {
		sources[slug] = SourceSchedule{
			Tier:       s.Tier.String(),
			NextPollAt: formatTime(s.NextPollAt),
			LastPolled: formatTime(s.LastPolled),
		}
	}

	return HealthResponse{
		Status:        r.Status,
		Database:      r.Database,
		SchemaVersion: r.SchemaVersion,
		SchemaDirty:   r.SchemaDirty,
		Sources:       sources,
		Time:          formatTime(r.CheckedAt),
	}
}
