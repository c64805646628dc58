package stackexchange

import "time"

// wrapper is the common envelope of every Stack Exchange API response.
type wrapper[T any] struct {
	Items          []T    `json:"items"`
	HasMore        bool   `json:"has_more"`
	QuotaRemaining int    `json:"quota_remaining"`
	Backoff        int    `json:"backoff"`
	ErrorID        int    `json:"error_id"`
	ErrorName      string `json:"error_name"`
	ErrorMessage   string `json:"error_message"`
}

type shallowUser struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Link        string `json:"link"`
}

type questionItem struct {
	QuestionID       int64       `json:"question_id"`
	Link             string      `json:"link"`
	Title            string      `json:"title"`
	Tags             []string    `json:"tags"`
	Owner            shallowUser `json:"owner"`
	IsAnswered       bool        `json:"is_answered"`
	AnswerCount      int         `json:"answer_count"`
	AcceptedAnswerID int64       `json:"accepted_answer_id"`
	Score            int         `json:"score"`
	CreationDate     int64       `json:"creation_date"`
	LastActivityDate int64       `json:"last_activity_date"`
	ClosedDate       int64       `json:"closed_date"`
}

type answerItem struct {
	AnswerID     int64       `json:"answer_id"`
	QuestionID   int64       `json:"question_id"`
	Owner        shallowUser `json:"owner"`
	Body         string      `json:"body"`
	Score        int         `json:"score"`
	CreationDate int64       `json:"creation_date"`
}

type commentItem struct {
	CommentID    int64       `json:"comment_id"`
	PostID       int64       `json:"post_id"`
	Owner        shallowUser `json:"owner"`
	Body         string      `json:"body"`
	Score        int         `json:"score"`
	CreationDate int64       `json:"creation_date"`
}

// epoch converts a Unix timestamp; zero stays the zero time.
func epoch(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
