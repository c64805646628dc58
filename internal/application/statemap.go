package application

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

var mergeQueueStates = map[string]model.ReviewState{
	"work in progress":     model.StateInProgress,
	"needs review":         model.StatePending,
	"approved":             model.StateReady,
	"queued":               model.StateReady,
	"rejected":             model.StateClosed,
	"code failed to merge": model.StateReviewed,
	"merged":               model.StateMerged,
	"superseded":           model.StateAbandoned,
}

// MapLaunchpadState maps a merge proposal queue status to a review state.
func MapLaunchpadState(queueStatus string) (model.ReviewState, error) {
	if st, ok := mergeQueueStates[strings.ToLower(strings.TrimSpace(queueStatus))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("merge queue status %q: %w", queueStatus, model.ErrMalformed)
}

var bugTaskStates = map[string]model.ReviewState{
	"new":                           model.StateNew,
	"confirmed":                     model.StatePending,
	"triaged":                       model.StatePending,
	"incomplete (with response)":    model.StatePending,
	"in progress":                   model.StateInProgress,
	"incomplete":                    model.StateReviewed,
	"incomplete (without response)": model.StateReviewed,
	"fix committed":                 model.StateReady,
	"fix released":                  model.StateMerged,
	"invalid":                       model.StateClosed,
	"won't fix":                     model.StateClosed,
	"opinion":                       model.StateClosed,
	"expired":                       model.StateAbandoned,
}

// BugState maps a bug task status to a review state.
func BugState(task model.BugTask) (model.ReviewState, error) {
	if st, ok := bugTaskStates[strings.ToLower(strings.TrimSpace(task.Status))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("bug task status %q: %w", task.Status, model.ErrMalformed)
}

// QuestionState derives a review state for a Stack Exchange question.
func QuestionState(q model.Question) model.ReviewState {
	switch {
	case !q.ClosedDate.IsZero():
		return model.StateClosed
	case q.AcceptedAnswerID != 0:
		return model.StateMerged
	case q.IsAnswered:
		return model.StateReviewed
	case q.AnswerCount == 0:
		return model.StateNew
	default:
		return model.StatePending
	}
}

// PullState derives a review state for a GitHub pull request. The latest
// decisive review (approved or changes requested) sets the state of an open,
// non-draft pull request.
func PullState(pr model.PullRequest) model.ReviewState {
	switch {
	case pr.Merged:
		return model.StateMerged
	case strings.EqualFold(pr.State, "closed"):
		return model.StateClosed
	case pr.Draft:
		return model.StateInProgress
	}

	for i := len(pr.Reviews) - 1; i >= 0; i-- {
		switch strings.ToUpper(pr.Reviews[i].Vote) {
		case "APPROVED":
			return model.StateReady
		case "CHANGES_REQUESTED":
			return model.StateReviewed
		}
	}
	return model.StatePending
}
