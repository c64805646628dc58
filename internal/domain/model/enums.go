package model

import "fmt"

// ReviewType distinguishes new contributions (bugs, questions) from updates
// to existing code (merge proposals, pull requests).
type ReviewType string

const (
	ReviewTypeNew    ReviewType = "NEW"
	ReviewTypeUpdate ReviewType = "UPDATE"
)

// ParseReviewType validates a stored or remote review type value.
func ParseReviewType(s string) (ReviewType, error) {
	switch t := ReviewType(s); t {
	case ReviewTypeNew, ReviewTypeUpdate:
		return t, nil
	default:
		return "", fmt.Errorf("review type %q: %w", s, ErrUnsupportedType)
	}
}

// ReviewState is the local queue state of a review.
type ReviewState string

// The abandoned state keeps its historical storage spelling.
const (
	StatePending    ReviewState = "PENDING"
	StateReviewed   ReviewState = "REVIEWED"
	StateMerged     ReviewState = "MERGED"
	StateClosed     ReviewState = "CLOSED"
	StateAbandoned  ReviewState = "ABANDONDED"
	StateReady      ReviewState = "READY"
	StateNew        ReviewState = "NEW"
	StateInProgress ReviewState = "IN PROGRESS"
	StateFollowUp   ReviewState = "FOLLOW UP"
)

// AllReviewStates lists every state in display order.
var AllReviewStates = []ReviewState{
	StatePending,
	StateReviewed,
	StateMerged,
	StateClosed,
	StateAbandoned,
	StateReady,
	StateNew,
	StateInProgress,
	StateFollowUp,
}

// ParseReviewState validates a review state value. The empty string is
// accepted and means the review has not been classified yet.
func ParseReviewState(s string) (ReviewState, error) {
	if s == "" {
		return "", nil
	}
	for _, st := range AllReviewStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("review state %q: %w", s, ErrMalformed)
}

// VoteKind is the sentiment carried by a single comment or message.
type VoteKind string

const (
	VotePositive VoteKind = "POSITIVE"
	VoteNegative VoteKind = "NEGATIVE"
	VoteComment  VoteKind = "COMMENT"
)

// ParseVoteKind validates a stored vote value.
func ParseVoteKind(s string) (VoteKind, error) {
	switch v := VoteKind(s); v {
	case VotePositive, VoteNegative, VoteComment:
		return v, nil
	default:
		return "", fmt.Errorf("vote %q: %w", s, ErrMalformed)
	}
}

// TestStatus is the outcome of a CI run against a review.
type TestStatus string

const (
	TestPending TestStatus = "PENDING"
	TestPass    TestStatus = "PASS"
	TestFail    TestStatus = "FAIL"
)
