package model

import "time"

// ReviewTest is a CI result recorded against a review.
type ReviewTest struct {
	ID          int64
	ReviewID    int64
	RequesterID int64
	Status      TestStatus
	URL         string
	Substrate   string // e.g. "lxc", "aws".
	Created     time.Time
	Finished    time.Time
	Updated     time.Time

	// Color is a UI hint set by Review.CurrentTest, not persisted.
	Color string
}

// Color maps a test status to its dashboard color.
func (s TestStatus) Color() string {
	switch s {
	case TestFail:
		return "red"
	case TestPass:
		return "green"
	default:
		return ""
	}
}
