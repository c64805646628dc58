package model

import "time"

// ReviewVote is one sentiment-bearing comment or message tied to a review.
// CommentID is the remote comment's self link and is unique.
type ReviewVote struct {
	ID        int64
	CommentID string
	OwnerID   int64
	ReviewID  int64
	Vote      VoteKind
	Created   time.Time

	OwnerName string // Read-side join.
}

// ReviewHistory is one append-only audit entry for a change on a review.
type ReviewHistory struct {
	ID       int64
	ReviewID int64
	UserID   int64 // 0 when the change came from ingestion.
	What     string
	Prev     string
	New      string
	APIURL   string
	Changed  time.Time

	UserName string // Read-side join.
}
