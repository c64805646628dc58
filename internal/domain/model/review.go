package model

import (
	"fmt"
	"time"
)

// Review is one locally tracked unit of work mirroring a remote bug, merge
// proposal, question or pull request. APIURL is the natural key.
type Review struct {
	ID         int64
	CategoryID int64 // 0 when uncategorized.
	SourceID   int64
	ProjectID  int64
	OwnerID    int64
	SeriesID   int64
	LockerID   int64 // 0 when unlocked.

	Title  string
	Type   ReviewType
	URL    string
	APIURL string
	State  ReviewState

	Created time.Time
	Updated time.Time
	Syncd   time.Time
	Locked  time.Time // Zero when unlocked.

	// Read-side joins, populated by list/detail queries only.
	OwnerName  string
	LockerName string
	SourceSlug string
	SeriesSlug string
	Votes      []ReviewVote
	Tests      []ReviewTest // Ordered by ID.
}

// Lock records an advisory claim on the review by the given user.
func (r *Review) Lock(userID int64, now time.Time) {
	r.Locked = now.UTC()
	r.LockerID = userID
}

// Unlock clears the advisory claim.
func (r *Review) Unlock() {
	r.Locked = time.Time{}
	r.LockerID = 0
	r.LockerName = ""
}

// IsLocked reports whether a reviewer currently holds the advisory lock.
func (r Review) IsLocked() bool {
	return r.LockerID != 0 && !r.Locked.IsZero()
}

// Age formats the time elapsed since the last update (or creation when the
// review was never updated) as whole days beyond 48 hours, else whole hours.
func (r Review) Age(now time.Time) string {
	ref := r.Updated
	if ref.IsZero() {
		ref = r.Created
	}
	return formatAge(now.Sub(ref))
}

// AgeSinceCreated is Age measured from the creation timestamp.
func (r Review) AgeSinceCreated(now time.Time) string {
	return formatAge(now.Sub(r.Created))
}

func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	if hours > 48 {
		return fmt.Sprintf("%d d", hours/24)
	}
	return fmt.Sprintf("%d h", hours)
}

// CurrentTest returns the most recent test result with its display color set,
// or nil when the review has never been tested.
func (r Review) CurrentTest() *ReviewTest {
	if len(r.Tests) == 0 {
		return nil
	}
	t := r.Tests[len(r.Tests)-1]
	t.Color = t.Status.Color()
	return &t
}

// PositiveVotes returns the votes classified as positive.
func (r Review) PositiveVotes() []ReviewVote {
	return r.votesOf(VotePositive)
}

// NegativeVotes returns the votes classified as negative.
func (r Review) NegativeVotes() []ReviewVote {
	return r.votesOf(VoteNegative)
}

func (r Review) votesOf(kind VoteKind) []ReviewVote {
	var out []ReviewVote
	for _, v := range r.Votes {
		if v.Vote == kind {
			out = append(out, v)
		}
	}
	return out
}

// UserFollowup reports whether the submitter is expected to act next.
func (r Review) UserFollowup() bool {
	return r.State == StateReviewed || r.State == StateInProgress
}

// ReviewerFollowup reports whether a reviewer is expected to act next.
func (r Review) ReviewerFollowup() bool {
	switch r.State {
	case StateReady, StateNew, StatePending, StateFollowUp:
		return true
	default:
		return false
	}
}

// StateArticle returns the indefinite article for the state name ("a"/"an").
func (r Review) StateArticle() string {
	if r.State == "" {
		return "a"
	}
	switch r.State[0] {
	case 'A', 'E', 'I', 'O', 'U':
		return "an"
	default:
		return "a"
	}
}
