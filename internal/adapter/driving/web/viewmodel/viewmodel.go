// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// QueueViewModel holds everything the queue page renders.
type QueueViewModel struct {
	// NoticeHTML is sanitized HTML shown above the queue; empty hides the banner.
	NoticeHTML string
	Sections   []SectionViewModel
	Total      int
}

// SectionViewModel is one group of reviews, e.g. those waiting on reviewers.
type SectionViewModel struct {
	Title   string
	Anchor  string
	Reviews []ReviewCardViewModel
}

// ReviewCardViewModel holds presentation-ready data for one queue row.
type ReviewCardViewModel struct {
	ID            int64
	Title         string
	URL           string
	Source        string
	Series        string
	Owner         string
	State         string
	StateSentence string // e.g. "an IN PROGRESS review"
	Age           string
	LockedBy      string
	PositiveVotes int
	NegativeVotes int
	TestStatus    string
	TestColor     string // "red", "green" or "" (CSS class suffix)
}
