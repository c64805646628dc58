package model

import "time"

// The types in this file are transfer objects produced by the remote source
// adapters. They are never persisted directly; plugins reconcile them into
// Review and ReviewVote rows.

// Person is an identity as reported by a remote source.
type Person struct {
	Username    string // Launchpad name, Stack Exchange user id, GitHub login.
	DisplayName string
	URL         string // Profile or API link.
}

// Anonymous reports whether the remote no longer identifies the person, as
// with deleted accounts.
func (p Person) Anonymous() bool {
	return p.Username == ""
}

// Equal reports whether both values refer to the same remote identity. An
// anonymous person equals nobody.
func (p Person) Equal(o Person) bool {
	if p.Anonymous() || o.Anonymous() {
		return false
	}
	if p.URL != "" && o.URL != "" {
		return p.URL == o.URL
	}
	return p.Username != "" && p.Username == o.Username
}

// RemoteSeries is a distro series as seen on Launchpad.
type RemoteSeries struct {
	Name   string
	Slug   string
	Active bool
}

// Comment is one entry of a remote discussion thread: a merge proposal
// comment, a bug message, a Q&A answer or comment, or a pull request review.
type Comment struct {
	SelfLink    string // Stable remote identifier, becomes ReviewVote.CommentID.
	Author      Person
	Vote        string // Source vote vocabulary; empty for free-text messages.
	Content     string
	Score       int // Stack Exchange score; 0 elsewhere.
	DateCreated time.Time
}

// MergeProposal is a Launchpad branch merge proposal.
type MergeProposal struct {
	SelfLink     string
	WebLink      string
	QueueStatus  string
	SourceBranch string // Display name, used as the review title.
	Registrant   Person
	TargetSeries *RemoteSeries // Nil when the target branch has no source package.
	DateCreated  time.Time
	Comments     []Comment // Oldest first.
}

// BugTask is a Launchpad bug task together with its bug.
type BugTask struct {
	SelfLink    string
	WebLink     string
	Status      string
	Owner       Person
	Assignee    *Person
	TargetName  string // e.g. "charms/+source/mysql"; empty for distribution-wide tasks.
	TargetLink  string
	DateCreated time.Time
	Bug         Bug
}

// Bug is the Launchpad bug behind a task.
type Bug struct {
	Title           string
	Tags            []string
	DateLastMessage time.Time
	DateLastUpdated time.Time
	Messages        []Comment // Oldest first; the first one is the description.
}

// Question is a Stack Exchange question with its answers and comments.
type Question struct {
	QuestionID       int64
	Link             string
	Title            string
	Tags             []string
	Owner            Person
	IsAnswered       bool
	AnswerCount      int
	AcceptedAnswerID int64
	Score            int
	CreationDate     time.Time
	LastActivityDate time.Time
	ClosedDate       time.Time // Zero when open.
	Posts            []Comment // Answers and comments, oldest first.
}

// PullRequest is a GitHub pull request with its submitted reviews.
type PullRequest struct {
	APIURL       string
	HTMLURL      string
	RepoFullName string
	Number       int
	Title        string
	State        string // open, closed.
	Draft        bool
	Merged       bool
	Author       Person
	Labels       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Reviews      []Comment // Vote carries the GitHub review state.
}
