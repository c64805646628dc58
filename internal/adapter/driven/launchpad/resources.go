package launchpad

import "time"

// Wire representations of the Launchpad web service (devel API). Only the
// fields reviewq reads are declared; links are followed lazily.

type collection[T any] struct {
	TotalSize          int    `json:"total_size"`
	Start              int    `json:"start"`
	Entries            []T    `json:"entries"`
	NextCollectionLink string `json:"next_collection_link"`
}

type personResource struct {
	SelfLink    string `json:"self_link"`
	WebLink     string `json:"web_link"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type bugTaskResource struct {
	SelfLink      string    `json:"self_link"`
	WebLink       string    `json:"web_link"`
	Status        string    `json:"status"`
	BugTargetName string    `json:"bug_target_name"`
	TargetLink    string    `json:"target_link"`
	OwnerLink     string    `json:"owner_link"`
	AssigneeLink  string    `json:"assignee_link"`
	BugLink       string    `json:"bug_link"`
	DateCreated   time.Time `json:"date_created"`
}

type bugResource struct {
	Title                  string    `json:"title"`
	Tags                   []string  `json:"tags"`
	DateLastMessage        time.Time `json:"date_last_message"`
	DateLastUpdated        time.Time `json:"date_last_updated"`
	MessagesCollectionLink string    `json:"messages_collection_link"`
}

type messageResource struct {
	SelfLink    string    `json:"self_link"`
	OwnerLink   string    `json:"owner_link"`
	Content     string    `json:"content"`
	DateCreated time.Time `json:"date_created"`
}

type mergeProposalResource struct {
	SelfLink         string    `json:"self_link"`
	WebLink          string    `json:"web_link"`
	QueueStatus      string    `json:"queue_status"`
	RegistrantLink   string    `json:"registrant_link"`
	SourceBranchLink string    `json:"source_branch_link"`
	TargetBranchLink string    `json:"target_branch_link"`
	SourceGitPath    string    `json:"source_git_path"`
	DateCreated      time.Time `json:"date_created"`
	AllCommentsLink  string    `json:"all_comments_collection_link"`
}

type branchResource struct {
	DisplayName       string `json:"display_name"`
	SourcePackageLink string `json:"sourcepackage_link"`
}

type sourcePackageResource struct {
	DistroSeriesLink string `json:"distroseries_link"`
}

type seriesResource struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayname"`
	Active      bool   `json:"active"`
}

type codeReviewCommentResource struct {
	SelfLink    string    `json:"self_link"`
	AuthorLink  string    `json:"author_link"`
	Vote        string    `json:"vote"`
	MessageBody string    `json:"message_body"`
	DateCreated time.Time `json:"date_created"`
}
