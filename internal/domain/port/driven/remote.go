package driven

import (
	"context"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

// Remote adapters wrap a missing remote record as model.ErrNotFound and an
// undecodable payload as model.ErrMalformed.

// LaunchpadClient defines the driven port for the Launchpad REST API.
type LaunchpadClient interface {
	// SearchBugTasks returns the bug tasks of a distribution matching the
	// given statuses and tags. Tags prefixed with "-" are exclusions.
	SearchBugTasks(ctx context.Context, distribution string, statuses, tags []string, linkedBranchesOnly bool) ([]model.BugTask, error)
	// MergeProposals returns the merge proposals of a distribution in the given statuses.
	MergeProposals(ctx context.Context, distribution string, statuses []string) ([]model.MergeProposal, error)
	LoadBugTask(ctx context.Context, selfLink string) (*model.BugTask, error)
	LoadMergeProposal(ctx context.Context, selfLink string) (*model.MergeProposal, error)
}

// StackExchangeClient defines the driven port for a Stack Exchange site.
type StackExchangeClient interface {
	// SearchQuestions returns questions tagged with any of the given tags,
	// including their answers and comments.
	SearchQuestions(ctx context.Context, tags []string) ([]model.Question, error)
	GetQuestion(ctx context.Context, id int64) (*model.Question, error)
}

// GitHubClient defines the driven port for reading pull requests from GitHub.
type GitHubClient interface {
	FetchPullRequests(ctx context.Context, repoFullName string) ([]model.PullRequest, error)
	FetchPullRequest(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error)
}
