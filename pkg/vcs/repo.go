package vcs

import "context"

type PullRequest struct {
	Number  int
	Title   string
	Body    string
	HeadRef string
	Author  string
	URL     string
}

type Comment struct {
	ID   int64
	Body string
}

type PullRequestClient interface {
	// GetPullRequest returns the current state of a pull request.
	GetPullRequest(ctx context.Context, number int) (PullRequest, error)

	// UpdateBody replaces the pull request description.
	UpdateBody(ctx context.Context, number int, body string) error

	// ListComments returns every issue comment on the pull request, oldest first.
	ListComments(ctx context.Context, number int) ([]Comment, error)

	// CreateComment adds an issue comment to the pull request.
	CreateComment(ctx context.Context, number int, body string) error
}
