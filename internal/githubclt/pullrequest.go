package githubclt

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v59/github"
	"github.com/shurcooL/githubv4"

	"github.com/simplesurance/snapbump/internal/logfields"
)

// PullRequest describes an open pull request.
type PullRequest struct {
	Number  int
	Title   string
	Body    string
	HeadSHA string
	URL     string
}

// FindOpenPullRequest returns the open pull request whose head is
// headBranch. ErrNotFound is returned when no open pull request exists for
// the branch.
func (clt *Client) FindOpenPullRequest(ctx context.Context, owner, repo, headBranch string) (*PullRequest, error) {
	var query struct {
		Repository struct {
			PullRequests struct {
				Nodes []struct {
					Number     githubv4.Int
					Title      githubv4.String
					Body       githubv4.String
					HeadRefOid githubv4.String
					URL        githubv4.URI `graphql:"url"`
				}
			} `graphql:"pullRequests(first: 1, states: OPEN, headRefName: $headRefName)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	vars := map[string]any{
		"owner":       githubv4.String(owner),
		"name":        githubv4.String(repo),
		"headRefName": githubv4.String(headBranch),
	}

	if err := clt.graphQLClt.Query(ctx, &query, vars); err != nil {
		return nil, clt.wrapGraphQLRetryableErrors(err)
	}

	nodes := query.Repository.PullRequests.Nodes
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no open pull request with head branch %q", ErrNotFound, headBranch)
	}

	node := nodes[0]

	result := PullRequest{
		Number:  int(node.Number),
		Title:   string(node.Title),
		Body:    string(node.Body),
		HeadSHA: string(node.HeadRefOid),
	}

	if node.URL.URL != nil {
		result.URL = node.URL.String()
	}

	return &result, nil
}

// OpenPullRequest creates a pull request from head into base.
func (clt *Client) OpenPullRequest(ctx context.Context, owner, repo, head, base, title, body string) (*PullRequest, error) {
	pr, _, err := clt.restClt.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	clt.logger.Debug(
		"pull request created",
		logfields.Event("github_pull_request_created"),
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.BaseBranch(base),
		logfields.HeadBranch(head),
		logfields.PullRequest(pr.GetNumber()),
	)

	return &PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		HeadSHA: pr.GetHead().GetSHA(),
		URL:     pr.GetHTMLURL(),
	}, nil
}

// UpdatePullRequest replaces title and body of an open pull request.
func (clt *Client) UpdatePullRequest(ctx context.Context, owner, repo string, number int, title, body string) error {
	_, _, err := clt.restClt.PullRequests.Edit(ctx, owner, repo, number, &github.PullRequest{
		Title: github.String(title),
		Body:  github.String(body),
	})

	return clt.wrapRetryableErrors(err)
}

// AddLabels adds labels to a pull request or issue.
func (clt *Client) AddLabels(ctx context.Context, owner, repo string, prOrIssueNr int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}

	for _, label := range labels {
		if label == "" {
			// github removes all labels when an empty one is
			// submitted, guard against it
			return errors.New("provided label is empty")
		}
	}

	_, _, err := clt.restClt.Issues.AddLabelsToIssue(ctx, owner, repo, prOrIssueNr, labels)

	return clt.wrapRetryableErrors(err)
}
