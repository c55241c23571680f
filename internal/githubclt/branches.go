package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v59/github"
)

type BranchIterator interface {
	Next() (string, error)
}

type BranchIter struct {
	clt *Client

	ctx   context.Context
	owner string
	repo  string

	unseen []*github.Branch

	nextPage int
	finished bool
}

// Next returns the name of the next branch.
// When the last result was returned an empty string is returned.
func (it *BranchIter) Next() (string, error) {
	if len(it.unseen) > 0 {
		result := it.unseen[0]
		it.unseen = it.unseen[1:]

		return result.GetName(), nil
	}

	if it.finished {
		return "", nil
	}

	branches, resp, err := it.clt.restClt.Repositories.ListBranches(it.ctx, it.owner, it.repo, &github.BranchListOptions{
		ListOptions: github.ListOptions{
			Page:    it.nextPage,
			PerPage: 100,
		},
	})
	if err != nil {
		return "", it.clt.wrapRetryableErrors(err)
	}

	if resp.NextPage == 0 || len(branches) == 0 {
		it.finished = true
	} else {
		it.nextPage = resp.NextPage
	}

	it.unseen = branches

	if len(it.unseen) == 0 {
		return "", nil
	}

	return it.Next()
}

// Branches returns an iterator over the names of all branches of the
// repository.
func (clt *Client) Branches(ctx context.Context, owner, repo string) BranchIterator { // interface is returned to make the method mockable
	return &BranchIter{
		clt:      clt,
		ctx:      ctx,
		owner:    owner,
		repo:     repo,
		nextPage: 1,
	}
}

// BranchHead returns the SHA of the commit the branch currently points to.
// ErrNotFound is returned when the branch does not exist.
func (clt *Client) BranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, _, err := clt.restClt.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		if isNotFoundResponse(err) {
			return "", fmt.Errorf("%w: branch %q", ErrNotFound, branch)
		}

		return "", clt.wrapRetryableErrors(err)
	}

	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("github returned an empty object sha for branch %q", branch)
	}

	return sha, nil
}

// EnsureBranch creates the branch pointing to sha or force-updates it when
// it already exists. It is meant for branches owned by the automation,
// existing commits on the branch are discarded.
func (clt *Client) EnsureBranch(ctx context.Context, owner, repo, branch, sha string) error {
	ref := github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	}

	_, _, err := clt.restClt.Git.CreateRef(ctx, owner, repo, &ref)
	if err == nil {
		return nil
	}

	// CreateRef fails with 422 when the ref exists, update it instead
	var respErr *github.ErrorResponse
	if !errors.As(err, &respErr) || respErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return clt.wrapRetryableErrors(err)
	}

	_, _, err = clt.restClt.Git.UpdateRef(ctx, owner, repo, &ref, true)
	if err != nil {
		return clt.wrapRetryableErrors(err)
	}

	return nil
}
