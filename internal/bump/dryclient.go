package bump

import (
	"context"

	"go.uber.org/zap"

	"github.com/simplesurance/snapbump/internal/githubclt"
	"github.com/simplesurance/snapbump/internal/logfields"
)

// DryGithubClient is a github client that does not do any changes on
// github.
// All operations that could cause a change are simulated and always
// succeed. All other operations are forwarded to a wrapped GithubClient.
type DryGithubClient struct {
	clt    GithubClient
	logger *zap.Logger
}

func NewDryGithubClient(clt GithubClient) *DryGithubClient {
	return &DryGithubClient{
		clt:    clt,
		logger: zap.L().Named("dry_github_client"),
	}
}

func (c *DryGithubClient) Branches(ctx context.Context, owner, repo string) githubclt.BranchIterator {
	return c.clt.Branches(ctx, owner, repo)
}

func (c *DryGithubClient) BranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	return c.clt.BranchHead(ctx, owner, repo, branch)
}

func (c *DryGithubClient) FileContent(ctx context.Context, owner, repo, ref, path string) (*githubclt.FileContent, error) {
	return c.clt.FileContent(ctx, owner, repo, ref, path)
}

func (c *DryGithubClient) FindOpenPullRequest(ctx context.Context, owner, repo, headBranch string) (*githubclt.PullRequest, error) {
	return c.clt.FindOpenPullRequest(ctx, owner, repo, headBranch)
}

func (c *DryGithubClient) EnsureBranch(_ context.Context, _, _, branch, sha string) error {
	c.logger.Info(
		"simulated resetting of github branch",
		logfields.HeadBranch(branch),
		logfields.Commit(sha),
	)

	return nil
}

func (c *DryGithubClient) CommitFileChange(_ context.Context, _, _, path string, up *githubclt.FileUpdate) error {
	c.logger.Info(
		"simulated committing a file change, nothing committed on github",
		logfields.HeadBranch(up.Branch),
		zap.String("path", path),
		zap.String("commit_message", up.Message),
	)

	return nil
}

func (c *DryGithubClient) OpenPullRequest(_ context.Context, _, _, head, base, title, _ string) (*githubclt.PullRequest, error) {
	c.logger.Info(
		"simulated creating a pull request, nothing created on github",
		logfields.HeadBranch(head),
		logfields.BaseBranch(base),
		zap.String("title", title),
	)

	return &githubclt.PullRequest{Title: title}, nil
}

func (c *DryGithubClient) UpdatePullRequest(_ context.Context, _, _ string, number int, title, _ string) error {
	c.logger.Info(
		"simulated updating a pull request, nothing changed on github",
		logfields.PullRequest(number),
		zap.String("title", title),
	)

	return nil
}

func (c *DryGithubClient) AddLabels(_ context.Context, _, _ string, prOrIssueNr int, labels []string) error {
	c.logger.Info(
		"simulated adding labels to a pull request, nothing changed on github",
		logfields.PullRequest(prOrIssueNr),
		zap.Strings("labels", labels),
	)

	return nil
}
