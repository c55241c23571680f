package bump

import (
	"context"
	"fmt"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/snapbump/internal/githubclt"
	"github.com/simplesurance/snapbump/internal/snapstoreclt"
)

const loggerName = "bump"

const (
	defWorkers       = 4
	defLookupTimeout = 2 * time.Minute
	defHeadPrefix    = "snapbump"
)

type GithubClient interface {
	Branches(ctx context.Context, owner, repo string) githubclt.BranchIterator
	BranchHead(ctx context.Context, owner, repo, branch string) (string, error)
	EnsureBranch(ctx context.Context, owner, repo, branch, sha string) error
	FileContent(ctx context.Context, owner, repo, ref, path string) (*githubclt.FileContent, error)
	CommitFileChange(ctx context.Context, owner, repo, path string, up *githubclt.FileUpdate) error
	FindOpenPullRequest(ctx context.Context, owner, repo, headBranch string) (*githubclt.PullRequest, error)
	OpenPullRequest(ctx context.Context, owner, repo, head, base, title, body string) (*githubclt.PullRequest, error)
	UpdatePullRequest(ctx context.Context, owner, repo string, number int, title, body string) error
	AddLabels(ctx context.Context, owner, repo string, prOrIssueNr int, labels []string) error
}

type StoreClient interface {
	Revision(ctx context.Context, snap, architecture string, channel snapstoreclt.Channel) (*snapstoreclt.RevisionInfo, error)
}

type RetryRunner interface {
	Run(ctx context.Context, fn func(context.Context) error, logFields []zap.Field) error
}

// Bumper updates pinned snap revisions in manifests of GitHub repositories
// via pull requests.
type Bumper struct {
	logger      *zap.Logger
	ghClient    GithubClient
	storeClient StoreClient
	retryer     RetryRunner

	targets []*Target

	workers          int
	lookupTimeout    time.Duration
	headBranchPrefix string
	prLabel          string
	titleTmplText    string
	bodyTmplText     string
	titleTmpl        *template.Template
	bodyTmpl         *template.Template
}

type Option func(*Bumper)

// WithWorkers sets the size of the worker pool on that revision lookups of
// a run are executed.
func WithWorkers(count int) Option {
	return func(b *Bumper) {
		b.workers = count
	}
}

// WithLookupTimeout limits how long a single revision lookup, including
// retries, may take.
func WithLookupTimeout(timeout time.Duration) Option {
	return func(b *Bumper) {
		b.lookupTimeout = timeout
	}
}

// WithHeadBranchPrefix sets the prefix of the branches to that manifest
// updates are committed.
// The head branch for a release branch is <prefix>/<release branch>.
func WithHeadBranchPrefix(prefix string) Option {
	return func(b *Bumper) {
		b.headBranchPrefix = prefix
	}
}

// WithPRLabel sets a label that is added to created pull requests.
func WithPRLabel(label string) Option {
	return func(b *Bumper) {
		b.prLabel = label
	}
}

// WithProposalTemplates sets the text/template templates from that pull
// request titles and bodies are rendered.
// Empty strings select the built-in templates.
func WithProposalTemplates(title, body string) Option {
	return func(b *Bumper) {
		b.titleTmplText = title
		b.bodyTmplText = body
	}
}

func New(
	ghClient GithubClient,
	storeClient StoreClient,
	retryer RetryRunner,
	targets []*Target,
	opts ...Option,
) (*Bumper, error) {
	b := Bumper{
		logger:      zap.L().Named(loggerName),
		ghClient:    ghClient,
		storeClient: storeClient,
		retryer:     retryer,
		targets:     targets,

		workers:       defWorkers,
		lookupTimeout: defLookupTimeout,

		headBranchPrefix: defHeadPrefix,
		titleTmplText:    defProposalTitleTemplate,
		bodyTmplText:     defProposalBodyTemplate,
	}

	for _, opt := range opts {
		opt(&b)
	}

	if b.workers <= 0 {
		return nil, fmt.Errorf("worker count must be >0, is: %d", b.workers)
	}

	if b.lookupTimeout <= 0 {
		return nil, fmt.Errorf("lookup timeout must be >0, is: %s", b.lookupTimeout)
	}

	if b.titleTmplText == "" {
		b.titleTmplText = defProposalTitleTemplate
	}

	if b.bodyTmplText == "" {
		b.bodyTmplText = defProposalBodyTemplate
	}

	var err error

	b.titleTmpl, err = template.New("pr_title").Parse(b.titleTmplText)
	if err != nil {
		return nil, fmt.Errorf("parsing pull request title template: %w", err)
	}

	b.bodyTmpl, err = template.New("pr_body").Parse(b.bodyTmplText)
	if err != nil {
		return nil, fmt.Errorf("parsing pull request body template: %w", err)
	}

	return &b, nil
}
