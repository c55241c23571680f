package bump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/snapbump/internal/bump/routines"
	"github.com/simplesurance/snapbump/internal/githubclt"
	"github.com/simplesurance/snapbump/internal/logfields"
	"github.com/simplesurance/snapbump/internal/manifest"
	"github.com/simplesurance/snapbump/internal/relbranch"
	"github.com/simplesurance/snapbump/internal/snapstoreclt"
)

// branchJob is one release branch of a target that a run processes.
type branchJob struct {
	target *Target
	branch *relbranch.Branch
}

// archLookup is the store revision lookup of one (release branch,
// architecture) pair.
type archLookup struct {
	architecture string
	entry        *manifest.Entry
	info         *snapstoreclt.RevisionInfo
	err          error
}

// Run executes one update run over all targets.
// It returns an error when discovering the release branches of a target
// failed. Failures that affect only single branches or architectures are
// recorded in the report and do not fail the run.
// When architectures is not empty, lookups are restricted to the given
// architectures.
func (b *Bumper) Run(ctx context.Context, architectures []string) (*RunReport, error) {
	report := RunReport{StartTime: time.Now()}

	b.logger.Info(
		"update run started",
		logEventRunStarted,
		zap.Strings("architectures", architectures),
	)

	var jobs []*branchJob

	for _, target := range b.targets {
		branches, err := b.discoverBranches(ctx, target)
		if err != nil {
			return nil, fmt.Errorf(
				"discovering release branches of %s/%s: %w",
				target.RepositoryOwner, target.Repository, err,
			)
		}

		metrics.DiscoveredBranchesSet(target.RepositoryOwner, target.Repository, len(branches))

		b.logger.With(target.Logfields...).Info(
			"discovered release branches",
			logEventBranchesDiscovered,
			zap.Int("branch_count", len(branches)),
		)

		for _, branch := range branches {
			jobs = append(jobs, &branchJob{target: target, branch: branch})
		}
	}

	report.Branches = make([]*BranchReport, len(jobs))

	pool := routines.NewPool(b.workers)

	var wg sync.WaitGroup
	wg.Add(len(jobs))

	for i, job := range jobs {
		i, job := i, job

		go func() {
			defer wg.Done()

			report.Branches[i] = b.processBranch(ctx, pool, job.target, job.branch, architectures)
		}()
	}

	wg.Wait()
	pool.Wait()

	report.EndTime = time.Now()
	metrics.RunsInc()

	b.logger.Info("update run finished", append(report.LogFields(), logEventRunFinished)...)

	return &report, nil
}

func (b *Bumper) discoverBranches(ctx context.Context, target *Target) ([]*relbranch.Branch, error) {
	var names []string

	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		names = names[:0]

		it := b.ghClient.Branches(ctx, target.RepositoryOwner, target.Repository)
		for {
			name, err := it.Next()
			if err != nil {
				return err
			}

			if name == "" {
				return nil
			}

			names = append(names, name)
		}
	}, target.Logfields)
	if err != nil {
		return nil, err
	}

	return relbranch.Match(names), nil
}

// processBranch runs the prepare, lookup, compare and propose stages for
// one release branch.
// All failures, including panics, are recorded in the returned report, they
// never propagate to sibling branches.
func (b *Bumper) processBranch(
	ctx context.Context,
	pool *routines.Pool,
	target *Target,
	branch *relbranch.Branch,
	architectures []string,
) (rep *BranchReport) {
	logF := make([]zap.Field, 0, len(target.Logfields)+1)
	logF = append(logF, target.Logfields...)
	logF = append(logF, logfields.BaseBranch(branch.Name))

	logger := b.logger.With(logF...)

	rep = &BranchReport{
		RepositoryOwner: target.RepositoryOwner,
		Repository:      target.Repository,
		Branch:          branch.Name,
	}

	defer func() {
		if r := recover(); r != nil {
			rep.Err = fmt.Errorf("processing release branch panicked: %v", r)
			logger.Error(
				"processing release branch panicked",
				logEventBranchFailed,
				zap.String("panic", fmt.Sprintf("%v", r)),
				zap.Stack("stacktrace"),
			)
		}
	}()

	channel, err := snapstoreclt.NewChannel(branch.Track()+target.TrackSuffix, target.Risk)
	if err != nil {
		rep.Err = fmt.Errorf("composing store channel: %w", err)
		logger.Error("composing store channel failed", logEventBranchFailed, zap.Error(err))

		return rep
	}

	logger = logger.With(logfields.Channel(channel.String()))

	var baseSHA string

	err = b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		baseSHA, err = b.ghClient.BranchHead(ctx, target.RepositoryOwner, target.Repository, branch.Name)
		return err
	}, logF)
	if err != nil {
		rep.Err = fmt.Errorf("resolving head commit of %s: %w", branch.Name, err)
		logger.Error("resolving branch head commit failed", logEventBranchFailed, zap.Error(err))

		return rep
	}

	var file *githubclt.FileContent

	err = b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		file, err = b.ghClient.FileContent(ctx, target.RepositoryOwner, target.Repository, baseSHA, target.ManifestPath)
		return err
	}, logF)
	if err != nil {
		rep.Err = fmt.Errorf("fetching manifest %s: %w", target.ManifestPath, err)
		metrics.StructuralErrorsInc(target.RepositoryOwner, target.Repository, branch.Name)
		logger.Error("fetching manifest failed", logEventBranchFailed, zap.Error(err))

		return rep
	}

	mf, err := manifest.Parse(file.Content)
	if err != nil {
		rep.Err = fmt.Errorf("parsing manifest %s: %w", target.ManifestPath, err)
		metrics.StructuralErrorsInc(target.RepositoryOwner, target.Repository, branch.Name)
		logger.Error("manifest is invalid", logEventManifestInvalid, zap.Error(err))

		return rep
	}

	selected := target.Architectures
	if len(architectures) > 0 {
		filter := toStrSet(architectures)
		selected = make([]string, 0, len(target.Architectures))

		for _, arch := range target.Architectures {
			if _, ok := filter[arch]; ok {
				selected = append(selected, arch)
				continue
			}

			rep.Archs = append(rep.Archs, &ArchReport{
				Architecture: arch,
				Status:       ArchStatusSkipped,
				Detail:       "architecture not selected",
			})

			logger.Debug(
				"skipping architecture",
				logEventLookupSkipped,
				logfields.Architecture(arch),
				logReasonArchExcluded,
			)
		}
	}

	lookups := make([]*archLookup, 0, len(selected))

	for _, arch := range selected {
		entry, err := mf.Entry(arch, target.Snap)
		if err != nil {
			rep.Err = fmt.Errorf("manifest %s: %w", target.ManifestPath, err)
			metrics.StructuralErrorsInc(target.RepositoryOwner, target.Repository, branch.Name)
			logger.Error(
				"manifest is missing a usable entry for the snap",
				logEventManifestInvalid,
				logfields.Architecture(arch),
				zap.Error(err),
			)

			return rep
		}

		if !entry.Pinned() {
			rep.Archs = append(rep.Archs, &ArchReport{
				Architecture: arch,
				Status:       ArchStatusSkipped,
				Detail:       "entry pins a channel, not a revision",
			})

			logger.Info(
				"skipping lookup, entry pins a channel",
				logEventLookupSkipped,
				logfields.Architecture(arch),
				logReasonChannelPinned,
			)

			continue
		}

		lookups = append(lookups, &archLookup{architecture: arch, entry: entry})
	}

	var lookupWg sync.WaitGroup
	lookupWg.Add(len(lookups))

	for _, lookup := range lookups {
		lookup := lookup

		pool.Queue(func() {
			defer lookupWg.Done()
			defer func() {
				if r := recover(); r != nil {
					lookup.err = fmt.Errorf("revision lookup panicked: %v", r)
				}
			}()

			lookup.info, lookup.err = b.lookupRevision(ctx, target, lookup.architecture, channel)
		})
	}

	// results are only evaluated after every lookup of the branch finished
	lookupWg.Wait()

	var changes []*RevisionChange

	for _, lookup := range lookups {
		archLogger := logger.With(logfields.Architecture(lookup.architecture))

		if lookup.err != nil {
			rep.Archs = append(rep.Archs, &ArchReport{
				Architecture:   lookup.architecture,
				Status:         ArchStatusFailed,
				PinnedRevision: lookup.entry.Revision,
				Detail:         lookup.err.Error(),
			})

			metrics.LookupErrorsInc(target.RepositoryOwner, target.Repository, lookup.architecture)
			archLogger.Error("revision lookup failed", logEventLookupFailed, zap.Error(lookup.err))

			continue
		}

		if lookup.info.Revision == lookup.entry.Revision {
			rep.Archs = append(rep.Archs, &ArchReport{
				Architecture:   lookup.architecture,
				Status:         ArchStatusUpToDate,
				PinnedRevision: lookup.entry.Revision,
				StoreRevision:  lookup.info.Revision,
			})

			archLogger.Debug("pinned revision is up to date", logfields.Revision(lookup.entry.Revision))

			continue
		}

		rep.Archs = append(rep.Archs, &ArchReport{
			Architecture:   lookup.architecture,
			Status:         ArchStatusOutdated,
			PinnedRevision: lookup.entry.Revision,
			StoreRevision:  lookup.info.Revision,
		})

		changes = append(changes, &RevisionChange{
			Architecture: lookup.architecture,
			OldRevision:  lookup.entry.Revision,
			NewRevision:  lookup.info.Revision,
		})

		archLogger.Info(
			"pinned revision is outdated",
			logEventRevisionOutdated,
			zap.String("pinned_revision", lookup.entry.Revision),
			zap.String("store_revision", lookup.info.Revision),
		)
	}

	if len(changes) == 0 {
		logger.Info("all pinned revisions are up to date", logEventRevisionsUpToDate)
		return rep
	}

	// a cancelled run must not leave partially evaluated proposals behind
	if ctx.Err() != nil {
		rep.Err = ctx.Err()
		return rep
	}

	proposal, err := b.propose(ctx, target, branch, channel, baseSHA, file, mf, changes, logF)
	if err != nil {
		rep.Err = fmt.Errorf("proposing manifest update: %w", err)
		logger.Error("proposing manifest update failed", logEventBranchFailed, zap.Error(err))

		return rep
	}

	rep.Proposal = proposal

	return rep
}

func (b *Bumper) lookupRevision(
	ctx context.Context,
	target *Target,
	architecture string,
	channel snapstoreclt.Channel,
) (*snapstoreclt.RevisionInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()

	logF := make([]zap.Field, 0, len(target.Logfields)+2)
	logF = append(logF, target.Logfields...)
	logF = append(logF, logfields.Architecture(architecture), logfields.Channel(channel.String()))

	var info *snapstoreclt.RevisionInfo

	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		info, err = b.storeClient.Revision(ctx, target.Snap, architecture, channel)
		return err
	}, logF)
	if err != nil {
		return nil, err
	}

	return info, nil
}

// propose idempotently ensures that an open pull request with the patched
// manifest exists for the release branch.
func (b *Bumper) propose(
	ctx context.Context,
	target *Target,
	branch *relbranch.Branch,
	channel snapstoreclt.Channel,
	baseSHA string,
	file *githubclt.FileContent,
	mf *manifest.File,
	changes []*RevisionChange,
	logF []zap.Field,
) (*ProposalReport, error) {
	for _, change := range changes {
		if _, err := mf.SetRevision(change.Architecture, target.Snap, change.NewRevision); err != nil {
			return nil, fmt.Errorf("patching manifest: %w", err)
		}
	}

	patched := mf.Bytes()
	headBranch := b.headBranchPrefix + "/" + branch.Name

	in := proposalInput{
		Snap:         target.Snap,
		Branch:       branch.Name,
		Track:        channel.Track,
		Channel:      channel.String(),
		ManifestPath: target.ManifestPath,
		Changes:      changes,
	}

	title, err := renderProposalText(b.titleTmpl, &in)
	if err != nil {
		return nil, err
	}

	body, err := renderProposalText(b.bodyTmpl, &in)
	if err != nil {
		return nil, err
	}

	logF = append(logF, logfields.HeadBranch(headBranch))
	logger := b.logger.With(logF...)

	var existing *githubclt.PullRequest

	err = b.retryer.Run(ctx, func(ctx context.Context) error {
		pr, err := b.ghClient.FindOpenPullRequest(ctx, target.RepositoryOwner, target.Repository, headBranch)
		if err != nil {
			if errors.Is(err, githubclt.ErrNotFound) {
				existing = nil
				return nil
			}

			return err
		}

		existing = pr

		return nil
	}, logF)
	if err != nil {
		return nil, fmt.Errorf("looking up open pull request for %s: %w", headBranch, err)
	}

	if existing != nil {
		logger = logger.With(logfields.PullRequest(existing.Number))

		matches, err := b.headManifestMatches(ctx, target, existing.HeadSHA, patched, logF)
		if err != nil {
			return nil, fmt.Errorf("comparing manifest on %s: %w", headBranch, err)
		}

		if matches {
			if existing.Title == title && existing.Body == body {
				logger.Info("open pull request is already up to date", logEventProposalUpToDate)
				return &ProposalReport{URL: existing.URL, Operation: ProposalUpToDate}, nil
			}

			if err := b.updatePullRequestText(ctx, target, existing.Number, title, body, logF); err != nil {
				return nil, err
			}

			metrics.ProposalsInc(target.RepositoryOwner, target.Repository, branch.Name, operationLabelUpdatedVal)
			logger.Info("pull request description updated", logEventProposalUpdated)

			return &ProposalReport{URL: existing.URL, Operation: ProposalUpdated}, nil
		}
	}

	err = b.retryer.Run(ctx, func(ctx context.Context) error {
		return b.ghClient.EnsureBranch(ctx, target.RepositoryOwner, target.Repository, headBranch, baseSHA)
	}, logF)
	if err != nil {
		return nil, fmt.Errorf("resetting %s to %s: %w", headBranch, baseSHA, err)
	}

	err = b.retryer.Run(ctx, func(ctx context.Context) error {
		return b.ghClient.CommitFileChange(ctx, target.RepositoryOwner, target.Repository, target.ManifestPath, &githubclt.FileUpdate{
			Branch:  headBranch,
			Message: title,
			Content: patched,
			BlobSHA: file.BlobSHA,
		})
	}, logF)
	if err != nil {
		return nil, fmt.Errorf("committing manifest update to %s: %w", headBranch, err)
	}

	if existing != nil {
		if existing.Title != title || existing.Body != body {
			if err := b.updatePullRequestText(ctx, target, existing.Number, title, body, logF); err != nil {
				return nil, err
			}
		}

		metrics.ProposalsInc(target.RepositoryOwner, target.Repository, branch.Name, operationLabelUpdatedVal)
		logger.Info("pull request updated with new revisions", logEventProposalUpdated)

		return &ProposalReport{URL: existing.URL, Operation: ProposalUpdated}, nil
	}

	var pr *githubclt.PullRequest

	err = b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		pr, err = b.ghClient.OpenPullRequest(ctx, target.RepositoryOwner, target.Repository, headBranch, branch.Name, title, body)
		return err
	}, logF)
	if err != nil {
		return nil, fmt.Errorf("creating pull request for %s: %w", headBranch, err)
	}

	if b.prLabel != "" {
		err = b.retryer.Run(ctx, func(ctx context.Context) error {
			return b.ghClient.AddLabels(ctx, target.RepositoryOwner, target.Repository, pr.Number, []string{b.prLabel})
		}, logF)
		if err != nil {
			logger.Warn(
				"adding label to pull request failed",
				logfields.Event("github_adding_label_failed"),
				logfields.PullRequest(pr.Number),
				zap.Error(err),
			)
		}
	}

	metrics.ProposalsInc(target.RepositoryOwner, target.Repository, branch.Name, operationLabelCreatedVal)
	logger.Info(
		"pull request created",
		logEventProposalCreated,
		logfields.PullRequest(pr.Number),
		zap.String("url", pr.URL),
	)

	return &ProposalReport{URL: pr.URL, Operation: ProposalCreated}, nil
}

func (b *Bumper) updatePullRequestText(ctx context.Context, target *Target, number int, title, body string, logF []zap.Field) error {
	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		return b.ghClient.UpdatePullRequest(ctx, target.RepositoryOwner, target.Repository, number, title, body)
	}, logF)
	if err != nil {
		return fmt.Errorf("updating pull request %d: %w", number, err)
	}

	return nil
}

// headManifestMatches reports whether the manifest at ref equals want.
func (b *Bumper) headManifestMatches(ctx context.Context, target *Target, ref string, want []byte, logF []zap.Field) (bool, error) {
	var file *githubclt.FileContent

	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error

		file, err = b.ghClient.FileContent(ctx, target.RepositoryOwner, target.Repository, ref, target.ManifestPath)
		if errors.Is(err, githubclt.ErrNotFound) {
			file = nil
			return nil
		}

		return err
	}, logF)
	if err != nil {
		return false, err
	}

	return file != nil && bytes.Equal(file.Content, want), nil
}
