package bump

import (
	"time"

	"go.uber.org/zap"
)

type ArchStatus string

const (
	ArchStatusUpToDate ArchStatus = "uptodate"
	ArchStatusOutdated ArchStatus = "outdated"
	ArchStatusSkipped  ArchStatus = "skipped"
	ArchStatusFailed   ArchStatus = "failed"
)

// ArchReport is the outcome of the revision comparison for one
// (release branch, architecture) pair.
type ArchReport struct {
	Architecture   string
	Status         ArchStatus
	PinnedRevision string
	StoreRevision  string
	Detail         string
}

type ProposalOperation string

const (
	ProposalCreated  ProposalOperation = "created"
	ProposalUpdated  ProposalOperation = "updated"
	ProposalUpToDate ProposalOperation = "uptodate"
)

// ProposalReport describes the pull request that resulted from processing a
// release branch.
type ProposalReport struct {
	URL       string
	Operation ProposalOperation
}

// BranchReport is the outcome of processing one release branch of a target.
type BranchReport struct {
	RepositoryOwner string
	Repository      string
	Branch          string

	Archs    []*ArchReport
	Proposal *ProposalReport
	Err      error
}

func (b *BranchReport) Failed() bool {
	return b.Err != nil
}

func (b *BranchReport) lookupFailures() uint {
	var cnt uint

	for _, a := range b.Archs {
		if a.Status == ArchStatusFailed {
			cnt++
		}
	}

	return cnt
}

// RunReport aggregates the outcomes of one update run.
type RunReport struct {
	StartTime time.Time
	EndTime   time.Time
	Branches  []*BranchReport
}

func (r *RunReport) proposalCount() (created, updated uint) {
	for _, b := range r.Branches {
		if b.Proposal == nil {
			continue
		}

		switch b.Proposal.Operation {
		case ProposalCreated:
			created++
		case ProposalUpdated:
			updated++
		}
	}

	return created, updated
}

func (r *RunReport) failureCount() (branches, lookups uint) {
	for _, b := range r.Branches {
		if b.Failed() {
			branches++
		}

		lookups += b.lookupFailures()
	}

	return branches, lookups
}

func (r *RunReport) LogFields() []zap.Field {
	created, updated := r.proposalCount()
	failedBranches, failedLookups := r.failureCount()

	return []zap.Field{
		zap.Duration("run_duration", r.EndTime.Sub(r.StartTime)),
		zap.Int("run.branches", len(r.Branches)),
		zap.Uint("run.proposals_created", created),
		zap.Uint("run.proposals_updated", updated),
		zap.Uint("run.failed_branches", failedBranches),
		zap.Uint("run.failed_lookups", failedLookups),
	}
}
