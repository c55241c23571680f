package bump

import (
	"github.com/simplesurance/snapbump/internal/logfields"
)

var (
	logEventRunStarted  = logfields.Event("run_started")
	logEventRunFinished = logfields.Event("run_finished")

	logEventBranchesDiscovered = logfields.Event("release_branches_discovered")
	logEventManifestInvalid    = logfields.Event("manifest_structure_invalid")
	logEventLookupSkipped      = logfields.Event("revision_lookup_skipped")
	logEventLookupFailed       = logfields.Event("revision_lookup_failed")
	logEventRevisionOutdated   = logfields.Event("revision_outdated")
	logEventRevisionsUpToDate  = logfields.Event("revisions_uptodate")
	logEventBranchFailed       = logfields.Event("branch_update_failed")

	logEventProposalCreated  = logfields.Event("proposal_created")
	logEventProposalUpdated  = logfields.Event("proposal_updated")
	logEventProposalUpToDate = logfields.Event("proposal_uptodate")

	logReasonChannelPinned = logfields.Reason("entry_pins_channel")
	logReasonArchExcluded  = logfields.Reason("architecture_not_selected")
)
