// Package bump keeps pinned snap revisions in manifests of GitHub
// repositories up to date with the snap store.
//
// A run processes one or more configured targets. A target names a GitHub
// repository, a snap, the path of a manifest file that pins snap revisions
// per CPU architecture and the store channel properties to follow.
//
// Per target, the bumper:
//
// 1. discovers the release branches of the repository, branches named
// release-<major>.<minor> are processed, all other branches are ignored,
//
// 2. fetches the manifest of every release branch and validates that it
// contains an entry for every configured architecture,
//
// 3. queries the snap store for the current revision of every
// (architecture, channel) pair, the channel track is derived from the
// branch name plus the configured track suffix,
//
// 4. compares store revisions with the pinned ones, and
//
// 5. opens or refreshes one pull request per release branch that replaces
// the outdated revisions in the manifest.
//
// Branches are processed independently, a failure on one branch does not
// affect others. Architecture lookups of a branch run concurrently on a
// shared worker pool, the branch result is only evaluated after all its
// lookups finished. Lookup failures of single architectures do not prevent
// updating the revisions of the architectures that succeeded.
//
// Pull requests are created idempotently. Every release branch has one
// well-known update branch. When an update pull request for the branch is
// already open and its manifest already matches the store state, a rerun
// changes nothing. Manifest changes are minimal, only the revision values
// are replaced, formatting, key order and comments are preserved.
package bump
