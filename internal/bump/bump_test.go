package bump

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/snapbump/internal/bump/mocks"
	"github.com/simplesurance/snapbump/internal/githubclt"
	"github.com/simplesurance/snapbump/internal/manifest"
	"github.com/simplesurance/snapbump/internal/snapstoreclt"
)

const repo = "k8s-operator"
const repoOwner = "testman"
const snapName = "k8s"
const manifestPath = "charms/worker/k8s/templates/snap_installation.yaml"
const prLabel = "snapbump"

const condCheckInterval = 20 * time.Millisecond
const condWaitTimeout = 5 * time.Second

const testManifest = `amd64:
  - install-type: store
    name: k8s
    revision: 7433
    classic: true
arm64:
  - install-type: store
    name: k8s
    revision: 7411
    classic: true
`

// channelPinnedManifest pins the amd64 entry to a channel instead of a
// revision, only the arm64 entry is updatable.
const channelPinnedManifest = `amd64:
  - install-type: store
    name: k8s
    channel: 1.30-classic/stable
    classic: true
arm64:
  - install-type: store
    name: k8s
    revision: 7411
    classic: true
`

const amd64OnlyManifest = `amd64:
  - install-type: store
    name: k8s
    revision: 7433
    classic: true
`

func newTestTarget(t *testing.T, architectures ...string) *Target {
	t.Helper()

	if len(architectures) == 0 {
		architectures = []string{"amd64", "arm64"}
	}

	target, err := NewTarget(
		repoOwner, repo, snapName, manifestPath,
		architectures, "-classic", snapstoreclt.RiskStable,
	)
	require.NoError(t, err)

	return target
}

func newTestBumper(t *testing.T, ghClient GithubClient, storeClient StoreClient, target *Target, opts ...Option) *Bumper {
	t.Helper()

	retryer := NewRetryer()
	t.Cleanup(retryer.Stop)

	opts = append([]Option{WithWorkers(2), WithPRLabel(prLabel)}, opts...)

	bumper, err := New(ghClient, storeClient, retryer, []*Target{target}, opts...)
	require.NoError(t, err)

	return bumper
}

func mustNewChannel(t *testing.T, track string) snapstoreclt.Channel {
	t.Helper()

	channel, err := snapstoreclt.NewChannel(track, snapstoreclt.RiskStable)
	require.NoError(t, err)

	return channel
}

// mockBranchListCall configures the mock to return a fresh iterator over
// names on every Branches() call.
func mockBranchListCall(clt *mocks.MockGithubClient, mockctrl *gomock.Controller, names ...string) *gomock.Call {
	return clt.
		EXPECT().
		Branches(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo)).
		DoAndReturn(func(context.Context, string, string) githubclt.BranchIterator {
			it := mocks.NewMockBranchIterator(mockctrl)
			next := 0

			it.EXPECT().
				Next().
				DoAndReturn(func() (string, error) {
					if next >= len(names) {
						return "", nil
					}

					name := names[next]
					next++

					return name, nil
				}).
				AnyTimes()

			return it
		})
}

func mockBranchHeadCall(clt *mocks.MockGithubClient, branch, sha string) *gomock.Call {
	return clt.
		EXPECT().
		BranchHead(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(branch)).
		Return(sha, nil)
}

func mockFileContentCall(clt *mocks.MockGithubClient, ref, content, blobSHA string) *gomock.Call {
	return clt.
		EXPECT().
		FileContent(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(ref), gomock.Eq(manifestPath)).
		Return(&githubclt.FileContent{Content: []byte(content), BlobSHA: blobSHA}, nil)
}

func mockStoreRevisionCall(clt *mocks.MockStoreClient, architecture, revision string, channel snapstoreclt.Channel) *gomock.Call {
	return clt.
		EXPECT().
		Revision(gomock.Any(), gomock.Eq(snapName), gomock.Eq(architecture), gomock.Eq(channel)).
		Return(&snapstoreclt.RevisionInfo{Revision: revision, ChannelName: channel.String()}, nil)
}

func mockFailedStoreRevisionCall(clt *mocks.MockStoreClient, architecture string, channel snapstoreclt.Channel) *gomock.Call {
	return clt.
		EXPECT().
		Revision(gomock.Any(), gomock.Eq(snapName), gomock.Eq(architecture), gomock.Eq(channel)).
		Return(nil, errors.New("error mocked by mockFailedStoreRevisionCall"))
}

func mockNoOpenPullRequestCall(clt *mocks.MockGithubClient, headBranch string) *gomock.Call {
	return clt.
		EXPECT().
		FindOpenPullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(headBranch)).
		Return(nil, fmt.Errorf("%w: no open pull request with head branch %q", githubclt.ErrNotFound, headBranch))
}

func archReportsByName(rep *BranchReport) map[string]*ArchReport {
	result := make(map[string]*ArchReport, len(rep.Archs))

	for _, archRep := range rep.Archs {
		result[archRep.Architecture] = archRep
	}

	return result
}

func TestOutdatedRevisionsCreatePullRequest(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	channel := mustNewChannel(t, "1.30-classic")

	mockBranchListCall(ghClient, mockctrl, "main", "release-1.30", "feature-x")
	mockBranchHeadCall(ghClient, "release-1.30", "basesha")
	mockFileContentCall(ghClient, "basesha", testManifest, "blobsha")
	mockStoreRevisionCall(storeClient, "amd64", "7500", channel)
	mockStoreRevisionCall(storeClient, "arm64", "7411", channel)
	mockNoOpenPullRequestCall(ghClient, "snapbump/release-1.30")

	ghClient.
		EXPECT().
		EnsureBranch(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("basesha")).
		Return(nil)

	var committed []byte
	ghClient.
		EXPECT().
		CommitFileChange(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(manifestPath), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _ string, up *githubclt.FileUpdate) error {
			committed = up.Content

			assert.Equal(t, "snapbump/release-1.30", up.Branch)
			assert.Equal(t, "blobsha", up.BlobSHA)
			assert.Equal(t, "Update k8s snap revisions for release-1.30", up.Message)

			return nil
		})

	var createdTitle, createdBody string
	ghClient.
		EXPECT().
		OpenPullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("release-1.30"), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _, _, title, body string) (*githubclt.PullRequest, error) {
			createdTitle = title
			createdBody = body

			return &githubclt.PullRequest{Number: 7, Title: title, Body: body, HeadSHA: "newsha", URL: "https://github.test/pr/7"}, nil
		})

	ghClient.
		EXPECT().
		AddLabels(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(7), gomock.Eq([]string{prLabel})).
		Return(nil)

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)

	branchRep := report.Branches[0]
	require.NoError(t, branchRep.Err)
	require.NotNil(t, branchRep.Proposal)

	assert.Equal(t, ProposalCreated, branchRep.Proposal.Operation)
	assert.Equal(t, "https://github.test/pr/7", branchRep.Proposal.URL)

	reports := archReportsByName(branchRep)
	require.Contains(t, reports, "amd64")
	require.Contains(t, reports, "arm64")
	assert.Equal(t, ArchStatusOutdated, reports["amd64"].Status)
	assert.Equal(t, ArchStatusUpToDate, reports["arm64"].Status)

	assert.Contains(t, string(committed), "revision: 7500")
	assert.Contains(t, string(committed), "revision: 7411")

	assert.Equal(t, "Update k8s snap revisions for release-1.30", createdTitle)
	assert.Contains(t, createdBody, "amd64: 7433 -> 7500")
	assert.NotContains(t, createdBody, "arm64")
}

func TestLookupFailureDoesNotBlockOtherArchitectures(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	channel := mustNewChannel(t, "1.30-classic")

	mockBranchListCall(ghClient, mockctrl, "release-1.30")
	mockBranchHeadCall(ghClient, "release-1.30", "basesha")
	mockFileContentCall(ghClient, "basesha", testManifest, "blobsha")
	mockStoreRevisionCall(storeClient, "amd64", "7500", channel)
	mockFailedStoreRevisionCall(storeClient, "arm64", channel)
	mockNoOpenPullRequestCall(ghClient, "snapbump/release-1.30")

	ghClient.
		EXPECT().
		EnsureBranch(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("basesha")).
		Return(nil)

	var committed []byte
	ghClient.
		EXPECT().
		CommitFileChange(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(manifestPath), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _ string, up *githubclt.FileUpdate) error {
			committed = up.Content
			return nil
		})

	var createdBody string
	ghClient.
		EXPECT().
		OpenPullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("release-1.30"), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _, _, title, body string) (*githubclt.PullRequest, error) {
			createdBody = body
			return &githubclt.PullRequest{Number: 8, Title: title, Body: body, HeadSHA: "newsha", URL: "https://github.test/pr/8"}, nil
		})

	ghClient.
		EXPECT().
		AddLabels(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(8), gomock.Eq([]string{prLabel})).
		Return(nil)

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)

	branchRep := report.Branches[0]
	require.NoError(t, branchRep.Err)
	require.NotNil(t, branchRep.Proposal)
	assert.Equal(t, ProposalCreated, branchRep.Proposal.Operation)

	reports := archReportsByName(branchRep)
	require.Contains(t, reports, "arm64")
	assert.Equal(t, ArchStatusFailed, reports["arm64"].Status)
	assert.Equal(t, "7411", reports["arm64"].PinnedRevision)
	assert.Equal(t, ArchStatusOutdated, reports["amd64"].Status)

	assert.Contains(t, string(committed), "revision: 7500")
	assert.Contains(t, string(committed), "revision: 7411")
	assert.NotContains(t, createdBody, "arm64")
}

func TestRunWithoutReleaseBranches(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	mockBranchListCall(ghClient, mockctrl, "main", "dev", "release-1")

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Branches)
}

func TestFailingBranchDiscoveryFailsRun(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	ghClient.
		EXPECT().
		Branches(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo)).
		DoAndReturn(func(context.Context, string, string) githubclt.BranchIterator {
			it := mocks.NewMockBranchIterator(mockctrl)
			it.EXPECT().Next().Return("", errors.New("api error")).AnyTimes()

			return it
		})

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	_, err := bumper.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api error")
}

func TestRerunsWithUnchangedStateCreateNoDuplicates(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	channel := mustNewChannel(t, "1.30-classic")

	mockBranchListCall(ghClient, mockctrl, "release-1.30").Times(2)
	mockBranchHeadCall(ghClient, "release-1.30", "basesha").Times(2)
	mockFileContentCall(ghClient, "basesha", testManifest, "blobsha").Times(2)
	mockStoreRevisionCall(storeClient, "amd64", "7500", channel).Times(2)
	mockStoreRevisionCall(storeClient, "arm64", "7411", channel).Times(2)

	// first run: no pull request exists yet, one is created
	mockNoOpenPullRequestCall(ghClient, "snapbump/release-1.30")

	ghClient.
		EXPECT().
		EnsureBranch(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("basesha")).
		Return(nil)

	var committed []byte
	ghClient.
		EXPECT().
		CommitFileChange(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(manifestPath), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _ string, up *githubclt.FileUpdate) error {
			committed = up.Content
			return nil
		})

	var createdTitle, createdBody string
	ghClient.
		EXPECT().
		OpenPullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("release-1.30"), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _, _, title, body string) (*githubclt.PullRequest, error) {
			createdTitle = title
			createdBody = body

			return &githubclt.PullRequest{Number: 3, Title: title, Body: body, HeadSHA: "headsha", URL: "https://github.test/pr/3"}, nil
		})

	ghClient.
		EXPECT().
		AddLabels(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(3), gomock.Eq([]string{prLabel})).
		Return(nil)

	// second run: the open pull request already contains the update
	ghClient.
		EXPECT().
		FindOpenPullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30")).
		DoAndReturn(func(context.Context, string, string, string) (*githubclt.PullRequest, error) {
			return &githubclt.PullRequest{Number: 3, Title: createdTitle, Body: createdBody, HeadSHA: "headsha", URL: "https://github.test/pr/3"}, nil
		})

	ghClient.
		EXPECT().
		FileContent(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("headsha"), gomock.Eq(manifestPath)).
		DoAndReturn(func(context.Context, string, string, string, string) (*githubclt.FileContent, error) {
			return &githubclt.FileContent{Content: committed, BlobSHA: "headblobsha"}, nil
		})

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)
	require.NotNil(t, report.Branches[0].Proposal)
	assert.Equal(t, ProposalCreated, report.Branches[0].Proposal.Operation)

	report, err = bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)

	branchRep := report.Branches[0]
	require.NoError(t, branchRep.Err)
	require.NotNil(t, branchRep.Proposal)
	assert.Equal(t, ProposalUpToDate, branchRep.Proposal.Operation)
	assert.Equal(t, "https://github.test/pr/3", branchRep.Proposal.URL)
}

func TestExistingProposalTextIsRefreshed(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	channel := mustNewChannel(t, "1.30-classic")

	// the manifest on the head branch already contains the new revision,
	// only title and body of the pull request are stale
	patched := strings.Replace(testManifest, "revision: 7433", "revision: 7500", 1)

	mockBranchListCall(ghClient, mockctrl, "release-1.30")
	mockBranchHeadCall(ghClient, "release-1.30", "basesha")
	mockFileContentCall(ghClient, "basesha", testManifest, "blobsha")
	mockStoreRevisionCall(storeClient, "amd64", "7500", channel)
	mockStoreRevisionCall(storeClient, "arm64", "7411", channel)

	ghClient.
		EXPECT().
		FindOpenPullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30")).
		Return(&githubclt.PullRequest{Number: 4, Title: "old title", Body: "old body", HeadSHA: "headsha", URL: "https://github.test/pr/4"}, nil)

	mockFileContentCall(ghClient, "headsha", patched, "headblobsha")

	ghClient.
		EXPECT().
		UpdatePullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(4), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int, title, body string) error {
			assert.Equal(t, "Update k8s snap revisions for release-1.30", title)
			assert.Contains(t, body, "amd64: 7433 -> 7500")

			return nil
		})

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)

	branchRep := report.Branches[0]
	require.NoError(t, branchRep.Err)
	require.NotNil(t, branchRep.Proposal)
	assert.Equal(t, ProposalUpdated, branchRep.Proposal.Operation)
	assert.Equal(t, "https://github.test/pr/4", branchRep.Proposal.URL)
}

func TestStaleProposalBranchIsRecommitted(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	channel := mustNewChannel(t, "1.30-classic")

	// the open pull request still proposes an older revision
	stale := strings.Replace(testManifest, "revision: 7433", "revision: 7490", 1)

	mockBranchListCall(ghClient, mockctrl, "release-1.30")
	mockBranchHeadCall(ghClient, "release-1.30", "basesha")
	mockFileContentCall(ghClient, "basesha", testManifest, "blobsha")
	mockStoreRevisionCall(storeClient, "amd64", "7500", channel)
	mockStoreRevisionCall(storeClient, "arm64", "7411", channel)

	ghClient.
		EXPECT().
		FindOpenPullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30")).
		Return(&githubclt.PullRequest{Number: 5, Title: "old title", Body: "old body", HeadSHA: "staleheadsha", URL: "https://github.test/pr/5"}, nil)

	mockFileContentCall(ghClient, "staleheadsha", stale, "staleblobsha")

	ghClient.
		EXPECT().
		EnsureBranch(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("basesha")).
		Return(nil)

	var committed []byte
	ghClient.
		EXPECT().
		CommitFileChange(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(manifestPath), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _ string, up *githubclt.FileUpdate) error {
			committed = up.Content

			assert.Equal(t, "blobsha", up.BlobSHA)

			return nil
		})

	ghClient.
		EXPECT().
		UpdatePullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(5), gomock.Any(), gomock.Any()).
		Return(nil)

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)

	branchRep := report.Branches[0]
	require.NoError(t, branchRep.Err)
	require.NotNil(t, branchRep.Proposal)
	assert.Equal(t, ProposalUpdated, branchRep.Proposal.Operation)

	assert.Contains(t, string(committed), "revision: 7500")
	assert.NotContains(t, string(committed), "revision: 7490")
}

func TestCancelledRunAbandonsProposals(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := mustNewChannel(t, "1.30-classic")

	mockBranchListCall(ghClient, mockctrl, "release-1.30")
	mockBranchHeadCall(ghClient, "release-1.30", "basesha")
	mockFileContentCall(ghClient, "basesha", amd64OnlyManifest, "blobsha")

	storeClient.
		EXPECT().
		Revision(gomock.Any(), gomock.Eq(snapName), gomock.Eq("amd64"), gomock.Eq(channel)).
		DoAndReturn(func(context.Context, string, string, snapstoreclt.Channel) (*snapstoreclt.RevisionInfo, error) {
			cancel()
			return &snapstoreclt.RevisionInfo{Revision: "7500", ChannelName: channel.String()}, nil
		})

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t, "amd64"))

	report, err := bumper.Run(ctx, nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)

	branchRep := report.Branches[0]
	require.Error(t, branchRep.Err)
	assert.ErrorIs(t, branchRep.Err, context.Canceled)
	assert.Nil(t, branchRep.Proposal)
}

func TestBranchWithInvalidManifestDoesNotAffectOthers(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	channel := mustNewChannel(t, "1.30-classic")

	mockBranchListCall(ghClient, mockctrl, "release-1.30", "release-1.29")
	mockBranchHeadCall(ghClient, "release-1.29", "sha29")
	mockBranchHeadCall(ghClient, "release-1.30", "sha30")

	// the 1.29 manifest has no entry list for arm64
	mockFileContentCall(ghClient, "sha29", amd64OnlyManifest, "blob29")
	mockFileContentCall(ghClient, "sha30", testManifest, "blob30")

	mockStoreRevisionCall(storeClient, "amd64", "7500", channel)
	mockStoreRevisionCall(storeClient, "arm64", "7411", channel)
	mockNoOpenPullRequestCall(ghClient, "snapbump/release-1.30")

	ghClient.
		EXPECT().
		EnsureBranch(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("sha30")).
		Return(nil)

	ghClient.
		EXPECT().
		CommitFileChange(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(manifestPath), gomock.Any()).
		Return(nil)

	ghClient.
		EXPECT().
		OpenPullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("release-1.30"), gomock.Any(), gomock.Any()).
		Return(&githubclt.PullRequest{Number: 12, HeadSHA: "newsha", URL: "https://github.test/pr/12"}, nil)

	ghClient.
		EXPECT().
		AddLabels(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(12), gomock.Eq([]string{prLabel})).
		Return(nil)

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 2)

	oldRep := report.Branches[0]
	assert.Equal(t, "release-1.29", oldRep.Branch)
	require.Error(t, oldRep.Err)
	assert.ErrorIs(t, oldRep.Err, manifest.ErrArchNotFound)
	assert.Nil(t, oldRep.Proposal)

	newRep := report.Branches[1]
	assert.Equal(t, "release-1.30", newRep.Branch)
	require.NoError(t, newRep.Err)
	require.NotNil(t, newRep.Proposal)
	assert.Equal(t, ProposalCreated, newRep.Proposal.Operation)
}

func TestChannelPinnedEntriesAreSkipped(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	channel := mustNewChannel(t, "1.30-classic")

	mockBranchListCall(ghClient, mockctrl, "release-1.30")
	mockBranchHeadCall(ghClient, "release-1.30", "basesha")
	mockFileContentCall(ghClient, "basesha", channelPinnedManifest, "blobsha")

	// only the arm64 entry pins a revision, amd64 must not be looked up
	mockStoreRevisionCall(storeClient, "arm64", "7500", channel)
	mockNoOpenPullRequestCall(ghClient, "snapbump/release-1.30")

	ghClient.
		EXPECT().
		EnsureBranch(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("basesha")).
		Return(nil)

	var committed []byte
	ghClient.
		EXPECT().
		CommitFileChange(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(manifestPath), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _ string, up *githubclt.FileUpdate) error {
			committed = up.Content
			return nil
		})

	var createdBody string
	ghClient.
		EXPECT().
		OpenPullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq("snapbump/release-1.30"), gomock.Eq("release-1.30"), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _, _, title, body string) (*githubclt.PullRequest, error) {
			createdBody = body
			return &githubclt.PullRequest{Number: 9, Title: title, Body: body, HeadSHA: "newsha", URL: "https://github.test/pr/9"}, nil
		})

	ghClient.
		EXPECT().
		AddLabels(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(9), gomock.Eq([]string{prLabel})).
		Return(nil)

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)

	branchRep := report.Branches[0]
	require.NoError(t, branchRep.Err)
	require.NotNil(t, branchRep.Proposal)

	reports := archReportsByName(branchRep)
	require.Contains(t, reports, "amd64")
	assert.Equal(t, ArchStatusSkipped, reports["amd64"].Status)
	assert.Equal(t, "entry pins a channel, not a revision", reports["amd64"].Detail)
	assert.Equal(t, ArchStatusOutdated, reports["arm64"].Status)

	assert.Contains(t, string(committed), "channel: 1.30-classic/stable")
	assert.Contains(t, string(committed), "revision: 7500")
	assert.NotContains(t, string(committed), "7411")
	assert.Contains(t, createdBody, "arm64: 7411 -> 7500")
}

func TestRunRestrictedToArchitectures(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	channel := mustNewChannel(t, "1.30-classic")

	mockBranchListCall(ghClient, mockctrl, "release-1.30")
	mockBranchHeadCall(ghClient, "release-1.30", "basesha")
	mockFileContentCall(ghClient, "basesha", testManifest, "blobsha")
	mockStoreRevisionCall(storeClient, "amd64", "7433", channel)

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), []string{"amd64"})
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)

	branchRep := report.Branches[0]
	require.NoError(t, branchRep.Err)
	assert.Nil(t, branchRep.Proposal)

	reports := archReportsByName(branchRep)
	require.Contains(t, reports, "amd64")
	require.Contains(t, reports, "arm64")
	assert.Equal(t, ArchStatusUpToDate, reports["amd64"].Status)
	assert.Equal(t, ArchStatusSkipped, reports["arm64"].Status)
	assert.Equal(t, "architecture not selected", reports["arm64"].Detail)
}

func TestDryRunPerformsNoMutations(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	channel := mustNewChannel(t, "1.30-classic")

	// only read operations reach the wrapped client
	mockBranchListCall(ghClient, mockctrl, "release-1.30")
	mockBranchHeadCall(ghClient, "release-1.30", "basesha")
	mockFileContentCall(ghClient, "basesha", testManifest, "blobsha")
	mockStoreRevisionCall(storeClient, "amd64", "7500", channel)
	mockStoreRevisionCall(storeClient, "arm64", "7411", channel)
	mockNoOpenPullRequestCall(ghClient, "snapbump/release-1.30")

	bumper := newTestBumper(t, NewDryGithubClient(ghClient), storeClient, newTestTarget(t))

	report, err := bumper.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Branches, 1)

	branchRep := report.Branches[0]
	require.NoError(t, branchRep.Err)
	require.NotNil(t, branchRep.Proposal)
	assert.Equal(t, ProposalCreated, branchRep.Proposal.Operation)
}

func TestEventLoopRunsPeriodically(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	var runCnt atomic.Int32

	ghClient.
		EXPECT().
		Branches(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo)).
		DoAndReturn(func(context.Context, string, string) githubclt.BranchIterator {
			runCnt.Inc()

			it := mocks.NewMockBranchIterator(mockctrl)
			it.EXPECT().Next().Return("", nil).AnyTimes()

			return it
		}).
		AnyTimes()

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	evloop := NewEventLoop(bumper, 50*time.Millisecond)
	go evloop.Start()
	t.Cleanup(evloop.Stop)

	require.Eventuallyf(
		t,
		func() bool { return runCnt.Load() >= 2 },
		condWaitTimeout,
		condCheckInterval,
		"event loop executed %d update runs, expected >=2", runCnt.Load(),
	)

	report, err := evloop.LastReport()
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.Branches)
	assert.False(t, evloop.NextRun().IsZero())
}

func TestTriggerCoalescesPendingRuns(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)
	storeClient := mocks.NewMockStoreClient(mockctrl)

	bumper := newTestBumper(t, ghClient, storeClient, newTestTarget(t))

	// the loop is not started, the first trigger fills the schedule slot
	evloop := NewEventLoop(bumper, time.Hour)

	assert.True(t, evloop.Trigger(nil))
	assert.False(t, evloop.Trigger([]string{"amd64"}))
}
