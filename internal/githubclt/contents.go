package githubclt

import (
	"context"
	"fmt"

	"github.com/google/go-github/v59/github"

	"github.com/simplesurance/snapbump/internal/logfields"
)

// FileContent is the content of one file at a specific ref.
type FileContent struct {
	Content []byte
	// BlobSHA identifies the file blob, it is required when committing a
	// new version of the file.
	BlobSHA string
}

// FileContent downloads the file at path from the given ref.
// ErrNotFound is returned when the path does not exist on the ref.
func (clt *Client) FileContent(ctx context.Context, owner, repo, ref, path string) (*FileContent, error) {
	fileContent, _, _, err := clt.restClt.Repositories.GetContents(
		ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref},
	)
	if err != nil {
		if isNotFoundResponse(err) {
			return nil, fmt.Errorf("%w: %q on ref %q", ErrNotFound, path, ref)
		}

		return nil, clt.wrapRetryableErrors(err)
	}

	if fileContent == nil {
		return nil, fmt.Errorf("%q on ref %q is a directory, not a file", path, ref)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding content of %q failed: %w", path, err)
	}

	return &FileContent{
		Content: []byte(content),
		BlobSHA: fileContent.GetSHA(),
	}, nil
}

// FileUpdate describes a single file commit.
type FileUpdate struct {
	// Branch is the branch the commit is created on.
	Branch string
	// Message is the commit message.
	Message string
	// Content is the new file content.
	Content []byte
	// BlobSHA is the sha of the file blob that is replaced.
	BlobSHA string
}

// CommitFileChange creates a commit on up.Branch that replaces the file at
// path with up.Content.
func (clt *Client) CommitFileChange(ctx context.Context, owner, repo, path string, up *FileUpdate) error {
	_, _, err := clt.restClt.Repositories.UpdateFile(ctx, owner, repo, path, &github.RepositoryContentFileOptions{
		Message: github.String(up.Message),
		Content: up.Content,
		SHA:     github.String(up.BlobSHA),
		Branch:  github.String(up.Branch),
	})
	if err != nil {
		return clt.wrapRetryableErrors(err)
	}

	clt.logger.Debug(
		"file change committed",
		logfields.Event("github_file_change_committed"),
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.Branch(up.Branch),
	)

	return nil
}
