package repositories

import (
	"context"

	"github.com/rios0rios0/devflow/internal/domain/entities"
)

// GatewayRepository is the only way the engine talks to the hosting service.
// Implementations own retry and rate-limit handling; callers only see success
// or an error wrapping one of entities.ErrNotFound, entities.ErrAlreadyExists,
// entities.ErrValidation or entities.ErrRemoteService.
type GatewayRepository interface {
	// Name returns the gateway identifier (e.g. "github").
	Name() string

	// GetRef returns the commit SHA a fully qualified ref points to.
	GetRef(ctx context.Context, repo entities.Repository, ref string) (string, error)

	// CreateRef creates a ref at the given commit. Fails with ErrAlreadyExists when taken.
	CreateRef(ctx context.Context, repo entities.Repository, ref, sha string) (string, error)

	// UpdateRef moves a ref to the given commit.
	UpdateRef(ctx context.Context, repo entities.Repository, ref, sha string, force bool) (string, error)

	// DeleteRef removes a ref.
	DeleteRef(ctx context.Context, repo entities.Repository, ref string) error

	// CompareRefs compares head against base.
	CompareRefs(ctx context.Context, repo entities.Repository, base, head string) (*entities.Comparison, error)

	// CreatePullRequest opens a pull request.
	CreatePullRequest(
		ctx context.Context, repo entities.Repository, input entities.PullRequestInput,
	) (*entities.PullRequest, error)

	// ClosePullRequest closes an open pull request without merging it.
	ClosePullRequest(ctx context.Context, repo entities.Repository, number int) error

	// AddLabels applies labels to an issue or pull request.
	AddLabels(ctx context.Context, repo entities.Repository, number int, labels []string) error

	// CreateComment posts a comment on an issue or pull request.
	CreateComment(ctx context.Context, repo entities.Repository, number int, body string) error

	// GetFileContent reads a file at a ref.
	GetFileContent(ctx context.Context, repo entities.Repository, path, ref string) (*entities.FileContent, error)

	// PutFileContent creates or updates a file and returns the new commit SHA.
	PutFileContent(ctx context.Context, repo entities.Repository, write entities.FileWrite) (string, error)

	// ListTags returns every tag of the repository.
	ListTags(ctx context.Context, repo entities.Repository) ([]entities.Tag, error)

	// CreateRelease publishes a release for a tag.
	CreateRelease(ctx context.Context, repo entities.Repository, input entities.ReleaseInput) (*entities.Release, error)

	// DeleteRelease removes a published release.
	DeleteRelease(ctx context.Context, repo entities.Repository, id int64) error

	// GetRepositoryMetadata validates that the repository is reachable.
	GetRepositoryMetadata(ctx context.Context, repo entities.Repository) (*entities.RepositoryMetadata, error)

	// ProtectBranch applies protection rule identifiers to a branch.
	ProtectBranch(ctx context.Context, repo entities.Repository, branch string, rules []string) error
}
