package git

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

const (
	originRemote   = "origin"
	minURLSegments = 2
)

// LocalRepository reads hosting coordinates from a local clone with go-git.
// Any host is accepted, so GitHub Enterprise clones resolve the same way.
type LocalRepository struct{}

var _ repositories.LocalRepository = (*LocalRepository)(nil)

// NewLocalRepository creates a local clone locator.
func NewLocalRepository() *LocalRepository {
	return &LocalRepository{}
}

// Locate returns the repository the "origin" remote of the clone points to.
func (it *LocalRepository) Locate(dir string) (entities.Repository, error) {
	repo, err := open(dir)
	if err != nil {
		return entities.Repository{}, err
	}

	remote, err := repo.Remote(originRemote)
	if err != nil {
		return entities.Repository{}, fmt.Errorf("%w: remote %q in %s: %v", entities.ErrNotFound, originRemote, dir, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return entities.Repository{}, fmt.Errorf("%w: remote %q has no URL", entities.ErrNotFound, originRemote)
	}

	return parseRemoteURL(urls[0])
}

// CurrentBranch returns the short name of the checked out branch.
func (it *LocalRepository) CurrentBranch(dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD of %s: %w", dir, err)
	}
	if !head.Name().IsBranch() {
		return "", entities.NewValidationError("HEAD of %s is detached", dir)
	}
	return head.Name().Short(), nil
}

func open(dir string) (*gogit.Repository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	//nolint:exhaustruct // only DetectDotGit is relevant
	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: no git repository at %s", entities.ErrNotFound, abs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", abs, err)
	}
	return repo, nil
}

// parseRemoteURL extracts owner and name from an SCP-style SSH remote
// (git@host:owner/name.git) or a URL remote (https://host/owner/name.git,
// ssh://git@host/owner/name.git).
func parseRemoteURL(rawURL string) (entities.Repository, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(rawURL), ".git")

	var pathPart string
	switch {
	case strings.Contains(cleaned, "://"):
		parsed, err := url.Parse(cleaned)
		if err != nil {
			return entities.Repository{}, entities.NewValidationError("invalid remote URL %s: %v", rawURL, err)
		}
		pathPart = strings.TrimPrefix(parsed.Path, "/")
	case strings.Contains(cleaned, ":"):
		_, after, _ := strings.Cut(cleaned, ":")
		pathPart = after
	default:
		return entities.Repository{}, entities.NewValidationError("unsupported git remote URL: %s", rawURL)
	}

	segments := strings.Split(pathPart, "/")
	if len(segments) != minURLSegments || segments[0] == "" || segments[1] == "" {
		return entities.Repository{}, entities.NewValidationError("cannot extract owner/name from URL: %s", rawURL)
	}

	return entities.Repository{Owner: segments[0], Name: segments[1]}, nil
}
