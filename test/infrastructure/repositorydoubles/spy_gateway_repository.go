//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies) for
// repository interfaces. These are hand-crafted implementations, no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// RefCall records a ref mutation.
type RefCall struct {
	Repository string
	Ref        string
	SHA        string
}

// PullRequestCall records a pull request creation.
type PullRequestCall struct {
	Repository string
	Input      entities.PullRequestInput
}

// NumberCall records an operation on an issue or pull request number.
type NumberCall struct {
	Repository string
	Number     int
	Labels     []string
	Body       string
}

// FileWriteCall records a file write.
type FileWriteCall struct {
	Repository string
	Write      entities.FileWrite
}

// ReleaseCall records a release creation or deletion.
type ReleaseCall struct {
	Repository string
	Input      entities.ReleaseInput
	ID         int64
}

// ProtectCall records a branch protection request.
type ProtectCall struct {
	Repository string
	Branch     string
	Rules      []string
}

// SpyGatewayRepository implements repositories.GatewayRepository and
// repositories.IssueRepository on top of in-memory refs, files and tags.
// Seed state with the Seed* helpers, inject failures per repository with the
// *Err maps, then inspect the call-tracking fields.
type SpyGatewayRepository struct {
	mu sync.Mutex

	// --- state ---
	refs     map[string]map[string]string               // repo -> ref -> sha
	files    map[string]map[string]entities.FileContent // repo -> ref:path -> content
	tags     map[string][]entities.Tag
	issues   map[string]entities.Issue // repo#number -> issue
	branches map[string]string         // repo -> default branch

	// --- responses ---
	Comparisons map[string]*entities.Comparison // repo -> comparison

	// --- failure injection, keyed by owner/name ---
	GetRefErr        map[string]error
	CreateRefErr     map[string]error
	DeleteRefErr     map[string]error
	CompareErr       map[string]error
	CreatePRErr      map[string]error
	ClosePRErr       map[string]error
	AddLabelsErr     map[string]error
	CommentErr       map[string]error
	GetFileErr       map[string]error
	PutFileErr       map[string]error
	ListTagsErr      map[string]error
	CreateReleaseErr map[string]error
	DeleteReleaseErr map[string]error
	MetadataErr      map[string]error
	ProtectErr       map[string]error

	// --- spies ---
	CreatedRefs     []RefCall
	UpdatedRefs     []RefCall
	DeletedRefs     []RefCall
	PullRequests    []PullRequestCall
	ClosedPRs       []NumberCall
	AppliedLabels   []NumberCall
	Comments        []NumberCall
	FileWrites      []FileWriteCall
	Releases        []ReleaseCall
	DeletedReleases []ReleaseCall
	Protections     []ProtectCall
	MetadataCalls   []string

	nextNumber    int
	nextReleaseID int64
	nextCommit    int
}

var (
	_ repositories.GatewayRepository = (*SpyGatewayRepository)(nil)
	_ repositories.IssueRepository   = (*SpyGatewayRepository)(nil)
)

// NewSpyGatewayRepository creates an empty spy with no failures.
func NewSpyGatewayRepository() *SpyGatewayRepository {
	return &SpyGatewayRepository{
		refs:             make(map[string]map[string]string),
		files:            make(map[string]map[string]entities.FileContent),
		tags:             make(map[string][]entities.Tag),
		issues:           make(map[string]entities.Issue),
		branches:         make(map[string]string),
		Comparisons:      make(map[string]*entities.Comparison),
		GetRefErr:        make(map[string]error),
		CreateRefErr:     make(map[string]error),
		DeleteRefErr:     make(map[string]error),
		CompareErr:       make(map[string]error),
		CreatePRErr:      make(map[string]error),
		ClosePRErr:       make(map[string]error),
		AddLabelsErr:     make(map[string]error),
		CommentErr:       make(map[string]error),
		GetFileErr:       make(map[string]error),
		PutFileErr:       make(map[string]error),
		ListTagsErr:      make(map[string]error),
		CreateReleaseErr: make(map[string]error),
		DeleteReleaseErr: make(map[string]error),
		MetadataErr:      make(map[string]error),
		ProtectErr:       make(map[string]error),
	}
}

// SeedBranch creates a branch ref and marks it as the default branch when
// the repository has none yet.
func (s *SpyGatewayRepository) SeedBranch(repo, branch, sha string) *SpyGatewayRepository {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setRef(repo, entities.BranchRef(branch), sha)
	if _, ok := s.branches[repo]; !ok {
		s.branches[repo] = branch
	}
	return s
}

// SeedDefaultBranch sets the branch reported by GetRepositoryMetadata.
func (s *SpyGatewayRepository) SeedDefaultBranch(repo, branch string) *SpyGatewayRepository {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[repo] = branch
	return s
}

// SeedTag creates a tag ref.
func (s *SpyGatewayRepository) SeedTag(repo, name, sha string) *SpyGatewayRepository {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setRef(repo, entities.TagRef(name), sha)
	s.tags[repo] = append(s.tags[repo], entities.Tag{Name: name, CommitSHA: sha})
	return s
}

// SeedFile stores a file at a branch.
func (s *SpyGatewayRepository) SeedFile(repo, branch, path, content string) *SpyGatewayRepository {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putFile(repo, branch, path, content)
	return s
}

// SeedIssue stores an issue.
func (s *SpyGatewayRepository) SeedIssue(repo string, issue entities.Issue) *SpyGatewayRepository {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues[fmt.Sprintf("%s#%d", repo, issue.Number)] = issue
	return s
}

// HasRef reports whether the ref currently exists.
func (s *SpyGatewayRepository) HasRef(repo, ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refs[repo][ref]
	return ok
}

// File returns the current content of a file at a branch.
func (s *SpyGatewayRepository) File(repo, branch, path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[repo][branch+":"+path]
	return file.Content, ok
}

func (s *SpyGatewayRepository) Name() string { return "spy" }

func (s *SpyGatewayRepository) GetRef(_ context.Context, repo entities.Repository, ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.GetRefErr[repo.FullName()]; err != nil {
		return "", err
	}
	sha, ok := s.refs[repo.FullName()][ref]
	if !ok {
		return "", fmt.Errorf("get ref %s in %s: %w", ref, repo, entities.ErrNotFound)
	}
	return sha, nil
}

func (s *SpyGatewayRepository) CreateRef(
	_ context.Context, repo entities.Repository, ref, sha string,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.CreateRefErr[repo.FullName()]; err != nil {
		return "", err
	}
	if _, ok := s.refs[repo.FullName()][ref]; ok {
		return "", fmt.Errorf("create ref %s in %s: %w", ref, repo, entities.ErrAlreadyExists)
	}
	s.setRef(repo.FullName(), ref, sha)
	s.copyFiles(repo.FullName(), ref, sha)
	s.CreatedRefs = append(s.CreatedRefs, RefCall{Repository: repo.FullName(), Ref: ref, SHA: sha})
	return sha, nil
}

func (s *SpyGatewayRepository) UpdateRef(
	_ context.Context, repo entities.Repository, ref, sha string, _ bool,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[repo.FullName()][ref]; !ok {
		return "", fmt.Errorf("update ref %s in %s: %w", ref, repo, entities.ErrNotFound)
	}
	s.setRef(repo.FullName(), ref, sha)
	s.UpdatedRefs = append(s.UpdatedRefs, RefCall{Repository: repo.FullName(), Ref: ref, SHA: sha})
	return sha, nil
}

func (s *SpyGatewayRepository) DeleteRef(_ context.Context, repo entities.Repository, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeletedRefs = append(s.DeletedRefs, RefCall{Repository: repo.FullName(), Ref: ref})
	if err := s.DeleteRefErr[repo.FullName()]; err != nil {
		return err
	}
	if _, ok := s.refs[repo.FullName()][ref]; !ok {
		return fmt.Errorf("delete ref %s in %s: %w", ref, repo, entities.ErrNotFound)
	}
	delete(s.refs[repo.FullName()], ref)
	return nil
}

func (s *SpyGatewayRepository) CompareRefs(
	_ context.Context, repo entities.Repository, _, _ string,
) (*entities.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.CompareErr[repo.FullName()]; err != nil {
		return nil, err
	}
	if comparison, ok := s.Comparisons[repo.FullName()]; ok {
		return comparison, nil
	}
	return &entities.Comparison{}, nil
}

func (s *SpyGatewayRepository) CreatePullRequest(
	_ context.Context, repo entities.Repository, input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PullRequests = append(s.PullRequests, PullRequestCall{Repository: repo.FullName(), Input: input})
	if err := s.CreatePRErr[repo.FullName()]; err != nil {
		return nil, err
	}
	s.nextNumber++
	return &entities.PullRequest{
		Number: s.nextNumber,
		URL:    fmt.Sprintf("https://example.com/%s/pull/%d", repo, s.nextNumber),
	}, nil
}

func (s *SpyGatewayRepository) ClosePullRequest(_ context.Context, repo entities.Repository, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ClosedPRs = append(s.ClosedPRs, NumberCall{Repository: repo.FullName(), Number: number})
	return s.ClosePRErr[repo.FullName()]
}

func (s *SpyGatewayRepository) AddLabels(
	_ context.Context, repo entities.Repository, number int, labels []string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AppliedLabels = append(s.AppliedLabels, NumberCall{Repository: repo.FullName(), Number: number, Labels: labels})
	return s.AddLabelsErr[repo.FullName()]
}

func (s *SpyGatewayRepository) CreateComment(
	_ context.Context, repo entities.Repository, number int, body string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Comments = append(s.Comments, NumberCall{Repository: repo.FullName(), Number: number, Body: body})
	return s.CommentErr[repo.FullName()]
}

func (s *SpyGatewayRepository) GetFileContent(
	_ context.Context, repo entities.Repository, path, ref string,
) (*entities.FileContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.GetFileErr[repo.FullName()]; err != nil {
		return nil, err
	}
	file, ok := s.files[repo.FullName()][ref+":"+path]
	if !ok {
		return nil, fmt.Errorf("get file %s@%s in %s: %w", path, ref, repo, entities.ErrNotFound)
	}
	return &file, nil
}

func (s *SpyGatewayRepository) PutFileContent(
	_ context.Context, repo entities.Repository, write entities.FileWrite,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FileWrites = append(s.FileWrites, FileWriteCall{Repository: repo.FullName(), Write: write})
	if err := s.PutFileErr[repo.FullName()]; err != nil {
		return "", err
	}
	existing, exists := s.files[repo.FullName()][write.Branch+":"+write.Path]
	if exists && existing.SHA != write.SHA {
		return "", fmt.Errorf("write file %s in %s: %w: sha mismatch", write.Path, repo, entities.ErrValidation)
	}
	return s.putFile(repo.FullName(), write.Branch, write.Path, write.Content), nil
}

func (s *SpyGatewayRepository) ListTags(_ context.Context, repo entities.Repository) ([]entities.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ListTagsErr[repo.FullName()]; err != nil {
		return nil, err
	}
	return append([]entities.Tag(nil), s.tags[repo.FullName()]...), nil
}

func (s *SpyGatewayRepository) CreateRelease(
	_ context.Context, repo entities.Repository, input entities.ReleaseInput,
) (*entities.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.CreateReleaseErr[repo.FullName()]; err != nil {
		return nil, err
	}
	s.nextReleaseID++
	s.Releases = append(s.Releases, ReleaseCall{Repository: repo.FullName(), Input: input, ID: s.nextReleaseID})
	return &entities.Release{
		ID:  s.nextReleaseID,
		URL: fmt.Sprintf("https://example.com/%s/releases/%s", repo, input.TagName),
	}, nil
}

func (s *SpyGatewayRepository) DeleteRelease(_ context.Context, repo entities.Repository, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeletedReleases = append(s.DeletedReleases, ReleaseCall{Repository: repo.FullName(), ID: id})
	return s.DeleteReleaseErr[repo.FullName()]
}

func (s *SpyGatewayRepository) GetRepositoryMetadata(
	_ context.Context, repo entities.Repository,
) (*entities.RepositoryMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MetadataCalls = append(s.MetadataCalls, repo.FullName())
	if err := s.MetadataErr[repo.FullName()]; err != nil {
		return nil, err
	}
	defaultBranch, ok := s.branches[repo.FullName()]
	if !ok {
		defaultBranch = "main"
	}
	return &entities.RepositoryMetadata{
		FullName:      repo.FullName(),
		DefaultBranch: defaultBranch,
		URL:           "https://example.com/" + repo.FullName(),
	}, nil
}

func (s *SpyGatewayRepository) ProtectBranch(
	_ context.Context, repo entities.Repository, branch string, rules []string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Protections = append(s.Protections, ProtectCall{Repository: repo.FullName(), Branch: branch, Rules: rules})
	return s.ProtectErr[repo.FullName()]
}

func (s *SpyGatewayRepository) GetIssue(
	_ context.Context, repo entities.Repository, number int,
) (*entities.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[fmt.Sprintf("%s#%d", repo, number)]
	if !ok {
		return nil, fmt.Errorf("get issue #%d in %s: %w", number, repo, entities.ErrNotFound)
	}
	return &issue, nil
}

func (s *SpyGatewayRepository) setRef(repo, ref, sha string) {
	if s.refs[repo] == nil {
		s.refs[repo] = make(map[string]string)
	}
	s.refs[repo][ref] = sha
}

func (s *SpyGatewayRepository) putFile(repo, branch, path, content string) string {
	if s.files[repo] == nil {
		s.files[repo] = make(map[string]entities.FileContent)
	}
	s.nextCommit++
	sha := fmt.Sprintf("blob-%d", s.nextCommit)
	s.files[repo][branch+":"+path] = entities.FileContent{Path: path, Content: content, SHA: sha}
	return fmt.Sprintf("commit-%d", s.nextCommit)
}

// copyFiles gives a new branch the files of the branch it was created from.
func (s *SpyGatewayRepository) copyFiles(repo, ref, sha string) {
	branch, ok := strings.CutPrefix(ref, "refs/heads/")
	if !ok {
		return
	}
	for existingRef, existingSHA := range s.refs[repo] {
		source, isBranch := strings.CutPrefix(existingRef, "refs/heads/")
		if !isBranch || source == branch || existingSHA != sha {
			continue
		}
		for key, file := range s.files[repo] {
			if path, found := strings.CutPrefix(key, source+":"); found {
				s.files[repo][branch+":"+path] = file
			}
		}
		return
	}
}
