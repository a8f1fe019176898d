//go:build unit

package git_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	gitRepo "github.com/rios0rios0/devflow/internal/infrastructure/repositories/git"
)

// initClone creates a repository with one commit on "develop" and the given origin URL.
func initClone(t *testing.T, originURL string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	if originURL != "" {
		_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{originURL}})
		require.NoError(t, err)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o600))
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add("README.md")
	require.NoError(t, err)
	_, err = worktree.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName("develop"),
		Create: true,
	}))

	return dir
}

func TestLocalRepository_Locate(t *testing.T) {
	t.Parallel()

	t.Run("should resolve owner and name from an SSH origin", func(t *testing.T) {
		t.Parallel()

		// given
		dir := initClone(t, "git@github.com:acme/api.git")
		locator := gitRepo.NewLocalRepository()

		// when
		repo, err := locator.Locate(dir)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.Repository{Owner: "acme", Name: "api"}, repo)
	})

	t.Run("should detect the clone from a nested directory", func(t *testing.T) {
		t.Parallel()

		// given
		dir := initClone(t, "https://github.com/acme/web.git")
		nested := filepath.Join(dir, "src", "pkg")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		locator := gitRepo.NewLocalRepository()

		// when
		repo, err := locator.Locate(nested)

		// then
		require.NoError(t, err)
		assert.Equal(t, "acme/web", repo.FullName())
	})

	t.Run("should return ErrNotFound when there is no origin remote", func(t *testing.T) {
		t.Parallel()

		// given
		dir := initClone(t, "")
		locator := gitRepo.NewLocalRepository()

		// when
		_, err := locator.Locate(dir)

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("should return ErrNotFound outside a git repository", func(t *testing.T) {
		t.Parallel()

		// given
		locator := gitRepo.NewLocalRepository()

		// when
		_, err := locator.Locate(t.TempDir())

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestLocalRepository_CurrentBranch(t *testing.T) {
	t.Parallel()

	t.Run("should return the checked out branch", func(t *testing.T) {
		t.Parallel()

		// given
		dir := initClone(t, "git@github.com:acme/api.git")
		locator := gitRepo.NewLocalRepository()

		// when
		branch, err := locator.CurrentBranch(dir)

		// then
		require.NoError(t, err)
		assert.Equal(t, "develop", branch)
	})
}

func TestParseRemoteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		expected entities.Repository
		wantErr  bool
	}{
		{
			name:     "should parse GitHub SSH URL",
			url:      "git@github.com:myorg/myrepo.git",
			expected: entities.Repository{Owner: "myorg", Name: "myrepo"},
		},
		{
			name:     "should parse GitHub HTTPS URL",
			url:      "https://github.com/myorg/myrepo.git",
			expected: entities.Repository{Owner: "myorg", Name: "myrepo"},
		},
		{
			name:     "should parse GitHub HTTPS URL without .git suffix",
			url:      "https://github.com/myorg/myrepo",
			expected: entities.Repository{Owner: "myorg", Name: "myrepo"},
		},
		{
			name:     "should parse an ssh:// URL",
			url:      "ssh://git@github.com/myorg/myrepo.git",
			expected: entities.Repository{Owner: "myorg", Name: "myrepo"},
		},
		{
			name:     "should parse an enterprise host",
			url:      "git@ghe.example.com:platform/shared.git",
			expected: entities.Repository{Owner: "platform", Name: "shared"},
		},
		{
			name:    "should reject a URL without a repository segment",
			url:     "https://github.com/myorg",
			wantErr: true,
		},
		{
			name:    "should reject a nested project path",
			url:     "https://dev.azure.com/myorg/myproject/_git/myrepo",
			wantErr: true,
		},
		{
			name:    "should reject a plain directory path",
			url:     "/srv/git/myrepo",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// given
			remoteURL := tt.url

			// when
			repo, err := gitRepo.ParseRemoteURL(remoteURL)

			// then
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, entities.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, repo)
		})
	}
}
