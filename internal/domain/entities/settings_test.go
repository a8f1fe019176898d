//go:build unit

package entities_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/devflow/internal/domain/entities"
)

func TestParseSettings(t *testing.T) {
	t.Parallel()

	t.Run("should parse a complete configuration", func(t *testing.T) {
		t.Parallel()

		// given
		data := []byte(`
provider:
  type: github
  token: inline-token
retry:
  max_retries: 5
  initial_backoff: 2s
rate_limit:
  requests_per_second: 4
repositories:
  - name: acme/shared
    role: critical
  - name: acme/api
    dependencies: [acme/shared]
coordination:
  conflict_prevention: false
  continue_on_error: true
conflicts:
  critical_patterns: ["*.tf"]
branch_policies:
  feature:
    base: main
release:
  manifest: Chart.yaml
  rollback:
    delete_releases: false
    delete_branches: true
sync:
  interval: 30m
`)

		// when
		settings, err := entities.ParseSettings(data)

		// then
		require.NoError(t, err)
		assert.Equal(t, "inline-token", settings.Provider.Token)
		assert.Equal(t, 5, settings.Retry.MaxRetries)
		assert.Equal(t, 2*time.Second, settings.Retry.InitialBackoff)
		assert.Equal(t, 30*time.Second, settings.Retry.MaxBackoff)
		assert.InDelta(t, 4.0, settings.RateLimit.RequestsPerSecond, 0.001)
		assert.Equal(t, 20, settings.RateLimit.Burst)
		assert.False(t, settings.Coordination.ConflictPreventionEnabled())
		assert.True(t, settings.Coordination.ContinueOnError)
		assert.Equal(t, []string{"*.tf"}, settings.CriticalPatterns())
		assert.Equal(t, "develop", settings.Release.BaseBranch)
		assert.Equal(t, "Chart.yaml", settings.Release.Manifest)
		assert.Equal(t, entities.ReleaseRollbackPolicy{DeleteReleases: false, DeleteBranches: true},
			settings.Release.RollbackPolicy())
		assert.Equal(t, 30*time.Minute, settings.Sync.Interval)

		policies, err := settings.Policies()
		require.NoError(t, err)
		assert.Equal(t, "main", policies[entities.BranchFeature].BaseRef)

		descriptors, err := settings.Descriptors()
		require.NoError(t, err)
		require.Len(t, descriptors, 2)
		assert.Equal(t, entities.RoleCritical, descriptors[0].Role)
		assert.Equal(t, entities.RoleStandard, descriptors[1].Role)
		assert.Equal(t, []string{"acme/shared"}, descriptors[1].Dependencies)
	})

	t.Run("should apply the defaults to an empty configuration", func(t *testing.T) {
		t.Parallel()

		// when
		settings, err := entities.ParseSettings([]byte("{}"))

		// then
		require.NoError(t, err)
		assert.Equal(t, "github", settings.Provider.Type)
		assert.Equal(t, entities.DefaultRetryConfig(), settings.Retry)
		assert.True(t, settings.Coordination.ConflictPreventionEnabled())
		assert.Equal(t, entities.DefaultCriticalPatterns(), settings.CriticalPatterns())
		assert.Equal(t, entities.DefaultReleaseRollbackPolicy(), settings.Release.RollbackPolicy())
		assert.Equal(t, "package.json", settings.Release.Manifest)
		assert.Equal(t, time.Hour, settings.Sync.Interval)
	})

	t.Run("should match the defaults of DefaultSettings", func(t *testing.T) {
		t.Parallel()

		// when
		parsed, err := entities.ParseSettings([]byte("{}"))

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.DefaultSettings(), parsed)
	})

	invalid := []struct {
		name string
		data string
	}{
		{"should reject an unsupported provider", "provider: {type: gitlab}"},
		{"should reject a repository without a name", "repositories: [{role: critical}]"},
		{"should reject a malformed repository name", "repositories: [{name: api}]"},
		{"should reject a repository declared twice", "repositories: [{name: acme/api}, {name: acme/api}]"},
		{"should reject an unknown branch type", "branch_policies: {chore: {base: main}}"},
		{"should reject an unknown protection rule", "branch_policies: {feature: {protection: [require-magic]}}"},
		{"should reject a malformed critical pattern", "conflicts: {critical_patterns: ['[oops']}"},
		{"should reject a negative retry count", "retry: {max_retries: -1}"},
		{"should reject malformed YAML", "repositories: [unclosed"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// when
			_, err := entities.ParseSettings([]byte(tt.data))

			// then
			require.Error(t, err)
			assert.ErrorIs(t, err, entities.ErrValidation)
		})
	}
}

func TestNewSettings(t *testing.T) {
	t.Parallel()

	t.Run("should read the token from a file path", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		tokenPath := filepath.Join(dir, "token")
		require.NoError(t, os.WriteFile(tokenPath, []byte("file-token\n"), 0o600))
		configPath := filepath.Join(dir, "devflow.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("provider:\n  token: "+tokenPath+"\n"), 0o600))

		// when
		settings, err := entities.NewSettings(configPath)

		// then
		require.NoError(t, err)
		assert.Equal(t, "file-token", settings.Provider.Token)
	})

	t.Run("should fail for a missing file", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := entities.NewSettings(filepath.Join(t.TempDir(), "missing.yaml"))

		// then
		require.Error(t, err)
	})
}

//nolint:paralleltest // t.Setenv cannot run in parallel tests
func TestSettingsTokenEnvironment(t *testing.T) {
	t.Run("should expand environment variable references", func(t *testing.T) {
		// given
		t.Setenv("DEVFLOW_TEST_TOKEN", "env-token")

		// when
		settings, err := entities.ParseSettings([]byte("provider: {token: '${DEVFLOW_TEST_TOKEN}'}"))

		// then
		require.NoError(t, err)
		assert.Equal(t, "env-token", settings.Provider.Token)
	})

	t.Run("should fall back to GITHUB_TOKEN then GH_TOKEN", func(t *testing.T) {
		// given
		t.Setenv("GITHUB_TOKEN", "")
		t.Setenv("GH_TOKEN", "gh-token")
		settings := entities.DefaultSettings()

		// when
		settings.ResolveProviderToken("")

		// then
		assert.Equal(t, "gh-token", settings.Provider.Token)
	})

	t.Run("should prefer the explicit override", func(t *testing.T) {
		// given
		t.Setenv("GITHUB_TOKEN", "github-token")
		settings := entities.DefaultSettings()
		settings.Provider.Token = "configured"

		// when
		settings.ResolveProviderToken("flag-token")

		// then
		assert.Equal(t, "flag-token", settings.Provider.Token)
	})
}
