//go:build unit

package commands_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/devflow/test/infrastructure/repositorydoubles"
)

func TestBranchCommandExecute(t *testing.T) {
	t.Parallel()

	repo := entities.Repository{Owner: "acme", Name: "api"}

	t.Run("should create the feature branch from develop at the base commit", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := doubles.NewSpyGatewayRepository().SeedBranch("acme/api", "develop", "sha-develop")
		metrics := entities.NewMetrics()
		bus := entities.NewEventBus()
		recorder := recordEvents(bus)
		cmd := commands.NewBranchCommand(metrics, bus)
		issue := entitybuilders.NewIssueBuilder().BuildIssue()

		// when
		result, err := cmd.Execute(t.Context(), gateway, repo, issue, commands.BranchOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, "feature/DEVFLOW-42-add-new-feature", result.Descriptor.Name)
		assert.Equal(t, entities.BranchFeature, result.Descriptor.Type)
		assert.Equal(t, "develop", result.Descriptor.BaseRef)
		assert.False(t, result.Exists)
		assert.True(t, gateway.HasRef("acme/api", "refs/heads/feature/DEVFLOW-42-add-new-feature"))
		require.Len(t, gateway.CreatedRefs, 1)
		assert.Equal(t, "sha-develop", gateway.CreatedRefs[0].SHA)
		assert.Equal(t, int64(1), metrics.Snapshot().BranchesCreated)
		assert.Len(t, recorder.ofType(entities.EventBranchCreated), 1)
	})

	t.Run("should report an existing branch without counting it twice", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := doubles.NewSpyGatewayRepository().SeedBranch("acme/api", "develop", "sha-develop")
		metrics := entities.NewMetrics()
		bus := entities.NewEventBus()
		recorder := recordEvents(bus)
		cmd := commands.NewBranchCommand(metrics, bus)
		issue := entitybuilders.NewIssueBuilder().BuildIssue()
		_, err := cmd.Execute(t.Context(), gateway, repo, issue, commands.BranchOptions{})
		require.NoError(t, err)

		// when
		result, err := cmd.Execute(t.Context(), gateway, repo, issue, commands.BranchOptions{})

		// then
		require.NoError(t, err)
		assert.True(t, result.Exists)
		assert.Equal(t, int64(1), metrics.Snapshot().BranchesCreated)
		assert.Len(t, recorder.ofType(entities.EventBranchExists), 1)
	})

	t.Run("should branch a critical issue as a hotfix from main", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := doubles.NewSpyGatewayRepository().SeedBranch("acme/api", "main", "sha-main")
		cmd := commands.NewBranchCommand(entities.NewMetrics(), entities.NewEventBus())
		issue := entitybuilders.NewIssueBuilder().
			WithNumber(7).
			WithTitle("Login crashes on Safari!").
			WithLabels("bug", "critical").
			BuildIssue()

		// when
		result, err := cmd.Execute(t.Context(), gateway, repo, issue, commands.BranchOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, "hotfix/DEVFLOW-7-login-crashes-on-safari", result.Descriptor.Name)
		assert.Equal(t, "main", result.Descriptor.BaseRef)
	})

	t.Run("should apply the policy protection rules when requested", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := doubles.NewSpyGatewayRepository().SeedBranch("acme/api", "develop", "sha-develop")
		cmd := commands.NewBranchCommand(entities.NewMetrics(), entities.NewEventBus())
		issue := entitybuilders.NewIssueBuilder().BuildIssue()

		// when
		result, err := cmd.Execute(t.Context(), gateway, repo, issue, commands.BranchOptions{Protect: true})

		// then
		require.NoError(t, err)
		assert.True(t, result.Protected)
		require.Len(t, gateway.Protections, 1)
		assert.Equal(t, "feature/DEVFLOW-42-add-new-feature", gateway.Protections[0].Branch)
		assert.Equal(t, []string{entities.RuleRequireReview}, gateway.Protections[0].Rules)
	})

	t.Run("should return the created branch together with a protection failure", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := doubles.NewSpyGatewayRepository().SeedBranch("acme/api", "develop", "sha-develop")
		gateway.ProtectErr["acme/api"] = errors.New("forbidden")
		cmd := commands.NewBranchCommand(entities.NewMetrics(), entities.NewEventBus())
		issue := entitybuilders.NewIssueBuilder().BuildIssue()

		// when
		result, err := cmd.Execute(t.Context(), gateway, repo, issue, commands.BranchOptions{Protect: true})

		// then
		require.Error(t, err)
		require.NotNil(t, result)
		assert.False(t, result.Protected)
		assert.True(t, gateway.HasRef("acme/api", "refs/heads/feature/DEVFLOW-42-add-new-feature"))
	})

	t.Run("should fail with ErrNotFound when the base ref is missing", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := doubles.NewSpyGatewayRepository().SeedBranch("acme/api", "main", "sha-main")
		cmd := commands.NewBranchCommand(entities.NewMetrics(), entities.NewEventBus())
		issue := entitybuilders.NewIssueBuilder().BuildIssue()

		// when
		result, err := cmd.Execute(t.Context(), gateway, repo, issue, commands.BranchOptions{})

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrNotFound)
		assert.Nil(t, result)
		assert.Empty(t, gateway.CreatedRefs)
	})
}
