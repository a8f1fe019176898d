//go:build unit

package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
)

func TestStatusCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should report an empty engine", func(t *testing.T) {
		t.Parallel()

		// given
		registry := newRegistry()
		metrics := entities.NewMetrics()
		releases := commands.NewReleaseCommand(registry, metrics, entities.NewEventBus())
		cmd := commands.NewStatusCommand(registry, metrics, releases)

		// when
		status := cmd.Execute()

		// then
		assert.Empty(t, status.Repositories)
		assert.Empty(t, status.Releases)
		assert.Zero(t, status.ActiveReleases)
		assert.Equal(t, entities.MetricsSnapshot{}, status.Metrics)
	})

	t.Run("should aggregate registrations, counters and release history of one engine", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := releaseGateway("acme/a", "acme/b")
		registry := newRegistry(newDescriptor("acme/a", entities.RoleCritical), newDescriptor("acme/b", entities.RoleStandard))
		metrics := entities.NewMetrics()
		bus := entities.NewEventBus()
		releases := commands.NewReleaseCommand(registry, metrics, bus)
		coordinator := commands.NewCoordinatorCommand(registry, metrics, bus)
		cmd := commands.NewStatusCommand(registry, metrics, releases)

		_, err := coordinator.CreateBranches(t.Context(), gateway, commands.CoordinatedBranchSpec{
			Name: "feature/status",
		}, commands.CoordinationOptions{})
		require.NoError(t, err)
		_, err = releases.Execute(t.Context(), gateway, releaseConfig("1.3.0"))
		require.NoError(t, err)

		// when
		status := cmd.Execute()

		// then
		assert.Len(t, status.Repositories, 2)
		assert.Equal(t, int64(4), status.Metrics.BranchesCreated)
		assert.Equal(t, int64(2), status.Metrics.ReleasesCreated)
		assert.Equal(t, int64(2), status.Metrics.CrossRepoOperations)
		require.Len(t, status.Releases, 1)
		assert.Equal(t, entities.ReleaseCompleted, status.Releases[0].Status)
		assert.Zero(t, status.ActiveReleases)
	})

	t.Run("should not share counters between two engines", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a")
		first := entities.NewMetrics()
		second := entities.NewMetrics()
		registry := newRegistry(newDescriptor("acme/a", entities.RoleStandard))
		coordinator := commands.NewCoordinatorCommand(registry, first, entities.NewEventBus())
		_, err := coordinator.CreateBranches(t.Context(), gateway, commands.CoordinatedBranchSpec{
			Name: "feature/isolated",
		}, commands.CoordinationOptions{})
		require.NoError(t, err)

		// when
		status := commands.NewStatusCommand(
			newRegistry(), second, commands.NewReleaseCommand(newRegistry(), second, entities.NewEventBus()),
		).Execute()

		// then
		assert.Equal(t, int64(1), first.Snapshot().BranchesCreated)
		assert.Zero(t, status.Metrics.BranchesCreated)
	})
}
