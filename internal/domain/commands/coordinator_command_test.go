//go:build unit

package commands_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/devflow/test/infrastructure/repositorydoubles"
)

func seededGateway(ids ...string) *doubles.SpyGatewayRepository {
	gateway := doubles.NewSpyGatewayRepository()
	for _, id := range ids {
		gateway.SeedBranch(id, "main", "sha-"+id)
	}
	return gateway
}

func TestCoordinatorCommandCreateBranches(t *testing.T) {
	t.Parallel()

	spec := commands.CoordinatedBranchSpec{Name: "feature/shared-auth"}
	ref := "refs/heads/feature/shared-auth"

	t.Run("should create branches so dependencies come before dependents in every registration order", func(t *testing.T) {
		t.Parallel()

		shared := newDescriptor("acme/shared", entities.RoleStandard)
		api := newDescriptor("acme/api", entities.RoleStandard, "acme/shared")
		web := newDescriptor("acme/web", entities.RoleStandard, "acme/api")
		permutations := [][]entities.RepositoryDescriptor{
			{shared, api, web},
			{shared, web, api},
			{api, shared, web},
			{api, web, shared},
			{web, shared, api},
			{web, api, shared},
		}

		for _, registration := range permutations {
			// given
			gateway := seededGateway("acme/shared", "acme/api", "acme/web")
			cmd := commands.NewCoordinatorCommand(newRegistry(registration...), entities.NewMetrics(), entities.NewEventBus())

			// when
			report, err := cmd.CreateBranches(t.Context(), gateway, spec, commands.CoordinationOptions{})

			// then
			require.NoError(t, err)
			assert.Equal(t, []string{"acme/shared", "acme/api", "acme/web"}, report.Order)
			require.Len(t, gateway.CreatedRefs, 3)
			for i, id := range report.Order {
				assert.Equal(t, id, gateway.CreatedRefs[i].Repository)
			}
		}
	})

	t.Run("should create the branch from each repository default branch", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b")
		metrics := entities.NewMetrics()
		cmd := commands.NewCoordinatorCommand(
			newRegistry(newDescriptor("acme/a", entities.RoleStandard), newDescriptor("acme/b", entities.RoleStandard)),
			metrics, entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreateBranches(t.Context(), gateway, spec, commands.CoordinationOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"acme/a", "acme/b"}, ids(report.Created))
		assert.Equal(t, "sha-acme/a", gateway.CreatedRefs[0].SHA)
		assert.Equal(t, "sha-acme/b", gateway.CreatedRefs[1].SHA)
		snapshot := metrics.Snapshot()
		assert.Equal(t, int64(2), snapshot.BranchesCreated)
		assert.Equal(t, int64(1), snapshot.CrossRepoOperations)
	})

	t.Run("should name the branch after the issue when no name is given", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := doubles.NewSpyGatewayRepository().SeedBranch("acme/a", "develop", "sha-develop")
		cmd := commands.NewCoordinatorCommand(
			newRegistry(newDescriptor("acme/a", entities.RoleStandard)), entities.NewMetrics(), entities.NewEventBus(),
		)
		issue := entitybuilders.NewIssueBuilder().WithLabels("bug").WithTitle("Fix token refresh").BuildIssue()

		// when
		report, err := cmd.CreateBranches(
			t.Context(), gateway, commands.CoordinatedBranchSpec{Issue: &issue}, commands.CoordinationOptions{},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, "bugfix/DEVFLOW-42-fix-token-refresh", report.Created[0].Ref)
		assert.True(t, gateway.HasRef("acme/a", "refs/heads/bugfix/DEVFLOW-42-fix-token-refresh"))
	})

	t.Run("should reject a branch request without a name or an issue", func(t *testing.T) {
		t.Parallel()

		// given
		cmd := commands.NewCoordinatorCommand(newRegistry(), entities.NewMetrics(), entities.NewEventBus())

		// when
		_, err := cmd.CreateBranches(
			t.Context(), doubles.NewSpyGatewayRepository(), commands.CoordinatedBranchSpec{}, commands.CoordinationOptions{},
		)

		// then
		require.ErrorIs(t, err, entities.ErrValidation)
	})

	t.Run("should skip repositories where the branch already exists", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b")
		gateway.SeedBranch("acme/b", "feature/shared-auth", "sha-old")
		cmd := commands.NewCoordinatorCommand(
			newRegistry(newDescriptor("acme/a", entities.RoleStandard), newDescriptor("acme/b", entities.RoleStandard)),
			entities.NewMetrics(), entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreateBranches(t.Context(), gateway, spec, commands.CoordinationOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"acme/a"}, ids(report.Created))
		require.Len(t, report.Skipped, 1)
		assert.Equal(t, "acme/b", report.Skipped[0].Repository)
		assert.Equal(t, "already exists", report.Skipped[0].Reason)
	})

	t.Run("should fail fast without mutating when the pre-check finds the branch", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b", "acme/c")
		gateway.SeedBranch("acme/c", "feature/shared-auth", "sha-old")
		bus := entities.NewEventBus()
		recorder := recordEvents(bus)
		cmd := commands.NewCoordinatorCommand(
			newRegistry(
				newDescriptor("acme/a", entities.RoleCritical),
				newDescriptor("acme/b", entities.RoleStandard),
				newDescriptor("acme/c", entities.RoleStandard),
			),
			entities.NewMetrics(), bus,
		)

		// when
		report, err := cmd.CreateBranches(
			t.Context(), gateway, spec, commands.CoordinationOptions{ConflictPrevention: true},
		)

		// then
		require.Error(t, err)
		assert.Nil(t, report)
		var preflight *entities.PreflightConflictError
		require.ErrorAs(t, err, &preflight)
		assert.Equal(t, []string{"acme/c"}, preflight.Repositories)
		assert.ErrorIs(t, err, entities.ErrAlreadyExists)
		assert.Empty(t, gateway.CreatedRefs)
		assert.Len(t, recorder.ofType(entities.EventConflictDetected), 1)
	})

	t.Run("should roll back created branches in creation order when a critical repository fails", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b", "acme/c")
		gateway.CreateRefErr["acme/c"] = entities.ErrRemoteService
		metrics := entities.NewMetrics()
		bus := entities.NewEventBus()
		recorder := recordEvents(bus)
		cmd := commands.NewCoordinatorCommand(
			newRegistry(
				newDescriptor("acme/a", entities.RoleCritical),
				newDescriptor("acme/b", entities.RoleStandard),
				newDescriptor("acme/c", entities.RoleCritical),
			),
			metrics, bus,
		)

		// when
		report, err := cmd.CreateBranches(t.Context(), gateway, spec, commands.CoordinationOptions{})

		// then
		require.Error(t, err)
		var coordination *entities.CoordinationError
		require.ErrorAs(t, err, &coordination)
		assert.Equal(t, "acme/c", coordination.Repository)
		assert.ErrorIs(t, err, entities.ErrRemoteService)

		require.NotNil(t, report.Rollback)
		assert.Equal(t, []string{"acme/a", "acme/b"}, report.Rollback.Repositories())
		for _, item := range report.Rollback.Items {
			assert.Equal(t, entities.RollbackDeleted, item.Status)
		}
		assert.Empty(t, report.Rollback.Failures())
		assert.False(t, gateway.HasRef("acme/a", ref))
		assert.False(t, gateway.HasRef("acme/b", ref))
		assert.Equal(t, []string{"acme/c"}, ids(report.Failed))
		assert.Equal(t, int64(1), metrics.Snapshot().Rollbacks)
		assert.Zero(t, metrics.Snapshot().CrossRepoOperations)
		assert.Len(t, recorder.ofType(entities.EventRollbackCompleted), 1)
	})

	t.Run("should record every repository after a critical abort", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b", "acme/c")
		gateway.GetRefErr["acme/a"] = entities.ErrRemoteService
		cmd := commands.NewCoordinatorCommand(
			newRegistry(
				newDescriptor("acme/a", entities.RoleCritical),
				newDescriptor("acme/b", entities.RoleStandard),
				newDescriptor("acme/c", entities.RoleStandard),
			),
			entities.NewMetrics(), entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreateBranches(t.Context(), gateway, spec, commands.CoordinationOptions{})

		// then
		require.Error(t, err)
		assert.Equal(t, 3, report.Total())
		assert.Equal(t, []string{"acme/a"}, ids(report.Failed))
		assert.Equal(t, []string{"acme/b", "acme/c"}, ids(report.Skipped))
		for _, skipped := range report.Skipped {
			assert.Equal(t, "aborted after critical repository acme/a failed", skipped.Reason)
		}
		assert.Empty(t, report.Rollback.Items)
		assert.Empty(t, gateway.CreatedRefs)
	})

	t.Run("should keep going after a standard repository fails", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b", "acme/c")
		gateway.CreateRefErr["acme/b"] = errors.New("boom")
		cmd := commands.NewCoordinatorCommand(
			newRegistry(
				newDescriptor("acme/a", entities.RoleCritical),
				newDescriptor("acme/b", entities.RoleStandard),
				newDescriptor("acme/c", entities.RoleStandard),
			),
			entities.NewMetrics(), entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreateBranches(t.Context(), gateway, spec, commands.CoordinationOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"acme/a", "acme/c"}, ids(report.Created))
		assert.Equal(t, []string{"acme/b"}, ids(report.Failed))
		assert.Nil(t, report.Rollback)
		assert.False(t, report.Succeeded())
	})

	t.Run("should not roll back a critical failure when continuing on error", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b")
		gateway.CreateRefErr["acme/a"] = errors.New("boom")
		cmd := commands.NewCoordinatorCommand(
			newRegistry(newDescriptor("acme/a", entities.RoleCritical), newDescriptor("acme/b", entities.RoleStandard)),
			entities.NewMetrics(), entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreateBranches(
			t.Context(), gateway, spec, commands.CoordinationOptions{ContinueOnError: true},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"acme/a"}, ids(report.Failed))
		assert.Equal(t, []string{"acme/b"}, ids(report.Created))
		assert.Empty(t, gateway.DeletedRefs)
	})

	t.Run("should report a failed compensation and still compensate the rest", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b", "acme/c")
		gateway.DeleteRefErr["acme/a"] = entities.ErrRemoteService
		gateway.CreateRefErr["acme/c"] = entities.ErrRemoteService
		cmd := commands.NewCoordinatorCommand(
			newRegistry(
				newDescriptor("acme/a", entities.RoleStandard),
				newDescriptor("acme/b", entities.RoleStandard),
				newDescriptor("acme/c", entities.RoleCritical),
			),
			entities.NewMetrics(), entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreateBranches(t.Context(), gateway, spec, commands.CoordinationOptions{})

		// then
		require.Error(t, err)
		failures := report.Rollback.Failures()
		require.Len(t, failures, 1)
		assert.Equal(t, "acme/a", failures[0].Repository)
		assert.ErrorIs(t, failures[0].Err, entities.ErrRollback)
		assert.False(t, gateway.HasRef("acme/b", ref))
	})

	t.Run("should record requested repositories that are not registered as failed", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a")
		cmd := commands.NewCoordinatorCommand(
			newRegistry(newDescriptor("acme/a", entities.RoleStandard)), entities.NewMetrics(), entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreateBranches(t.Context(), gateway, spec, commands.CoordinationOptions{
			Repositories: []string{"acme/a", "acme/ghost", "acme/a"},
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"acme/a", "acme/ghost"}, report.Requested)
		assert.Equal(t, []string{"acme/a"}, ids(report.Created))
		require.Len(t, report.Failed, 1)
		assert.ErrorIs(t, report.Failed[0].Err, entities.ErrNotFound)
	})
}

func TestCoordinatorCommandCreatePullRequests(t *testing.T) {
	t.Parallel()

	t.Run("should open one pull request per repository and cross-link them", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b", "acme/c")
		metrics := entities.NewMetrics()
		cmd := commands.NewCoordinatorCommand(
			newRegistry(
				newDescriptor("acme/a", entities.RoleStandard),
				newDescriptor("acme/b", entities.RoleStandard),
				newDescriptor("acme/c", entities.RoleStandard),
			),
			metrics, entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreatePullRequests(t.Context(), gateway, commands.CoordinatedPullRequestSpec{
			Head:      "feature/shared-auth",
			Title:     "Shared auth",
			Labels:    []string{"cross-repo"},
			CrossLink: true,
		}, commands.CoordinationOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, report.Created, 3)
		for _, call := range gateway.PullRequests {
			assert.Equal(t, "main", call.Input.Base)
			assert.Equal(t, "feature/shared-auth", call.Input.Head)
		}
		assert.Len(t, gateway.AppliedLabels, 3)
		require.Len(t, gateway.Comments, 3)
		for _, comment := range gateway.Comments {
			assert.Equal(t, 2, strings.Count(comment.Body, "\n- "))
			assert.NotContains(t, comment.Body, comment.Repository+"#")
		}
		assert.Equal(t, int64(3), metrics.Snapshot().PullRequestsCreated)
	})

	t.Run("should use per-repository head overrides", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b")
		cmd := commands.NewCoordinatorCommand(
			newRegistry(newDescriptor("acme/a", entities.RoleStandard), newDescriptor("acme/b", entities.RoleStandard)),
			entities.NewMetrics(), entities.NewEventBus(),
		)

		// when
		_, err := cmd.CreatePullRequests(t.Context(), gateway, commands.CoordinatedPullRequestSpec{
			Head:     "feature/x",
			Branches: map[string]string{"acme/b": "feature/x-b"},
			Base:     "develop",
		}, commands.CoordinationOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, gateway.PullRequests, 2)
		assert.Equal(t, "feature/x", gateway.PullRequests[0].Input.Head)
		assert.Equal(t, "feature/x-b", gateway.PullRequests[1].Input.Head)
		assert.Equal(t, "develop", gateway.PullRequests[1].Input.Base)
	})

	t.Run("should close the opened pull requests when a critical repository fails", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a", "acme/b")
		gateway.CreatePRErr["acme/b"] = entities.ErrRemoteService
		cmd := commands.NewCoordinatorCommand(
			newRegistry(newDescriptor("acme/a", entities.RoleStandard), newDescriptor("acme/b", entities.RoleCritical)),
			entities.NewMetrics(), entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreatePullRequests(t.Context(), gateway, commands.CoordinatedPullRequestSpec{
			Head:      "feature/x",
			CrossLink: true,
		}, commands.CoordinationOptions{})

		// then
		var coordination *entities.CoordinationError
		require.ErrorAs(t, err, &coordination)
		require.Len(t, gateway.ClosedPRs, 1)
		assert.Equal(t, "acme/a", gateway.ClosedPRs[0].Repository)
		assert.Equal(t, report.Created[0].Number, gateway.ClosedPRs[0].Number)
		assert.Empty(t, gateway.Comments)
	})

	t.Run("should skip repositories that already have an open pull request", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := seededGateway("acme/a")
		gateway.CreatePRErr["acme/a"] = entities.ErrAlreadyExists
		cmd := commands.NewCoordinatorCommand(
			newRegistry(newDescriptor("acme/a", entities.RoleCritical)), entities.NewMetrics(), entities.NewEventBus(),
		)

		// when
		report, err := cmd.CreatePullRequests(t.Context(), gateway, commands.CoordinatedPullRequestSpec{
			Head: "feature/x",
		}, commands.CoordinationOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"acme/a"}, ids(report.Skipped))
	})
}
