//go:build unit

package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/devflow/internal/infrastructure/repositories"
	"github.com/rios0rios0/devflow/internal/infrastructure/repositories/memory"
	doubles "github.com/rios0rios0/devflow/test/infrastructure/repositorydoubles"
)

func newWorkspaceCommand(
	gateway *doubles.SpyGatewayRepository,
	local *doubles.StubLocalRepository,
) (*commands.WorkspaceCommand, *memory.RegistryRepository) {
	gateways := infraRepos.NewGatewayRegistry()
	gateways.Register("github", func(_ *entities.Settings) repositories.GatewayRepository {
		return gateway
	})
	registry := memory.NewRegistryRepository()
	register := commands.NewRegisterCommand(registry, entities.NewEventBus())
	return commands.NewWorkspaceCommand(gateways, register, local), registry
}

func workspaceSettings(t *testing.T, yaml string) *entities.Settings {
	t.Helper()
	settings, err := entities.ParseSettings([]byte(yaml))
	require.NoError(t, err)
	return settings
}

func TestWorkspaceCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should register the declared repositories in dependency order", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := doubles.NewSpyGatewayRepository()
		cmd, registry := newWorkspaceCommand(gateway, &doubles.StubLocalRepository{})
		settings := workspaceSettings(t, `
provider: {type: github, token: inline-token}
repositories:
  - {name: acme/api, dependencies: [acme/shared]}
  - {name: acme/shared, role: critical}
`)

		// when
		workspace, err := cmd.Execute(t.Context(), settings, commands.WorkspaceOptions{Register: true})

		// then
		require.NoError(t, err)
		assert.Same(t, gateway, workspace.Gateway)
		assert.NotNil(t, workspace.Issues)
		require.Len(t, workspace.Registered, 2)
		assert.Equal(t, "acme/shared", workspace.Registered[0].ID())
		assert.Equal(t, 2, registry.Len())
		shared, _ := registry.Get("acme/shared")
		assert.Equal(t, entities.RoleCritical, shared.Role)
	})

	t.Run("should leave unreachable repositories unregistered", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := doubles.NewSpyGatewayRepository()
		gateway.MetadataErr["acme/gone"] = entities.ErrNotFound
		cmd, registry := newWorkspaceCommand(gateway, &doubles.StubLocalRepository{})
		settings := workspaceSettings(t, `
repositories:
  - {name: acme/api}
  - {name: acme/gone}
`)

		// when
		workspace, err := cmd.Execute(t.Context(), settings, commands.WorkspaceOptions{Register: true})

		// then
		require.NoError(t, err)
		assert.Len(t, workspace.Registered, 1)
		_, ok := registry.Get("acme/gone")
		assert.False(t, ok)
	})

	t.Run("should fail on a cyclic declaration", func(t *testing.T) {
		t.Parallel()

		// given
		cmd, _ := newWorkspaceCommand(doubles.NewSpyGatewayRepository(), &doubles.StubLocalRepository{})
		settings := workspaceSettings(t, `
repositories:
  - {name: acme/a, dependencies: [acme/b]}
  - {name: acme/b, dependencies: [acme/a]}
`)

		// when
		_, err := cmd.Execute(t.Context(), settings, commands.WorkspaceOptions{Register: true})

		// then
		require.ErrorIs(t, err, entities.ErrValidation)
	})

	t.Run("should prefer the token override", func(t *testing.T) {
		t.Parallel()

		// given
		cmd, registry := newWorkspaceCommand(doubles.NewSpyGatewayRepository(), &doubles.StubLocalRepository{})
		settings := workspaceSettings(t, "provider: {type: github, token: from-file}\n")

		// when
		_, err := cmd.Execute(t.Context(), settings, commands.WorkspaceOptions{Token: "from-flag"})

		// then
		require.NoError(t, err)
		assert.Equal(t, "from-flag", settings.Provider.Token)
		assert.Zero(t, registry.Len())
	})
}

func TestWorkspaceCommandResolveRepository(t *testing.T) {
	t.Parallel()

	t.Run("should parse an owner/name argument", func(t *testing.T) {
		t.Parallel()

		// given
		local := &doubles.StubLocalRepository{}
		cmd, _ := newWorkspaceCommand(doubles.NewSpyGatewayRepository(), local)

		// when
		repo, err := cmd.ResolveRepository("acme/api")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.Repository{Owner: "acme", Name: "api"}, repo)
		assert.Empty(t, local.LocatedDirs)
	})

	t.Run("should detect the repository of the current directory", func(t *testing.T) {
		t.Parallel()

		// given
		local := &doubles.StubLocalRepository{Repository: entities.Repository{Owner: "acme", Name: "web"}}
		cmd, _ := newWorkspaceCommand(doubles.NewSpyGatewayRepository(), local)

		// when
		repo, err := cmd.ResolveRepository(".")

		// then
		require.NoError(t, err)
		assert.Equal(t, "acme/web", repo.FullName())
		assert.Equal(t, []string{"."}, local.LocatedDirs)
	})

	t.Run("should surface a directory without origin", func(t *testing.T) {
		t.Parallel()

		// given
		local := &doubles.StubLocalRepository{Err: entities.ErrNotFound}
		cmd, _ := newWorkspaceCommand(doubles.NewSpyGatewayRepository(), local)

		// when
		_, err := cmd.ResolveRepository(t.TempDir())

		// then
		require.ErrorIs(t, err, entities.ErrNotFound)
	})
}
