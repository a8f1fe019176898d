package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/devflow/internal/infrastructure/repositories"
)

// PrepareWorkspace is the interface for building the runtime workspace of a CLI call.
type PrepareWorkspace interface {
	Execute(ctx context.Context, settings *entities.Settings, opts WorkspaceOptions) (*Workspace, error)
	ResolveRepository(arg string) (entities.Repository, error)
}

// WorkspaceOptions holds the per-call overrides of the settings.
type WorkspaceOptions struct {
	Token    string // overrides the configured provider token
	Register bool   // register the repositories declared in the settings
}

// Workspace is the gateway and issue source of one CLI call, plus the
// repositories registered for coordinated operations.
type Workspace struct {
	Settings   *entities.Settings
	Gateway    repositories.GatewayRepository
	Issues     repositories.IssueRepository
	Registered []entities.RepositoryDescriptor
}

// WorkspaceCommand resolves the gateway for the configured provider and
// registers the declared repositories.
type WorkspaceCommand struct {
	gateways *infraRepos.GatewayRegistry
	register RegisterRepository
	local    repositories.LocalRepository
}

// NewWorkspaceCommand creates a new WorkspaceCommand.
func NewWorkspaceCommand(
	gateways *infraRepos.GatewayRegistry,
	register RegisterRepository,
	local repositories.LocalRepository,
) *WorkspaceCommand {
	return &WorkspaceCommand{gateways: gateways, register: register, local: local}
}

// Execute builds the workspace. Unreachable repositories are logged and left
// unregistered; a cyclic or malformed declaration fails the call.
func (it *WorkspaceCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts WorkspaceOptions,
) (*Workspace, error) {
	settings.ResolveProviderToken(opts.Token)
	if settings.Provider.Token == "" {
		logger.Warn("No provider token configured, requests are unauthenticated")
	}

	gateway, err := it.gateways.Get(settings)
	if err != nil {
		return nil, err
	}
	workspace := &Workspace{Settings: settings, Gateway: gateway}
	if issues, ok := gateway.(repositories.IssueRepository); ok {
		workspace.Issues = issues
	}

	if !opts.Register {
		return workspace, nil
	}

	descriptors, err := settings.Descriptors()
	if err != nil {
		return nil, err
	}

	it.register.Reset()
	for _, descriptor := range entities.OrderByDependencies(descriptors) {
		registered, registerErr := it.register.Execute(ctx, gateway, descriptor)
		if errors.Is(registerErr, entities.ErrValidation) {
			return nil, registerErr
		}
		if registerErr != nil {
			logger.Errorf("Skipping %s: %v", descriptor.ID(), registerErr)
			continue
		}
		workspace.Registered = append(workspace.Registered, registered)
	}
	logger.Infof("Registered %d of %d repositories", len(workspace.Registered), len(descriptors))
	return workspace, nil
}

// ResolveRepository accepts "owner/name", "." or a path to a local clone.
func (it *WorkspaceCommand) ResolveRepository(arg string) (entities.Repository, error) {
	if arg == "" {
		arg = "."
	}
	if !isLocalPath(arg) {
		return entities.ParseRepository(arg)
	}

	repo, err := it.local.Locate(arg)
	if err != nil {
		return entities.Repository{}, fmt.Errorf("failed to detect repository from %q: %w", arg, err)
	}
	logger.Debugf("Detected %s from %s", repo, arg)
	return repo, nil
}

func isLocalPath(arg string) bool {
	if arg == "." || strings.HasPrefix(arg, "./") || strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, "../") {
		return true
	}
	info, err := os.Stat(arg)
	return err == nil && info.IsDir()
}
