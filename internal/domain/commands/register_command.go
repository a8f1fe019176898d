package commands

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// RegisterRepository is the interface for repository registration.
type RegisterRepository interface {
	Execute(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		descriptor entities.RepositoryDescriptor,
	) (entities.RepositoryDescriptor, error)
	Reset()
}

// RegisterCommand validates repositories against the hosting service and
// stores them in the registry.
type RegisterCommand struct {
	registry repositories.RegistryRepository
	events   *entities.EventBus
}

// NewRegisterCommand creates a new RegisterCommand.
func NewRegisterCommand(registry repositories.RegistryRepository, events *entities.EventBus) *RegisterCommand {
	return &RegisterCommand{registry: registry, events: events}
}

// Execute checks the repository is reachable, rejects declarations that would
// close a dependency cycle, and stores the descriptor (last write wins).
func (it *RegisterCommand) Execute(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	descriptor entities.RepositoryDescriptor,
) (entities.RepositoryDescriptor, error) {
	if descriptor.Role == "" {
		descriptor.Role = entities.RoleStandard
	}
	if err := descriptor.Validate(); err != nil {
		return entities.RepositoryDescriptor{}, err
	}

	metadata, err := gateway.GetRepositoryMetadata(ctx, descriptor.Repository)
	if err != nil {
		return entities.RepositoryDescriptor{}, fmt.Errorf("repository %s is not reachable: %w", descriptor.ID(), err)
	}
	if descriptor.DefaultBranch == "" {
		descriptor.DefaultBranch = metadata.DefaultBranch
	}
	descriptor.RegisteredAt = time.Now()

	candidates := []entities.RepositoryDescriptor{descriptor}
	for _, existing := range it.registry.All() {
		if existing.ID() != descriptor.ID() {
			candidates = append(candidates, existing)
		}
	}
	if cycleErr := entities.NewDependencyGraph(candidates).ValidateAcyclic(); cycleErr != nil {
		return entities.RepositoryDescriptor{}, fmt.Errorf("cannot register %s: %w", descriptor.ID(), cycleErr)
	}

	it.registry.Store(descriptor)
	logger.Infof(
		"Registered %s (role %s, %d dependencies, default branch %s)",
		descriptor.ID(), descriptor.Role, len(descriptor.Dependencies), descriptor.DefaultBranch,
	)
	it.events.Publish(entities.Event{
		Type:       entities.EventRepositoryRegistered,
		Repository: descriptor.ID(),
		Detail:     string(descriptor.Role),
	})
	return descriptor, nil
}

// Reset drops every registration.
func (it *RegisterCommand) Reset() {
	it.registry.Reset()
}
