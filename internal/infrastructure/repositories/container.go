package repositories

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	domainRepos "github.com/rios0rios0/devflow/internal/domain/repositories"
	gitRepo "github.com/rios0rios0/devflow/internal/infrastructure/repositories/git"
	ghRepo "github.com/rios0rios0/devflow/internal/infrastructure/repositories/github"
	"github.com/rios0rios0/devflow/internal/infrastructure/repositories/memory"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register gateway registry with all hosting service factories
	if err := container.Provide(func() *GatewayRegistry {
		reg := NewGatewayRegistry()
		reg.Register("github", func(settings *entities.Settings) domainRepos.GatewayRepository {
			return ghRepo.NewGatewayRepository(settings)
		})
		return reg
	}); err != nil {
		return err
	}

	// One registry per container, so two engines never share registrations
	if err := container.Provide(memory.NewRegistryRepository); err != nil {
		return err
	}
	if err := container.Provide(func(impl *memory.RegistryRepository) domainRepos.RegistryRepository {
		return impl
	}); err != nil {
		return err
	}

	if err := container.Provide(gitRepo.NewLocalRepository); err != nil {
		return err
	}
	if err := container.Provide(func(impl *gitRepo.LocalRepository) domainRepos.LocalRepository {
		return impl
	}); err != nil {
		return err
	}

	return nil
}
