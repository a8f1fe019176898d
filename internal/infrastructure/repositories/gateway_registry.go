package repositories

import (
	"fmt"
	"sort"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	domainRepos "github.com/rios0rios0/devflow/internal/domain/repositories"
)

// GatewayFactory is a constructor function that creates a GatewayRepository from the settings.
type GatewayFactory func(settings *entities.Settings) domainRepos.GatewayRepository

// GatewayRegistry manages all registered hosting service gateways.
type GatewayRegistry struct {
	factories map[string]GatewayFactory
}

// NewGatewayRegistry creates an empty gateway registry.
func NewGatewayRegistry() *GatewayRegistry {
	return &GatewayRegistry{
		factories: make(map[string]GatewayFactory),
	}
}

// Register adds a gateway factory under the given provider type (e.g. "github").
func (r *GatewayRegistry) Register(name string, factory GatewayFactory) {
	r.factories[name] = factory
}

// Get returns a gateway configured for the provider type of the settings.
func (r *GatewayRegistry) Get(settings *entities.Settings) (domainRepos.GatewayRepository, error) {
	factory, ok := r.factories[settings.Provider.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider type: %q", entities.ErrValidation, settings.Provider.Type)
	}
	return factory(settings), nil
}

// Names returns the registered provider types, sorted.
func (r *GatewayRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
