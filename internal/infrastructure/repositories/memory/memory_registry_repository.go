package memory

import (
	"sync"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// RegistryRepository keeps registered repositories in memory for the lifetime
// of one engine instance. All returns descriptors in first-registration order.
type RegistryRepository struct {
	mu          sync.RWMutex
	order       []string
	descriptors map[string]entities.RepositoryDescriptor
}

var _ repositories.RegistryRepository = (*RegistryRepository)(nil)

// NewRegistryRepository creates an empty registry.
func NewRegistryRepository() *RegistryRepository {
	return &RegistryRepository{
		descriptors: make(map[string]entities.RepositoryDescriptor),
	}
}

// Store saves the descriptor, replacing any previous one with the same identifier.
func (r *RegistryRepository) Store(descriptor entities.RepositoryDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := descriptor.ID()
	if _, exists := r.descriptors[id]; !exists {
		r.order = append(r.order, id)
	}
	descriptor.Dependencies = append([]string(nil), descriptor.Dependencies...)
	r.descriptors[id] = descriptor
}

func (r *RegistryRepository) Get(id string) (entities.RepositoryDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptor, ok := r.descriptors[id]
	return descriptor, ok
}

func (r *RegistryRepository) All() []entities.RepositoryDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.RepositoryDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.descriptors[id])
	}
	return out
}

func (r *RegistryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Reset drops every registered repository.
func (r *RegistryRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = nil
	r.descriptors = make(map[string]entities.RepositoryDescriptor)
}
