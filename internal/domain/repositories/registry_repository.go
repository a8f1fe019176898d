package repositories

import "github.com/rios0rios0/devflow/internal/domain/entities"

// RegistryRepository stores the repositories registered with one engine instance.
// Identifiers are unique; storing an existing identifier replaces its descriptor.
type RegistryRepository interface {
	Store(descriptor entities.RepositoryDescriptor)
	Get(id string) (entities.RepositoryDescriptor, bool)
	All() []entities.RepositoryDescriptor
	Len() int
	Reset()
}
