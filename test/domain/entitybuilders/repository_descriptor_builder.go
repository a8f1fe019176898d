//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"strings"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// RepositoryDescriptorBuilder helps create test repository descriptors with a fluent interface.
type RepositoryDescriptorBuilder struct {
	*testkit.BaseBuilder
	owner         string
	name          string
	role          entities.RepositoryRole
	dependencies  []string
	defaultBranch string
}

// NewRepositoryDescriptorBuilder creates a new descriptor builder with sensible defaults.
func NewRepositoryDescriptorBuilder() *RepositoryDescriptorBuilder {
	return &RepositoryDescriptorBuilder{
		BaseBuilder:   testkit.NewBaseBuilder(),
		owner:         "acme",
		name:          "api",
		role:          entities.RoleStandard,
		defaultBranch: "main",
	}
}

// WithName sets the repository from an "owner/name" identifier.
func (b *RepositoryDescriptorBuilder) WithName(id string) *RepositoryDescriptorBuilder {
	owner, name, _ := strings.Cut(id, "/")
	b.owner = owner
	b.name = name
	return b
}

// WithRole sets the repository role.
func (b *RepositoryDescriptorBuilder) WithRole(role entities.RepositoryRole) *RepositoryDescriptorBuilder {
	b.role = role
	return b
}

// WithDependencies replaces the declared dependency identifiers.
func (b *RepositoryDescriptorBuilder) WithDependencies(ids ...string) *RepositoryDescriptorBuilder {
	b.dependencies = append([]string(nil), ids...)
	return b
}

// WithDefaultBranch sets the default branch.
func (b *RepositoryDescriptorBuilder) WithDefaultBranch(branch string) *RepositoryDescriptorBuilder {
	b.defaultBranch = branch
	return b
}

// Build creates the descriptor (satisfies testkit.Builder interface).
func (b *RepositoryDescriptorBuilder) Build() interface{} {
	return b.BuildDescriptor()
}

// BuildDescriptor creates the descriptor with a concrete return type.
func (b *RepositoryDescriptorBuilder) BuildDescriptor() entities.RepositoryDescriptor {
	return entities.RepositoryDescriptor{
		Repository:    entities.Repository{Owner: b.owner, Name: b.name},
		Role:          b.role,
		Dependencies:  append([]string(nil), b.dependencies...),
		DefaultBranch: b.defaultBranch,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *RepositoryDescriptorBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.owner = "acme"
	b.name = "api"
	b.role = entities.RoleStandard
	b.dependencies = nil
	b.defaultBranch = "main"
	return b
}

// Clone creates a deep copy of the RepositoryDescriptorBuilder.
func (b *RepositoryDescriptorBuilder) Clone() testkit.Builder {
	return &RepositoryDescriptorBuilder{
		BaseBuilder:   b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		owner:         b.owner,
		name:          b.name,
		role:          b.role,
		dependencies:  append([]string(nil), b.dependencies...),
		defaultBranch: b.defaultBranch,
	}
}
