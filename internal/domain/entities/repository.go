package entities

import (
	"fmt"
	"strings"
	"time"
)

// RepositoryRole classifies how a repository's failure affects a coordinated operation.
type RepositoryRole string

const (
	// RoleCritical aborts and rolls back the whole batch when the repository fails.
	RoleCritical RepositoryRole = "critical"
	// RoleStandard only records the failure and lets the batch continue.
	RoleStandard RepositoryRole = "standard"
)

// Repository identifies a repository on the hosting service.
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository parses an "owner/name" identifier.
func ParseRepository(id string) (Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(id), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, NewValidationError("repository identifier %q must be in owner/name form", id)
	}
	return Repository{Owner: owner, Name: strings.TrimSuffix(name, ".git")}, nil
}

// FullName returns the "owner/name" identifier.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r Repository) String() string { return r.FullName() }

// RepositoryDescriptor is a repository registered with the coordination engine.
// Dependencies are fixed at registration time.
type RepositoryDescriptor struct {
	Repository    Repository
	Role          RepositoryRole
	Dependencies  []string
	DefaultBranch string
	RegisteredAt  time.Time
}

// ID returns the unique "owner/name" key of the descriptor.
func (d RepositoryDescriptor) ID() string {
	return d.Repository.FullName()
}

// IsCritical reports whether a failure in this repository aborts a coordinated batch.
func (d RepositoryDescriptor) IsCritical() bool {
	return d.Role == RoleCritical
}

// Validate checks the descriptor before it is registered.
func (d RepositoryDescriptor) Validate() error {
	if d.Repository.Owner == "" || d.Repository.Name == "" {
		return NewValidationError("repository owner and name are required")
	}
	for _, dep := range d.Dependencies {
		if _, err := ParseRepository(dep); err != nil {
			return fmt.Errorf("dependency of %s: %w", d.ID(), err)
		}
		if dep == d.ID() {
			return NewValidationError("repository %s cannot depend on itself", d.ID())
		}
	}
	return nil
}

// RepositoryMetadata is what the hosting service reports about a repository.
type RepositoryMetadata struct {
	ID            int64
	FullName      string
	DefaultBranch string
	Private       bool
	URL           string
}
