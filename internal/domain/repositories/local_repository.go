package repositories

import "github.com/rios0rios0/devflow/internal/domain/entities"

// LocalRepository resolves hosting coordinates from a local clone.
type LocalRepository interface {
	// Locate returns the repository behind the "origin" remote of the clone at dir.
	Locate(dir string) (entities.Repository, error)

	// CurrentBranch returns the branch checked out in the clone at dir.
	CurrentBranch(dir string) (string, error)
}
