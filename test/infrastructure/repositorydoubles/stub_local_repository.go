//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// StubLocalRepository implements repositories.LocalRepository with fixed answers.
type StubLocalRepository struct {
	Repository entities.Repository
	Branch     string
	Err        error

	// spy: directories that were located
	LocatedDirs []string
}

var _ repositories.LocalRepository = (*StubLocalRepository)(nil)

func (s *StubLocalRepository) Locate(dir string) (entities.Repository, error) {
	s.LocatedDirs = append(s.LocatedDirs, dir)
	if s.Err != nil {
		return entities.Repository{}, s.Err
	}
	return s.Repository, nil
}

func (s *StubLocalRepository) CurrentBranch(_ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Branch, nil
}
