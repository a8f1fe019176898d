package repositories

import (
	"context"

	"github.com/rios0rios0/devflow/internal/domain/entities"
)

// IssueRepository delivers the issues that drive branch automation.
type IssueRepository interface {
	GetIssue(ctx context.Context, repo entities.Repository, number int) (*entities.Issue, error)
}
