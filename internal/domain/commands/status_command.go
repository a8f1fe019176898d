package commands

import (
	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// GetStatus is the interface for the status tracker.
type GetStatus interface {
	Execute() StatusReport
}

// StatusReport is a point-in-time view of one engine instance.
type StatusReport struct {
	Repositories   []entities.RepositoryDescriptor
	Metrics        entities.MetricsSnapshot
	Releases       []entities.ReleaseTaskSnapshot
	ActiveReleases int
}

// StatusCommand reads the registry, the counters and the release history.
type StatusCommand struct {
	registry repositories.RegistryRepository
	metrics  *entities.Metrics
	releases OrchestrateRelease
}

// NewStatusCommand creates a new StatusCommand.
func NewStatusCommand(
	registry repositories.RegistryRepository,
	metrics *entities.Metrics,
	releases OrchestrateRelease,
) *StatusCommand {
	return &StatusCommand{registry: registry, metrics: metrics, releases: releases}
}

// Execute returns the current status.
func (it *StatusCommand) Execute() StatusReport {
	report := StatusReport{
		Repositories: it.registry.All(),
		Metrics:      it.metrics.Snapshot(),
	}
	for _, task := range it.releases.Tasks() {
		snapshot := task.Snapshot()
		if snapshot.Status == entities.ReleaseInProgress {
			report.ActiveReleases++
		}
		report.Releases = append(report.Releases, snapshot)
	}
	return report
}
