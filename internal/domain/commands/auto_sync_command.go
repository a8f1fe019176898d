package commands

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// AutoSync is the interface for the periodic synchronisation scheduler.
type AutoSync interface {
	Execute(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		schedules []entities.SyncSchedule,
		opts AutoSyncOptions,
	) error
}

// AutoSyncOptions tunes the scheduler.
type AutoSyncOptions struct {
	Immediate bool // run every schedule once before waiting for the first interval
}

// AutoSyncCommand runs each schedule on its own timer. A timer is re-armed only
// after the previous run returns, so runs of one repository never overlap.
type AutoSyncCommand struct {
	synchronize Synchronize
}

// NewAutoSyncCommand creates a new AutoSyncCommand.
func NewAutoSyncCommand(synchronize Synchronize) *AutoSyncCommand {
	return &AutoSyncCommand{synchronize: synchronize}
}

// Execute blocks until ctx is canceled and every schedule loop has returned.
func (it *AutoSyncCommand) Execute(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	schedules []entities.SyncSchedule,
	opts AutoSyncOptions,
) error {
	seen := make(map[string]bool, len(schedules))
	for _, schedule := range schedules {
		if schedule.Repository == "" {
			return entities.NewValidationError("sync schedule requires a repository")
		}
		if seen[schedule.Repository] {
			return entities.NewValidationError("repository %s is scheduled twice", schedule.Repository)
		}
		seen[schedule.Repository] = true
		if schedule.Interval <= 0 {
			return entities.NewValidationError("sync interval of %s must be positive", schedule.Repository)
		}
		if err := schedule.Config.Validate(); err != nil {
			return err
		}
	}

	logger.Infof("[sync] Watching %d schedules", len(schedules))

	var wg sync.WaitGroup
	for _, schedule := range schedules {
		wg.Add(1)
		go func(schedule entities.SyncSchedule) {
			defer wg.Done()
			it.loop(ctx, gateway, schedule, opts.Immediate)
		}(schedule)
	}
	wg.Wait()

	logger.Infof("[sync] Scheduler stopped")
	return nil
}

func (it *AutoSyncCommand) loop(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	schedule entities.SyncSchedule,
	immediate bool,
) {
	if immediate {
		it.runOnce(ctx, gateway, schedule)
	}

	timer := time.NewTimer(schedule.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			it.runOnce(ctx, gateway, schedule)
			timer.Reset(schedule.Interval)
		}
	}
}

func (it *AutoSyncCommand) runOnce(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	schedule entities.SyncSchedule,
) {
	if ctx.Err() != nil {
		return
	}

	report, err := it.synchronize.Execute(ctx, gateway, schedule.Config)
	if err != nil {
		logger.Errorf("[sync] Scheduled %s sync of %s failed: %v", schedule.Config.Type, schedule.Repository, err)
		return
	}
	logger.Infof(
		"[sync] Scheduled %s sync of %s: %d created, %d skipped, %d failed",
		schedule.Config.Type, schedule.Repository, len(report.Created), len(report.Skipped), len(report.Failed),
	)
}
