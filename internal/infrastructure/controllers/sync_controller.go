package controllers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
)

const metricsShutdownTimeout = 5 * time.Second

// SyncController handles the "sync" subcommand, once or on a schedule.
type SyncController struct {
	command   commands.Synchronize
	autoSync  commands.AutoSync
	workspace commands.PrepareWorkspace
	metrics   *entities.Metrics
}

// NewSyncController creates a new SyncController.
func NewSyncController(
	command commands.Synchronize,
	autoSync commands.AutoSync,
	workspace commands.PrepareWorkspace,
	metrics *entities.Metrics,
) *SyncController {
	return &SyncController{command: command, autoSync: autoSync, workspace: workspace, metrics: metrics}
}

// GetBind returns the Cobra command metadata for the sync controller.
func (it *SyncController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "sync",
		Short: "Synchronise files, branches or tags across repositories",
		Long: `Copy files from a source repository to the targets (--type files), make
sure branches exist in every target (--type branches), or mirror the tags of
the source repository (--type tags).

With --watch the synchronisation runs on a timer per target repository until
interrupted, and --metrics-addr exposes the counters for scraping.`,
	}
}

// Execute runs one synchronisation, or the scheduler in watch mode.
func (it *SyncController) Execute(cmd *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncType, _ := cmd.Flags().GetString("type")
	source, _ := cmd.Flags().GetString("source")
	targets, _ := cmd.Flags().GetStringSlice("targets")
	files, _ := cmd.Flags().GetStringSlice("files")
	branches, _ := cmd.Flags().GetStringSlice("branches")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	ref, _ := cmd.Flags().GetString("ref")
	message, _ := cmd.Flags().GetString("message")
	continueOnError, _ := cmd.Flags().GetBool("continue-on-error")
	watch, _ := cmd.Flags().GetBool("watch")

	workspace, err := openWorkspace(ctx, cmd, it.workspace, true)
	if err != nil {
		logger.Errorf("Sync failed: %v", err)
		return
	}

	config := entities.SyncConfig{
		Type:            entities.SyncType(syncType),
		Source:          source,
		Targets:         targets,
		Files:           files,
		Branches:        branches,
		Tags:            tags,
		SourceRef:       ref,
		CommitMessage:   message,
		ContinueOnError: continueOnError,
	}

	if !watch {
		report, syncErr := it.command.Execute(ctx, workspace.Gateway, config)
		logReport(report)
		if syncErr != nil {
			logger.Errorf("Sync failed: %v", syncErr)
		}
		return
	}

	it.watch(ctx, cmd, workspace, config)
}

// AddFlags adds the sync-specific flags to the given Cobra command.
func (it *SyncController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", string(entities.SyncFiles), "What to synchronise (files, branches, tags)")
	cmd.Flags().String("source", "", "Source repository (owner/name)")
	cmd.Flags().StringSlice("targets", nil, "Target repositories (default: every configured one but the source)")
	cmd.Flags().StringSlice("files", nil, "Files to copy (files sync)")
	cmd.Flags().StringSlice("branches", nil, "Branches to create (branches sync)")
	cmd.Flags().StringSlice("tags", nil, "Only these source tags (tags sync)")
	cmd.Flags().String("ref", "", "Source ref to read files from (default: the source default branch)")
	cmd.Flags().String("message", "", "Commit message of the file updates")
	cmd.Flags().Bool("continue-on-error", false, "Record critical failures instead of aborting")
	cmd.Flags().Bool("watch", false, "Keep synchronising on an interval until interrupted")
	cmd.Flags().Duration("interval", 0, "Interval between runs in watch mode (default: from the config)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address in watch mode")
}

func (it *SyncController) watch(
	ctx context.Context,
	cmd *cobra.Command,
	workspace *commands.Workspace,
	config entities.SyncConfig,
) {
	interval, _ := cmd.Flags().GetDuration("interval")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if interval <= 0 {
		interval = workspace.Settings.Sync.Interval
	}

	schedules := syncSchedules(workspace, config, interval)
	if len(schedules) == 0 {
		logger.Errorf("Sync failed: no target repository to watch")
		return
	}

	if metricsAddr != "" {
		server := it.serveMetrics(metricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	logger.Infof("Watching %d repositories every %s", len(schedules), interval)
	if err := it.autoSync.Execute(ctx, workspace.Gateway, schedules, commands.AutoSyncOptions{Immediate: true}); err != nil {
		logger.Errorf("Sync failed: %v", err)
		return
	}
	logger.Info("Sync stopped")
}

func (it *SyncController) serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(it.metrics.Registry(), promhttp.HandlerOpts{}))

	//nolint:exhaustruct // Minimal Server initialization with required fields only
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("Serving metrics on %s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
	return server
}

// syncSchedules gives every target its own schedule, so a slow repository
// never delays the others.
func syncSchedules(
	workspace *commands.Workspace,
	config entities.SyncConfig,
	interval time.Duration,
) []entities.SyncSchedule {
	targets := config.Targets
	if len(targets) == 0 {
		for _, descriptor := range workspace.Registered {
			if descriptor.ID() != config.Source {
				targets = append(targets, descriptor.ID())
			}
		}
	}

	schedules := make([]entities.SyncSchedule, 0, len(targets))
	for _, target := range targets {
		perTarget := config
		perTarget.Targets = []string{target}
		schedules = append(schedules, entities.SyncSchedule{
			Repository: target,
			Interval:   interval,
			Config:     perTarget,
		})
	}
	return schedules
}
