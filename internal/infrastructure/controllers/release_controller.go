package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
)

// ReleaseController handles the "release" subcommand.
type ReleaseController struct {
	command   commands.OrchestrateRelease
	workspace commands.PrepareWorkspace
}

// NewReleaseController creates a new ReleaseController.
func NewReleaseController(
	command commands.OrchestrateRelease,
	workspace commands.PrepareWorkspace,
) *ReleaseController {
	return &ReleaseController{command: command, workspace: workspace}
}

// GetBind returns the Cobra command metadata for the release controller.
func (it *ReleaseController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "release [version]",
		Short: "Release a version across the configured repositories",
		Long: `Run a release through its phases in every repository: pre-release checks,
release/{version} branch, version manifest and changelog update, v{version}
release, and back-merge reminders.

The version is given as an argument, or computed with --bump from the latest
tag of the first repository. When a phase fails, the releases published so
far are deleted; release branches are kept unless --delete-branches is set.`,
	}
}

// Execute runs the release orchestration.
func (it *ReleaseController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	bump, _ := cmd.Flags().GetString("bump")
	base, _ := cmd.Flags().GetString("base")
	manifest, _ := cmd.Flags().GetString("manifest")
	repos, _ := cmd.Flags().GetStringSlice("repos")
	notes, _ := cmd.Flags().GetString("notes")
	draft, _ := cmd.Flags().GetBool("draft")
	prerelease, _ := cmd.Flags().GetBool("prerelease")

	version := ""
	if len(args) > 0 {
		version = args[0]
	}

	workspace, err := openWorkspace(ctx, cmd, it.workspace, true)
	if err != nil {
		logger.Errorf("Release failed: %v", err)
		return
	}

	settings := workspace.Settings.Release
	if base == "" {
		base = settings.BaseBranch
	}
	if manifest == "" {
		manifest = settings.Manifest
	}
	rollback := settings.RollbackPolicy()
	if cmd.Flags().Changed("delete-branches") {
		rollback.DeleteBranches, _ = cmd.Flags().GetBool("delete-branches")
	}
	if cmd.Flags().Changed("delete-releases") {
		rollback.DeleteReleases, _ = cmd.Flags().GetBool("delete-releases")
	}

	task, err := it.command.Execute(ctx, workspace.Gateway, entities.ReleaseConfig{
		Version:      version,
		Bump:         bump,
		BaseBranch:   base,
		Manifest:     manifest,
		Repositories: repos,
		Notes:        notes,
		Draft:        draft,
		Prerelease:   prerelease,
		Rollback:     rollback,
	})
	if task != nil {
		logReleaseTask(task)
	}
	if err != nil {
		logger.Errorf("Release failed: %v", err)
	}
}

// AddFlags adds the release-specific flags to the given Cobra command.
func (it *ReleaseController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("bump", "", "Compute the version from the latest tag (major, minor, patch)")
	cmd.Flags().String("base", "", "Branch the release branches start from (default: from the config)")
	cmd.Flags().String("manifest", "", "Version manifest path (default: from the config)")
	cmd.Flags().StringSlice("repos", nil, "Only these repositories (default: every configured one)")
	cmd.Flags().String("notes", "", "Release notes")
	cmd.Flags().Bool("draft", false, "Publish draft releases")
	cmd.Flags().Bool("prerelease", false, "Mark the releases as pre-releases")
	cmd.Flags().Bool("delete-branches", false, "Delete the release branches on rollback")
	cmd.Flags().Bool("delete-releases", true, "Delete the published releases on rollback")
}

func logReleaseTask(task *entities.ReleaseTask) {
	logger.Infof("Release %s (%s): %s at %s", task.Version, task.ID, task.Status, task.Phase)
	for _, warning := range task.Warnings {
		logger.Warnf("  %s", warning)
	}
	for _, entry := range task.Repositories {
		logger.Infof(
			"  %s: branch %s, version %s, release %s %s",
			entry.Repository, entry.BranchStatus, entry.VersionStatus, entry.ReleaseStatus, entry.ReleaseURL,
		)
	}
	for _, reminder := range task.Reminders {
		logger.Infof("  reminder: %s", reminder)
	}
	logRollback(task.Rollback)
}
