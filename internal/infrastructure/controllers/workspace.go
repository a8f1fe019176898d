package controllers

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
)

// loadSettings reads the file named by --config, then the first file found by
// FindConfigFile. Without any file the defaults apply.
func loadSettings(cmd *cobra.Command) (*entities.Settings, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		found, err := entities.FindConfigFile()
		if err != nil {
			logger.Debugf("No config file found, using defaults: %v", err)
			return entities.DefaultSettings(), nil
		}
		configPath = found
	}

	logger.Infof("Using config file: %s", configPath)
	settings, err := entities.NewSettings(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return settings, nil
}

// openWorkspace loads the settings and prepares the gateway of the call.
func openWorkspace(
	ctx context.Context,
	cmd *cobra.Command,
	workspace commands.PrepareWorkspace,
	register bool,
) (*commands.Workspace, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	token, _ := cmd.Flags().GetString("token")
	return workspace.Execute(ctx, settings, commands.WorkspaceOptions{Token: token, Register: register})
}

// logReport prints the per-repository outcome of a coordinated operation.
func logReport(report *entities.CoordinatedOperationReport) {
	if report == nil {
		return
	}

	logger.Infof("Operation %s (%s) over %s", report.Operation, report.ID, strings.Join(report.Order, ", "))
	for _, outcome := range report.Created {
		switch {
		case outcome.URL != "":
			logger.Infof("  created  %s: %s", outcome.Repository, outcome.URL)
		case outcome.Ref != "":
			logger.Infof("  created  %s: %s", outcome.Repository, outcome.Ref)
		default:
			logger.Infof("  created  %s", outcome.Repository)
		}
	}
	for _, outcome := range report.Skipped {
		logger.Infof("  skipped  %s: %s", outcome.Repository, outcome.Reason)
	}
	for _, outcome := range report.Failed {
		logger.Errorf("  failed   %s: %v", outcome.Repository, outcome.Err)
	}
	logRollback(report.Rollback)
	logger.Infof(
		"%d created, %d skipped, %d failed",
		len(report.Created), len(report.Skipped), len(report.Failed),
	)
}

func logRollback(summary *entities.RollbackSummary) {
	if summary == nil {
		return
	}
	for _, item := range summary.Items {
		if item.Err != nil {
			logger.Errorf("  rollback %s %s: %s (%v)", item.Repository, item.Action, item.Status, item.Err)
			continue
		}
		logger.Warnf("  rollback %s %s: %s", item.Repository, item.Action, item.Status)
	}
}

// repositoryArg returns the first positional argument, "." when absent.
func repositoryArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
