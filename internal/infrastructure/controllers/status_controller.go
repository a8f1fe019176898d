package controllers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
)

// StatusController handles the "status" subcommand.
type StatusController struct {
	command   commands.GetStatus
	workspace commands.PrepareWorkspace
}

// NewStatusController creates a new StatusController.
func NewStatusController(command commands.GetStatus, workspace commands.PrepareWorkspace) *StatusController {
	return &StatusController{command: command, workspace: workspace}
}

// GetBind returns the Cobra command metadata for the status controller.
func (it *StatusController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "status",
		Short: "Show the registered repositories and the engine counters",
		Long: `Register the repositories declared in the config file and print them in
dependency order with their role, followed by the engine counters.`,
	}
}

// Execute prints the status report.
func (it *StatusController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	if _, err := openWorkspace(ctx, cmd, it.workspace, true); err != nil {
		logger.Errorf("Status failed: %v", err)
		return
	}

	report := it.command.Execute()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REPOSITORY\tROLE\tDEFAULT BRANCH\tDEPENDENCIES")
	for _, descriptor := range entities.OrderByDependencies(report.Repositories) {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			descriptor.ID(), descriptor.Role, descriptor.DefaultBranch, strings.Join(descriptor.Dependencies, ", "))
	}
	_ = w.Flush()

	metrics := report.Metrics
	fmt.Println()
	fmt.Printf("Branches created:        %d\n", metrics.BranchesCreated)
	fmt.Printf("Pull requests created:   %d\n", metrics.PullRequestsCreated)
	fmt.Printf("Conflicts detected:      %d\n", metrics.ConflictsDetected)
	fmt.Printf("Cross-repo operations:   %d\n", metrics.CrossRepoOperations)
	fmt.Printf("Releases created:        %d\n", metrics.ReleasesCreated)
	fmt.Printf("Rollbacks:               %d\n", metrics.Rollbacks)
	fmt.Printf("Active releases:         %d\n", report.ActiveReleases)
}
