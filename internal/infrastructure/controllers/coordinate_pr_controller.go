package controllers

import (
	"context"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
)

// CoordinatePRController handles the "coordinate-pr" subcommand.
type CoordinatePRController struct {
	command   commands.Coordinate
	workspace commands.PrepareWorkspace
}

// NewCoordinatePRController creates a new CoordinatePRController.
func NewCoordinatePRController(
	command commands.Coordinate,
	workspace commands.PrepareWorkspace,
) *CoordinatePRController {
	return &CoordinatePRController{command: command, workspace: workspace}
}

// GetBind returns the Cobra command metadata for the coordinate-pr controller.
func (it *CoordinatePRController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "coordinate-pr",
		Short: "Open related pull requests in every configured repository",
		Long: `Open one pull request per repository from the same head branch, in
dependency order, and link them to each other with a comment.

A head of another name in one repository is given as --branch owner/name=head.
A failure in a critical repository closes the pull requests opened so far.`,
	}
}

// Execute runs the coordinated pull request creation.
func (it *CoordinatePRController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	head, _ := cmd.Flags().GetString("head")
	overrides, _ := cmd.Flags().GetStringSlice("branch")
	base, _ := cmd.Flags().GetString("base")
	title, _ := cmd.Flags().GetString("title")
	body, _ := cmd.Flags().GetString("body")
	draft, _ := cmd.Flags().GetBool("draft")
	labels, _ := cmd.Flags().GetStringSlice("labels")
	crossLink, _ := cmd.Flags().GetBool("cross-link")
	repos, _ := cmd.Flags().GetStringSlice("repos")

	branches, err := parseBranchOverrides(overrides)
	if err != nil {
		logger.Errorf("Coordinated pull request creation failed: %v", err)
		return
	}

	workspace, err := openWorkspace(ctx, cmd, it.workspace, true)
	if err != nil {
		logger.Errorf("Coordinated pull request creation failed: %v", err)
		return
	}

	report, err := it.command.CreatePullRequests(ctx, workspace.Gateway, commands.CoordinatedPullRequestSpec{
		Head:      head,
		Branches:  branches,
		Base:      base,
		Title:     title,
		Body:      body,
		Draft:     draft,
		Labels:    labels,
		CrossLink: crossLink,
	}, coordinationOptions(cmd, workspace, repos))
	logReport(report)
	if err != nil {
		logCoordinationError("Coordinated pull request creation failed", err)
	}
}

// AddFlags adds the coordinate-pr flags to the given Cobra command.
func (it *CoordinatePRController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("head", "", "Head branch of every pull request")
	cmd.Flags().StringSlice("branch", nil, "Per-repository head, as owner/name=branch")
	cmd.Flags().String("base", "", "Base branch (default: each repository default branch)")
	cmd.Flags().String("title", "", "Pull request title")
	cmd.Flags().String("body", "", "Pull request body")
	cmd.Flags().Bool("draft", false, "Open draft pull requests")
	cmd.Flags().StringSlice("labels", nil, "Labels added to every pull request")
	cmd.Flags().Bool("cross-link", true, "Comment every pull request with its siblings")
	addCoordinationFlags(cmd)
}

func parseBranchOverrides(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	branches := make(map[string]string, len(values))
	for _, value := range values {
		repo, branch, ok := strings.Cut(value, "=")
		if !ok || repo == "" || branch == "" {
			return nil, entities.NewValidationError("branch override %q is not owner/name=branch", value)
		}
		if _, err := entities.ParseRepository(repo); err != nil {
			return nil, err
		}
		branches[repo] = branch
	}
	return branches, nil
}
