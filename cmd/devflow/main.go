package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/devflow/internal"
)

// flagBinder is implemented by controllers that own subcommand flags.
type flagBinder interface {
	AddFlags(cmd *cobra.Command)
}

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "devflow",
		Short: "Issue-driven branch, pull request and release automation",
		Long: `Coordinate branches, pull requests and releases across one or many GitHub
repositories.

Usage modes:
  devflow issue . -n 42              Branch (and pull request) for one issue
  devflow coordinate-branch --name x Same branch in every configured repository
  devflow release --bump minor       Release the configured repositories together
  devflow sync --watch               Keep files, branches or tags in sync`,
		PersistentPreRun: func(command *cobra.Command, _ []string) {
			if verbose, _ := command.Flags().GetBool("verbose"); verbose {
				logger.SetLevel(logger.DebugLevel)
			}
		},
	}

	// Global persistent flags
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to config file (default: auto-detect)")
	cmd.PersistentFlags().String("token", "",
		"Auth token for the hosting service (overrides env var detection)")
	cmd.PersistentFlags().BoolP("verbose", "v", false,
		"Enable verbose output")

	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppInternal) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		ctrl := controller
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Run: func(command *cobra.Command, arguments []string) {
				ctrl.Execute(command, arguments)
			},
		}

		if binder, ok := ctrl.(flagBinder); ok {
			binder.AddFlags(subCmd)
		}

		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	cobraRoot := buildRootCommand()

	// Add all subcommands
	appContext := injectAppContext()
	addSubcommands(cobraRoot, appContext)

	if err := cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'devflow': %s", err)
	}
}
