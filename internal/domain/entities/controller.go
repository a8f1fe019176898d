package entities

import "github.com/spf13/cobra"

// ControllerBind is the Cobra command metadata exposed by a controller.
type ControllerBind struct {
	Use   string
	Short string
	Long  string
}

// Controller is a CLI entry point bound to one subcommand.
type Controller interface {
	GetBind() ControllerBind
	Execute(command *cobra.Command, arguments []string)
}
