package commands

import (
	"github.com/spf13/cobra"

	"github.com/pvefleet/pvefleet/cmd/pvefleet/handlers"
)

// Init returns the command that creates a fleet file interactively.
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a fleet file with an interactive wizard",
		Long: `Create a fleet configuration interactively.

The wizard asks for the node connection, one instance group, and the
SSH credential used to publish boot configs, then writes the fleet
file together with a starter Butane template.

Example:
  pvefleet init
  pvefleet init -o staging.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "pvefleet.yaml", "Path of the fleet file to write")

	return cmd
}
