package commands

import (
	"github.com/spf13/cobra"

	"github.com/pvefleet/pvefleet/cmd/pvefleet/handlers"
)

// Plan returns the command that previews the next reconciliation pass.
func Plan() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would do without changing anything",
		Long: `Preview the next reconciliation pass.

Plan renders every ordinal's boot config, compares its fingerprint to
the running instances, and prints the resulting actions: create,
replace, noop, or destroy. Nothing is mutated; the node is only read.

Examples:
  pvefleet plan
  pvefleet plan -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to fleet file (default: pvefleet.yaml)")

	return cmd
}
