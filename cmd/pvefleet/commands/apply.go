package commands

import (
	"github.com/spf13/cobra"

	"github.com/pvefleet/pvefleet/cmd/pvefleet/handlers"
)

// Apply returns the command that reconciles the fleet.
//
// Optional flags:
//
//	--config, -c: Path to fleet configuration YAML file (default: auto-detect pvefleet.yaml)
//
// Environment variables:
//
//	PVE_API_TOKEN: Proxmox VE API token (required)
func Apply() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create, replace, or remove instances to match the fleet file",
		Long: `Reconcile the fleet against its declaration.

Each declared ordinal is compared to the cluster: missing instances are
created, instances whose boot config fingerprint changed are destroyed
and recreated, and fleet-tagged instances that fell out of every group's
range are removed. Instances are never modified in place.

The boot config artifact is published to the node before any instance
is created or replaced, so a publish failure leaves the platform
untouched.

If no config file is specified, pvefleet.yaml in the current directory
is used. Use 'pvefleet init' to create one.

Examples:
  # Reconcile using pvefleet.yaml in the current directory
  pvefleet apply

  # Reconcile a specific fleet file
  pvefleet apply -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to fleet file (default: pvefleet.yaml)")

	return cmd
}
