package commands

import (
	"github.com/spf13/cobra"

	"github.com/pvefleet/pvefleet/cmd/pvefleet/handlers"
)

// Destroy returns the destroy command.
//
// Destroy removes every fleet-tagged instance on the node. Boot config
// artifacts are kept unless --purge-artifacts is given.
func Destroy() *cobra.Command {
	var (
		configPath     string
		purgeArtifacts bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy every instance of the fleet",
		Long: `Destroy removes all fleet instances from the node.

Only guests carrying the fleet marker tag are touched; templates and
unmanaged VMs are never deleted. Artifacts published for the fleet stay
on the node unless --purge-artifacts is set.

Example:
  pvefleet destroy -c pvefleet.yaml --purge-artifacts

WARNING: This operation is irreversible. Instance disks are deleted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, purgeArtifacts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to fleet file (required)")
	cmd.Flags().BoolVar(&purgeArtifacts, "purge-artifacts", false, "Also remove the fleet's boot config artifacts")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
