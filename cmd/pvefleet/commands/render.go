package commands

import (
	"github.com/spf13/cobra"

	"github.com/pvefleet/pvefleet/cmd/pvefleet/handlers"
)

// Render returns the command that prints rendered boot configs.
//
// Render runs the template pipeline exactly as apply would and writes
// the resulting Ignition artifacts to stdout, one per ordinal, with
// the fingerprint each instance would carry. It is the debugging aid
// for template work: what render prints is byte for byte what the
// instance boots from.
func Render() *cobra.Command {
	var (
		configPath string
		group      string
		ordinal    int
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render boot config artifacts without touching the node",
		Long: `Render each ordinal's boot config artifact to stdout.

Examples:
  # Render every ordinal of every group
  pvefleet render

  # Render one group
  pvefleet render --group web

  # Render a single ordinal
  pvefleet render --group web --ordinal 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Render(cmd.Context(), configPath, group, ordinal)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to fleet file (default: pvefleet.yaml)")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Render only this group")
	cmd.Flags().IntVarP(&ordinal, "ordinal", "o", -1, "Render only this ordinal (requires --group)")

	return cmd
}
