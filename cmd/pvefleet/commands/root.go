// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated
// to handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the pvefleet CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pvefleet",
		Short: "Run fleets of immutable VMs on Proxmox VE",
	}

	cmd.AddCommand(Init())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Render())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
