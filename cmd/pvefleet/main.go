// Package main is the entry point for the pvefleet CLI.
//
// pvefleet is a command-line tool for running fleets of immutable
// virtual machines on a Proxmox VE node. Instances boot Fedora CoreOS
// style Ignition configs rendered from Butane templates; configuration
// changes are rolled out by replacing instances, never by mutating
// them in place.
//
// Commands: init, plan, apply, render, destroy.
//
// For detailed usage information, run:
//
//	pvefleet --help
package main

import (
	"fmt"
	"os"

	"github.com/pvefleet/pvefleet/cmd/pvefleet/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
