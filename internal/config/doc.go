// Package config defines the fleet specification file and its loading,
// defaulting, and validation rules.
//
// A fleet file (pvefleet.yaml) declares the Proxmox VE connection, an
// optional artifact mirror, and one or more instance groups. Each group
// describes a contiguous VMID range of identical immutable instances:
// clone source, resource shape, network and disk topology, tags, and
// the Butane boot-config template with its parameters and overlays.
//
// Operation timeouts are deliberately not part of the file; they come
// from PVEFLEET_* environment variables via LoadTimeouts, so the same
// fleet file works across environments with different latencies.
package config
