package config

import (
	"slices"
	"strings"
)

const (
	// MarkerTag is attached to every instance the reconciler manages.
	// Scale-down and destroy only ever touch VMs carrying it.
	MarkerTag = "pvefleet"

	// DefaultFileName is the fleet file looked up when no --config flag
	// is given.
	DefaultFileName = "pvefleet.yaml"

	// DefaultIgnitionVersion is used for the overlay merge wrapper when
	// a group does not pin one.
	DefaultIgnitionVersion = "3.4.0"

	// MinVMID is the smallest VMID Proxmox VE allows for user guests;
	// lower ids are reserved for the platform.
	MinVMID = 100
)

// Config is the root of a fleet specification file.
type Config struct {
	// Fleet is the fleet name, used for tagging, metrics labels, and
	// mirror key prefixes. Must be DNS-safe.
	Fleet string `yaml:"fleet"`

	// Connection describes the Proxmox VE API endpoint and the SSH
	// channel used to publish snippets onto the node.
	Connection Connection `yaml:"connection"`

	// Mirror optionally copies every published artifact into an
	// S3-compatible bucket for audit and recovery. Mirror failures are
	// warnings; the node snippet store stays authoritative.
	Mirror *Mirror `yaml:"mirror,omitempty"`

	// Metrics optionally pushes pass metrics to a Prometheus
	// Pushgateway after each reconciliation.
	Metrics *Metrics `yaml:"metrics,omitempty"`

	// Groups are the instance groups to reconcile.
	Groups []Group `yaml:"groups"`
}

// Connection holds everything needed to reach one Proxmox VE node.
//
// The API token is intentionally not part of the file; it comes from
// the PVE_API_TOKEN environment variable.
type Connection struct {
	// Endpoint is the API base URL, e.g. "https://pve.example.com:8006".
	Endpoint string `yaml:"endpoint"`

	// Node is the node name instances are placed on.
	Node string `yaml:"node"`

	// InsecureSkipVerify disables TLS verification for the API client.
	// Proxmox ships with a self-signed certificate by default.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty"`

	// SSH configures the channel used to write snippet files onto the
	// node's storage.
	SSH SSH `yaml:"ssh"`
}

// SSH holds the node shell connection settings for snippet publication.
type SSH struct {
	User    string `yaml:"user"`
	Port    int    `yaml:"port,omitempty"`
	KeyFile string `yaml:"key_file"`
}

// Mirror is an S3-compatible bucket receiving artifact copies.
// Credentials come from PVEFLEET_S3_ACCESS_KEY / PVEFLEET_S3_SECRET_KEY.
type Mirror struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
}

// Metrics holds the optional Pushgateway target.
type Metrics struct {
	Pushgateway string `yaml:"pushgateway"`
}

// Group declares one contiguous range of identical immutable instances.
type Group struct {
	// Name is the base instance name. A group of one uses it verbatim;
	// larger groups append "-1", "-2", ...
	Name string `yaml:"name"`

	// BaseID is the VMID of ordinal 0; ordinal i gets BaseID+i.
	BaseID int `yaml:"base_id"`

	// Count is the number of instances; defaults to 1.
	Count int `yaml:"count,omitempty"`

	// CloneFrom is the VMID of the template every instance is linked-
	// cloned from.
	CloneFrom int `yaml:"clone_from"`

	// Resource shape. Sockets are fixed at 1.
	Cores    int    `yaml:"cores,omitempty"`
	MemoryMB int    `yaml:"memory_mb,omitempty"`
	CPU      string `yaml:"cpu,omitempty"`

	// SnippetStorage is the storage holding the snippet directory the
	// boot artifact is published to; defaults to "local".
	SnippetStorage string `yaml:"snippet_storage,omitempty"`

	// Networks are the instance's interfaces, in slot order (net0...).
	Networks []Network `yaml:"networks"`

	// Disks are additional disks beyond those inherited from the clone
	// source. Inherited disks are never reconciled.
	Disks []Disk `yaml:"disks,omitempty"`

	// Tags is the instance tag set. Order does not matter; tags are
	// normalized (sorted, deduplicated) at load.
	Tags []string `yaml:"tags,omitempty"`

	// BootConfig is the Butane template pipeline producing the
	// instance's Ignition artifact.
	BootConfig BootConfig `yaml:"boot_config"`
}

// Network describes one virtual interface.
type Network struct {
	// Bridge is the host bridge the interface attaches to, e.g. "vmbr0".
	Bridge string `yaml:"bridge"`

	// VLAN is the optional 802.1q tag; zero means untagged.
	VLAN int `yaml:"vlan,omitempty"`

	// MTU is the optional interface MTU; zero keeps the bridge default.
	MTU int `yaml:"mtu,omitempty"`
}

// Disk describes one disk slot managed in addition to the clone source's
// own disks.
type Disk struct {
	// Slot is the bus-qualified slot name, e.g. "scsi1" or "virtio2".
	Slot string `yaml:"slot"`

	// Storage and SizeGB allocate a fresh volume on create.
	Storage string `yaml:"storage,omitempty"`
	SizeGB  int    `yaml:"size_gb,omitempty"`

	// Format is the optional image format (raw, qcow2).
	Format string `yaml:"format,omitempty"`

	// Volume attaches an existing volume verbatim instead of allocating
	// one; mutually exclusive with Storage/SizeGB.
	Volume string `yaml:"volume,omitempty"`
}

// BootConfig is the per-group template pipeline definition.
type BootConfig struct {
	// Template is the path of the primary Butane template.
	Template string `yaml:"template"`

	// IgnitionVersion selects the Ignition version of the overlay merge
	// wrapper; defaults to DefaultIgnitionVersion.
	IgnitionVersion string `yaml:"ignition_version,omitempty"`

	// Params are user parameters passed to every template of the group,
	// in addition to the always-present instance parameters.
	Params map[string]string `yaml:"params,omitempty"`

	// Overlays are paths of overlay templates merged after the primary,
	// in list order; later overlays override earlier ones.
	Overlays []string `yaml:"overlays,omitempty"`
}

// GroupByName returns the named group, or nil if absent.
func (c *Config) GroupByName(name string) *Group {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			return &c.Groups[i]
		}
	}
	return nil
}

// VMIDs returns the VMIDs of all ordinals of the group, in order.
func (g *Group) VMIDs() []int {
	ids := make([]int, g.Count)
	for i := range ids {
		ids[i] = g.BaseID + i
	}
	return ids
}

// NormalizeTags returns the tag set sorted and deduplicated, with empty
// entries dropped. Tag comparison anywhere in the system happens on
// normalized sets, because the platform itself reorders tags.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
