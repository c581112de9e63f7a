package reconcile

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/platform/proxmox"
)

// desiredTags returns the group's tag set plus the fleet marker,
// normalized. The marker is how the reconciler recognizes its own VMs.
func desiredTags(g *config.Group) []string {
	tags := make([]string, 0, len(g.Tags)+1)
	tags = append(tags, g.Tags...)
	tags = append(tags, config.MarkerTag)
	return config.NormalizeTags(tags)
}

// vmOptions builds the config options applied to a freshly cloned
// instance. The fingerprint lands in the smbios1 serial slot, the
// replacement key every later pass compares against; the artifact path
// is wired to the guest through a fw_cfg arg.
func vmOptions(g *config.Group, fingerprintHex, artifactPath string) map[string]string {
	opts := map[string]string{
		"cores":   strconv.Itoa(g.Cores),
		"sockets": "1",
		"memory":  strconv.Itoa(g.MemoryMB),
		"cpu":     g.CPU,
		"tags":    proxmox.TagsValue(desiredTags(g)),
		"smbios1": proxmox.SMBIOS1(uuid.NewString(), fingerprintHex),
		"args":    proxmox.FwCfgArgs(artifactPath),
		"agent":   "1",
		"onboot":  "1",
	}
	for i, n := range g.Networks {
		opts["net"+strconv.Itoa(i)] = proxmox.NetDevice(n)
	}
	for _, d := range g.Disks {
		opts[d.Slot] = proxmox.DiskVolume(d)
	}
	return opts
}
