package proxmox

import (
	"fmt"
	"strings"

	"github.com/pvefleet/pvefleet/internal/config"
)

// NetDevice renders the value for a netN config key. The model is
// always virtio; omitting a MAC lets the platform generate one.
func NetDevice(n config.Network) string {
	parts := []string{"virtio", "bridge=" + n.Bridge}
	if n.VLAN > 0 {
		parts = append(parts, fmt.Sprintf("tag=%d", n.VLAN))
	}
	if n.MTU > 0 {
		parts = append(parts, fmt.Sprintf("mtu=%d", n.MTU))
	}
	return strings.Join(parts, ",")
}

// DiskVolume renders the value for a disk slot key. An explicit volume
// attaches as-is; otherwise "<storage>:<sizeGB>" allocates a fresh
// volume.
func DiskVolume(d config.Disk) string {
	if d.Volume != "" {
		return d.Volume
	}
	v := fmt.Sprintf("%s:%d", d.Storage, d.SizeGB)
	if d.Format != "" {
		v += ",format=" + d.Format
	}
	return v
}

// TagsValue renders the platform tag value: sorted, deduplicated,
// ";"-joined. Tag sets compare equal regardless of declaration order.
func TagsValue(tags []string) string {
	return strings.Join(config.NormalizeTags(tags), ";")
}

// SMBIOS1 renders the smbios1 value carrying the config fingerprint in
// the serial slot. The value replaces the whole field, so the uuid must
// be supplied alongside.
func SMBIOS1(uuid, serial string) string {
	return fmt.Sprintf("uuid=%s,serial=%s", uuid, serial)
}

// FwCfgArgs renders the QEMU args value exposing the artifact over
// fw_cfg, where the guest's boot process reads it. Commas in the path
// are doubled: QEMU's option parser reads ",," as a literal comma.
func FwCfgArgs(path string) string {
	escaped := strings.ReplaceAll(path, ",", ",,")
	return fmt.Sprintf("-fw_cfg name=opt/com.coreos/config,file=%s", escaped)
}
