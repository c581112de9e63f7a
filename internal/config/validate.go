package config

import (
	"fmt"
	"net/url"
	"regexp"
)

// MaxVMID is the largest VMID Proxmox VE accepts.
const MaxVMID = 999999999

var (
	// namePattern matches DNS-safe instance names. Ordinal suffixes are
	// appended with "-", so the base name must already be DNS-safe.
	namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

	// slotPattern matches bus-qualified disk slot names.
	slotPattern = regexp.MustCompile(`^(scsi|virtio|sata|ide)\d+$`)

	// tagPattern matches the tag charset Proxmox VE stores without
	// rewriting.
	tagPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)
)

// Validate checks the configuration and returns a detailed error on the
// first violation found.
func (c *Config) Validate() error {
	if c.Fleet == "" {
		return fmt.Errorf("fleet is required")
	}
	if !namePattern.MatchString(c.Fleet) {
		return fmt.Errorf("invalid fleet name %q: must be lowercase alphanumeric with hyphens", c.Fleet)
	}

	if err := c.validateConnection(); err != nil {
		return fmt.Errorf("connection validation failed: %w", err)
	}

	if err := c.validateGroups(); err != nil {
		return fmt.Errorf("group validation failed: %w", err)
	}

	if c.Mirror != nil {
		if c.Mirror.Endpoint == "" {
			return fmt.Errorf("mirror.endpoint is required when mirror is set")
		}
		if c.Mirror.Bucket == "" {
			return fmt.Errorf("mirror.bucket is required when mirror is set")
		}
	}

	return nil
}

// validateConnection validates the API endpoint and SSH channel settings.
func (c *Config) validateConnection() error {
	if c.Connection.Endpoint == "" {
		return fmt.Errorf("connection.endpoint is required")
	}
	u, err := url.Parse(c.Connection.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid connection.endpoint: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("invalid connection.endpoint %q: scheme must be http or https", c.Connection.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid connection.endpoint %q: missing host", c.Connection.Endpoint)
	}

	if c.Connection.Node == "" {
		return fmt.Errorf("connection.node is required")
	}
	if c.Connection.SSH.User == "" {
		return fmt.Errorf("connection.ssh.user is required")
	}
	if c.Connection.SSH.KeyFile == "" {
		return fmt.Errorf("connection.ssh.key_file is required")
	}
	if c.Connection.SSH.Port < 1 || c.Connection.SSH.Port > 65535 {
		return fmt.Errorf("invalid connection.ssh.port %d", c.Connection.SSH.Port)
	}
	return nil
}

// validateGroups validates every group and checks that VMID ranges do
// not overlap across groups.
func (c *Config) validateGroups() error {
	if len(c.Groups) == 0 {
		return fmt.Errorf("at least one group is required")
	}

	seen := make(map[string]bool, len(c.Groups))
	for i := range c.Groups {
		g := &c.Groups[i]
		if g.Name == "" {
			return fmt.Errorf("group %d: name is required", i)
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate group name %q", g.Name)
		}
		seen[g.Name] = true

		if err := g.validate(); err != nil {
			return fmt.Errorf("group %s: %w", g.Name, err)
		}
	}

	// Ranges [base_id, base_id+count) must be disjoint so that one
	// group's ordinals can never claim another group's VMIDs.
	for i := range c.Groups {
		for j := i + 1; j < len(c.Groups); j++ {
			a, b := &c.Groups[i], &c.Groups[j]
			if a.BaseID < b.BaseID+b.Count && b.BaseID < a.BaseID+a.Count {
				return fmt.Errorf("groups %s and %s have overlapping VMID ranges", a.Name, b.Name)
			}
		}
	}
	return nil
}

func (g *Group) validate() error {
	if !namePattern.MatchString(g.Name) {
		return fmt.Errorf("invalid name %q: must be lowercase alphanumeric with hyphens", g.Name)
	}
	if g.BaseID < MinVMID {
		return fmt.Errorf("base_id must be at least %d, got %d", MinVMID, g.BaseID)
	}
	if g.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", g.Count)
	}
	if g.BaseID+g.Count-1 > MaxVMID {
		return fmt.Errorf("base_id %d + count %d exceeds the maximum VMID", g.BaseID, g.Count)
	}
	if g.CloneFrom < MinVMID {
		return fmt.Errorf("clone_from must be a template VMID of at least %d, got %d", MinVMID, g.CloneFrom)
	}
	if g.CloneFrom >= g.BaseID && g.CloneFrom < g.BaseID+g.Count {
		return fmt.Errorf("clone_from %d falls inside the group's own VMID range", g.CloneFrom)
	}
	if g.Cores < 1 {
		return fmt.Errorf("cores must be at least 1, got %d", g.Cores)
	}
	if g.MemoryMB < 16 {
		return fmt.Errorf("memory_mb must be at least 16, got %d", g.MemoryMB)
	}

	if len(g.Networks) == 0 {
		return fmt.Errorf("at least one network is required")
	}
	for i, n := range g.Networks {
		if n.Bridge == "" {
			return fmt.Errorf("network %d: bridge is required", i)
		}
		if n.VLAN < 0 || n.VLAN > 4094 {
			return fmt.Errorf("network %d: invalid vlan %d", i, n.VLAN)
		}
		if n.MTU != 0 && (n.MTU < 576 || n.MTU > 65520) {
			return fmt.Errorf("network %d: invalid mtu %d", i, n.MTU)
		}
	}

	slots := make(map[string]bool, len(g.Disks))
	for i, d := range g.Disks {
		if !slotPattern.MatchString(d.Slot) {
			return fmt.Errorf("disk %d: invalid slot %q", i, d.Slot)
		}
		if slots[d.Slot] {
			return fmt.Errorf("duplicate disk slot %q", d.Slot)
		}
		slots[d.Slot] = true

		if d.Volume != "" {
			if d.Storage != "" || d.SizeGB != 0 {
				return fmt.Errorf("disk %s: volume is mutually exclusive with storage/size_gb", d.Slot)
			}
		} else {
			if d.Storage == "" {
				return fmt.Errorf("disk %s: storage is required when no volume is given", d.Slot)
			}
			if d.SizeGB < 1 {
				return fmt.Errorf("disk %s: size_gb must be at least 1, got %d", d.Slot, d.SizeGB)
			}
		}
		switch d.Format {
		case "", "raw", "qcow2", "vmdk":
		default:
			return fmt.Errorf("disk %s: invalid format %q", d.Slot, d.Format)
		}
	}

	for _, t := range g.Tags {
		if !tagPattern.MatchString(t) {
			return fmt.Errorf("invalid tag %q", t)
		}
	}

	if g.BootConfig.Template == "" {
		return fmt.Errorf("boot_config.template is required")
	}
	if !versionPattern.MatchString(g.BootConfig.IgnitionVersion) {
		return fmt.Errorf("invalid boot_config.ignition_version %q", g.BootConfig.IgnitionVersion)
	}

	return nil
}

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
