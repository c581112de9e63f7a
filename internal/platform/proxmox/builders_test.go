package proxmox

import (
	"testing"

	"github.com/pvefleet/pvefleet/internal/config"
)

func TestNetDevice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		network config.Network
		want    string
	}{
		{
			name:    "bridge only",
			network: config.Network{Bridge: "vmbr0"},
			want:    "virtio,bridge=vmbr0",
		},
		{
			name:    "bridge with vlan",
			network: config.Network{Bridge: "vmbr0", VLAN: 109},
			want:    "virtio,bridge=vmbr0,tag=109",
		},
		{
			name:    "bridge with vlan and mtu",
			network: config.Network{Bridge: "vmbr1", VLAN: 20, MTU: 9000},
			want:    "virtio,bridge=vmbr1,tag=20,mtu=9000",
		},
		{
			name:    "mtu without vlan",
			network: config.Network{Bridge: "vmbr0", MTU: 1400},
			want:    "virtio,bridge=vmbr0,mtu=1400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NetDevice(tt.network); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDiskVolume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		disk config.Disk
		want string
	}{
		{
			name: "fresh volume",
			disk: config.Disk{Storage: "local-lvm", SizeGB: 30},
			want: "local-lvm:30",
		},
		{
			name: "fresh volume with format",
			disk: config.Disk{Storage: "local", SizeGB: 10, Format: "qcow2"},
			want: "local:10,format=qcow2",
		},
		{
			name: "explicit volume wins",
			disk: config.Disk{Volume: "local-lvm:vm-201-disk-1", Storage: "local", SizeGB: 10},
			want: "local-lvm:vm-201-disk-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DiskVolume(tt.disk); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTagsValue(t *testing.T) {
	t.Parallel()

	// Declaration order and duplicates must not leak into the platform
	// value, or every reconcile would see tag drift.
	if got := TagsValue([]string{"web", "pvefleet", "web"}); got != "pvefleet;web" {
		t.Errorf("expected pvefleet;web, got %q", got)
	}
	if got := TagsValue(nil); got != "" {
		t.Errorf("expected empty value for no tags, got %q", got)
	}
}

func TestSMBIOS1(t *testing.T) {
	t.Parallel()

	got := SMBIOS1("9f3c1a2e-7b44-4e88-9cfa-0a6a1a2b3c4d", "deadbeefcafe")
	want := "uuid=9f3c1a2e-7b44-4e88-9cfa-0a6a1a2b3c4d,serial=deadbeefcafe"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFwCfgArgs(t *testing.T) {
	t.Parallel()

	got := FwCfgArgs("/var/lib/vz/snippets/201.ign")
	want := "-fw_cfg name=opt/com.coreos/config,file=/var/lib/vz/snippets/201.ign"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// QEMU reads ",," as a literal comma inside option values.
	got = FwCfgArgs("/mnt/pve,dir/snippets/201.ign")
	want = "-fw_cfg name=opt/com.coreos/config,file=/mnt/pve,,dir/snippets/201.ign"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
