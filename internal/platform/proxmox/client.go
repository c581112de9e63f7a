package proxmox

import (
	"context"
)

// VMLister enumerates guests across the cluster.
type VMLister interface {
	// ListVMs returns every qemu guest visible to the API token,
	// including templates.
	ListVMs(ctx context.Context) ([]VMResource, error)
}

// VMReader reads one guest's configuration.
type VMReader interface {
	GetVMConfig(ctx context.Context, node string, vmid int) (VMConfig, error)
}

// VMWriter creates, reconfigures, and destroys guests.
type VMWriter interface {
	// CloneVM linked-clones the source template into a new guest with
	// the given VMID and name, waiting for the clone task to finish.
	CloneVM(ctx context.Context, node string, source, target int, name string) error

	// SetVMConfig applies configuration options to a guest. Options
	// that allocate resources spawn a task, which is awaited.
	SetVMConfig(ctx context.Context, node string, vmid int, options map[string]string) error

	// DeleteVM destroys a guest and its owned disks.
	DeleteVM(ctx context.Context, node string, vmid int) error
}

// VMPower starts and stops guests.
type VMPower interface {
	StartVM(ctx context.Context, node string, vmid int) error
	StopVM(ctx context.Context, node string, vmid int) error
}

// AgentProber checks guest agent liveness.
type AgentProber interface {
	// PingAgent errors until the guest agent inside the VM answers.
	PingAgent(ctx context.Context, node string, vmid int) error
}

// StorageReader resolves storage metadata.
type StorageReader interface {
	// GetStoragePath returns the filesystem path of a directory-backed
	// storage. Errors for storages without a path.
	GetStoragePath(ctx context.Context, storage string) (string, error)
}

// Provider combines every platform concern the reconciler needs.
type Provider interface {
	VMLister
	VMReader
	VMWriter
	VMPower
	AgentProber
	StorageReader
}
