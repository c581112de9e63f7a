package snippet

import (
	"context"
	"fmt"
)

// Store is an id-addressed artifact store.
type Store interface {
	// Publish creates or overwrites the artifact for a VMID. The data
	// reaches the store byte for byte, with no re-encoding.
	Publish(ctx context.Context, vmid int, data []byte) error

	// Read returns the current artifact content. Errors when no
	// artifact exists for the VMID.
	Read(ctx context.Context, vmid int) ([]byte, error)

	// Remove deletes the artifact. Removing an absent artifact is not
	// an error. Nothing calls Remove on instance destruction; artifact
	// removal is always an explicit purge.
	Remove(ctx context.Context, vmid int) error

	// Path returns the node-side path the boot process reads the
	// artifact from.
	Path(vmid int) string
}

// FileName returns the artifact file name for a VMID.
func FileName(vmid int) string {
	return fmt.Sprintf("%d.ign", vmid)
}
