package snippet

import (
	"context"

	"github.com/go-logr/logr"
)

// ObjectStore is the bucket surface the mirror writes through.
// Implemented by platform/s3.Client.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, key string, data []byte) error
	DeleteObject(ctx context.Context, bucketName, key string) error
}

// ObjectGetter is the fetch side of a bucket client. When the store
// behind the mirror provides it, Read restores a missing snippet from
// its mirrored copy.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucketName, key string) ([]byte, error)
}

// ObjectLister enumerates mirrored keys. When available, Sweep can
// clear artifacts for ordinals the fleet no longer declares.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)
}

// Mirror decorates a Store with a copy of every artifact in an
// S3-compatible bucket, keyed "<fleet>/<vmid>.ign". The snippet channel
// stays authoritative: mirror failures are logged warnings, never
// publish failures.
type Mirror struct {
	inner   Store
	objects ObjectStore
	bucket  string
	fleet   string
	log     logr.Logger
}

// NewMirror wraps a store with bucket mirroring.
func NewMirror(inner Store, objects ObjectStore, bucket, fleet string, log logr.Logger) *Mirror {
	return &Mirror{
		inner:   inner,
		objects: objects,
		bucket:  bucket,
		fleet:   fleet,
		log:     log,
	}
}

// Publish writes through to the inner store, then mirrors the artifact.
func (m *Mirror) Publish(ctx context.Context, vmid int, data []byte) error {
	if err := m.inner.Publish(ctx, vmid, data); err != nil {
		return err
	}
	if err := m.objects.PutObject(ctx, m.bucket, m.key(vmid), data); err != nil {
		m.log.Info("warning: artifact mirror write failed", "bucket", m.bucket, "key", m.key(vmid), "error", err)
	}
	return nil
}

// Read prefers the snippet channel. When the snippet is gone and the
// bucket client can fetch, the mirrored copy is written back to the
// node and returned; the next boot sees the restored artifact.
func (m *Mirror) Read(ctx context.Context, vmid int) ([]byte, error) {
	data, err := m.inner.Read(ctx, vmid)
	if err == nil {
		return data, nil
	}
	getter, ok := m.objects.(ObjectGetter)
	if !ok {
		return nil, err
	}
	mirrored, getErr := getter.GetObject(ctx, m.bucket, m.key(vmid))
	if getErr != nil {
		return nil, err
	}
	if pubErr := m.inner.Publish(ctx, vmid, mirrored); pubErr != nil {
		return nil, err
	}
	m.log.Info("restored artifact from mirror", "bucket", m.bucket, "key", m.key(vmid))
	return mirrored, nil
}

// Remove removes from the inner store and the mirror.
func (m *Mirror) Remove(ctx context.Context, vmid int) error {
	if err := m.inner.Remove(ctx, vmid); err != nil {
		return err
	}
	if err := m.objects.DeleteObject(ctx, m.bucket, m.key(vmid)); err != nil {
		m.log.Info("warning: artifact mirror delete failed", "bucket", m.bucket, "key", m.key(vmid), "error", err)
	}
	return nil
}

// Sweep deletes every mirrored artifact under the fleet prefix,
// catching keys for ordinals the fleet no longer declares. Like the
// write path, sweep failures are warnings.
func (m *Mirror) Sweep(ctx context.Context) {
	lister, ok := m.objects.(ObjectLister)
	if !ok {
		return
	}
	keys, err := lister.ListObjects(ctx, m.bucket, m.fleet+"/")
	if err != nil {
		m.log.Info("warning: artifact mirror list failed", "bucket", m.bucket, "prefix", m.fleet+"/", "error", err)
		return
	}
	for _, key := range keys {
		if err := m.objects.DeleteObject(ctx, m.bucket, key); err != nil {
			m.log.Info("warning: artifact mirror delete failed", "bucket", m.bucket, "key", key, "error", err)
		}
	}
}

// Path returns the inner store's node-side path.
func (m *Mirror) Path(vmid int) string {
	return m.inner.Path(vmid)
}

func (m *Mirror) key(vmid int) string {
	return m.fleet + "/" + FileName(vmid)
}

var _ Store = (*Mirror)(nil)
