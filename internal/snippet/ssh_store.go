package snippet

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// Executor runs commands on the Proxmox node. Implemented by
// platform/ssh.Client.
type Executor interface {
	Execute(ctx context.Context, command string) (string, error)
	ExecuteWithInput(ctx context.Context, command string, input []byte) (string, error)
}

// SSHStore publishes artifacts into a snippet directory over SSH.
type SSHStore struct {
	exec Executor
	dir  string
	log  logr.Logger
}

// SSHStoreOption configures an SSHStore.
type SSHStoreOption func(*SSHStore)

// WithLogger sets the logger for publish-level debug output.
func WithLogger(log logr.Logger) SSHStoreOption {
	return func(s *SSHStore) {
		s.log = log
	}
}

// NewSSHStore creates a store rooted at the storage's snippets
// directory. storagePath is the filesystem path of the directory-backed
// storage, as resolved through the platform API.
func NewSSHStore(exec Executor, storagePath string, opts ...SSHStoreOption) *SSHStore {
	s := &SSHStore{
		exec: exec,
		dir:  strings.TrimRight(storagePath, "/") + "/snippets",
		log:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish writes the artifact, piping the bytes over stdin so no shell
// quoting or encoding touches them. The write lands in a temp file and
// renames into place; the boot process never observes a partial
// artifact.
func (s *SSHStore) Publish(ctx context.Context, vmid int, data []byte) error {
	path := s.Path(vmid)
	tmp := path + ".tmp"
	cmd := fmt.Sprintf("mkdir -p %s && cat > %s && mv %s %s",
		shellQuote(s.dir), shellQuote(tmp), shellQuote(tmp), shellQuote(path))
	if _, err := s.exec.ExecuteWithInput(ctx, cmd, data); err != nil {
		return fmt.Errorf("publishing artifact %s: %w", path, err)
	}
	s.log.V(1).Info("published artifact", "path", path, "bytes", len(data))
	return nil
}

// Read returns the artifact content, erroring when the file is absent.
func (s *SSHStore) Read(ctx context.Context, vmid int) ([]byte, error) {
	path := s.Path(vmid)
	out, err := s.exec.Execute(ctx, "cat "+shellQuote(path))
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	return []byte(out), nil
}

// Remove deletes the artifact. Absent artifacts remove cleanly.
func (s *SSHStore) Remove(ctx context.Context, vmid int) error {
	path := s.Path(vmid)
	if _, err := s.exec.Execute(ctx, "rm -f "+shellQuote(path)); err != nil {
		return fmt.Errorf("removing artifact %s: %w", path, err)
	}
	return nil
}

// shellQuote single-quotes s for the remote shell. Storage paths come
// from the platform API, but the store does not trust them to be free
// of spaces or metacharacters.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Path returns the node-side artifact path.
func (s *SSHStore) Path(vmid int) string {
	return s.dir + "/" + FileName(vmid)
}

var _ Store = (*SSHStore)(nil)
