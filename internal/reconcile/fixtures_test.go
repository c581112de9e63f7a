package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pvefleet/pvefleet/internal/bootcfg"
	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/fingerprint"
	"github.com/pvefleet/pvefleet/internal/ident"
	"github.com/pvefleet/pvefleet/internal/platform/proxmox"
	"github.com/pvefleet/pvefleet/internal/snippet"
)

const webTemplate = `variant: fcos
version: 1.5.0
storage:
  files:
    - path: /etc/hostname
      mode: 0644
      contents:
        inline: {{ .instance_name }}
    - path: /etc/fleet-role
      mode: 0644
      contents:
        inline: {{ .role }}
`

// testConfig declares one group of three instances at VMIDs 201..203,
// cloned from template 9000, with the Butane template written to a
// temp dir the returned renderer resolves against.
func testConfig(t *testing.T) (*config.Config, *bootcfg.Renderer) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "web.bu.tmpl"), []byte(webTemplate), 0o644))

	cfg := &config.Config{
		Fleet: "web-fleet",
		Connection: config.Connection{
			Endpoint: "https://pve1.example.com:8006",
			Node:     "pve1",
			SSH:      config.SSH{User: "root", KeyFile: "/root/.ssh/id_ed25519"},
		},
		Groups: []config.Group{{
			Name:           "web",
			BaseID:         201,
			Count:          3,
			CloneFrom:      9000,
			Cores:          2,
			MemoryMB:       2048,
			CPU:            "host",
			SnippetStorage: "local",
			Networks:       []config.Network{{Bridge: "vmbr0", VLAN: 109}},
			Tags:           []string{"web"},
			BootConfig: config.BootConfig{
				Template:        "web.bu.tmpl",
				IgnitionVersion: "3.4.0",
				Params:          map[string]string{"role": "frontend"},
			},
		}},
	}
	return cfg, bootcfg.NewRenderer(dir)
}

func fixedStore(store snippet.Store) StoreFactory {
	return func(context.Context, string) (snippet.Store, error) {
		return store, nil
	}
}

func newTestReconciler(t *testing.T, provider proxmox.Provider, store snippet.Store, opts ...Option) *Reconciler {
	t.Helper()
	cfg, renderer := testConfig(t)
	opts = append([]Option{WithTimeouts(config.TestTimeouts())}, opts...)
	return New(cfg, provider, fixedStore(store), renderer, opts...)
}

// renderedArtifact runs the reconciler's own pipeline for one ordinal
// of the first group, so tests compare against the exact bytes a pass
// would publish.
func renderedArtifact(t *testing.T, r *Reconciler, ordinal int) []byte {
	t.Helper()
	g := &r.cfg.Groups[0]
	id := ident.Instance(g.BaseID, g.Name, g.Count, ordinal)
	rendered, err := r.renderer.Render(g.BootConfig, id, g.Count, ordinal)
	require.NoError(t, err)
	return rendered.Artifact
}

func renderedFingerprint(t *testing.T, r *Reconciler, ordinal int) string {
	t.Helper()
	return fingerprint.Compute(renderedArtifact(t, r, ordinal)).Hex()
}

// fleetVM returns a running fleet-tagged guest as the cluster resource
// listing reports it.
func fleetVM(vmid int, name string) proxmox.VMResource {
	return proxmox.VMResource{
		VMID:   vmid,
		Name:   name,
		Node:   "pve1",
		Type:   "qemu",
		Status: "running",
		Tags:   "pvefleet;web",
	}
}

// vmConfig returns a guest config carrying the given fingerprint in
// its smbios1 serial slot; an empty serial leaves the slot out.
func vmConfig(serial string) proxmox.VMConfig {
	c := proxmox.VMConfig{
		"name":  "web",
		"cores": "2",
		"tags":  "pvefleet;web",
	}
	if serial != "" {
		c["smbios1"] = "uuid=d5f26a44-bb64-44e0-9a96-3b2b54a79a3a,serial=" + serial
	}
	return c
}

// settledCluster wires the provider so all three ordinals exist with
// matching fingerprints. It returns the serial map, which tests mutate
// to stage drift before planning.
func settledCluster(t *testing.T, r *Reconciler, mock *proxmox.MockClient) map[int]string {
	t.Helper()
	serials := make(map[int]string)
	for ordinal := range 3 {
		serials[201+ordinal] = renderedFingerprint(t, r, ordinal)
	}
	mock.ListVMsFunc = func(context.Context) ([]proxmox.VMResource, error) {
		return []proxmox.VMResource{
			fleetVM(201, "web-1"),
			fleetVM(202, "web-2"),
			fleetVM(203, "web-3"),
		}, nil
	}
	mock.GetVMConfigFunc = func(_ context.Context, _ string, vmid int) (proxmox.VMConfig, error) {
		return vmConfig(serials[vmid]), nil
	}
	return serials
}

// callLog records provider and store calls across the parallel ordinal
// tasks of a pass.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

// forVM returns the calls touching one VMID, in recording order.
func (l *callLog) forVM(vmid int) []string {
	suffix := fmt.Sprintf(" %d", vmid)
	var out []string
	for _, c := range l.all() {
		if strings.HasSuffix(c, suffix) {
			out = append(out, c)
		}
	}
	return out
}

func (l *callLog) count(verb string) int {
	n := 0
	for _, c := range l.all() {
		if strings.HasPrefix(c, verb+" ") {
			n++
		}
	}
	return n
}

// trackedClient returns a mock whose mutating calls land in the log.
// Reads stay at their defaults and are overridden per test.
func trackedClient(log *callLog) *proxmox.MockClient {
	return &proxmox.MockClient{
		CloneVMFunc: func(_ context.Context, _ string, _, target int, _ string) error {
			log.add("clone %d", target)
			return nil
		},
		SetVMConfigFunc: func(_ context.Context, _ string, vmid int, _ map[string]string) error {
			log.add("configure %d", vmid)
			return nil
		},
		StartVMFunc: func(_ context.Context, _ string, vmid int) error {
			log.add("start %d", vmid)
			return nil
		},
		StopVMFunc: func(_ context.Context, _ string, vmid int) error {
			log.add("stop %d", vmid)
			return nil
		},
		DeleteVMFunc: func(_ context.Context, _ string, vmid int) error {
			log.add("delete %d", vmid)
			return nil
		},
	}
}

// recordingStore wraps a memory store and logs publishes and removals
// into the shared call log, so artifact writes order against provider
// calls.
type recordingStore struct {
	*snippet.MemoryStore
	log *callLog
}

func (s *recordingStore) Publish(ctx context.Context, vmid int, data []byte) error {
	s.log.add("publish %d", vmid)
	return s.MemoryStore.Publish(ctx, vmid, data)
}

func (s *recordingStore) Remove(ctx context.Context, vmid int) error {
	s.log.add("remove %d", vmid)
	return s.MemoryStore.Remove(ctx, vmid)
}

// eventSink collects observer events for assertions.
type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) Event(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

func (s *eventSink) has(typ EventType, vmid int) bool {
	for _, e := range s.all() {
		if e.Type == typ && e.VMID == vmid {
			return true
		}
	}
	return false
}
