package handlers

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvefleet/pvefleet/internal/bootcfg"
	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/platform/proxmox"
	"github.com/pvefleet/pvefleet/internal/reconcile"
	"github.com/pvefleet/pvefleet/internal/snippet"
)

// saveAndRestoreFactories saves the current factory functions and
// registers a cleanup that restores them.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadFleetFile := loadFleetFile
	origFindFleetFile := findFleetFile
	origNewProvider := newProvider
	origNewSnippetExecutor := newSnippetExecutor
	origNewMirrorStore := newMirrorStore
	origNewReconciler := newReconciler
	origGetenv := getenv
	origStdout := stdout
	origFileExists := fileExists
	origRunWizard := runWizard
	origWriteFleetFile := writeFleetFile
	origGenerateKeyPair := generateKeyPair
	origWriteFile := writeFile

	t.Cleanup(func() {
		loadFleetFile = origLoadFleetFile
		findFleetFile = origFindFleetFile
		newProvider = origNewProvider
		newSnippetExecutor = origNewSnippetExecutor
		newMirrorStore = origNewMirrorStore
		newReconciler = origNewReconciler
		getenv = origGetenv
		stdout = origStdout
		fileExists = origFileExists
		runWizard = origRunWizard
		writeFleetFile = origWriteFleetFile
		generateKeyPair = origGenerateKeyPair
		writeFile = origWriteFile
	})
}

// fleetConfig returns a fleet configuration the way loadFleetFile would
// produce it, defaults applied.
func fleetConfig() *config.Config {
	return &config.Config{
		Fleet: "web-fleet",
		Connection: config.Connection{
			Endpoint: "https://pve1.example.com:8006",
			Node:     "pve1",
			SSH: config.SSH{
				User:    "root",
				Port:    22,
				KeyFile: "/root/.ssh/id_ed25519",
			},
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
			Networks:       []config.Network{{Bridge: "vmbr0"}},
			Tags:           []string{"web"},
			BootConfig: config.BootConfig{
				Template:        "web.bu.tmpl",
				IgnitionVersion: "3.4.0",
			},
		}},
	}
}

// stubFleet points the loaders at an in-memory fleet file.
func stubFleet(cfg *config.Config) {
	findFleetFile = func(string) (string, error) { return "pvefleet.yaml", nil }
	loadFleetFile = func(string) (*config.Config, error) { return cfg, nil }
}

// captureStdout replaces the handler output stream with a buffer.
func captureStdout() *bytes.Buffer {
	var buf bytes.Buffer
	stdout = &buf
	return &buf
}

// fakeExecutor satisfies snippet.Executor without a network.
type fakeExecutor struct{}

func (fakeExecutor) Execute(context.Context, string) (string, error) { return "", nil }
func (fakeExecutor) ExecuteWithInput(context.Context, string, []byte) (string, error) {
	return "", nil
}

// fakeReconciler scripts the reconciler behavior handlers see.
type fakeReconciler struct {
	plan       *reconcile.Plan
	planErr    error
	report     *reconcile.Report
	executeErr error
	destroyErr error

	executedPlan *reconcile.Plan
	purged       bool
}

func (f *fakeReconciler) Plan(context.Context) (*reconcile.Plan, error) {
	return f.plan, f.planErr
}

func (f *fakeReconciler) Execute(_ context.Context, plan *reconcile.Plan) (*reconcile.Report, error) {
	f.executedPlan = plan
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	return f.report, nil
}

func (f *fakeReconciler) Destroy(_ context.Context, purgeArtifacts bool) (*reconcile.Report, error) {
	f.purged = purgeArtifacts
	if f.destroyErr != nil {
		return nil, f.destroyErr
	}
	return f.report, nil
}

// stubReconciler wires the factories so buildReconciler succeeds and
// hands out rec.
func stubReconciler(rec Reconciler) {
	getenv = func(key string) string {
		if key == tokenEnv {
			return "root@pam!fleet=00000000-0000-0000-0000-000000000000"
		}
		return ""
	}
	newProvider = func(*config.Config, string, logr.Logger) proxmox.Provider {
		return &proxmox.MockClient{}
	}
	newSnippetExecutor = func(*config.Config, *config.Timeouts) (snippet.Executor, error) {
		return fakeExecutor{}, nil
	}
	newReconciler = func(*config.Config, proxmox.Provider, reconcile.StoreFactory, *bootcfg.Renderer, ...reconcile.Option) Reconciler {
		return rec
	}
}

func TestLoadFleet_NoFile(t *testing.T) {
	saveAndRestoreFactories(t)

	findFleetFile = func(string) (string, error) {
		return "", errors.New("no fleet file found: create pvefleet.yaml or pass --config")
	}

	_, _, err := loadFleet("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fleet file found")
	assert.Contains(t, err.Error(), "pvefleet init")
}

func TestLoadFleet_ReturnsPath(t *testing.T) {
	saveAndRestoreFactories(t)

	cfg := fleetConfig()
	findFleetFile = func(explicit string) (string, error) { return "deploy/pvefleet.yaml", nil }
	loadFleetFile = func(path string) (*config.Config, error) {
		assert.Equal(t, "deploy/pvefleet.yaml", path)
		return cfg, nil
	}

	loaded, path, err := loadFleet("deploy/pvefleet.yaml")
	require.NoError(t, err)
	assert.Same(t, cfg, loaded)
	assert.Equal(t, "deploy/pvefleet.yaml", path)
}

func TestLoadFleet_LoadError(t *testing.T) {
	saveAndRestoreFactories(t)

	findFleetFile = func(string) (string, error) { return "pvefleet.yaml", nil }
	loadFleetFile = func(string) (*config.Config, error) {
		return nil, errors.New("decoding fleet spec: yaml: line 3")
	}

	_, _, err := loadFleet("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding fleet spec")
}

func TestBuildReconciler_MissingToken(t *testing.T) {
	saveAndRestoreFactories(t)

	getenv = func(string) string { return "" }

	_, err := buildReconciler(fleetConfig(), "pvefleet.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PVE_API_TOKEN")
	assert.Contains(t, err.Error(), "API Tokens")
}

func TestBuildReconciler_PassesToken(t *testing.T) {
	saveAndRestoreFactories(t)

	var capturedToken string
	rec := &fakeReconciler{}
	stubReconciler(rec)
	newProvider = func(_ *config.Config, token string, _ logr.Logger) proxmox.Provider {
		capturedToken = token
		return &proxmox.MockClient{}
	}

	built, err := buildReconciler(fleetConfig(), "pvefleet.yaml")
	require.NoError(t, err)
	assert.Same(t, rec, built)
	assert.Equal(t, "root@pam!fleet=00000000-0000-0000-0000-000000000000", capturedToken)
}

func TestBuildReconciler_ExecutorError(t *testing.T) {
	saveAndRestoreFactories(t)

	stubReconciler(&fakeReconciler{})
	newSnippetExecutor = func(*config.Config, *config.Timeouts) (snippet.Executor, error) {
		return nil, errors.New("reading SSH key: open /root/.ssh/id_ed25519: no such file")
	}

	_, err := buildReconciler(fleetConfig(), "pvefleet.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading SSH key")
}

type fakeBucketClient struct {
	exists    bool
	existsErr error
	createErr error
	created   []string
}

func (f *fakeBucketClient) BucketExists(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeBucketClient) CreateBucket(_ context.Context, bucket string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, bucket)
	return nil
}

func TestEnsureMirrorBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("existing bucket is left alone", func(t *testing.T) {
		client := &fakeBucketClient{exists: true}
		require.NoError(t, ensureMirrorBucket(ctx, client, "artifacts"))
		assert.Empty(t, client.created)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		client := &fakeBucketClient{}
		require.NoError(t, ensureMirrorBucket(ctx, client, "artifacts"))
		assert.Equal(t, []string{"artifacts"}, client.created)
	})

	t.Run("existence check failure surfaces", func(t *testing.T) {
		client := &fakeBucketClient{existsErr: errors.New("access denied")}
		err := ensureMirrorBucket(ctx, client, "artifacts")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checking mirror bucket")
	})

	t.Run("create failure surfaces", func(t *testing.T) {
		client := &fakeBucketClient{createErr: errors.New("quota exceeded")}
		err := ensureMirrorBucket(ctx, client, "artifacts")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "creating mirror bucket")
	})
}

func TestBuildReconciler_ExecutorGetsTimeouts(t *testing.T) {
	saveAndRestoreFactories(t)
	t.Setenv("PVEFLEET_TIMEOUT_SSH_DIAL", "3s")
	t.Setenv("PVEFLEET_RETRY_MAX_ATTEMPTS", "7")

	stubReconciler(&fakeReconciler{})
	var captured *config.Timeouts
	newSnippetExecutor = func(_ *config.Config, timeouts *config.Timeouts) (snippet.Executor, error) {
		captured = timeouts
		return fakeExecutor{}, nil
	}

	_, err := buildReconciler(fleetConfig(), "pvefleet.yaml")
	require.NoError(t, err)

	// The environment knobs must reach the SSH channel, not stop at
	// the defaults baked into the ssh package.
	require.NotNil(t, captured)
	assert.Equal(t, 3*time.Second, captured.SSHDial)
	assert.Equal(t, 7, captured.RetryMaxAttempts)
}

func TestBuildReconciler_StoreFactory(t *testing.T) {
	saveAndRestoreFactories(t)

	var stores reconcile.StoreFactory
	stubReconciler(&fakeReconciler{})
	newProvider = func(*config.Config, string, logr.Logger) proxmox.Provider {
		return &proxmox.MockClient{
			GetStoragePathFunc: func(_ context.Context, storage string) (string, error) {
				assert.Equal(t, "local", storage)
				return "/var/lib/vz", nil
			},
		}
	}
	newReconciler = func(_ *config.Config, _ proxmox.Provider, sf reconcile.StoreFactory, _ *bootcfg.Renderer, _ ...reconcile.Option) Reconciler {
		stores = sf
		return &fakeReconciler{}
	}

	_, err := buildReconciler(fleetConfig(), "pvefleet.yaml")
	require.NoError(t, err)
	require.NotNil(t, stores)

	store, err := stores(context.Background(), "local")
	require.NoError(t, err)
	assert.IsType(t, &snippet.SSHStore{}, store)
}

func TestBuildReconciler_MirrorWraps(t *testing.T) {
	saveAndRestoreFactories(t)

	cfg := fleetConfig()
	cfg.Mirror = &config.Mirror{
		Endpoint: "https://minio.example.com:9000",
		Region:   "us-east-1",
		Bucket:   "fleet-artifacts",
	}

	var stores reconcile.StoreFactory
	stubReconciler(&fakeReconciler{})
	newMirrorStore = func(context.Context, *config.Config) (snippet.ObjectStore, error) {
		return fakeObjectStore{}, nil
	}
	newReconciler = func(_ *config.Config, _ proxmox.Provider, sf reconcile.StoreFactory, _ *bootcfg.Renderer, _ ...reconcile.Option) Reconciler {
		stores = sf
		return &fakeReconciler{}
	}

	_, err := buildReconciler(cfg, "pvefleet.yaml")
	require.NoError(t, err)

	store, err := stores(context.Background(), "local")
	require.NoError(t, err)
	assert.IsType(t, &snippet.Mirror{}, store)
}

func TestBuildReconciler_MirrorError(t *testing.T) {
	saveAndRestoreFactories(t)

	cfg := fleetConfig()
	cfg.Mirror = &config.Mirror{Endpoint: "https://minio.example.com:9000", Bucket: "fleet-artifacts"}

	var stores reconcile.StoreFactory
	stubReconciler(&fakeReconciler{})
	newMirrorStore = func(context.Context, *config.Config) (snippet.ObjectStore, error) {
		return nil, errors.New("no credentials")
	}
	newReconciler = func(_ *config.Config, _ proxmox.Provider, sf reconcile.StoreFactory, _ *bootcfg.Renderer, _ ...reconcile.Option) Reconciler {
		stores = sf
		return &fakeReconciler{}
	}

	_, err := buildReconciler(cfg, "pvefleet.yaml")
	require.NoError(t, err)

	_, err = stores(context.Background(), "local")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting artifact mirror")
}

type fakeObjectStore struct{}

func (fakeObjectStore) PutObject(context.Context, string, string, []byte) error { return nil }
func (fakeObjectStore) DeleteObject(context.Context, string, string) error      { return nil }

func TestEndpointHost(t *testing.T) {
	host, err := endpointHost("https://pve1.example.com:8006")
	require.NoError(t, err)
	assert.Equal(t, "pve1.example.com", host)

	host, err = endpointHost("https://10.0.0.5:8006/api2/json")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", host)

	_, err = endpointHost("not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable host")
}

func TestStyledOutput_Buffer(t *testing.T) {
	saveAndRestoreFactories(t)

	captureStdout()
	assert.False(t, styledOutput(), "a buffer is not a terminal")
}

func TestStyledOutput_NoColor(t *testing.T) {
	saveAndRestoreFactories(t)

	t.Setenv("NO_COLOR", "")
	assert.False(t, styledOutput(), "NO_COLOR disables styling even when empty")
}
