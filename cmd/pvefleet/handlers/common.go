// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic
// and can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"

	"github.com/pvefleet/pvefleet/internal/bootcfg"
	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/platform/proxmox"
	"github.com/pvefleet/pvefleet/internal/platform/s3"
	"github.com/pvefleet/pvefleet/internal/platform/ssh"
	"github.com/pvefleet/pvefleet/internal/reconcile"
	"github.com/pvefleet/pvefleet/internal/snippet"
)

// tokenEnv is the environment variable carrying the Proxmox API token,
// in "user@realm!tokenid=uuid" form. It is never part of the fleet file.
const tokenEnv = "PVE_API_TOKEN"

// S3 mirror credentials, also environment-only.
const (
	s3AccessKeyEnv = "PVEFLEET_S3_ACCESS_KEY"
	s3SecretKeyEnv = "PVEFLEET_S3_SECRET_KEY"
)

// Reconciler is the slice of reconcile.Reconciler the handlers use.
type Reconciler interface {
	Plan(ctx context.Context) (*reconcile.Plan, error)
	Execute(ctx context.Context, plan *reconcile.Plan) (*reconcile.Report, error)
	Destroy(ctx context.Context, purgeArtifacts bool) (*reconcile.Report, error)
}

// Factory function variables - can be replaced in tests for dependency
// injection.
var (
	// loadFleetFile loads and validates the fleet file.
	loadFleetFile = config.LoadFile

	// findFleetFile resolves the fleet file path.
	findFleetFile = config.FindConfigFile

	// newProvider creates the Proxmox API client.
	newProvider = func(cfg *config.Config, token string, log logr.Logger) proxmox.Provider {
		opts := []proxmox.ClientOption{proxmox.WithLogger(log)}
		if cfg.Connection.InsecureSkipVerify {
			opts = append(opts, proxmox.WithInsecureTLS())
		}
		return proxmox.NewRealClient(cfg.Connection.Endpoint, token, opts...)
	}

	// newSnippetExecutor opens the SSH channel artifacts are published
	// over.
	newSnippetExecutor = func(cfg *config.Config, timeouts *config.Timeouts) (snippet.Executor, error) {
		host, err := endpointHost(cfg.Connection.Endpoint)
		if err != nil {
			return nil, err
		}
		key, err := os.ReadFile(cfg.Connection.SSH.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading SSH key: %w", err)
		}
		return ssh.NewClient(&ssh.Config{
			Host:        host,
			Port:        cfg.Connection.SSH.Port,
			User:        cfg.Connection.SSH.User,
			PrivateKey:  key,
			DialTimeout: timeouts.SSHDial,
			MaxRetries:  timeouts.RetryMaxAttempts,
			RetryDelay:  timeouts.RetryInitialDelay,
		})
	}

	// newMirrorStore creates the optional S3 artifact mirror and makes
	// sure its bucket exists.
	newMirrorStore = func(ctx context.Context, cfg *config.Config) (snippet.ObjectStore, error) {
		client, err := s3.NewClient(cfg.Mirror.Endpoint, cfg.Mirror.Region,
			os.Getenv(s3AccessKeyEnv), os.Getenv(s3SecretKeyEnv))
		if err != nil {
			return nil, err
		}
		if err := ensureMirrorBucket(ctx, client, cfg.Mirror.Bucket); err != nil {
			return nil, err
		}
		return client, nil
	}

	// newReconciler assembles the reconciler.
	newReconciler = func(cfg *config.Config, provider proxmox.Provider, stores reconcile.StoreFactory, renderer *bootcfg.Renderer, opts ...reconcile.Option) Reconciler {
		return reconcile.New(cfg, provider, stores, renderer, opts...)
	}

	// getenv reads environment variables (for testing injection).
	getenv = os.Getenv

	// stdout is where handlers print (for testing injection).
	stdout io.Writer = os.Stdout
)

// loadFleet resolves and loads the fleet file, returning the config
// together with the path it came from; template paths resolve against
// that file's directory.
func loadFleet(configPath string) (*config.Config, string, error) {
	path, err := findFleetFile(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("no fleet file found: %w\nRun 'pvefleet init' to create one", err)
	}
	cfg, err := loadFleetFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// buildReconciler wires provider, snippet stores, renderer, and
// observability together for a pass over the given fleet.
func buildReconciler(cfg *config.Config, fleetPath string) (Reconciler, error) {
	token := getenv(tokenEnv)
	if token == "" {
		return nil, fmt.Errorf("%s is not set; create an API token under Datacenter -> Permissions -> API Tokens", tokenEnv)
	}
	logger := newConsoleLogger()
	provider := newProvider(cfg, token, logger)
	timeouts := config.LoadTimeouts()

	exec, err := newSnippetExecutor(cfg, timeouts)
	if err != nil {
		return nil, err
	}

	stores := func(ctx context.Context, storage string) (snippet.Store, error) {
		path, err := provider.GetStoragePath(ctx, storage)
		if err != nil {
			return nil, err
		}
		var store snippet.Store = snippet.NewSSHStore(exec, path, snippet.WithLogger(logger))
		if cfg.Mirror != nil {
			objects, err := newMirrorStore(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("connecting artifact mirror: %w", err)
			}
			store = snippet.NewMirror(store, objects, cfg.Mirror.Bucket, cfg.Fleet, logger)
		}
		return store, nil
	}

	renderer := bootcfg.NewRenderer(filepath.Dir(fleetPath))

	opts := []reconcile.Option{
		reconcile.WithObserver(reconcile.ConsoleObserver{}),
		reconcile.WithLogger(logger),
		reconcile.WithTimeouts(timeouts),
	}
	if cfg.Metrics != nil && cfg.Metrics.Pushgateway != "" {
		opts = append(opts, reconcile.WithMetrics(reconcile.NewMetrics(cfg.Fleet, cfg.Metrics.Pushgateway)))
	}

	return newReconciler(cfg, provider, stores, renderer, opts...), nil
}

// bucketEnsurer is the slice of the s3 client mirror setup needs.
type bucketEnsurer interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	CreateBucket(ctx context.Context, bucketName string) error
}

// ensureMirrorBucket creates the mirror bucket when it does not exist
// yet, so a fresh fleet can mirror without manual bucket setup.
func ensureMirrorBucket(ctx context.Context, client bucketEnsurer, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("checking mirror bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.CreateBucket(ctx, bucket); err != nil {
		return fmt.Errorf("creating mirror bucket %s: %w", bucket, err)
	}
	return nil
}

// newConsoleLogger builds the debug logger handlers hand to library
// packages. PVEFLEET_DEBUG enables request-level detail.
func newConsoleLogger() logr.Logger {
	verbosity := 0
	if getenv("PVEFLEET_DEBUG") != "" {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			log.Printf("%s: %s", prefix, args)
			return
		}
		log.Print(args)
	}, funcr.Options{Verbosity: verbosity})
}

// endpointHost extracts the host name from the API endpoint URL; the
// SSH channel dials the same machine the API lives on.
func endpointHost(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("endpoint %q has no usable host", endpoint)
	}
	return u.Hostname(), nil
}

// styledOutput reports whether output goes to an interactive terminal
// that wants color. NO_COLOR, however empty, disables styling.
func styledOutput() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
