package reconcile

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/pvefleet/pvefleet/internal/bootcfg"
	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/platform/proxmox"
	"github.com/pvefleet/pvefleet/internal/snippet"
)

// StoreFactory builds the artifact store for a named snippet storage.
// Groups may publish into different storages; the factory is called
// once per distinct storage name a pass touches.
type StoreFactory func(ctx context.Context, storage string) (snippet.Store, error)

// Reconciler plans and executes fleet passes.
type Reconciler struct {
	cfg      *config.Config
	provider proxmox.Provider
	stores   StoreFactory
	renderer *bootcfg.Renderer
	timeouts *config.Timeouts
	obs      Observer
	metrics  *Metrics
	log      logr.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithObserver sets the event observer.
func WithObserver(obs Observer) Option {
	return func(r *Reconciler) {
		r.obs = obs
	}
}

// WithTimeouts sets custom timeouts.
func WithTimeouts(t *config.Timeouts) Option {
	return func(r *Reconciler) {
		r.timeouts = t
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithLogger sets the debug logger.
func WithLogger(log logr.Logger) Option {
	return func(r *Reconciler) {
		r.log = log
	}
}

// New creates a Reconciler for a validated fleet config.
func New(cfg *config.Config, provider proxmox.Provider, stores StoreFactory, renderer *bootcfg.Renderer, opts ...Option) *Reconciler {
	r := &Reconciler{
		cfg:      cfg,
		provider: provider,
		stores:   stores,
		renderer: renderer,
		timeouts: config.LoadTimeouts(),
		obs:      NopObserver{},
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resolveStores builds one artifact store per distinct snippet storage
// the plan publishes into. A storage that cannot be resolved fails the
// pass before any mutation.
func (r *Reconciler) resolveStores(ctx context.Context, plan *Plan) (map[string]snippet.Store, error) {
	stores := make(map[string]snippet.Store)
	for _, action := range plan.Actions {
		if action.group == nil {
			continue
		}
		name := action.group.SnippetStorage
		if _, ok := stores[name]; ok {
			continue
		}
		store, err := r.stores(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolving snippet storage %s: %w", name, err)
		}
		stores[name] = store
	}
	return stores, nil
}
