package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/platform/proxmox"
	"github.com/pvefleet/pvefleet/internal/util/async"
)

// Destroy removes every fleet-tagged instance in parallel. Artifacts
// stay in place unless purgeArtifacts is set; destruction by itself
// never removes them.
func (r *Reconciler) Destroy(ctx context.Context, purgeArtifacts bool) (*Report, error) {
	started := time.Now()
	vms, err := r.provider.ListVMs(ctx)
	if err != nil {
		return nil, fmt.Errorf("observing cluster: %w", err)
	}

	var targets []proxmox.VMResource
	for _, vm := range vms {
		if vm.HasTag(config.MarkerTag) && !vm.IsTemplate() {
			targets = append(targets, vm)
		}
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Fleet:   r.cfg.Fleet,
		Started: started,
		Results: make([]OrdinalResult, len(targets)),
	}

	tasks := make([]async.Task, len(targets))
	for i, vm := range targets {
		tasks[i] = async.Task{
			Name: vm.Name,
			Func: func(ctx context.Context) error {
				res := OrdinalResult{Ordinal: -1, VMID: vm.VMID, Name: vm.Name, Op: OpDestroy}
				r.obs.Event(Event{Type: EventInstanceDestroying, Resource: vm.Name, VMID: vm.VMID})
				r.destroyInstance(ctx, &vm, &res)
				if res.Err == nil {
					r.obs.Event(Event{Type: EventInstanceDestroyed, Resource: vm.Name, VMID: vm.VMID})
				} else {
					r.obs.Event(Event{Type: EventInstanceFailed, Resource: vm.Name, VMID: vm.VMID, Message: res.Err.Error()})
				}
				report.Results[i] = res
				return res.Err
			},
		}
	}
	async.Run(ctx, tasks)

	if purgeArtifacts {
		report.Results = append(report.Results, r.purgeArtifacts(ctx)...)
	}

	report.Duration = time.Since(started)
	r.recordPassResults(report)
	if r.metrics != nil {
		if err := r.metrics.Push(ctx); err != nil {
			r.log.Info("warning: metrics push failed", "error", err)
		}
	}
	return report, nil
}

// destroyInstance stops (when running) and deletes one VM. Shared by
// replacement, scale-down, and full destroy.
func (r *Reconciler) destroyInstance(ctx context.Context, vm *proxmox.VMResource, res *OrdinalResult) {
	if vm.Status == "running" {
		if err := r.provider.StopVM(ctx, vm.Node, vm.VMID); err != nil {
			res.Stage = StageDestroy
			res.Err = &ProviderError{Name: vm.Name, VMID: vm.VMID, Op: "stop", Stage: StageDestroy, Err: err}
			return
		}
	}
	if err := r.provider.DeleteVM(ctx, vm.Node, vm.VMID); err != nil {
		res.Stage = StageDestroy
		res.Err = &ProviderError{Name: vm.Name, VMID: vm.VMID, Op: "delete", Stage: StageDestroy, Err: err}
	}
}

// purgeArtifacts removes the artifact of every VMID the fleet file
// declares, group by group through each group's own snippet storage.
// Removal is idempotent; artifacts that were never published purge
// cleanly.
func (r *Reconciler) purgeArtifacts(ctx context.Context) []OrdinalResult {
	var results []OrdinalResult
	for gi := range r.cfg.Groups {
		g := &r.cfg.Groups[gi]
		store, err := r.stores(ctx, g.SnippetStorage)
		if err != nil {
			for _, vmid := range g.VMIDs() {
				results = append(results, OrdinalResult{
					Group: g.Name, Ordinal: -1, VMID: vmid, Op: OpPurge, Stage: StagePublish,
					Err: fmt.Errorf("resolving snippet storage %s: %w", g.SnippetStorage, err),
				})
			}
			continue
		}
		for _, vmid := range g.VMIDs() {
			res := OrdinalResult{Group: g.Name, Ordinal: -1, VMID: vmid, Op: OpPurge}
			if err := store.Remove(ctx, vmid); err != nil {
				res.Stage = StagePublish
				res.Err = err
			}
			results = append(results, res)
		}
		// A mirrored store can also hold copies for VMIDs that left the
		// fleet file; clear the whole fleet prefix.
		if sweeper, ok := store.(mirrorSweeper); ok {
			sweeper.Sweep(ctx)
		}
	}
	return results
}

// mirrorSweeper is the purge-everything capability of snippet.Mirror.
type mirrorSweeper interface {
	Sweep(ctx context.Context)
}
