package reconcile

import (
	"context"
	"fmt"
	"slices"

	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/fingerprint"
	"github.com/pvefleet/pvefleet/internal/ident"
	"github.com/pvefleet/pvefleet/internal/platform/proxmox"
)

// Op is a planned operation for one instance.
type Op string

const (
	// OpCreate brings up an instance at an unoccupied VMID.
	OpCreate Op = "create"
	// OpReplace destroys and recreates an instance whose boot config
	// fingerprint no longer matches. Instances are never patched.
	OpReplace Op = "replace"
	// OpNoop leaves a matching instance untouched. Its artifact is
	// still checked and repaired on apply.
	OpNoop Op = "noop"
	// OpDestroy removes a fleet instance that is no longer desired.
	OpDestroy Op = "destroy"
	// OpPurge removes an artifact during an explicit destroy purge.
	OpPurge Op = "purge"
)

// Action is the planned operation for one ordinal, or for one observed
// VM leaving the fleet.
type Action struct {
	Group       string
	Ordinal     int // -1 for scale-down and purge rows
	VMID        int
	Name        string
	Op          Op
	Reason      string
	Fingerprint string
	Drift       []string // tolerated drift, reported but never acted on
	Err         error    // planning failure; the ordinal is blocked, not acted on

	group    *config.Group
	artifact []byte
	existing *proxmox.VMResource
}

// Plan is the full set of actions one pass would execute.
type Plan struct {
	Fleet   string
	Actions []Action
}

// Count returns the number of actions with the given op.
func (p *Plan) Count(op Op) int {
	n := 0
	for _, a := range p.Actions {
		if a.Err == nil && a.Op == op {
			n++
		}
	}
	return n
}

// Blocked returns the number of ordinals that could not be planned.
func (p *Plan) Blocked() int {
	n := 0
	for _, a := range p.Actions {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// HasChanges reports whether executing the plan would mutate anything.
func (p *Plan) HasChanges() bool {
	for _, a := range p.Actions {
		if a.Err == nil && a.Op != OpNoop {
			return true
		}
	}
	return false
}

// Plan observes the cluster and derives the action for every desired
// ordinal, plus destroy actions for fleet VMs that fell out of the
// desired set. Plan never mutates anything.
func (r *Reconciler) Plan(ctx context.Context) (*Plan, error) {
	vms, err := r.provider.ListVMs(ctx)
	if err != nil {
		return nil, fmt.Errorf("observing cluster: %w", err)
	}
	byID := make(map[int]proxmox.VMResource, len(vms))
	for _, vm := range vms {
		byID[vm.VMID] = vm
	}

	plan := &Plan{Fleet: r.cfg.Fleet}
	desired := make(map[int]bool)
	for gi := range r.cfg.Groups {
		g := &r.cfg.Groups[gi]
		for ordinal := range g.Count {
			id := ident.Instance(g.BaseID, g.Name, g.Count, ordinal)
			desired[id.VMID] = true
			plan.Actions = append(plan.Actions, r.planOrdinal(ctx, g, ordinal, id, byID))
		}
	}

	// Fleet VMs outside every group's instance range are scaled down.
	// Their artifacts stay; artifact removal is never implied.
	for _, vm := range vms {
		if desired[vm.VMID] || vm.IsTemplate() || !vm.HasTag(config.MarkerTag) {
			continue
		}
		plan.Actions = append(plan.Actions, Action{
			Ordinal:  -1,
			VMID:     vm.VMID,
			Name:     vm.Name,
			Op:       OpDestroy,
			Reason:   "not in any group's instance range",
			existing: &vm,
		})
	}
	return plan, nil
}

// planOrdinal decides one ordinal's action. Rendering always happens,
// also for instances that turn out to be untouched: the artifact
// content is needed for drift repair and the fingerprint for the
// replacement decision.
func (r *Reconciler) planOrdinal(ctx context.Context, g *config.Group, ordinal int, id ident.Identity, byID map[int]proxmox.VMResource) Action {
	action := Action{
		Group:   g.Name,
		Ordinal: ordinal,
		VMID:    id.VMID,
		Name:    id.Name,
		group:   g,
	}

	rendered, err := r.renderer.Render(g.BootConfig, id, g.Count, ordinal)
	if err != nil {
		action.Err = &RenderError{Name: id.Name, Ordinal: ordinal, Err: err}
		return action
	}
	fp := fingerprint.Compute(rendered.Artifact)
	action.Fingerprint = fp.Hex()
	action.artifact = rendered.Artifact

	existing, ok := byID[id.VMID]
	if !ok {
		action.Op = OpCreate
		action.Reason = "no instance"
		return action
	}
	action.existing = &existing

	// A foreign occupant blocks the ordinal; it is never destroyed.
	if existing.IsTemplate() {
		action.Err = fmt.Errorf("VMID %d is a template (%s) and cannot be managed", id.VMID, existing.Name)
		return action
	}
	if !existing.HasTag(config.MarkerTag) {
		action.Err = fmt.Errorf("VMID %d is occupied by unmanaged VM %q and will not be touched", id.VMID, existing.Name)
		return action
	}

	vmCfg, err := r.provider.GetVMConfig(ctx, existing.Node, id.VMID)
	if err != nil {
		action.Err = &ProviderError{Name: id.Name, VMID: id.VMID, Op: "reading config", Stage: StageObserve, Err: err}
		return action
	}

	switch current := vmCfg.Serial(); {
	case current == "":
		action.Op = OpReplace
		action.Reason = "no stored fingerprint"
	case current != action.Fingerprint:
		action.Op = OpReplace
		action.Reason = fmt.Sprintf("boot config changed (%.8s -> %.8s)", current, action.Fingerprint)
	default:
		action.Op = OpNoop
		action.Reason = "fingerprint unchanged"
	}

	// Tolerated drift on an unchanged instance: reported, never a
	// replacement trigger. Tag sets compare order-insensitively; the
	// description and disks inherited from the clone source are not
	// compared at all.
	if action.Op == OpNoop {
		want := desiredTags(g)
		if have := config.NormalizeTags(vmCfg.TagList()); !slices.Equal(want, have) {
			action.Drift = append(action.Drift, fmt.Sprintf("tags differ: have %v, want %v", have, want))
		}
		if existing.Name != id.Name {
			action.Drift = append(action.Drift, fmt.Sprintf("name differs: have %q, want %q", existing.Name, id.Name))
		}
	}
	return action
}
