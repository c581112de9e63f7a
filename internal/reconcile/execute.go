package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pvefleet/pvefleet/internal/snippet"
	"github.com/pvefleet/pvefleet/internal/util/async"
)

// OrdinalResult is one action's outcome within a pass.
type OrdinalResult struct {
	Group       string
	Ordinal     int
	VMID        int
	Name        string
	Op          Op
	Stage       Stage // failing stage, empty on clean success
	Fingerprint string
	Degraded    bool // instance exists but never confirmed ready
	Err         error
}

// Report is the outcome of one executed pass.
type Report struct {
	RunID    string
	Fleet    string
	Started  time.Time
	Duration time.Duration
	Results  []OrdinalResult
}

// Succeeded returns the number of cleanly successful actions.
func (rep *Report) Succeeded() int {
	n := 0
	for _, res := range rep.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Degraded returns the number of degraded successes.
func (rep *Report) Degraded() int {
	n := 0
	for _, res := range rep.Results {
		if res.Degraded {
			n++
		}
	}
	return n
}

// Failed returns the number of failed actions. Degraded successes do
// not count as failures.
func (rep *Report) Failed() int {
	n := 0
	for _, res := range rep.Results {
		if res.Err != nil && !res.Degraded {
			n++
		}
	}
	return n
}

// OK reports whether the pass had no failures.
func (rep *Report) OK() bool {
	return rep.Failed() == 0
}

// Summary returns a one-line pass summary.
func (rep *Report) Summary() string {
	return fmt.Sprintf("%d ok, %d degraded, %d failed of %d actions in %s",
		rep.Succeeded(), rep.Degraded(), rep.Failed(), len(rep.Results),
		rep.Duration.Round(time.Millisecond))
}

// Apply plans and executes one pass.
func (r *Reconciler) Apply(ctx context.Context) (*Report, error) {
	plan, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, plan)
}

// Execute runs every planned action, one parallel task per action.
// Ordinals are independent: a failure aborts its own ordinal and
// nothing else, and partial application across ordinals is expected.
// The returned error is reserved for pass-level failures; per-ordinal
// outcomes live in the Report.
func (r *Reconciler) Execute(ctx context.Context, plan *Plan) (*Report, error) {
	started := time.Now()
	r.obs.Event(Event{Type: EventPassStarted, Message: fmt.Sprintf("fleet %s, %d actions", r.cfg.Fleet, len(plan.Actions))})

	stores, err := r.resolveStores(ctx, plan)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Fleet:   r.cfg.Fleet,
		Started: started,
		Results: make([]OrdinalResult, len(plan.Actions)),
	}

	tasks := make([]async.Task, len(plan.Actions))
	for i, action := range plan.Actions {
		tasks[i] = async.Task{
			Name: action.Name,
			Func: func(ctx context.Context) error {
				report.Results[i] = r.executeAction(ctx, stores, action)
				return report.Results[i].Err
			},
		}
	}
	async.Run(ctx, tasks)
	report.Duration = time.Since(started)

	r.recordPass(report)
	r.obs.Event(Event{Type: EventPassCompleted, Message: report.Summary()})
	if r.metrics != nil {
		if err := r.metrics.Push(ctx); err != nil {
			r.log.Info("warning: metrics push failed", "error", err)
		}
	}
	return report, nil
}

func (r *Reconciler) executeAction(ctx context.Context, stores map[string]snippet.Store, action Action) OrdinalResult {
	res := OrdinalResult{
		Group:       action.Group,
		Ordinal:     action.Ordinal,
		VMID:        action.VMID,
		Name:        action.Name,
		Op:          action.Op,
		Fingerprint: action.Fingerprint,
	}

	switch {
	case action.Err != nil:
		res.Err = action.Err
		res.Stage = stageOf(action.Err)
	case action.Op == OpCreate:
		r.executeCreate(ctx, stores[action.group.SnippetStorage], action, &res)
	case action.Op == OpReplace:
		r.executeReplace(ctx, stores[action.group.SnippetStorage], action, &res)
	case action.Op == OpNoop:
		r.executeNoop(ctx, stores[action.group.SnippetStorage], action, &res)
	case action.Op == OpDestroy:
		r.obs.Event(Event{Type: EventInstanceDestroying, Resource: action.Name, VMID: action.VMID, Message: action.Reason})
		r.destroyInstance(ctx, action.existing, &res)
		if res.Err == nil {
			r.obs.Event(Event{Type: EventInstanceDestroyed, Resource: action.Name, VMID: action.VMID})
		}
	}

	switch {
	case res.Degraded:
		r.obs.Event(Event{Type: EventInstanceDegraded, Group: res.Group, Resource: res.Name, VMID: res.VMID, Message: res.Err.Error()})
	case res.Err != nil:
		r.obs.Event(Event{Type: EventInstanceFailed, Group: res.Group, Resource: res.Name, VMID: res.VMID, Message: res.Err.Error()})
	}
	return res
}

// executeCreate publishes the artifact, then brings the instance up.
// The publish strictly precedes the clone: the guest reads the
// artifact exactly once at boot, so it must exist before the VM does.
func (r *Reconciler) executeCreate(ctx context.Context, store snippet.Store, action Action, res *OrdinalResult) {
	r.obs.Event(Event{Type: EventInstanceCreating, Group: action.Group, Resource: action.Name, VMID: action.VMID, Message: action.Reason})

	if err := r.publish(ctx, store, action); err != nil {
		res.Stage = StagePublish
		res.Err = &PublishError{Name: action.Name, VMID: action.VMID, Err: err}
		return
	}
	r.obs.Event(Event{Type: EventArtifactPublished, Group: action.Group, Resource: action.Name, VMID: action.VMID})

	r.createInstance(ctx, store, action, res)
}

// executeReplace republishes first, so a publish failure leaves the
// old instance running, then destroys and recreates.
func (r *Reconciler) executeReplace(ctx context.Context, store snippet.Store, action Action, res *OrdinalResult) {
	r.obs.Event(Event{Type: EventInstanceReplacing, Group: action.Group, Resource: action.Name, VMID: action.VMID, Message: action.Reason})

	if err := r.publish(ctx, store, action); err != nil {
		res.Stage = StagePublish
		res.Err = &PublishError{Name: action.Name, VMID: action.VMID, Err: err}
		return
	}
	r.obs.Event(Event{Type: EventArtifactPublished, Group: action.Group, Resource: action.Name, VMID: action.VMID})

	r.destroyInstance(ctx, action.existing, res)
	if res.Err != nil {
		return
	}
	r.createInstance(ctx, store, action, res)
}

// executeNoop leaves the instance alone but checks the artifact: a
// missing or drifted snippet is republished so the next boot sees the
// declared content.
func (r *Reconciler) executeNoop(ctx context.Context, store snippet.Store, action Action, res *OrdinalResult) {
	for _, note := range action.Drift {
		r.obs.Event(Event{Type: EventDriftNoted, Group: action.Group, Resource: action.Name, VMID: action.VMID, Message: note})
	}

	current, err := store.Read(ctx, action.VMID)
	if err == nil && bytes.Equal(current, action.artifact) {
		r.obs.Event(Event{Type: EventInstanceUnchanged, Group: action.Group, Resource: action.Name, VMID: action.VMID})
		return
	}

	if err := r.publish(ctx, store, action); err != nil {
		res.Stage = StagePublish
		res.Err = &PublishError{Name: action.Name, VMID: action.VMID, Err: err}
		return
	}
	r.obs.Event(Event{Type: EventArtifactRepaired, Group: action.Group, Resource: action.Name, VMID: action.VMID})
}

// publish writes the artifact within the publish timeout; without the
// bound a hung snippet channel would stall its ordinal indefinitely.
func (r *Reconciler) publish(ctx context.Context, store snippet.Store, action Action) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Publish)
	defer cancel()
	return store.Publish(ctx, action.VMID, action.artifact)
}

// createInstance clones, shapes, starts, and waits for readiness. Used
// by both create and replace after the artifact is in place.
func (r *Reconciler) createInstance(ctx context.Context, store snippet.Store, action Action, res *OrdinalResult) {
	g := action.group
	node := r.cfg.Connection.Node

	if err := r.provider.CloneVM(ctx, node, g.CloneFrom, action.VMID, action.Name); err != nil {
		res.Stage = StageCreate
		res.Err = &ProviderError{Name: action.Name, VMID: action.VMID, Op: "clone", Stage: StageCreate, Err: err}
		return
	}
	opts := vmOptions(g, action.Fingerprint, store.Path(action.VMID))
	if err := r.provider.SetVMConfig(ctx, node, action.VMID, opts); err != nil {
		res.Stage = StageCreate
		res.Err = &ProviderError{Name: action.Name, VMID: action.VMID, Op: "configure", Stage: StageCreate, Err: err}
		return
	}
	if err := r.provider.StartVM(ctx, node, action.VMID); err != nil {
		res.Stage = StageCreate
		res.Err = &ProviderError{Name: action.Name, VMID: action.VMID, Op: "start", Stage: StageCreate, Err: err}
		return
	}

	if err := r.waitReady(ctx, node, action.VMID, action.Name); err != nil {
		// The instance exists and may come up late; it is reported,
		// not rolled back.
		res.Stage = StageReadiness
		res.Err = err
		res.Degraded = true
		return
	}
	r.obs.Event(Event{Type: EventInstanceCreated, Group: action.Group, Resource: action.Name, VMID: action.VMID})
}

// waitReady polls the guest agent until it answers or the readiness
// bound expires.
func (r *Reconciler) waitReady(ctx context.Context, node string, vmid int, name string) error {
	bound := r.timeouts.AgentReady
	ctx, cancel := context.WithTimeout(ctx, bound)
	defer cancel()

	ticker := time.NewTicker(r.timeouts.TaskPoll)
	defer ticker.Stop()

	for {
		if err := r.provider.PingAgent(ctx, node, vmid); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return &ReadinessTimeoutError{Name: name, VMID: vmid, Timeout: bound}
		case <-ticker.C:
		}
	}
}
