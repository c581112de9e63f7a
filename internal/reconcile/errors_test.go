package reconcile

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection reset")

	renderErr := &RenderError{Name: "web-2", Ordinal: 1, Err: cause}
	assert.Contains(t, renderErr.Error(), "web-2")
	assert.Contains(t, renderErr.Error(), "ordinal 1")
	assert.ErrorIs(t, renderErr, cause)

	pubErr := &PublishError{Name: "web-2", VMID: 202, Err: cause}
	assert.Contains(t, pubErr.Error(), "VM 202")
	assert.ErrorIs(t, pubErr, cause)

	provErr := &ProviderError{Name: "web-2", VMID: 202, Op: "clone", Stage: StageCreate, Err: cause}
	assert.Contains(t, provErr.Error(), "clone failed")
	assert.ErrorIs(t, provErr, cause)

	readyErr := &ReadinessTimeoutError{Name: "web-2", VMID: 202, Timeout: 2 * time.Minute}
	assert.Contains(t, readyErr.Error(), "not ready after 2m0s")
	assert.Contains(t, readyErr.Error(), "unconfirmed")
}

func TestStageOf(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Stage
	}{
		{"render", &RenderError{Err: cause}, StageRender},
		{"publish", &PublishError{Err: cause}, StagePublish},
		{"readiness", &ReadinessTimeoutError{}, StageReadiness},
		{"provider carries its own stage", &ProviderError{Stage: StageDestroy, Err: cause}, StageDestroy},
		{"wrapped publish", fmt.Errorf("pass: %w", &PublishError{Err: cause}), StagePublish},
		{"plain errors observe", cause, StageObserve},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, stageOf(tt.err))
		})
	}
}

func TestIsDegraded(t *testing.T) {
	t.Parallel()
	ready := &ReadinessTimeoutError{Name: "web-1", VMID: 201, Timeout: time.Minute}

	assert.True(t, IsDegraded(ready))
	assert.True(t, IsDegraded(fmt.Errorf("pass: %w", ready)))
	assert.False(t, IsDegraded(errors.New("clone failed")))
	assert.False(t, IsDegraded(nil))
	assert.False(t, IsDegraded(&PublishError{Err: errors.New("io")}))
}

func TestConsoleObserver_Event(t *testing.T) {
	// Should not panic with sparse or full events.
	var obs ConsoleObserver
	obs.Event(Event{Type: EventPassStarted})
	obs.Event(Event{
		Type:     EventInstanceCreating,
		Group:    "web",
		Resource: "web-1",
		VMID:     201,
		Message:  "no instance",
	})
	NopObserver{}.Event(Event{Type: EventPassCompleted})
}
