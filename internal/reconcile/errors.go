package reconcile

import (
	"errors"
	"fmt"
	"time"
)

// Stage names the point of a pass an ordinal's outcome was decided at.
type Stage string

const (
	StageObserve   Stage = "observe"
	StageRender    Stage = "render"
	StagePublish   Stage = "publish"
	StageCreate    Stage = "create"
	StageDestroy   Stage = "destroy"
	StageReadiness Stage = "readiness"
)

// stageOf classifies an error by the stage it belongs to.
func stageOf(err error) Stage {
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return StageRender
	}
	var publishErr *PublishError
	if errors.As(err, &publishErr) {
		return StagePublish
	}
	var readyErr *ReadinessTimeoutError
	if errors.As(err, &readyErr) {
		return StageReadiness
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Stage
	}
	return StageObserve
}

// RenderError is a template, parameter, or transpile failure. It occurs
// before any platform mutation and aborts only the affected ordinal.
type RenderError struct {
	Name    string
	Ordinal int
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering boot config for %s (ordinal %d): %v", e.Name, e.Ordinal, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PublishError is an artifact write failure. It aborts the affected
// ordinal before any instance creation or replacement, so the platform
// is left untouched.
type PublishError struct {
	Name string
	VMID int
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing artifact for %s (VM %d): %v", e.Name, e.VMID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// ProviderError is a platform operation failure, surfaced as-is. No
// retries are synthesized here beyond the platform client's own.
type ProviderError struct {
	Name  string
	VMID  int
	Op    string
	Stage Stage
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s failed for %s (VM %d): %v", e.Op, e.Name, e.VMID, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ReadinessTimeoutError means the instance was created and started but
// its guest agent never answered within the bound. The instance exists
// and is not rolled back; the outcome is a degraded success.
type ReadinessTimeoutError struct {
	Name    string
	VMID    int
	Timeout time.Duration
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("%s (VM %d) not ready after %s; instance exists but is unconfirmed", e.Name, e.VMID, e.Timeout)
}

// IsDegraded reports whether err is a readiness timeout, the one
// failure kind that still counts as (degraded) success.
func IsDegraded(err error) bool {
	var rte *ReadinessTimeoutError
	return errors.As(err, &rte)
}
