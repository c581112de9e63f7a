package reconcile

import (
	"fmt"
	"log"
	"strings"
)

// Observer receives structured events as a pass progresses.
type Observer interface {
	Event(event Event)
}

// Event is one structured reconciliation event.
type Event struct {
	Type     EventType
	Group    string
	Resource string // instance name
	VMID     int
	Message  string
}

// EventType classifies reconciliation events.
type EventType string

const (
	// EventPassStarted indicates a reconciliation pass has started.
	EventPassStarted EventType = "pass.started"
	// EventPassCompleted indicates a reconciliation pass finished.
	EventPassCompleted EventType = "pass.completed"

	// EventInstanceCreating indicates an instance is being created.
	EventInstanceCreating EventType = "instance.creating"
	// EventInstanceCreated indicates an instance was created and is ready.
	EventInstanceCreated EventType = "instance.created"
	// EventInstanceReplacing indicates an instance is being destroyed for recreation.
	EventInstanceReplacing EventType = "instance.replacing"
	// EventInstanceUnchanged indicates an instance matched its desired state.
	EventInstanceUnchanged EventType = "instance.unchanged"
	// EventInstanceDestroying indicates an instance is being destroyed for good.
	EventInstanceDestroying EventType = "instance.destroying"
	// EventInstanceDestroyed indicates an instance was destroyed.
	EventInstanceDestroyed EventType = "instance.destroyed"
	// EventInstanceDegraded indicates an instance exists but never reported ready.
	EventInstanceDegraded EventType = "instance.degraded"
	// EventInstanceFailed indicates an ordinal's pass failed.
	EventInstanceFailed EventType = "instance.failed"

	// EventArtifactPublished indicates a boot-config artifact was written.
	EventArtifactPublished EventType = "artifact.published"
	// EventArtifactRepaired indicates a drifted artifact was republished.
	EventArtifactRepaired EventType = "artifact.repaired"

	// EventDriftNoted indicates tolerated drift that triggers no action.
	EventDriftNoted EventType = "drift.noted"
)

// ConsoleObserver writes events through the standard log package.
type ConsoleObserver struct{}

// Event implements Observer.
func (ConsoleObserver) Event(event Event) {
	var parts []string
	parts = append(parts, string(event.Type))
	if event.Group != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Group))
	}
	if event.Resource != "" {
		parts = append(parts, event.Resource)
	}
	if event.VMID != 0 {
		parts = append(parts, fmt.Sprintf("vm=%d", event.VMID))
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}
	log.Print(strings.Join(parts, " "))
}

// NopObserver discards all events.
type NopObserver struct{}

// Event implements Observer.
func (NopObserver) Event(Event) {}
