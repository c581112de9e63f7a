// Package reconcile drives a fleet of immutable VMs toward the state a
// fleet file declares.
//
// A pass is batch and declarative: Plan observes the cluster and
// derives one action per desired ordinal (create, replace, or noop)
// plus destroy actions for fleet VMs no longer desired; Apply executes
// the actions in parallel, one independent task per ordinal. A VM is
// never patched in place: when its boot config fingerprint changes it
// is destroyed and recreated, because the guest reads its configuration
// exactly once at first boot. Within one ordinal the artifact is always
// published before the VM that references it exists.
package reconcile
