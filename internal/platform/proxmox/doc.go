// Package proxmox provides a client for the Proxmox VE REST API.
//
// The reconciler only ever talks to the narrow Provider interface; the
// RealClient implements it over /api2/json with API-token auth, and the
// MockClient backs unit tests. Asynchronous platform operations (clone,
// delete, start, stop) return a task UPID that is polled to completion
// before the call returns.
package proxmox
