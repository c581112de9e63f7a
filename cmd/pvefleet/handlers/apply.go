package handlers

import (
	"context"
	"fmt"
)

// Apply reconciles the fleet to its declared state.
//
// This function runs one full reconciliation pass:
//  1. Loads and validates the fleet file
//  2. Initializes the Proxmox client from the PVE_API_TOKEN environment variable
//  3. Plans against the observed cluster state
//  4. Executes the plan: artifacts are published first, then instances
//     are created, replaced, or repaired per ordinal
//  5. Prints the per-ordinal report
//
// A pass with no planned changes still executes, because noop ordinals
// verify and repair their published artifacts.
//
// Degraded ordinals (instance running, readiness unconfirmed in time)
// count as success; the command returns an error only when an ordinal
// actually failed, so scheduled runs exit non-zero on real damage.
func Apply(ctx context.Context, configPath string) error {
	cfg, fleetPath, err := loadFleet(configPath)
	if err != nil {
		return err
	}

	rec, err := buildReconciler(cfg, fleetPath)
	if err != nil {
		return err
	}

	plan, err := rec.Plan(ctx)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	report, err := rec.Execute(ctx, plan)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	fmt.Fprint(stdout, renderReport(report, styledOutput()))

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d actions failed", failed, len(report.Results))
	}
	return nil
}
