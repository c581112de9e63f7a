package handlers

import (
	"context"
	"fmt"
)

// Plan previews the next reconciliation pass without touching the
// cluster or the snippet stores.
//
// Blocked ordinals appear in the table but do not fail the command;
// plan is a read-only report of what apply would do.
func Plan(ctx context.Context, configPath string) error {
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

	fmt.Fprint(stdout, renderPlan(plan, styledOutput()))
	return nil
}
