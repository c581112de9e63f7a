package handlers

import (
	"context"
	"fmt"
)

// Destroy tears down every instance the fleet manages.
//
// Only VMs carrying the fleet marker tag are touched; anything else on
// the node survives, clone source templates included. Artifacts stay in
// the snippet store unless purgeArtifacts asks for their removal too.
func Destroy(ctx context.Context, configPath string, purgeArtifacts bool) error {
	cfg, fleetPath, err := loadFleet(configPath)
	if err != nil {
		return err
	}

	rec, err := buildReconciler(cfg, fleetPath)
	if err != nil {
		return err
	}

	report, err := rec.Destroy(ctx, purgeArtifacts)
	if err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}

	fmt.Fprint(stdout, renderReport(report, styledOutput()))

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d actions failed", failed, len(report.Results))
	}
	return nil
}
