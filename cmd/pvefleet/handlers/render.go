package handlers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pvefleet/pvefleet/internal/bootcfg"
	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/fingerprint"
	"github.com/pvefleet/pvefleet/internal/ident"
)

// Render runs the template pipeline locally and prints every selected
// ordinal's Ignition artifact together with its fingerprint.
//
// This is a debugging aid: it needs neither API token nor node access,
// only the fleet file and its templates. An empty group selects all
// groups; ordinal -1 selects all ordinals of the selected group.
func Render(ctx context.Context, configPath, group string, ordinal int) error {
	cfg, fleetPath, err := loadFleet(configPath)
	if err != nil {
		return err
	}

	groups := cfg.Groups
	if group != "" {
		g := cfg.GroupByName(group)
		if g == nil {
			return fmt.Errorf("no group named %q", group)
		}
		groups = []config.Group{*g}
	}
	if ordinal >= 0 {
		if group == "" {
			return fmt.Errorf("--ordinal requires --group")
		}
		if ordinal >= groups[0].Count {
			return fmt.Errorf("group %s has %d instances; ordinal %d is out of range", group, groups[0].Count, ordinal)
		}
	}

	renderer := bootcfg.NewRenderer(filepath.Dir(fleetPath))
	styled := styledOutput()

	for i := range groups {
		g := &groups[i]
		for ord := 0; ord < g.Count; ord++ {
			if ordinal >= 0 && ord != ordinal {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			id := ident.Instance(g.BaseID, g.Name, g.Count, ord)
			rc, err := renderer.Render(g.BootConfig, id, g.Count, ord)
			if err != nil {
				return fmt.Errorf("rendering %s: %w", id.Name, err)
			}
			fp := fingerprint.Compute(rc.Artifact)

			fmt.Fprintf(stdout, "%s\n", style(headerStyle, fmt.Sprintf("── %s (VMID %d)", id.Name, id.VMID), styled))
			fmt.Fprintf(stdout, "%s\n", style(dimStyle, "   fingerprint "+fp.Hex(), styled))
			fmt.Fprintf(stdout, "%s\n\n", rc.Artifact)
		}
	}
	return nil
}
