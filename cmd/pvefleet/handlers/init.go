package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/util/keygen"
)

// starterTemplate is the Butane template init writes for the first
// group. The authorized key slot is filled by the wizard.
const starterTemplate = `variant: fcos
version: 1.5.0
passwd:
  users:
    - name: core
      ssh_authorized_keys:
        - %s
storage:
  files:
    - path: /etc/hostname
      mode: 0644
      overwrite: true
      contents:
        inline: {{ .instance_name }}
`

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard runs the interactive fleet wizard.
	runWizard = config.RunWizard

	// writeFleetFile writes the fleet file.
	writeFleetFile = config.WriteFile

	// generateKeyPair generates the optional instance SSH key pair.
	generateKeyPair = keygen.GenerateKeyPair

	// writeFile writes data to a file (for testing injection).
	writeFile = os.WriteFile
)

// Init runs the configuration wizard and writes the fleet file together
// with a starter Butane template for the first group.
func Init(ctx context.Context, outputPath string) error {
	if fileExists(outputPath) {
		fmt.Fprintf(stdout, "Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	cfg := result.ToConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid fleet configuration: %w", err)
	}

	if err := writeFleetFile(cfg, outputPath); err != nil {
		return err
	}

	templatePath, keyPath, err := writeStarterFiles(result, cfg, outputPath)
	if err != nil {
		return err
	}

	printInitSuccess(outputPath, templatePath, keyPath, cfg)
	return nil
}

// writeStarterFiles writes the group's Butane template next to the
// fleet file, generating and embedding an instance key pair when the
// wizard asked for one. Returns the template path and the private key
// path, the latter empty when no key was generated.
func writeStarterFiles(result *config.WizardResult, cfg *config.Config, outputPath string) (string, string, error) {
	dir := filepath.Dir(outputPath)
	templatePath := filepath.Join(dir, cfg.Groups[0].BootConfig.Template)

	authorized := "ssh-ed25519 REPLACE-WITH-YOUR-PUBLIC-KEY"
	keyPath := ""
	if result.GenerateInstanceKey {
		pair, err := generateKeyPair()
		if err != nil {
			return "", "", fmt.Errorf("generating instance key: %w", err)
		}
		keyPath = filepath.Join(dir, cfg.Fleet+"_id_ed25519")
		if err := writeFile(keyPath, pair.PrivateKey, 0o600); err != nil {
			return "", "", fmt.Errorf("writing %s: %w", keyPath, err)
		}
		if err := writeFile(keyPath+".pub", pair.PublicKey, 0o644); err != nil {
			return "", "", fmt.Errorf("writing %s: %w", keyPath+".pub", err)
		}
		authorized = strings.TrimSpace(string(pair.PublicKey))
	}

	content := fmt.Sprintf(starterTemplate, authorized)
	if err := writeFile(templatePath, []byte(content), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", templatePath, err)
	}
	return templatePath, keyPath, nil
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "pvefleet - immutable VM fleets on Proxmox VE")
	fmt.Fprintln(stdout, "============================================")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "This wizard creates a fleet file with sensible defaults.")
	fmt.Fprintln(stdout, "Instances are linked clones configured through Ignition at first")
	fmt.Fprintln(stdout, "boot; changing the boot config replaces instances, never mutates")
	fmt.Fprintln(stdout, "them.")
	fmt.Fprintln(stdout)
}

// printInitSuccess prints the success message with summary and next
// steps.
func printInitSuccess(outputPath, templatePath, keyPath string, cfg *config.Config) {
	g := &cfg.Groups[0]
	ids := g.VMIDs()
	vmidRange := fmt.Sprintf("VMID %d", ids[0])
	if len(ids) > 1 {
		vmidRange = fmt.Sprintf("VMIDs %d-%d", ids[0], ids[len(ids)-1])
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Fleet file saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  Fleet file: %s\n", outputPath)
	fmt.Fprintf(stdout, "  Template:   %s\n", templatePath)
	if keyPath != "" {
		fmt.Fprintf(stdout, "  Instance key: %s (public half embedded in the template)\n", keyPath)
	}
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Fleet Summary")
	fmt.Fprintln(stdout, "-------------")
	fmt.Fprintf(stdout, "  Name:  %s\n", cfg.Fleet)
	fmt.Fprintf(stdout, "  Node:  %s (%s)\n", cfg.Connection.Node, cfg.Connection.Endpoint)
	fmt.Fprintf(stdout, "  Group: %d x %s (%s), cloned from template %d\n", g.Count, g.Name, vmidRange, g.CloneFrom)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Next Steps")
	fmt.Fprintln(stdout, "----------")
	fmt.Fprintln(stdout, "  1. Set your Proxmox API token:")
	fmt.Fprintln(stdout, "     export PVE_API_TOKEN='user@pam!pvefleet=<uuid>'")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  2. Review %s", templatePath)
	if keyPath == "" {
		fmt.Fprint(stdout, " (add your SSH public key)")
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  3. Preview and create your fleet:")
	fmt.Fprintln(stdout, "     pvefleet plan")
	fmt.Fprintln(stdout, "     pvefleet apply")
	fmt.Fprintln(stdout)
}
