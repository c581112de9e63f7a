package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/charmbracelet/huh"
)

// WizardResult holds the user's choices from the init wizard.
type WizardResult struct {
	Fleet      string
	Endpoint   string
	Node       string
	SkipVerify bool
	SSHUser    string
	SSHKeyFile string

	GroupName string
	BaseID    string
	Count     int
	CloneFrom string
	Bridge    string
	Storage   string

	// GenerateInstanceKey asks init to generate an ED25519 key pair and
	// embed the public half into the starter Butane template.
	GenerateInstanceKey bool
}

// RunWizard runs the interactive fleet configuration wizard.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		// Defaults
		SkipVerify:          true,
		SSHUser:             "root",
		Count:               1,
		Bridge:              "vmbr0",
		Storage:             "local",
		GenerateInstanceKey: true,
	}

	form := huh.NewForm(
		// Fleet identity and API endpoint
		huh.NewGroup(
			huh.NewInput().
				Title("Fleet name").
				Description("Used for tagging and metrics labels (DNS-safe, lowercase)").
				Placeholder("my-fleet").
				Value(&result.Fleet).
				Validate(validateWizardName),

			huh.NewInput().
				Title("Proxmox API endpoint").
				Description("Base URL of the Proxmox VE API").
				Placeholder("https://pve.example.com:8006").
				Value(&result.Endpoint).
				Validate(validateWizardEndpoint),

			huh.NewInput().
				Title("Node name").
				Description("The Proxmox node instances are placed on").
				Placeholder("pve").
				Value(&result.Node).
				Validate(validateWizardRequired("node name")),

			huh.NewConfirm().
				Title("Skip TLS verification?").
				Description("Proxmox ships a self-signed certificate by default").
				Value(&result.SkipVerify),
		),

		// SSH channel for snippet publication
		huh.NewGroup(
			huh.NewInput().
				Title("SSH user").
				Description("Shell user on the node, used to publish boot artifacts").
				Value(&result.SSHUser).
				Validate(validateWizardRequired("SSH user")),

			huh.NewInput().
				Title("SSH private key file").
				Description("Key authorized on the node for the user above").
				Placeholder("/root/.ssh/id_ed25519").
				Value(&result.SSHKeyFile).
				Validate(validateWizardRequired("SSH key file")),
		),

		// First instance group
		huh.NewGroup(
			huh.NewInput().
				Title("Group name").
				Description("Base instance name; groups of one use it verbatim").
				Placeholder("web").
				Value(&result.GroupName).
				Validate(validateWizardName),

			huh.NewInput().
				Title("Base VMID").
				Description(fmt.Sprintf("VMID of the first instance (at least %d)", MinVMID)).
				Placeholder("200").
				Value(&result.BaseID).
				Validate(validateWizardVMID),

			huh.NewSelect[int]().
				Title("Instance count").
				Description("Instances get consecutive VMIDs starting at the base").
				Options(
					huh.NewOption("1 instance", 1),
					huh.NewOption("2 instances", 2),
					huh.NewOption("3 instances", 3),
					huh.NewOption("4 instances", 4),
					huh.NewOption("5 instances", 5),
				).
				Value(&result.Count),

			huh.NewInput().
				Title("Clone source VMID").
				Description("The FCOS template VM every instance is cloned from").
				Placeholder("9000").
				Value(&result.CloneFrom).
				Validate(validateWizardVMID),
		),

		// Node plumbing
		huh.NewGroup(
			huh.NewInput().
				Title("Network bridge").
				Description("Host bridge the instances attach to").
				Value(&result.Bridge).
				Validate(validateWizardRequired("bridge")),

			huh.NewInput().
				Title("Snippet storage").
				Description("Storage holding the snippet directory boot artifacts go to").
				Value(&result.Storage).
				Validate(validateWizardRequired("snippet storage")),

			huh.NewConfirm().
				Title("Generate an instance SSH key pair?").
				Description("Embeds the public key into the starter template's core user").
				Value(&result.GenerateInstanceKey),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

// ToConfig converts the wizard result to a fully defaulted Config.
func (r *WizardResult) ToConfig() *Config {
	cfg := &Config{
		Fleet: r.Fleet,
		Connection: Connection{
			Endpoint:           r.Endpoint,
			Node:               r.Node,
			InsecureSkipVerify: r.SkipVerify,
			SSH: SSH{
				User:    r.SSHUser,
				KeyFile: r.SSHKeyFile,
			},
		},
		Groups: []Group{{
			Name:           r.GroupName,
			BaseID:         wizardAtoi(r.BaseID),
			Count:          r.Count,
			CloneFrom:      wizardAtoi(r.CloneFrom),
			SnippetStorage: r.Storage,
			Networks:       []Network{{Bridge: r.Bridge}},
			Tags:           []string{r.GroupName},
			BootConfig: BootConfig{
				Template: r.GroupName + ".bu.tmpl",
			},
		}},
	}
	cfg.applyDefaults()
	return cfg
}

// wizardAtoi converts a numeric wizard input. Inputs reach this point
// already validated, so a parse failure maps to zero and is caught by
// the usual config validation.
func wizardAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// validateWizardName validates fleet and group names.
func validateWizardName(s string) error {
	if s == "" {
		return fmt.Errorf("a name is required")
	}
	if len(s) > 63 {
		return fmt.Errorf("must be 63 characters or less")
	}
	if !namePattern.MatchString(s) {
		return fmt.Errorf("only lowercase letters, numbers, and inner hyphens")
	}
	return nil
}

// validateWizardEndpoint validates the API base URL.
func validateWizardEndpoint(s string) error {
	if s == "" {
		return fmt.Errorf("an endpoint is required")
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return fmt.Errorf("expected a URL like https://pve.example.com:8006")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("scheme must be http or https")
	}
	return nil
}

// validateWizardVMID validates a numeric VMID input.
func validateWizardVMID(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected a number")
	}
	if n < MinVMID || n > MaxVMID {
		return fmt.Errorf("VMIDs range from %d to %d", MinVMID, MaxVMID)
	}
	return nil
}

// validateWizardRequired rejects empty input.
func validateWizardRequired(what string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}
