package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFile reads, decodes, defaults, and validates a fleet file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fleet file: %w", err)
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

// Load decodes a fleet specification from r. Unknown fields are
// rejected so typos surface as load errors instead of silently ignored
// settings.
func Load(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding fleet spec: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero-valued optional fields in place.
func (c *Config) applyDefaults() {
	if c.Connection.SSH.Port == 0 {
		c.Connection.SSH.Port = 22
	}
	for i := range c.Groups {
		g := &c.Groups[i]
		if g.Count == 0 {
			g.Count = 1
		}
		if g.Cores == 0 {
			g.Cores = 2
		}
		if g.MemoryMB == 0 {
			g.MemoryMB = 2048
		}
		if g.CPU == "" {
			g.CPU = "host"
		}
		if g.SnippetStorage == "" {
			g.SnippetStorage = "local"
		}
		if g.BootConfig.IgnitionVersion == "" {
			g.BootConfig.IgnitionVersion = DefaultIgnitionVersion
		}
		g.Tags = NormalizeTags(g.Tags)
	}
}

// FindConfigFile resolves the fleet file path: an explicit path wins,
// otherwise DefaultFileName in the working directory.
func FindConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("fleet file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if _, err := os.Stat(DefaultFileName); err != nil {
		return "", fmt.Errorf("no fleet file found: create %s or pass --config", DefaultFileName)
	}
	return DefaultFileName, nil
}

// WriteFile marshals the config and writes it to path, creating parent
// directories as needed. Used by the init wizard.
func WriteFile(cfg *Config, path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding fleet spec: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding fleet spec: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
