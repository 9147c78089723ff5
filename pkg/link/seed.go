package link

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gmcallister/regwatch/internal/store"
)

// DefaultControls is the built-in CAF v3 seed set. Seeding is an idempotent
// upsert keyed by ref, so re-running it is safe.
func DefaultControls() []store.Control {
	return []store.Control{
		{
			Ref: "CAF-A1", Name: "Governance & Leadership", Framework: "CAF", Version: "v3",
			Description: "Clear accountability for cyber resilience.",
			Themes:      "governance",
			Keywords:    []string{"governance", "leadership", "board", "accountability", "management responsibility"},
		},
		{
			Ref: "CAF-A2", Name: "Risk Management", Framework: "CAF", Version: "v3",
			Description: "Risk management processes are established and effective.",
			Themes:      "risk",
			Keywords:    []string{"risk", "risk assessment", "mitigation", "threat", "vulnerability", "register"},
		},
		{
			Ref: "CAF-A3", Name: "Asset Management", Framework: "CAF", Version: "v3",
			Description: "Critical assets are identified and managed.",
			Themes:      "assets",
			Keywords:    []string{"asset", "asset register", "inventory", "CMDB", "configuration management"},
		},
		{
			Ref: "CAF-B2", Name: "Identity & Access Control", Framework: "CAF", Version: "v3",
			Description: "Access to networks/systems is managed and restricted.",
			Themes:      "access",
			Keywords:    []string{"access", "authentication", "authorisation", "least privilege", "MFA", "privileged", "PAM"},
		},
		{
			Ref: "CAF-C1", Name: "Security Monitoring", Framework: "CAF", Version: "v3",
			Description: "Events and logs monitored to detect incidents.",
			Themes:      "monitoring",
			Keywords:    []string{"monitoring", "logging", "SIEM", "detect", "anomaly", "alert"},
		},
		{
			Ref: "CAF-D1", Name: "Response & Recovery Planning", Framework: "CAF", Version: "v3",
			Description: "Respond and recover within required timeframes.",
			Themes:      "incident",
			Keywords:    []string{"incident", "incident response", "major incident", "notification", "72 hours", "recovery", "playbook", "communication"},
		},
	}
}

// seedFile is the YAML document shape accepted by LoadSeed.
type seedFile struct {
	Controls []seedControl `yaml:"controls"`
}

type seedControl struct {
	Ref         string   `yaml:"ref"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Themes      string   `yaml:"themes"`
	Keywords    []string `yaml:"keywords"`
	Framework   string   `yaml:"framework"`
	Version     string   `yaml:"version"`
}

// LoadSeed reads controls from a YAML seed file.
func LoadSeed(path string) ([]store.Control, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}

	controls := make([]store.Control, 0, len(f.Controls))
	for _, c := range f.Controls {
		if c.Ref == "" || c.Name == "" {
			return nil, fmt.Errorf("seed %s: control missing ref or name", path)
		}
		controls = append(controls, store.Control{
			Ref:         c.Ref,
			Name:        c.Name,
			Description: c.Description,
			Themes:      c.Themes,
			Keywords:    c.Keywords,
			Framework:   c.Framework,
			Version:     c.Version,
		})
	}
	return controls, nil
}

// Seed upserts the given controls.
func Seed(ctx context.Context, s store.Store, controls []store.Control) error {
	for i := range controls {
		if err := s.UpsertControl(ctx, &controls[i]); err != nil {
			return err
		}
	}
	return nil
}
