// Package plan provides run-plan parsing and validation for the gcp-bulk CLI.
//
// A plan declares what a provisioning run should produce: how many projects,
// under which id prefix, which services to enable, and which billing account
// to link. The validator enforces GCP project-id rules so malformed plans
// fail before any remote call is made.
//
// Supports both YAML (.yaml, .yml) and JSON (.json) plan files for maximum
// flexibility.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Generated ids look like "<prefix>-<6 char salt>-NNN". Project ids are
// capped at 30 characters, which bounds the prefix.
const (
	maxProjectIDLen = 30
	generatedSuffix = 11 // "-" + salt(6) + "-" + seq(3)
	MaxPrefixLen    = maxProjectIDLen - generatedSuffix
	MaxCount        = 500
)

// Plan represents the run-plan file structure
type Plan struct {
	Prefix         string   `yaml:"prefix" json:"prefix"`
	Count          int      `yaml:"count" json:"count"`
	DisplayName    string   `yaml:"displayName,omitempty" json:"displayName,omitempty"`
	Services       []string `yaml:"services" json:"services"`
	BillingAccount string   `yaml:"billingAccount,omitempty" json:"billingAccount,omitempty"`
}

var (
	prefixPattern  = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	servicePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*\.googleapis\.com$`)
	billingPattern = regexp.MustCompile(`^[0-9A-F]{6}-[0-9A-F]{6}-[0-9A-F]{6}$`)
)

// Load loads and parses a plan file (supports .yaml, .yml, and .json)
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var p Plan

	// Detect format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
		}
	default:
		// Try YAML as fallback for backwards compatibility
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse plan (unknown extension %s, tried YAML): %w", ext, err)
		}
	}

	return &p, nil
}

// Save saves a plan to file (format determined by file extension)
func Save(p *Plan, path string) error {
	var data []byte
	var err error

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		data, err = json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan JSON: %w", err)
		}
	default:
		data, err = yaml.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal plan YAML: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}

	return nil
}

// Validate ensures the plan is sane before a run starts
func (p *Plan) Validate() error {
	if p.Prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	if !prefixPattern.MatchString(p.Prefix) {
		return fmt.Errorf("invalid prefix: %s (must start with a lowercase letter and contain only lowercase letters, digits, and hyphens)", p.Prefix)
	}
	if len(p.Prefix) > MaxPrefixLen {
		return fmt.Errorf("prefix too long: %s (max %d characters so generated ids fit the %d character project-id limit)", p.Prefix, MaxPrefixLen, maxProjectIDLen)
	}

	if p.Count < 1 || p.Count > MaxCount {
		return fmt.Errorf("invalid count: %d (must be between 1 and %d)", p.Count, MaxCount)
	}

	if len(p.Services) == 0 {
		return fmt.Errorf("at least one service is required")
	}
	for _, svc := range p.Services {
		if !servicePattern.MatchString(svc) {
			return fmt.Errorf("invalid service: %s (expected a *.googleapis.com service name)", svc)
		}
	}

	if p.BillingAccount != "" && !billingPattern.MatchString(p.BillingAccount) {
		return fmt.Errorf("invalid billing account: %s (expected XXXXXX-XXXXXX-XXXXXX)", p.BillingAccount)
	}

	return nil
}
