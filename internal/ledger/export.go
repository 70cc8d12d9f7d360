// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// Export is the ledger content written by ExportYAML and ExportJSON.
type Export struct {
	Status       []Run         `json:"status" yaml:"status"`
	Runs         []Run         `json:"runs" yaml:"runs"`
	Fingerprints []Fingerprint `json:"fingerprints" yaml:"fingerprints"`
}

// ExportYAML writes the ledger to ledger.yaml next to the database and
// returns the file path.
func (l *Ledger) ExportYAML(ctx context.Context) (string, error) {
	e, err := l.export(ctx)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(l.dir, "ledger.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the ledger to ledger.json next to the database and
// returns the file path.
func (l *Ledger) ExportJSON(ctx context.Context) (string, error) {
	e, err := l.export(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(l.dir, "ledger.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (l *Ledger) export(ctx context.Context) (Export, error) {
	var e Export
	var err error
	if e.Status, err = l.Status(ctx); err != nil {
		return e, fmt.Errorf("querying status for export: %w", err)
	}
	if e.Runs, err = l.Runs(ctx); err != nil {
		return e, fmt.Errorf("querying runs for export: %w", err)
	}
	if e.Fingerprints, err = l.Fingerprints(ctx, ""); err != nil {
		return e, fmt.Errorf("querying fingerprints for export: %w", err)
	}
	return e, nil
}
