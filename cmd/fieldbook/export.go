// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run ledger to YAML or JSON",
	Long: `Export writes the run ledger (latest status per stage, every run, and the
recorded image fingerprints) to .fieldbook/ledger.yaml or ledger.json.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	var path string
	if format == "json" {
		path, err = l.ExportJSON(cmd.Context())
	} else {
		path, err = l.ExportYAML(cmd.Context())
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported ledger to %s\n", path)
	return nil
}
