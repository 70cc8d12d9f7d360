// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fieldbook/internal/pipeline"
	"github.com/pdiddy/fieldbook/pkg/types"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize raw route reports",
	Long: `Normalize reads raw-reports/*.docx, restores the canonical chunk order,
labels, spacing and typography, promotes headings, lays every section out in
two columns and writes normalized-reports/{route}.docx. Inputs are never
modified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.StageNormalize, nil)
	},
}

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Collect route sketches into sketch documents",
	Long: `Harvest looks for a sketch folder in every route project folder under the
projects root, and writes one captioned document per route to
harvested-sketches/{route}.docx. Routes without sketches are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.StageHarvest, nil)
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Insert sketches into normalized reports",
	Long: `Assemble places each route's sketches right after the self-check section
of its normalized report, in a single-column section, and writes
assembled-reports/{route}.docx. Images already in the report are not
inserted twice. Reports without sketches are copied unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.StageAssemble, nil)
	},
}

func init() {
	harvestCmd.Flags().String("projects-dir", "", "root of the route project folders (default: parent of the work dir)")
	harvestCmd.Flags().String("sketch-dir", "", "name of the sketch folder inside each route folder")

	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(assembleCmd)
}

// runStage loads the configuration, lets adjust apply command flags, runs
// one stage and records it in the ledger.
func runStage(cmd *cobra.Command, st types.Stage, adjust func(*types.PipelineConfig)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if st == types.StageHarvest {
		harvestFlags(cmd, &cfg)
	}
	if adjust != nil {
		adjust(&cfg)
	}

	l, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	summary, err := pipeline.RunStage(cmd.Context(), st, cfg, os.Stdout, l)
	printSummaries(os.Stdout, summary)
	if err != nil {
		return err
	}
	return failureError(summary)
}

func harvestFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	if v, _ := cmd.Flags().GetString("projects-dir"); v != "" {
		cfg.Harvest.ProjectsDir = v
	}
	if v, _ := cmd.Flags().GetString("sketch-dir"); v != "" {
		cfg.Harvest.SketchDir = v
	}
}
