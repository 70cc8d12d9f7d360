// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fieldbook/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all four stages in order",
	Long: `Run executes normalize, harvest, assemble and partition in order. Route
failures are reported and the run continues; a configuration or I/O error
stops it at that stage.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("projects-dir", "", "root of the route project folders (default: parent of the work dir)")
	runCmd.Flags().String("sketch-dir", "", "name of the sketch folder inside each route folder")
	addPolicyFlags(runCmd)

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	policy, err := policyFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	harvestFlags(cmd, &cfg)
	if policy != nil {
		cfg.Partition.Policy = *policy
	}

	l, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	summaries, err := pipeline.Run(cmd.Context(), cfg, os.Stdout, l)
	printSummaries(os.Stdout, summaries...)
	if err != nil {
		return err
	}
	return failureError(summaries...)
}
