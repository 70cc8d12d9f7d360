// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/fieldbook/pkg/types"
)

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Bind assembled reports into volumes",
	Long: `Partition splits the assembled reports, in route-number order, into
consecutive volumes and writes each to volumes/ with a cover page, a table of
contents and continuous page numbers. Volume files from earlier runs are
replaced.

By default every volume holds 12 routes. Use --per-volume K for K routes per
volume (the last takes the remainder) or --volumes V for exactly V volumes
(earlier volumes take the remainder).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := policyFromFlags(cmd)
		if err != nil {
			return err
		}
		return runStage(cmd, types.StagePartition, func(cfg *types.PipelineConfig) {
			if policy != nil {
				cfg.Partition.Policy = *policy
			}
		})
	},
}

func init() {
	addPolicyFlags(partitionCmd)
	rootCmd.AddCommand(partitionCmd)
}

func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().Int("per-volume", 0, "routes per volume")
	cmd.Flags().Int("volumes", 0, "total number of volumes")
	cmd.MarkFlagsMutuallyExclusive("per-volume", "volumes")
}

// policyFromFlags returns the policy chosen on the command line, or nil to
// keep the configured one.
func policyFromFlags(cmd *cobra.Command) (*types.PartitionPolicy, error) {
	var p types.PartitionPolicy
	switch {
	case cmd.Flags().Changed("per-volume"):
		k, _ := cmd.Flags().GetInt("per-volume")
		p = types.RoutesPerVolume(k)
	case cmd.Flags().Changed("volumes"):
		v, _ := cmd.Flags().GetInt("volumes")
		p = types.TotalVolumes(v)
	default:
		return nil, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
