// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fieldbook/internal/ledger"
	"github.com/pdiddy/fieldbook/pkg/types"
)

func TestPolicyFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   map[string]string
		want    *types.PartitionPolicy
		wantErr bool
	}{
		{"none keeps config", nil, nil, false},
		{"per volume", map[string]string{"per-volume": "8"}, &types.PartitionPolicy{Mode: types.PolicyRoutesPerVolume, Value: 8}, false},
		{"volumes", map[string]string{"volumes": "3"}, &types.PartitionPolicy{Mode: types.PolicyTotalVolumes, Value: 3}, false},
		{"zero rejected", map[string]string{"volumes": "0"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "partition"}
			addPolicyFlags(cmd)
			for k, v := range tt.flags {
				require.NoError(t, cmd.Flags().Set(k, v))
			}
			got, err := policyFromFlags(cmd)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicyFlagsAreExclusive(t *testing.T) {
	cmd := &cobra.Command{Use: "partition", RunE: func(*cobra.Command, []string) error { return nil }}
	addPolicyFlags(cmd)
	cmd.SetArgs([]string{"--per-volume", "4", "--volumes", "2"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.Error(t, cmd.Execute())
}

func TestRenderSummary(t *testing.T) {
	s := types.NewStageSummary(types.StageAssemble)
	s.Succeed(io.Discard, types.Route{ID: "L1", Number: 1}, "", "")
	s.Fail(io.Discard, types.Route{ID: "L2", Number: 2}, errors.New("anchor missing"))

	out := renderSummary(s)
	assert.Contains(t, out, "assemble")
	assert.Contains(t, out, "1 succeeded")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "L2")
	assert.Contains(t, out, "anchor missing")

	assert.EqualError(t, failureError(s, types.NewStageSummary(types.StageHarvest)), "1 route(s) failed")
	assert.NoError(t, failureError(types.NewStageSummary(types.StageHarvest)))
}

func TestFormatStatus(t *testing.T) {
	var buf bytes.Buffer
	formatStatus(&buf, nil)
	assert.Contains(t, buf.String(), "No stage has run yet.")

	buf.Reset()
	formatStatus(&buf, []ledger.Run{{
		Stage:  types.StageHarvest,
		Fatal:  "i/o failure: disk full",
		Failed: 1,
		Routes: []types.RouteResult{
			{Route: types.Route{ID: "L0459"}, Status: types.StatusSucceeded, Detail: "3 sketches"},
			{Route: types.Route{ID: "L0460"}, Status: types.StatusFailed, Reason: "bad png"},
		},
	}})
	out := buf.String()
	assert.Contains(t, out, "harvest")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "3 sketches")
	assert.Contains(t, out, "bad png")
}

func TestBindEnvReadsNestedKeys(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FIELDBOOK_WORKSPACE_WORK_DIR", dir)
	t.Setenv("FIELDBOOK_PARTITION_COVER_TITLE", "Handbook")

	v := viper.New()
	bindEnv(v)
	assert.Equal(t, dir, v.GetString("workspace.work_dir"))
	assert.Equal(t, "Handbook", v.GetString("partition.cover_title"))
}

func TestConfigTemplateRoundTrip(t *testing.T) {
	def := types.DefaultPipelineConfig(t.TempDir())
	data, err := yaml.Marshal(configTemplate(def))
	require.NoError(t, err)

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(data)))

	var got types.PipelineConfig
	require.NoError(t, v.Unmarshal(&got))
	assert.Equal(t, def.Patterns, got.Patterns)
	assert.Equal(t, def.Typography, got.Typography)
	assert.Equal(t, def.Partition.Policy, got.Partition.Policy)
	assert.Equal(t, def.Partition.Estimate, got.Partition.Estimate)
	assert.Equal(t, def.Harvest.SketchDir, got.Harvest.SketchDir)
}
