// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the document stages in order and records each run.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/fieldbook/internal/assemble"
	"github.com/pdiddy/fieldbook/internal/harvest"
	"github.com/pdiddy/fieldbook/internal/normalize"
	"github.com/pdiddy/fieldbook/internal/volume"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// Recorder stores finished stage runs. *ledger.Ledger satisfies it.
type Recorder interface {
	Record(ctx context.Context, summary types.StageSummary, fatal error) (string, error)
}

// RunStage executes one stage with the configuration derived from cfg and
// records its summary when rec is non-nil. The returned error is the
// stage's batch-level error, or the recording error.
func RunStage(ctx context.Context, st types.Stage, cfg types.PipelineConfig, w io.Writer, rec Recorder) (types.StageSummary, error) {
	var summary types.StageSummary
	var err error
	switch st {
	case types.StageNormalize:
		summary, err = normalize.NormalizeAll(ctx, cfg.NormalizeStage(), w)
	case types.StageHarvest:
		summary, err = harvest.HarvestAll(ctx, cfg.HarvestStage(), w)
	case types.StageAssemble:
		summary, err = assemble.AssembleAll(ctx, cfg.AssembleStage(), w)
	case types.StagePartition:
		summary, err = volume.PartitionAll(ctx, cfg.PartitionStage(), w)
	default:
		return types.NewStageSummary(st), fmt.Errorf("%w: unknown stage %q", types.ErrConfiguration, st)
	}

	if rec != nil {
		// A cancelled run is still worth recording.
		if _, recErr := rec.Record(context.WithoutCancel(ctx), summary, err); recErr != nil && err == nil {
			err = fmt.Errorf("recording %s run: %w", st, recErr)
		}
	}
	return summary, err
}

// Run executes every stage in order. It stops at the first batch-level
// error and returns the summaries of the stages that ran, the failing one
// included. Route failures do not stop the run.
func Run(ctx context.Context, cfg types.PipelineConfig, w io.Writer, rec Recorder) ([]types.StageSummary, error) {
	var out []types.StageSummary
	for _, st := range types.Stages {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		fmt.Fprintf(w, "== %s ==\n", st)
		summary, err := RunStage(ctx, st, cfg, w, rec)
		out = append(out, summary)
		if err != nil {
			return out, fmt.Errorf("%s: %w", st, err)
		}
		fmt.Fprintln(w)
	}
	return out, nil
}
