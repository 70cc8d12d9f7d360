// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fieldbook/pkg/types"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), ".fieldbook"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	// Step the clock so runs have distinct finish times.
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return l
}

func summary(st types.Stage) types.StageSummary {
	s := types.NewStageSummary(st)
	s.Succeed(io.Discard, types.Route{ID: "L0001", Number: 1}, "/out/L0001.docx", "2 sketches inserted")
	s.Last().Fingerprints = []string{"aaa", "bbb"}
	s.Skip(io.Discard, types.Route{ID: "L0002", Number: 2}, "no sketches")
	s.Fail(io.Discard, types.Route{ID: "L0003", Number: 3}, errors.New("anchor not found"))
	return s
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".fieldbook")
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	assert.FileExists(t, filepath.Join(dir, "ledger.db"))
	assert.Equal(t, dir, l.Dir())

	// Reopening keeps the schema.
	l2, err := Open(dir)
	require.NoError(t, err)
	l2.Close()
}

func TestRecordAndLatest(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()

	s := summary(types.StageAssemble)
	id, err := l.Record(ctx, s, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	run, err := l.Latest(ctx, types.StageAssemble)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, types.StageAssemble, run.Stage)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 1, run.Failed)
	assert.Empty(t, run.Fatal)
	assert.False(t, run.StartedAt.IsZero())

	require.Len(t, run.Routes, 3)
	assert.Equal(t, "L0001", run.Routes[0].Route.ID)
	assert.Equal(t, 1, run.Routes[0].Route.Number)
	assert.Equal(t, types.StatusSucceeded, run.Routes[0].Status)
	assert.Equal(t, "/out/L0001.docx", run.Routes[0].Output)
	assert.Equal(t, "2 sketches inserted", run.Routes[0].Detail)
	assert.Equal(t, types.StatusSkipped, run.Routes[1].Status)
	assert.Equal(t, "no sketches", run.Routes[1].Reason)
	assert.Equal(t, types.StatusFailed, run.Routes[2].Status)
	assert.Equal(t, "anchor not found", run.Routes[2].Reason)

	fps, err := l.Fingerprints(ctx, "L0001")
	require.NoError(t, err)
	require.Len(t, fps, 2)
	assert.Equal(t, "aaa", fps[0].SHA256)
	assert.Equal(t, types.StageAssemble, fps[0].Source)
	assert.Equal(t, id, fps[0].RunID)
}

func TestLatestNeverRun(t *testing.T) {
	l := openTest(t)
	run, err := l.Latest(context.Background(), types.StagePartition)
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRecordFatal(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()

	fatal := types.IOError("writing L0001.docx", errors.New("disk full"))
	_, err := l.Record(ctx, types.NewStageSummary(types.StageNormalize), fatal)
	require.NoError(t, err)

	run, err := l.Latest(ctx, types.StageNormalize)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Contains(t, run.Fatal, "disk full")
	assert.Empty(t, run.Routes)
}

func TestStatusReturnsLatestPerStageInOrder(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()

	_, err := l.Record(ctx, summary(types.StagePartition), nil)
	require.NoError(t, err)
	_, err = l.Record(ctx, summary(types.StageNormalize), nil)
	require.NoError(t, err)

	second := types.NewStageSummary(types.StageNormalize)
	second.Succeed(io.Discard, types.Route{ID: "L0009", Number: 9}, "", "")
	latest, err := l.Record(ctx, second, nil)
	require.NoError(t, err)

	status, err := l.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.Equal(t, types.StageNormalize, status[0].Stage)
	assert.Equal(t, latest, status[0].ID)
	assert.Equal(t, 1, status[0].Succeeded)
	assert.Equal(t, types.StagePartition, status[1].Stage)

	runs, err := l.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, types.StagePartition, runs[0].Stage)
	assert.Equal(t, latest, runs[2].ID)
}

func TestLatestFollowsRecordingOrder(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()

	// 05.1 and 05.12 seconds compare the wrong way round as RFC 3339 text.
	base := time.Date(2026, 3, 1, 9, 0, 5, 0, time.UTC)
	finish := []time.Time{base.Add(100 * time.Millisecond), base.Add(120 * time.Millisecond)}
	l.now = func() time.Time {
		next := finish[0]
		finish = finish[1:]
		return next
	}

	_, err := l.Record(ctx, types.NewStageSummary(types.StageAssemble), nil)
	require.NoError(t, err)
	second, err := l.Record(ctx, types.NewStageSummary(types.StageAssemble), nil)
	require.NoError(t, err)

	run, err := l.Latest(ctx, types.StageAssemble)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, second, run.ID)
	assert.Equal(t, base.Add(120*time.Millisecond), run.FinishedAt)

	runs, err := l.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[1].ID)
}

func TestRecordFingerprints(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()

	id, err := l.Record(ctx, types.NewStageSummary(types.StageHarvest), nil)
	require.NoError(t, err)
	require.NoError(t, l.RecordFingerprints(ctx, id, "L0459", types.StageHarvest, []string{"ccc", "ccc", "ddd"}))

	fps, err := l.Fingerprints(ctx, "")
	require.NoError(t, err)
	require.Len(t, fps, 2)
	assert.Equal(t, "L0459", fps[0].Route)
}

func TestExport(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()

	_, err := l.Record(ctx, summary(types.StageHarvest), nil)
	require.NoError(t, err)

	yamlPath, err := l.ExportYAML(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.Dir(), "ledger.yaml"), yamlPath)

	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML Export
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	require.Len(t, fromYAML.Status, 1)
	assert.Len(t, fromYAML.Status[0].Routes, 3)
	assert.Len(t, fromYAML.Runs, 1)
	assert.Len(t, fromYAML.Fingerprints, 2)

	jsonPath, err := l.ExportJSON(ctx)
	require.NoError(t, err)
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON Export
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, types.StageHarvest, fromJSON.Runs[0].Stage)
	assert.Equal(t, "L0002", fromJSON.Status[0].Routes[1].Route.ID)
}
