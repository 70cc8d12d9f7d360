// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package volume binds assembled route reports into numbered volumes, each
// with a cover, a table of contents and continuous page numbers.
package volume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/internal/route"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// FileName returns the volume file name: {prefix}-{NN}_{first}-{last}.docx.
func FileName(prefix string, plan Plan) string {
	first, last := "", ""
	if len(plan.Entries) > 0 {
		first, last = plan.Entries[0].Route.ID, plan.Entries[len(plan.Entries)-1].Route.ID
	}
	return fmt.Sprintf("%s-%02d_%s-%s.docx", prefix, plan.Number, first, last)
}

// PartitionAll reads every assembled report, splits them into volumes by
// cfg.Policy and writes one document per volume. Volume files from earlier
// runs are removed once the new set is written.
func PartitionAll(ctx context.Context, cfg types.PartitionConfig, w io.Writer) (types.StageSummary, error) {
	summary := types.NewStageSummary(types.StagePartition)
	log := logger(cfg.Logger)

	if err := cfg.Policy.Validate(); err != nil {
		return summary, err
	}
	if cfg.FilePrefix == "" || strings.ContainsAny(cfg.FilePrefix, `/\`) {
		return summary, fmt.Errorf("%w: invalid volume file prefix %q", types.ErrConfiguration, cfg.FilePrefix)
	}
	est, err := NewEstimator(cfg.Estimate)
	if err != nil {
		return summary, err
	}
	parser, err := route.NewParser(cfg.Patterns.RouteName)
	if err != nil {
		return summary, err
	}
	found, err := route.DiscoverFiles(cfg.InputDir, ".docx", parser)
	if err != nil {
		return summary, types.IOError("listing reports", err)
	}
	for _, d := range found.Duplicates {
		summary.Skip(w, d.Route, "duplicate file "+filepath.Base(d.Path))
	}

	var members []Member
	for _, e := range found.Entries {
		if err := ctx.Err(); err != nil {
			summary.PrintSummary(w)
			return summary, err
		}
		pkg, err := docx.Open(e.Path)
		if err != nil {
			summary.Fail(w, e.Route, err)
			continue
		}
		members = append(members, Member{
			Route: e.Route,
			Path:  e.Path,
			Pkg:   pkg,
			Title: Title(pkg),
			Pages: est.Pages(pkg),
		})
	}

	ranges, err := Partition(len(members), cfg.Policy)
	if err != nil {
		summary.PrintSummary(w)
		return summary, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		summary.PrintSummary(w)
		return summary, types.IOError("creating "+cfg.OutputDir, err)
	}

	front := Front{CoverTitle: cfg.CoverTitle, TOCTitle: cfg.TOCTitle, Typography: cfg.Typography}
	written := make(map[string]bool)
	done := 0
	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			summary.PrintSummary(w)
			return summary, err
		}
		group := members[r.Start:r.End]
		plan := NewPlan(i+1, group, est)
		if err := plan.Check(); err != nil {
			summary.PrintSummary(w)
			return summary, err
		}

		out := filepath.Join(cfg.OutputDir, FileName(cfg.FilePrefix, plan))
		pkg, err := Build(plan, group, front)
		if err == nil {
			err = pkg.Save(out)
		}
		if err != nil {
			for _, m := range group {
				summary.Fail(w, m.Route, fmt.Errorf("volume %d: %w", plan.Number, err))
			}
			if errors.Is(err, types.ErrIO) {
				summary.PrintSummary(w)
				return summary, err
			}
			continue
		}

		written[filepath.Base(out)] = true
		summary.Outputs = append(summary.Outputs, out)
		log.Debug("bound volume",
			"volume", plan.Number,
			"routes", len(group),
			"toc_pages", plan.TOCPages,
			"last_page", plan.LastPage(),
			"path", out,
		)
		for _, e := range plan.Entries {
			summary.Succeed(w, e.Route, out, fmt.Sprintf("volume %d, page %d", plan.Number, e.Start))
			done++
			cfg.Progress.Emit(types.Progress{Stage: summary.Stage, Route: e.Route, Index: done, Total: len(members), Status: types.StatusSucceeded})
		}
	}

	if err := removeStaleVolumes(cfg.OutputDir, cfg.FilePrefix, written); err != nil {
		summary.PrintSummary(w)
		return summary, err
	}
	summary.PrintSummary(w)
	return summary, nil
}

// removeStaleVolumes deletes volume files in dir that the current run did
// not write.
func removeStaleVolumes(dir, prefix string, keep map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return types.IOError("listing volumes", err)
	}
	for _, d := range entries {
		name := d.Name()
		if d.IsDir() || keep[name] || !strings.HasPrefix(name, prefix+"-") || !strings.EqualFold(filepath.Ext(name), ".docx") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return types.IOError("removing stale volume "+name, err)
		}
	}
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
