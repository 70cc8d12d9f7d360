// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest collects the sketch maps of each route project folder into
// one captioned sketch document per route.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/internal/route"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// Sketch is one harvested image.
type Sketch struct {
	Path        string
	Data        []byte
	Fingerprint string
}

// HarvestAll builds a sketch document for every route folder under
// cfg.ProjectsDir that holds sketches. Routes without sketches are skipped
// and any sketch document left from an earlier run is removed.
func HarvestAll(ctx context.Context, cfg types.HarvestConfig, w io.Writer) (types.StageSummary, error) {
	summary := types.NewStageSummary(types.StageHarvest)
	log := logger(cfg.Logger)

	if cfg.SketchDir == "" {
		return summary, fmt.Errorf("%w: empty sketch folder name", types.ErrConfiguration)
	}
	if cfg.ImageWidth <= 0 {
		return summary, fmt.Errorf("%w: sketch width must be positive", types.ErrConfiguration)
	}
	parser, err := route.NewParser(cfg.Patterns.RouteName)
	if err != nil {
		return summary, err
	}
	found, err := route.DiscoverFolders(cfg.ProjectsDir, parser)
	if err != nil {
		return summary, types.IOError("listing route folders", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return summary, types.IOError("creating "+cfg.OutputDir, err)
	}

	for _, d := range found.Duplicates {
		summary.Skip(w, d.Route, "duplicate folder "+filepath.Base(d.Path))
	}

	total := len(found.Entries)
	for i, e := range found.Entries {
		if err := ctx.Err(); err != nil {
			summary.PrintSummary(w)
			return summary, err
		}
		status, err := harvestRoute(e, cfg, &summary, w, log)
		if err != nil {
			summary.PrintSummary(w)
			return summary, err
		}
		cfg.Progress.Emit(types.Progress{Stage: summary.Stage, Route: e.Route, Index: i + 1, Total: total, Status: status})
	}

	summary.PrintSummary(w)
	return summary, nil
}

// harvestRoute records the outcome of one route. Its error is non-nil only
// for batch-level failures.
func harvestRoute(e route.Entry, cfg types.HarvestConfig, summary *types.StageSummary, w io.Writer, log *slog.Logger) (types.RouteStatus, error) {
	out := route.OutputPath(cfg.OutputDir, e.Route)

	files, err := SketchFiles(filepath.Join(e.Path, cfg.SketchDir))
	if err != nil {
		summary.Fail(w, e.Route, err)
		return types.StatusFailed, nil
	}
	if len(files) == 0 {
		if err := removeStale(out); err != nil {
			return types.StatusFailed, err
		}
		summary.Skip(w, e.Route, "no sketches")
		return types.StatusSkipped, nil
	}

	sketches := make([]Sketch, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			summary.Fail(w, e.Route, types.Malformed(filepath.Base(f), err))
			return types.StatusFailed, nil
		}
		sketches = append(sketches, Sketch{Path: f, Data: data, Fingerprint: docx.Fingerprint(data)})
	}

	pkg, err := Build(e.Route, sketches, cfg.Patterns.Caption, cfg.ImageWidth)
	if err != nil {
		summary.Fail(w, e.Route, err)
		return types.StatusFailed, nil
	}
	if err := pkg.Save(out); err != nil {
		summary.Fail(w, e.Route, err)
		if errors.Is(err, types.ErrIO) {
			return types.StatusFailed, err
		}
		return types.StatusFailed, nil
	}

	fps := make([]string, len(sketches))
	for i, s := range sketches {
		fps[i] = s.Fingerprint
		log.Debug("harvested sketch", "route", e.Route.ID, "file", filepath.Base(s.Path), "sha256", s.Fingerprint)
	}
	summary.Succeed(w, e.Route, out, fmt.Sprintf("%d sketches", len(sketches)))
	summary.Last().Fingerprints = fps
	return types.StatusSucceeded, nil
}

// SketchFiles lists the PNG files of a sketch folder, matching the
// extension case-insensitively, without duplicates, in lexicographic
// order. A missing folder yields no files.
func SketchFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, types.Malformed("sketch folder", err)
	}
	seen := make(map[string]bool)
	var names []string
	for _, d := range entries {
		name := d.Name()
		if d.IsDir() || !strings.EqualFold(filepath.Ext(name), ".png") {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out, nil
}

// Build lays out sketches as caption and picture pairs.
func Build(rt types.Route, sketches []Sketch, captionTemplate string, width int64) (*docx.Package, error) {
	pkg := docx.New()
	captionID, err := pkg.EnsureParagraphStyle(docx.CaptionStyle(docx.Font{Bold: true}))
	if err != nil {
		return nil, err
	}
	for i, s := range sketches {
		cx, cy, err := docx.PNGExtent(s.Data, width)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(s.Path), err)
		}
		relID := pkg.AddImage(s.Data, "png")

		caption := docx.NewParagraph(Caption(captionTemplate, rt, i+1))
		docx.SetStyle(caption, captionID)
		pkg.AppendBlock(caption)
		pkg.AppendBlock(pkg.NewPictureParagraph(relID, filepath.Base(s.Path), cx, cy))
	}
	return pkg, nil
}

// Caption renders the caption of the n-th sketch of a route.
func Caption(template string, rt types.Route, n int) string {
	return strings.NewReplacer("{route}", rt.ID, "{n}", strconv.Itoa(n)).Replace(template)
}

func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return types.IOError("removing stale "+filepath.Base(path), err)
	}
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
