// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble merges each route's sketch document into its normalized
// report, right after the self-check anchor, as a single-column section.
package assemble

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

	"github.com/beevik/etree"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/internal/route"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// Figure is a run of sketch blocks ending in a picture, usually a caption
// and its image.
type Figure struct {
	Blocks       []*etree.Element
	Fingerprints []string
}

// Result describes one merge.
type Result struct {
	Anchor       int
	At           int
	Inserted     int
	Duplicates   int
	Fingerprints []string
}

func (r Result) detail() string {
	if r.Duplicates == 0 {
		return fmt.Sprintf("%d sketches inserted", r.Inserted)
	}
	return fmt.Sprintf("%d sketches inserted, %d duplicates", r.Inserted, r.Duplicates)
}

// AssembleAll merges sketches into every normalized report and writes the
// results to cfg.OutputDir. Reports without a sketch document are copied
// forward byte for byte.
func AssembleAll(ctx context.Context, cfg types.AssembleConfig, w io.Writer) (types.StageSummary, error) {
	summary := types.NewStageSummary(types.StageAssemble)
	log := logger(cfg.Logger)

	if filepath.Clean(cfg.ReportsDir) == filepath.Clean(cfg.OutputDir) {
		return summary, fmt.Errorf("%w: assemble input and output are the same directory", types.ErrConfiguration)
	}
	matcher, err := NewPhraseMatcher(cfg.Patterns.Anchors)
	if err != nil {
		return summary, err
	}
	parser, err := route.NewParser(cfg.Patterns.RouteName)
	if err != nil {
		return summary, err
	}
	reports, err := route.DiscoverFiles(cfg.ReportsDir, ".docx", parser)
	if err != nil {
		return summary, types.IOError("listing reports", err)
	}
	sketches, err := route.DiscoverFiles(cfg.SketchesDir, ".docx", parser)
	if err != nil {
		return summary, types.IOError("listing sketch documents", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return summary, types.IOError("creating "+cfg.OutputDir, err)
	}

	for _, d := range reports.Duplicates {
		summary.Skip(w, d.Route, "duplicate file "+filepath.Base(d.Path))
	}
	byRoute := route.Index(sketches.Entries)
	reported := route.Index(reports.Entries)
	for _, s := range sketches.Entries {
		if _, ok := reported[s.Route.ID]; !ok {
			log.Debug("sketch document without report", "route", s.Route.ID, "path", s.Path)
		}
	}

	total := len(reports.Entries)
	for i, e := range reports.Entries {
		if err := ctx.Err(); err != nil {
			summary.PrintSummary(w)
			return summary, err
		}
		sketch, hasSketch := byRoute[e.Route.ID]
		status, err := assembleRoute(e, sketch, hasSketch, matcher, cfg, &summary, w, log)
		if err != nil {
			summary.PrintSummary(w)
			return summary, err
		}
		cfg.Progress.Emit(types.Progress{Stage: summary.Stage, Route: e.Route, Index: i + 1, Total: total, Status: status})
	}

	summary.PrintSummary(w)
	return summary, nil
}

// assembleRoute records the outcome of one route. Its error is non-nil only
// for batch-level failures.
func assembleRoute(e, sketch route.Entry, hasSketch bool, m AnchorMatcher, cfg types.AssembleConfig,
	summary *types.StageSummary, w io.Writer, log *slog.Logger) (types.RouteStatus, error) {
	out := route.OutputPath(cfg.OutputDir, e.Route)

	fail := func(err error) (types.RouteStatus, error) {
		summary.Fail(w, e.Route, err)
		if err := removeStale(out); err != nil {
			return types.StatusFailed, err
		}
		return types.StatusFailed, nil
	}

	original, err := os.ReadFile(e.Path)
	if err != nil {
		return fail(types.Malformed(filepath.Base(e.Path), err))
	}
	if !hasSketch {
		if err := docx.WriteFile(out, original); err != nil {
			summary.Fail(w, e.Route, err)
			return types.StatusFailed, err
		}
		summary.Succeed(w, e.Route, out, "no sketches, copied")
		return types.StatusSucceeded, nil
	}

	report, err := docx.Read(original)
	if err != nil {
		return fail(err)
	}
	sk, err := docx.Open(sketch.Path)
	if err != nil {
		return fail(fmt.Errorf("sketch document: %w", err))
	}
	heading := strings.ReplaceAll(cfg.Patterns.SketchHeading, "{route}", e.Route.ID)
	res, err := AssembleDocument(report, sk, m, heading)
	if err != nil {
		return fail(err)
	}

	if res.Inserted == 0 {
		err = docx.WriteFile(out, original)
	} else {
		err = report.Save(out)
	}
	if err != nil {
		summary.Fail(w, e.Route, err)
		if errors.Is(err, types.ErrIO) {
			return types.StatusFailed, err
		}
		return types.StatusFailed, nil
	}

	log.Debug("assembled report",
		"route", e.Route.ID,
		"anchor", res.Anchor,
		"insert_at", res.At,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
	)
	summary.Succeed(w, e.Route, out, res.detail())
	summary.Last().Fingerprints = res.Fingerprints
	return types.StatusSucceeded, nil
}

// AssembleDocument merges sketch into report after its anchor, opening the
// section with heading unless it is empty. The report is left untouched
// when no new picture remains.
func AssembleDocument(report, sketch *docx.Package, m AnchorMatcher, heading string) (Result, error) {
	var res Result
	anchor, err := Locate(report, m)
	if err != nil {
		return res, err
	}
	res.Anchor = anchor
	res.At = Extent(report, anchor)

	existing := make(map[string]bool)
	for _, img := range report.Images() {
		existing[docx.Fingerprint(img.Data)] = true
	}
	figs, dups := Dedup(Figures(sketch), existing)
	res.Duplicates = dups
	for _, f := range figs {
		if len(f.Fingerprints) > 0 {
			res.Inserted++
		}
		res.Fingerprints = append(res.Fingerprints, f.Fingerprints...)
	}
	// Captions left without a picture are not worth a section of their own.
	if res.Inserted == 0 {
		return res, nil
	}
	if err := Insert(report, sketch, figs, res.At, heading); err != nil {
		return res, err
	}
	return res, nil
}

// Figures splits a sketch document into figures. Trailing blocks with no
// picture form a last figure without fingerprints.
func Figures(sketch *docx.Package) []Figure {
	var out []Figure
	var cur Figure
	for _, b := range sketch.Blocks() {
		if docx.IsSectionBreak(b) {
			continue
		}
		cur.Blocks = append(cur.Blocks, b)
		if !docx.HasDrawing(b) {
			continue
		}
		for _, img := range sketch.ImagesIn(b) {
			cur.Fingerprints = append(cur.Fingerprints, docx.Fingerprint(img.Data))
		}
		out = append(out, cur)
		cur = Figure{}
	}
	if len(cur.Blocks) > 0 {
		out = append(out, cur)
	}
	return out
}

// Dedup drops figures holding an image already in seen and adds the images
// of the kept figures to seen. It returns the kept figures and the number
// dropped.
func Dedup(figs []Figure, seen map[string]bool) ([]Figure, int) {
	var kept []Figure
	dropped := 0
	for _, f := range figs {
		dup := false
		for _, fp := range f.Fingerprints {
			if seen[fp] {
				dup = true
				break
			}
		}
		if dup {
			dropped++
			continue
		}
		for _, fp := range f.Fingerprints {
			seen[fp] = true
		}
		kept = append(kept, f)
	}
	return kept, dropped
}

// Insert places figs at block index at as a single-column section. With G
// the section properties governing at, the inserted blocks are
// [break(G), figures, break(G, one column, new page)] and G itself becomes
// continuous, so the layout reads [G, 1 column, G]. The leading break is
// left out when at already follows a section break. A non-empty heading
// becomes the first paragraph of the single-column section.
func Insert(report, sketch *docx.Package, figs []Figure, at int, heading string) error {
	var src []*etree.Element
	for _, f := range figs {
		src = append(src, f.Blocks...)
	}
	copies, err := report.Import(sketch, src)
	if err != nil {
		return err
	}

	blocks := report.Blocks()
	g := report.SectionAt(at).Props

	var ins []*etree.Element
	if at > 0 && !docx.IsSectionBreak(blocks[at-1]) {
		ins = append(ins, docx.NewSectionBreak(g))
	}
	if heading != "" {
		ins = append(ins, sketchHeading(heading))
	}
	ins = append(ins, copies...)
	single := docx.NewSectionBreak(g)
	sp := single.SelectElement("w:pPr").SelectElement("w:sectPr")
	docx.SetColumns(sp, 1)
	docx.SetSectionStart(sp, docx.StartNextPage)
	ins = append(ins, single)

	docx.SetSectionStart(g, docx.StartContinuous)
	report.InsertBlocks(at, ins...)
	return nil
}

// sketchHeading is a bold body paragraph rather than a heading style, so it
// stays out of the volume table of contents.
func sketchHeading(text string) *etree.Element {
	p := docx.NewParagraph(text)
	docx.SetAlignment(p, "left")
	docx.SetRunFonts(p, docx.Font{Latin: "宋体", EastAsia: "宋体", Size: 21, Bold: true})
	return p
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
