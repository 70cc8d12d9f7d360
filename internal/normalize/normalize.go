// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize rewrites exported field reports into the house layout:
// a fixed chunk order, two heading levels, single spacing, fixed fonts and
// a two-column page with page numbers.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/internal/label"
	"github.com/pdiddy/fieldbook/internal/route"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// Outline summarizes what normalization found in a report.
type Outline struct {
	RouteCode string
	Points    []string
	Chunks    int
	Headings  int
	Title     string // synthesized title, empty when the report had one
	Resized   int
}

// chunk is a run of blocks started by a vocabulary label.
type chunk struct {
	kind   string
	blocks []*etree.Element
}

// NormalizeAll normalizes every route report in cfg.InputDir into
// cfg.OutputDir, printing one status line per route to w.
func NormalizeAll(ctx context.Context, cfg types.NormalizeConfig, w io.Writer) (types.StageSummary, error) {
	summary := types.NewStageSummary(types.StageNormalize)
	log := logger(cfg.Logger)

	if filepath.Clean(cfg.InputDir) == filepath.Clean(cfg.OutputDir) {
		return summary, fmt.Errorf("%w: normalize input and output are the same directory", types.ErrConfiguration)
	}
	r, err := Compile(cfg.Patterns)
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
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return summary, types.IOError("creating "+cfg.OutputDir, err)
	}

	for _, d := range found.Duplicates {
		summary.Skip(w, d.Route, "duplicate file "+filepath.Base(d.Path))
	}

	total := len(found.Entries)
	for i, e := range found.Entries {
		if err := ctx.Err(); err != nil {
			summary.PrintSummary(w)
			return summary, err
		}

		pkg, err := docx.Open(e.Path)
		if err != nil {
			summary.Fail(w, e.Route, err)
			cfg.Progress.Emit(types.Progress{Stage: summary.Stage, Route: e.Route, Index: i + 1, Total: total, Status: types.StatusFailed})
			continue
		}
		outline, err := NormalizeDocument(pkg, e.Route, r, cfg.Typography)
		if err != nil {
			summary.Fail(w, e.Route, err)
			cfg.Progress.Emit(types.Progress{Stage: summary.Stage, Route: e.Route, Index: i + 1, Total: total, Status: types.StatusFailed})
			continue
		}

		out := route.OutputPath(cfg.OutputDir, e.Route)
		if err := pkg.Save(out); err != nil {
			summary.Fail(w, e.Route, err)
			if errors.Is(err, types.ErrIO) {
				summary.PrintSummary(w)
				return summary, err
			}
			continue
		}

		log.Debug("normalized report",
			"route", e.Route.ID,
			"route_code", outline.RouteCode,
			"points", len(outline.Points),
			"chunks", outline.Chunks,
			"headings", outline.Headings,
			"resized_images", outline.Resized,
		)
		summary.Succeed(w, e.Route, out, outline.detail())
		cfg.Progress.Emit(types.Progress{Stage: summary.Stage, Route: e.Route, Index: i + 1, Total: total, Status: types.StatusSucceeded})
	}

	summary.PrintSummary(w)
	return summary, nil
}

func (o Outline) detail() string {
	parts := []string{fmt.Sprintf("%d points", len(o.Points)), fmt.Sprintf("%d headings", o.Headings)}
	if o.Title != "" {
		parts = append(parts, "title "+o.Title)
	}
	return strings.Join(parts, ", ")
}

// NormalizeDocument rewrites pkg in place.
func NormalizeDocument(pkg *docx.Package, rt types.Route, r *Rules, typo types.Typography) (Outline, error) {
	var outline Outline

	chunks := split(pkg.Blocks(), r.patterns.Chunks)
	outline.Chunks = len(chunks)
	outline.RouteCode, outline.Points = codes(chunks, r)
	chunks = reorder(chunks, r.patterns.Reorder)

	titles := make(map[string]bool) // texts of level 1 headings
	for _, c := range chunks {
		for _, b := range c.blocks {
			if pkg.HeadingLevel(b) == 1 {
				titles[docx.Text(b)] = true
			}
		}
	}

	pkg.SetBlocks(rebuild(chunks, r, typo.LineSpacing))

	h1, err := pkg.EnsureParagraphStyle(docx.Heading1Style(heading1Font(typo)))
	if err != nil {
		return outline, err
	}
	h2, err := pkg.EnsureParagraphStyle(docx.Heading2Style(heading2Font(typo)))
	if err != nil {
		return outline, err
	}

	body := bodyFont(typo)
	for _, b := range pkg.Blocks() {
		if !docx.IsParagraph(b) {
			continue
		}
		switch r.headingLevel(docx.Text(b)) {
		case 1:
			styleHeading(b, h1, 0, heading1Font(typo))
			titles[docx.Text(b)] = true
			outline.Headings++
		case 2:
			styleHeading(b, h2, 1, heading2Font(typo))
			outline.Headings++
		default:
			if pkg.HeadingLevel(b) == 0 {
				docx.SetRunFonts(b, body)
			}
		}
	}

	id := rt.ID
	if outline.RouteCode != "" {
		id = strings.ToUpper(outline.RouteCode)
	}
	// A route with points always leads with its point-range title; without
	// points the bare code is only a fallback for reports lacking a title.
	title := r.title(id, outline.Points)
	if !titles[title] && (len(outline.Points) > 0 || len(titles) == 0) {
		outline.Title = title
		t := docx.NewParagraph(outline.Title)
		styleHeading(t, h1, 0, heading1Font(typo))
		sp := docx.SetSpacing(t, typo.LineSpacing, 0)
		sp.CreateAttr("w:before", "0")
		pkg.InsertBlocks(0, t)
	}

	for _, s := range pkg.Sections() {
		docx.SetColumns(s.Props, typo.Columns)
	}
	outline.Resized = pkg.ResizeImages(typo.MaxImageWidth)

	footer := pkg.PageNumberFooter(pkg.BodySectPr())
	if footer == "" {
		footer = pkg.AddPageNumberFooter()
	}
	for _, s := range pkg.Sections() {
		docx.SetFooter(s.Props, footer)
	}
	return outline, nil
}

// split drops empty paragraphs and groups the rest into chunks. Blocks
// before the first vocabulary label form a chunk of kind "".
func split(blocks []*etree.Element, vocabulary []string) []chunk {
	var out []chunk
	cur := chunk{}
	for _, b := range blocks {
		if docx.IsEmpty(b) {
			continue
		}
		if kind := chunkKind(b, vocabulary); kind != "" {
			if len(cur.blocks) > 0 {
				out = append(out, cur)
			}
			cur = chunk{kind: kind}
		}
		cur.blocks = append(cur.blocks, b)
	}
	if len(cur.blocks) > 0 {
		out = append(out, cur)
	}
	return out
}

// chunkKind returns the first vocabulary phrase the paragraph's label
// contains.
func chunkKind(b *etree.Element, vocabulary []string) string {
	if !docx.IsParagraph(b) {
		return ""
	}
	f := label.Split(strings.TrimSpace(docx.Text(b)))
	for _, phrase := range vocabulary {
		if label.Contains(f.Label, phrase) {
			return phrase
		}
	}
	return ""
}

// codes reads the route code and the point codes in report order.
func codes(chunks []chunk, r *Rules) (string, []string) {
	var routeCode string
	var points []string
	for _, c := range chunks {
		text := docx.Text(c.blocks[0])
		switch c.kind {
		case r.patterns.RouteChunk:
			if routeCode == "" {
				routeCode = r.routeCode.FindString(text)
			}
		case r.patterns.PointChunk:
			if p := r.pointCode.FindString(text); p != "" {
				points = append(points, strings.ToUpper(p))
			}
		}
	}
	return routeCode, points
}

// reorder swaps adjacent chunk pairs named by the rules.
func reorder(chunks []chunk, pairs []types.ReorderRule) []chunk {
	out := make([]chunk, 0, len(chunks))
	for i := 0; i < len(chunks); i++ {
		if i+1 < len(chunks) && swaps(chunks[i].kind, chunks[i+1].kind, pairs) {
			out = append(out, chunks[i+1], chunks[i])
			i++
			continue
		}
		out = append(out, chunks[i])
	}
	return out
}

func swaps(first, second string, pairs []types.ReorderRule) bool {
	for _, p := range pairs {
		if p.First == first && p.Second == second {
			return true
		}
	}
	return false
}

// rebuild lays the chunks back out with spacers, label substitutions and
// single spacing.
func rebuild(chunks []chunk, r *Rules, line int) []*etree.Element {
	var out []*etree.Element
	seen := make(map[string]int)
	for _, c := range chunks {
		if rule, ok := r.spacers[c.kind]; ok {
			if !rule.SkipFirst || seen[c.kind] > 0 {
				out = append(out, docx.NewBlankParagraph())
			}
		}
		seen[c.kind]++

		for i, b := range c.blocks {
			if !docx.IsParagraph(b) {
				out = append(out, b)
				continue
			}
			if i == 0 && c.kind != "" {
				relabel(b, r.patterns.Substitutions)
			} else {
				substitute(b, r.patterns.Substitutions)
			}
			if hasAny(docx.Text(b), r.patterns.LineSpacers) {
				out = append(out, docx.NewBlankParagraph())
			}
			docx.SetSpacing(b, line, 0)
			out = append(out, b)
		}
	}
	return out
}

// relabel applies the first substitution whose From equals the whole field
// label and normalizes the label colon to full width. Text in the value is
// never touched.
func relabel(b *etree.Element, subs []types.Substitution) {
	text := docx.Text(b)
	f := label.Split(text)
	if replaceLabel(b, text, f, subs) {
		return
	}
	if f.Ascii {
		docx.ReplaceText(b, f.Colon, f.Colon+1, label.FullWidthColon)
	}
}

// substitute applies the label substitutions to a paragraph inside a chunk.
// Only a label followed by a colon counts there; other text and colons are
// left alone.
func substitute(b *etree.Element, subs []types.Substitution) {
	text := docx.Text(b)
	f := label.Split(text)
	if f.Colon < 0 {
		return
	}
	replaceLabel(b, text, f, subs)
}

func replaceLabel(b *etree.Element, text string, f label.Field, subs []types.Substitution) bool {
	for _, s := range subs {
		if !label.Equal(f.Label, s.From) {
			continue
		}
		end := f.Colon + 1
		if f.Colon < 0 {
			end = len([]rune(text))
		}
		docx.ReplaceText(b, 0, end, s.To+label.FullWidthColon)
		return true
	}
	return false
}

func hasAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func styleHeading(b *etree.Element, styleID string, outline int, f docx.Font) {
	docx.SetStyle(b, styleID)
	docx.SetOutlineLevel(b, outline)
	docx.SetRunFonts(b, f)
}

func bodyFont(t types.Typography) docx.Font {
	return docx.Font{Latin: t.LatinFont, EastAsia: t.EastAsiaFont, Size: t.BodySize}
}

func heading1Font(t types.Typography) docx.Font {
	return docx.Font{Latin: t.Heading1Font, EastAsia: t.Heading1Font, Size: t.Heading1Size, Bold: true, Color: "000000"}
}

func heading2Font(t types.Typography) docx.Font {
	return docx.Font{Latin: t.Heading2Font, EastAsia: t.Heading2Font, Size: t.Heading2Size, Bold: true, Color: "000000"}
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
