// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package volume

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// slack absorbs rounding when page fractions add up to a whole page.
const slack = 1e-9

// Estimator guesses how many pages a report fills. The guess only seeds
// the cached TOC page numbers; Word recomputes them on open.
type Estimator struct {
	cfg types.PageEstimate
}

// NewEstimator validates the estimate constants.
func NewEstimator(cfg types.PageEstimate) (*Estimator, error) {
	if cfg.CharsPerLine < 1 || cfg.LinesPerColumn < 1 || cfg.PageHeight < 1 || cfg.TOCEntriesPerPage < 1 {
		return nil, fmt.Errorf("%w: page estimate constants must be positive: %+v", types.ErrConfiguration, cfg)
	}
	return &Estimator{cfg: cfg}, nil
}

// Pages estimates the page count of pkg. Every report occupies at least one
// page.
func (e *Estimator) Pages(pkg *docx.Package) int {
	blocks := pkg.Blocks()
	pages := 0
	fill := 0.0 // fraction of the current page in use
	for i, s := range pkg.Sections() {
		if i > 0 && fill > slack && docx.SectionStart(s.Props) != docx.StartContinuous {
			pages++
			fill = 0
		}
		cols := docx.Columns(s.Props)
		for _, b := range blocks[s.Start:s.End] {
			fill += e.blockFill(b, cols)
			for fill > 1+slack {
				pages++
				fill--
			}
			if fill > slack && hasPageBreak(b) {
				pages++
				fill = 0
			}
		}
	}
	if fill > slack || pages == 0 {
		pages++
	}
	return pages
}

// TOCPages returns how many pages a table of contents of n entries takes.
func (e *Estimator) TOCPages(n int) int {
	return max(1, (n+e.cfg.TOCEntriesPerPage-1)/e.cfg.TOCEntriesPerPage)
}

// blockFill is the page fraction block b takes in a section of cols
// columns.
func (e *Estimator) blockFill(b *etree.Element, cols int) float64 {
	if docx.IsSectionBreak(b) && docx.Text(b) == "" {
		return 0
	}
	perLine := max(1, e.cfg.CharsPerLine/cols)
	lines := 0
	paras := []*etree.Element{b}
	if !docx.IsParagraph(b) {
		paras = b.FindElements(".//w:p")
	}
	for _, p := range paras {
		n := len([]rune(docx.Text(p)))
		lines += max(1, (n+perLine-1)/perLine)
	}
	column := float64(lines) / float64(e.cfg.LinesPerColumn)
	column += float64(docx.Extent(b)) / float64(e.cfg.PageHeight)
	return column / float64(cols)
}

func hasPageBreak(b *etree.Element) bool {
	return b.FindElement(".//w:br[@w:type='page']") != nil
}
