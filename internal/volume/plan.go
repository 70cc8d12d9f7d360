// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package volume

import (
	"fmt"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// CoverPage is the page number of every cover.
const CoverPage = 1

// Member is an assembled report bound into a volume.
type Member struct {
	Route types.Route
	Path  string
	Pkg   *docx.Package
	Title string
	Pages int
}

// Entry is a planned TOC line.
type Entry struct {
	Route    types.Route
	Title    string
	Bookmark string
	Start    int // first page
	Pages    int
}

// Plan is the page layout of one volume: the cover on page 1, the TOC from
// page 2, then each route on a fresh page.
type Plan struct {
	Number   int
	TOCStart int
	TOCPages int
	Entries  []Entry
}

// NewPlan lays out members in order.
func NewPlan(number int, members []Member, est *Estimator) Plan {
	p := Plan{Number: number, TOCStart: CoverPage + 1, TOCPages: est.TOCPages(len(members))}
	page := p.TOCStart + p.TOCPages
	for _, m := range members {
		p.Entries = append(p.Entries, Entry{
			Route:    m.Route,
			Title:    m.Title,
			Bookmark: Bookmark(m.Route),
			Start:    page,
			Pages:    m.Pages,
		})
		page += m.Pages
	}
	return p
}

// LastPage returns the final page number of the volume.
func (p Plan) LastPage() int {
	if len(p.Entries) == 0 {
		return p.TOCStart + p.TOCPages - 1
	}
	last := p.Entries[len(p.Entries)-1]
	return last.Start + last.Pages - 1
}

// Pagination lists the page numbers from the cover to the last content
// page.
func (p Plan) Pagination() []int {
	out := make([]int, 0, p.LastPage())
	for n := CoverPage; n <= p.LastPage(); n++ {
		out = append(out, n)
	}
	return out
}

// Check verifies that the cover, TOC and routes follow each other without
// gaps or overlaps.
func (p Plan) Check() error {
	next := p.TOCStart
	if next != CoverPage+1 {
		return fmt.Errorf("volume %d: TOC starts on page %d", p.Number, next)
	}
	next += p.TOCPages
	for _, e := range p.Entries {
		if e.Start != next || e.Pages < 1 {
			return fmt.Errorf("volume %d: %s planned at page %d for %d pages, want page %d", p.Number, e.Route.ID, e.Start, e.Pages, next)
		}
		next += e.Pages
	}
	return nil
}

// Bookmark names the TOC target of a route.
func Bookmark(r types.Route) string {
	return "route_" + r.ID
}
