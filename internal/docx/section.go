// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"strconv"

	"github.com/beevik/etree"
)

// Section start kinds (w:type).
const (
	StartNextPage   = "nextPage"
	StartContinuous = "continuous"
	StartOddPage    = "oddPage"
)

// Section is a run of blocks sharing one w:sectPr. Start and End index
// Blocks(); End is exclusive and includes the break paragraph that carries
// Props, if any.
type Section struct {
	Start, End int
	Props      *etree.Element
}

// Sections splits the body into sections. The last section is governed by
// the body w:sectPr and may be empty.
func (p *Package) Sections() []Section {
	var out []Section
	start := 0
	for i, b := range p.Blocks() {
		if IsSectionBreak(b) {
			out = append(out, Section{Start: start, End: i + 1, Props: b.SelectElement("w:pPr").SelectElement("w:sectPr")})
			start = i + 1
		}
	}
	out = append(out, Section{Start: start, End: len(p.Blocks()), Props: p.BodySectPr()})
	return out
}

// SectionAt returns the section holding block i. An index past the last
// block belongs to the final section.
func (p *Package) SectionAt(i int) Section {
	secs := p.Sections()
	for _, s := range secs {
		if i < s.End {
			return s
		}
	}
	return secs[len(secs)-1]
}

// BodySectPr returns the body-level w:sectPr, creating an A4 default when
// the document has none.
func (p *Package) BodySectPr() *etree.Element {
	body := p.Body()
	if sp := body.SelectElement("w:sectPr"); sp != nil {
		return sp
	}
	sp := body.CreateElement("w:sectPr")
	sz := sp.CreateElement("w:pgSz")
	sz.CreateAttr("w:w", "11906")
	sz.CreateAttr("w:h", "16838")
	mar := sp.CreateElement("w:pgMar")
	for _, side := range []string{"w:top", "w:right", "w:bottom", "w:left"} {
		mar.CreateAttr(side, "1440")
	}
	return sp
}

// Columns returns the column count of a section, 1 when unset.
func Columns(sectPr *etree.Element) int {
	cols := sectPr.SelectElement("w:cols")
	if cols == nil {
		return 1
	}
	if n, err := strconv.Atoi(cols.SelectAttrValue("w:num", "1")); err == nil && n > 0 {
		return n
	}
	return 1
}

// SetColumns sets an equal-width column layout.
func SetColumns(sectPr *etree.Element, n int) {
	cols := ensureChild(sectPr, "w:cols", sectPrOrder)
	removeChildren(cols, "w:col")
	cols.RemoveAttr("w:equalWidth")
	if n <= 1 {
		cols.RemoveAttr("w:num")
		return
	}
	cols.CreateAttr("w:num", strconv.Itoa(n))
	if cols.SelectAttr("w:space") == nil {
		cols.CreateAttr("w:space", "425")
	}
}

// SectionStart returns how the section begins, nextPage when unset.
func SectionStart(sectPr *etree.Element) string {
	if t := sectPr.SelectElement("w:type"); t != nil {
		return t.SelectAttrValue("w:val", StartNextPage)
	}
	return StartNextPage
}

// SetSectionStart sets how the section begins.
func SetSectionStart(sectPr *etree.Element, kind string) {
	setVal(sectPr, "w:type", kind, sectPrOrder)
}

// NewSectionBreak builds an empty paragraph that ends a section with a copy
// of props.
func NewSectionBreak(props *etree.Element) *etree.Element {
	p := etree.NewElement("w:p")
	pPr := p.CreateElement("w:pPr")
	sp := props.Copy()
	sp.Space, sp.Tag = "w", "sectPr"
	pPr.AddChild(sp)
	return p
}

// PageHeight returns the usable page height of a section in twips, 0 when
// the page size is unset.
func PageHeight(sectPr *etree.Element) int {
	sz := sectPr.SelectElement("w:pgSz")
	if sz == nil {
		return 0
	}
	h, _ := strconv.Atoi(sz.SelectAttrValue("w:h", "0"))
	if mar := sectPr.SelectElement("w:pgMar"); mar != nil {
		top, _ := strconv.Atoi(mar.SelectAttrValue("w:top", "0"))
		bottom, _ := strconv.Atoi(mar.SelectAttrValue("w:bottom", "0"))
		h -= abs(top) + abs(bottom)
	}
	return max(h, 0)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// SetBodySectPr replaces the body w:sectPr with a copy of props.
func (p *Package) SetBodySectPr(props *etree.Element) {
	body := p.Body()
	if sp := body.SelectElement("w:sectPr"); sp != nil {
		body.RemoveChild(sp)
	}
	sp := props.Copy()
	sp.Space, sp.Tag = "w", "sectPr"
	body.AddChild(sp)
}
