// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Font describes run formatting. Zero fields are left untouched.
type Font struct {
	Latin    string
	EastAsia string
	Size     int // half-points
	Bold     bool
	Color    string
}

// Body returns the w:body element.
func (p *Package) Body() *etree.Element {
	root := p.doc.Root()
	if root == nil {
		return nil
	}
	return root.SelectElement("w:body")
}

// Blocks returns the body's block-level elements in order, excluding the
// trailing w:sectPr.
func (p *Package) Blocks() []*etree.Element {
	var out []*etree.Element
	for _, c := range p.Body().ChildElements() {
		if is(c, "w:sectPr") {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SetBlocks replaces the body content, keeping the trailing w:sectPr.
func (p *Package) SetBlocks(blocks []*etree.Element) {
	body := p.Body()
	for _, c := range p.Blocks() {
		body.RemoveChild(c)
	}
	for _, b := range blocks {
		p.AppendBlock(b)
	}
}

// InsertBlocks inserts blocks before the block at index at. An index equal
// to len(Blocks()) appends.
func (p *Package) InsertBlocks(at int, blocks ...*etree.Element) {
	body := p.Body()
	existing := p.Blocks()
	if at >= len(existing) {
		for _, b := range blocks {
			p.AppendBlock(b)
		}
		return
	}
	pos := existing[at].Index()
	for i, b := range blocks {
		body.InsertChildAt(pos+i, b)
	}
}

// AppendBlock adds a block at the end of the body, before the body w:sectPr.
func (p *Package) AppendBlock(b *etree.Element) {
	body := p.Body()
	if sp := body.SelectElement("w:sectPr"); sp != nil {
		body.InsertChildAt(sp.Index(), b)
		return
	}
	body.AddChild(b)
}

// RemoveBlock detaches a block from the body.
func (p *Package) RemoveBlock(b *etree.Element) {
	p.Body().RemoveChild(b)
}

// IsParagraph reports whether e is a w:p.
func IsParagraph(e *etree.Element) bool { return is(e, "w:p") }

// IsTable reports whether e is a w:tbl.
func IsTable(e *etree.Element) bool { return is(e, "w:tbl") }

// HasDrawing reports whether e holds a picture or embedded object.
func HasDrawing(e *etree.Element) bool {
	return e.FindElement(".//w:drawing") != nil ||
		e.FindElement(".//w:pict") != nil ||
		e.FindElement(".//w:object") != nil
}

// IsSectionBreak reports whether paragraph e ends a section.
func IsSectionBreak(e *etree.Element) bool {
	if !IsParagraph(e) {
		return false
	}
	pPr := e.SelectElement("w:pPr")
	return pPr != nil && pPr.SelectElement("w:sectPr") != nil
}

// IsEmpty reports whether e is a paragraph with no visible content.
func IsEmpty(e *etree.Element) bool {
	if !IsParagraph(e) || HasDrawing(e) || IsSectionBreak(e) {
		return false
	}
	if e.FindElement(".//w:br[@w:type='page']") != nil {
		return false
	}
	return strings.TrimSpace(Text(e)) == ""
}

// Text concatenates the w:t content of e in document order.
func Text(e *etree.Element) string {
	var sb strings.Builder
	for _, t := range e.FindElements(".//w:t") {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

// ReplaceText replaces the runes [start, end) of Text(e) with repl. The
// replacement lands in the first text node touched; the formatting of the
// surrounding runs is kept.
func ReplaceText(e *etree.Element, start, end int, repl string) {
	pos := 0
	placed := false
	for _, t := range e.FindElements(".//w:t") {
		r := []rune(t.Text())
		lo, hi := pos, pos+len(r)
		pos = hi
		switch {
		case !placed && start <= hi:
			b := min(max(end-lo, start-lo), len(r))
			setText(t, string(r[:start-lo])+repl+string(r[b:]))
			placed = true
		case placed && lo < end:
			setText(t, string(r[min(end-lo, len(r)):]))
		case placed:
			return
		}
	}
}

// setText replaces the content of a w:t, preserving spaces.
func setText(t *etree.Element, s string) {
	t.SetText(s)
	if strings.TrimSpace(s) != s {
		t.CreateAttr("xml:space", "preserve")
	}
}

// NewParagraph builds a paragraph holding a single run of text.
func NewParagraph(text string) *etree.Element {
	p := etree.NewElement("w:p")
	if text != "" {
		p.AddChild(NewRun(text))
	}
	return p
}

// NewRun builds a run holding text.
func NewRun(text string) *etree.Element {
	r := etree.NewElement("w:r")
	t := r.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
	return r
}

// NewBlankParagraph builds an empty single-spaced paragraph.
func NewBlankParagraph() *etree.Element {
	p := NewParagraph("")
	SetSpacing(p, 240, 0)
	return p
}

// NewPageBreak builds a paragraph holding a hard page break.
func NewPageBreak() *etree.Element {
	p := etree.NewElement("w:p")
	br := p.CreateElement("w:r").CreateElement("w:br")
	br.CreateAttr("w:type", "page")
	return p
}

// ParagraphProps returns the w:pPr of p, creating it as the first child.
func ParagraphProps(p *etree.Element) *etree.Element {
	if pPr := p.SelectElement("w:pPr"); pPr != nil {
		return pPr
	}
	pPr := etree.NewElement("w:pPr")
	p.InsertChildAt(0, pPr)
	return pPr
}

// StyleID returns the paragraph style id of p, or "".
func StyleID(p *etree.Element) string {
	pPr := p.SelectElement("w:pPr")
	if pPr == nil {
		return ""
	}
	if s := pPr.SelectElement("w:pStyle"); s != nil {
		return s.SelectAttrValue("w:val", "")
	}
	return ""
}

// SetStyle assigns a paragraph style.
func SetStyle(p *etree.Element, id string) {
	setVal(ParagraphProps(p), "w:pStyle", id, pPrOrder)
}

// SetSpacing sets line spacing (240ths of a line, auto rule) and space after
// (twips).
func SetSpacing(p *etree.Element, line, after int) *etree.Element {
	sp := ensureChild(ParagraphProps(p), "w:spacing", pPrOrder)
	sp.CreateAttr("w:line", strconv.Itoa(line))
	sp.CreateAttr("w:lineRule", "auto")
	sp.CreateAttr("w:after", strconv.Itoa(after))
	return sp
}

// SetOutlineLevel sets the navigation outline level (0-based).
func SetOutlineLevel(p *etree.Element, level int) {
	setVal(ParagraphProps(p), "w:outlineLvl", strconv.Itoa(level), pPrOrder)
}

// SetAlignment sets paragraph justification (left, center, right, both).
func SetAlignment(p *etree.Element, jc string) {
	setVal(ParagraphProps(p), "w:jc", jc, pPrOrder)
}

// SetRunFonts applies f to every run in p.
func SetRunFonts(p *etree.Element, f Font) {
	for _, r := range p.FindElements(".//w:r") {
		applyFont(runProps(r), f)
	}
}

func runProps(r *etree.Element) *etree.Element {
	if rPr := r.SelectElement("w:rPr"); rPr != nil {
		return rPr
	}
	rPr := etree.NewElement("w:rPr")
	r.InsertChildAt(0, rPr)
	return rPr
}

func applyFont(rPr *etree.Element, f Font) {
	if f.Latin != "" || f.EastAsia != "" {
		fonts := ensureChild(rPr, "w:rFonts", rPrOrder)
		if f.Latin != "" {
			fonts.CreateAttr("w:ascii", f.Latin)
			fonts.CreateAttr("w:hAnsi", f.Latin)
		}
		if f.EastAsia != "" {
			fonts.CreateAttr("w:eastAsia", f.EastAsia)
		}
		// Theme font attributes override explicit names.
		for _, a := range []string{"w:asciiTheme", "w:hAnsiTheme", "w:eastAsiaTheme"} {
			fonts.RemoveAttr(a)
		}
	}
	if f.Bold {
		ensureChild(rPr, "w:b", rPrOrder).RemoveAttr("w:val")
		ensureChild(rPr, "w:bCs", rPrOrder).RemoveAttr("w:val")
	}
	if f.Color != "" {
		c := setVal(rPr, "w:color", f.Color, rPrOrder)
		c.RemoveAttr("w:themeColor")
	}
	if f.Size > 0 {
		setVal(rPr, "w:sz", strconv.Itoa(f.Size), rPrOrder)
		setVal(rPr, "w:szCs", strconv.Itoa(f.Size), rPrOrder)
	}
}
