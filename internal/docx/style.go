// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Heading style names as localized Word versions write them. Matching is
// case-insensitive.
var (
	Heading1Names = []string{"heading 1", "标题 1", "标题1", "titre 1", "überschrift 1", "título 1", "見出し 1"}
	Heading2Names = []string{"heading 2", "标题 2", "标题2", "titre 2", "überschrift 2", "título 2", "見出し 2"}
	CaptionNames  = []string{"caption", "题注"}
)

var headingName = regexp.MustCompile(`^(?:heading|标题|titre|überschrift|título|見出し)\s*(\d)$`)

// StyleDef describes a paragraph style to create or update.
type StyleDef struct {
	ID      string
	Name    string
	Aliases []string // other names that identify the same style

	Font         Font
	OutlineLevel int // 0-based; -1 leaves it unset
	KeepNext     bool
	Align        string
}

// Heading1Style is the route title style.
func Heading1Style(f Font) StyleDef {
	return StyleDef{ID: "Heading1", Name: "heading 1", Aliases: Heading1Names, Font: f, OutlineLevel: 0, KeepNext: true}
}

// Heading2Style is the section header style.
func Heading2Style(f Font) StyleDef {
	return StyleDef{ID: "Heading2", Name: "heading 2", Aliases: Heading2Names, Font: f, OutlineLevel: 1, KeepNext: true}
}

// CaptionStyle is the figure caption style.
func CaptionStyle(f Font) StyleDef {
	return StyleDef{ID: "Caption", Name: "caption", Aliases: CaptionNames, Font: f, OutlineLevel: -1, KeepNext: true, Align: "left"}
}

func (p *Package) stylesDoc() (*etree.Document, error) {
	if p.styles != nil {
		return p.styles, nil
	}
	d, err := p.relatedPart(RelStyles, partStyles, ctStyles, blankStyles)
	if err != nil {
		return nil, err
	}
	p.styles = d
	return d, nil
}

func (p *Package) styleElements() []*etree.Element {
	d, err := p.stylesDoc()
	if err != nil || d.Root() == nil {
		return nil
	}
	return d.Root().SelectElements("w:style")
}

// FindStyleID returns the id of the first paragraph style whose name or id
// matches one of names, in the order given.
func (p *Package) FindStyleID(names ...string) string {
	styles := p.styleElements()
	for _, n := range names {
		for _, s := range styles {
			if s.SelectAttrValue("w:type", "paragraph") != "paragraph" {
				continue
			}
			id := s.SelectAttrValue("w:styleId", "")
			name := ""
			if el := s.SelectElement("w:name"); el != nil {
				name = el.SelectAttrValue("w:val", "")
			}
			if strings.EqualFold(name, n) || strings.EqualFold(id, n) {
				return id
			}
		}
	}
	return ""
}

// EnsureParagraphStyle finds the style under any of its names or creates it,
// then applies the definition's formatting. It returns the style id in use.
func (p *Package) EnsureParagraphStyle(def StyleDef) (string, error) {
	d, err := p.stylesDoc()
	if err != nil {
		return "", err
	}
	names := append([]string{def.Name, def.ID}, def.Aliases...)
	id := p.FindStyleID(names...)
	var s *etree.Element
	if id != "" {
		s = d.Root().FindElement("w:style[@w:styleId='" + id + "']")
	}
	if s == nil {
		id = def.ID
		s = d.Root().CreateElement("w:style")
		s.CreateAttr("w:type", "paragraph")
		s.CreateAttr("w:styleId", id)
		setVal(s, "w:name", def.Name, styleOrder)
		if p.FindStyleID("Normal") != "" {
			setVal(s, "w:basedOn", p.FindStyleID("Normal"), styleOrder)
		}
		ensureChild(s, "w:qFormat", styleOrder)
	}

	pPr := ensureChild(s, "w:pPr", styleOrder)
	if def.KeepNext {
		ensureChild(pPr, "w:keepNext", pPrOrder)
	}
	if def.Align != "" {
		setVal(pPr, "w:jc", def.Align, pPrOrder)
	}
	if def.OutlineLevel >= 0 {
		setVal(pPr, "w:outlineLvl", strconv.Itoa(def.OutlineLevel), pPrOrder)
	}
	applyFont(ensureChild(s, "w:rPr", styleOrder), def.Font)
	p.levels = nil
	return id, nil
}

// HeadingLevel returns the 1-based heading level of a paragraph from its
// own outline level or its style, and 0 for body text.
func (p *Package) HeadingLevel(e *etree.Element) int {
	if !IsParagraph(e) {
		return 0
	}
	if pPr := e.SelectElement("w:pPr"); pPr != nil {
		if ol := pPr.SelectElement("w:outlineLvl"); ol != nil {
			if n, err := strconv.Atoi(ol.SelectAttrValue("w:val", "")); err == nil && n < 9 {
				return n + 1
			}
		}
	}
	id := StyleID(e)
	if id == "" {
		return 0
	}
	return p.styleLevels()[id]
}

// styleLevels maps style ids to heading levels, following w:basedOn.
func (p *Package) styleLevels() map[string]int {
	if p.levels != nil {
		return p.levels
	}
	byID := make(map[string]*etree.Element)
	for _, s := range p.styleElements() {
		byID[s.SelectAttrValue("w:styleId", "")] = s
	}
	var level func(id string, depth int) int
	level = func(id string, depth int) int {
		s, ok := byID[id]
		if !ok || depth > 8 {
			return 0
		}
		if ol := s.FindElement("w:pPr/w:outlineLvl"); ol != nil {
			if n, err := strconv.Atoi(ol.SelectAttrValue("w:val", "")); err == nil && n < 9 {
				return n + 1
			}
		}
		if name := s.SelectElement("w:name"); name != nil {
			if m := headingName.FindStringSubmatch(strings.ToLower(name.SelectAttrValue("w:val", ""))); m != nil {
				n, _ := strconv.Atoi(m[1])
				return n
			}
		}
		if b := s.SelectElement("w:basedOn"); b != nil {
			return level(b.SelectAttrValue("w:val", ""), depth+1)
		}
		return 0
	}
	p.levels = make(map[string]int, len(byID))
	for id := range byID {
		p.levels[id] = level(id, 0)
	}
	return p.levels
}

// ImportStyles copies the named styles, and the styles they are based on,
// from src. Styles already defined here are kept as they are.
func (p *Package) ImportStyles(src *Package, ids []string) error {
	d, err := p.stylesDoc()
	if err != nil {
		return err
	}
	have := make(map[string]bool)
	for _, s := range p.styleElements() {
		have[s.SelectAttrValue("w:styleId", "")] = true
	}
	srcByID := make(map[string]*etree.Element)
	for _, s := range src.styleElements() {
		srcByID[s.SelectAttrValue("w:styleId", "")] = s
	}
	queue := append([]string(nil), ids...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == "" || have[id] {
			continue
		}
		s, ok := srcByID[id]
		if !ok {
			continue
		}
		d.Root().AddChild(s.Copy())
		have[id] = true
		for _, ref := range []string{"w:basedOn", "w:next", "w:link"} {
			if el := s.SelectElement(ref); el != nil {
				queue = append(queue, el.SelectAttrValue("w:val", ""))
			}
		}
	}
	p.levels = nil
	return nil
}

// usedStyles lists the style ids referenced inside blocks.
func usedStyles(blocks []*etree.Element) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range blocks {
		for _, tag := range []string{".//w:pStyle", ".//w:rStyle", ".//w:tblStyle"} {
			for _, el := range b.FindElements(tag) {
				id := el.SelectAttrValue("w:val", "")
				if id != "" && !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
	}
	return out
}
