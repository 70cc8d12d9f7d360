// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// AddPageNumberFooter adds a footer part holding a centred PAGE field and
// returns its relationship id.
func (p *Package) AddPageNumberFooter() string {
	name := p.uniquePartName("word", partFooterBase, "xml")
	p.addPart(name, []byte(footerXML))
	p.ensureOverride(name, ctFooter)
	return p.AddRelationship(RelFooter, strings.TrimPrefix(name, "word/"), false)
}

// SetFooter makes relID the default footer of a section.
func SetFooter(sectPr *etree.Element, relID string) {
	for _, f := range sectPr.SelectElements("w:footerReference") {
		if f.SelectAttrValue("w:type", "default") == "default" {
			sectPr.RemoveChild(f)
		}
	}
	ref := etree.NewElement("w:footerReference")
	ref.CreateAttr("w:type", "default")
	ref.CreateAttr("r:id", relID)
	insertOrdered(sectPr, ref, sectPrOrder)
}

// PageNumberFooter returns the id of the section's default footer when that
// footer carries a PAGE field, or "".
func (p *Package) PageNumberFooter(sectPr *etree.Element) string {
	for _, f := range sectPr.SelectElements("w:footerReference") {
		if f.SelectAttrValue("w:type", "default") != "default" {
			continue
		}
		id := f.SelectAttrValue("r:id", "")
		rel, ok := p.Relationship(id)
		if !ok || rel.External {
			return ""
		}
		if data, ok := p.Part(partName(rel.Target)); ok && bytes.Contains(data, []byte("PAGE")) {
			return id
		}
	}
	return ""
}

// SetPageNumberStart restarts page numbering at n for the section.
func SetPageNumberStart(sectPr *etree.Element, n int) {
	pg := ensureChild(sectPr, "w:pgNumType", sectPrOrder)
	pg.CreateAttr("w:start", strconv.Itoa(n))
}

// ClearPageNumbering removes numbering restarts, headers and footers from a
// section so that it inherits the numbering of the document around it.
func ClearPageNumbering(sectPr *etree.Element) {
	removeChildren(sectPr, "w:pgNumType")
	removeChildren(sectPr, "w:headerReference")
	removeChildren(sectPr, "w:footerReference")
	removeChildren(sectPr, "w:titlePg")
}

// AddBookmark wraps the content of paragraph e in a bookmark.
func AddBookmark(e *etree.Element, name string, id int) {
	start := etree.NewElement("w:bookmarkStart")
	start.CreateAttr("w:id", strconv.Itoa(id))
	start.CreateAttr("w:name", name)
	pos := 0
	if pPr := e.SelectElement("w:pPr"); pPr != nil {
		pos = pPr.Index() + 1
	}
	e.InsertChildAt(pos, start)
	end := e.CreateElement("w:bookmarkEnd")
	end.CreateAttr("w:id", strconv.Itoa(id))
}

// NewPageRefParagraph builds a TOC entry: the text, a tab, and a PAGEREF
// field to bookmark whose cached result is page.
func NewPageRefParagraph(text, bookmark string, page int, styleID string) *etree.Element {
	p := NewParagraph(text)
	if styleID != "" {
		SetStyle(p, styleID)
	}
	p.CreateElement("w:r").CreateElement("w:tab")
	addField(p, " PAGEREF "+bookmark+" \\h ", strconv.Itoa(page))
	return p
}

// NewPageFieldParagraph builds a centred paragraph with a PAGE field.
func NewPageFieldParagraph() *etree.Element {
	p := etree.NewElement("w:p")
	SetAlignment(p, "center")
	addField(p, " PAGE ", "1")
	return p
}

func addField(p *etree.Element, instr, cached string) {
	fld := func(kind string) {
		p.CreateElement("w:r").CreateElement("w:fldChar").CreateAttr("w:fldCharType", kind)
	}
	fld("begin")
	it := p.CreateElement("w:r").CreateElement("w:instrText")
	it.CreateAttr("xml:space", "preserve")
	it.SetText(instr)
	fld("separate")
	p.AddChild(NewRun(cached))
	fld("end")
}

// FieldResults returns the cached results of fields in e whose instruction
// starts with kind (e.g. "PAGEREF"), keyed by the instruction's argument.
func FieldResults(e *etree.Element, kind string) map[string]string {
	out := make(map[string]string)
	for _, p := range e.FindElements(".//w:p") {
		var instr, result strings.Builder
		state := ""
		for _, r := range p.SelectElements("w:r") {
			if fc := r.SelectElement("w:fldChar"); fc != nil {
				switch fc.SelectAttrValue("w:fldCharType", "") {
				case "begin":
					state = "instr"
					instr.Reset()
					result.Reset()
				case "separate":
					state = "result"
				case "end":
					f := strings.Fields(instr.String())
					if len(f) >= 2 && strings.EqualFold(f[0], kind) {
						out[f[1]] = result.String()
					}
					state = ""
				}
				continue
			}
			switch state {
			case "instr":
				for _, t := range r.SelectElements("w:instrText") {
					instr.WriteString(t.Text())
				}
			case "result":
				for _, t := range r.SelectElements("w:t") {
					result.WriteString(t.Text())
				}
			}
		}
	}
	return out
}

// SetUpdateFieldsOnOpen asks Word to refresh fields when the file opens.
func (p *Package) SetUpdateFieldsOnOpen() error {
	if p.settings == nil {
		d, err := p.relatedPart(RelSettings, partSettings, ctSettings, blankSettings)
		if err != nil {
			return err
		}
		p.settings = d
	}
	setVal(p.settings.Root(), "w:updateFields", "true", settingsOrder)
	return nil
}

// UpdateFieldsOnOpen reports whether the settings request a field refresh.
func (p *Package) UpdateFieldsOnOpen() bool {
	for _, r := range p.Relationships() {
		if r.Type != RelSettings || r.External {
			continue
		}
		d := p.settings
		if d == nil {
			var err error
			if d, err = p.parse(partName(r.Target)); err != nil {
				return false
			}
		}
		u := d.Root().SelectElement("w:updateFields")
		return u != nil && u.SelectAttrValue("w:val", "true") == "true"
	}
	return false
}
