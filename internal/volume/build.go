// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package volume

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// Front holds the text of the generated front matter.
type Front struct {
	CoverTitle string
	TOCTitle   string
	Typography types.Typography
}

// Build binds members into one volume document laid out as plan. Members
// must be given in plan order.
func Build(plan Plan, members []Member, front Front) (*docx.Package, error) {
	if len(members) != len(plan.Entries) {
		return nil, fmt.Errorf("volume %d: %d members for %d planned entries", plan.Number, len(members), len(plan.Entries))
	}
	out := docx.New()
	layout := out.BodySectPr().Copy()
	docx.SetColumns(layout, 1)

	if err := addCover(out, plan, front, layout); err != nil {
		return nil, err
	}
	addTOC(out, plan, front, layout)

	for i, m := range members {
		first := len(out.Blocks())
		src := append(m.Pkg.Blocks(), docx.NewSectionBreak(m.Pkg.BodySectPr()))
		blocks, err := out.Import(m.Pkg, src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Route.ID, err)
		}
		last := blocks[len(blocks)-1]
		if i == len(members)-1 {
			// The final layout of the last member governs the document end.
			out.SetBodySectPr(last.SelectElement("w:pPr").SelectElement("w:sectPr"))
			blocks = blocks[:len(blocks)-1]
		}
		for _, b := range blocks {
			out.AppendBlock(b)
		}
		if first < len(out.Blocks()) {
			docx.SetSectionStart(out.SectionAt(first).Props, docx.StartNextPage)
			docx.AddBookmark(titleBlock(out, first), plan.Entries[i].Bookmark, i+1)
		}
	}

	footer := out.AddPageNumberFooter()
	for i, s := range out.Sections() {
		docx.ClearPageNumbering(s.Props)
		docx.SetFooter(s.Props, footer)
		if i == 0 {
			docx.SetPageNumberStart(s.Props, CoverPage)
		}
	}
	postProcess(out, front.Typography)
	if err := out.SetUpdateFieldsOnOpen(); err != nil {
		return nil, err
	}
	return out, nil
}

func addCover(out *docx.Package, plan Plan, front Front, layout *etree.Element) error {
	titleID, err := out.EnsureParagraphStyle(docx.StyleDef{ID: "Title", Name: "Title", OutlineLevel: -1, Align: "center",
		Font: docx.Font{Latin: front.Typography.Heading1Font, EastAsia: front.Typography.Heading1Font, Size: 56, Bold: true}})
	if err != nil {
		return err
	}
	title := docx.NewParagraph(front.CoverTitle)
	docx.SetStyle(title, titleID)
	docx.SetSpacing(title, 240, 0).CreateAttr("w:before", "4000")
	out.AppendBlock(title)

	for _, line := range []string{
		fmt.Sprintf("第%d册", plan.Number),
		routeRange(plan),
	} {
		p := docx.NewParagraph(line)
		docx.SetAlignment(p, "center")
		docx.SetRunFonts(p, docx.Font{Size: 32, Bold: true})
		out.AppendBlock(p)
	}
	out.AppendBlock(sectionBreak(layout))
	return nil
}

func addTOC(out *docx.Package, plan Plan, front Front, layout *etree.Element) {
	headingID := out.FindStyleID("TOC Heading", "TOCHeading")
	entryID := out.FindStyleID("toc 1", "TOC1")

	h := docx.NewParagraph(front.TOCTitle)
	docx.SetStyle(h, headingID)
	out.AppendBlock(h)
	for _, e := range plan.Entries {
		title := e.Title
		if title == "" {
			title = e.Route.ID
		}
		out.AppendBlock(docx.NewPageRefParagraph(title, e.Bookmark, e.Start, entryID))
	}
	out.AppendBlock(sectionBreak(layout))
}

func sectionBreak(layout *etree.Element) *etree.Element {
	b := docx.NewSectionBreak(layout)
	docx.SetSectionStart(b.SelectElement("w:pPr").SelectElement("w:sectPr"), docx.StartNextPage)
	return b
}

// titleBlock returns the first level 1 heading at or after index from, or
// the first paragraph when the member has none.
func titleBlock(out *docx.Package, from int) *etree.Element {
	blocks := out.Blocks()
	for _, b := range blocks[from:] {
		if out.HeadingLevel(b) == 1 {
			return b
		}
	}
	for _, b := range blocks[from:] {
		if docx.IsParagraph(b) {
			return b
		}
	}
	return blocks[from]
}

// postProcess forces sketch captions to left-aligned bold body text and
// heading runs to black.
func postProcess(out *docx.Package, typo types.Typography) {
	caption := out.FindStyleID(docx.CaptionNames...)
	captionFont := docx.Font{
		Latin:    typo.EastAsiaFont,
		EastAsia: typo.EastAsiaFont,
		Size:     typo.BodySize,
		Bold:     true,
		Color:    "000000",
	}
	for _, b := range out.Blocks() {
		if !docx.IsParagraph(b) {
			continue
		}
		if caption != "" && docx.StyleID(b) == caption {
			docx.SetAlignment(b, "left")
			docx.SetRunFonts(b, captionFont)
			continue
		}
		if lvl := out.HeadingLevel(b); lvl == 1 || lvl == 2 {
			docx.SetRunFonts(b, docx.Font{Color: "000000"})
		}
	}
}

// Title returns the route title of a report: the text of its first level 1
// heading, or "" when it has none.
func Title(pkg *docx.Package) string {
	for _, b := range pkg.Blocks() {
		if pkg.HeadingLevel(b) == 1 {
			return docx.Text(b)
		}
	}
	return ""
}

func routeRange(plan Plan) string {
	if len(plan.Entries) == 0 {
		return ""
	}
	first, last := plan.Entries[0].Route.ID, plan.Entries[len(plan.Entries)-1].Route.ID
	if first == last {
		return first
	}
	return first + "-" + last
}
