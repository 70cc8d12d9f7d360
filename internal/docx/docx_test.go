// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fieldbook/pkg/types"
)

func testPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func reopen(t *testing.T, p *Package) *Package {
	t.Helper()
	data, err := p.Bytes()
	require.NoError(t, err)
	out, err := Read(data)
	require.NoError(t, err)
	return out
}

func multiRun(parts ...string) *etree.Element {
	p := etree.NewElement("w:p")
	for _, s := range parts {
		p.AddChild(NewRun(s))
	}
	return p
}

func TestNewRoundTrip(t *testing.T) {
	p := New()
	p.AppendBlock(NewParagraph("hello"))
	p.AppendBlock(NewParagraph("world"))

	got := reopen(t, p)
	blocks := got.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "hello", Text(blocks[0]))
	assert.Equal(t, "world", Text(blocks[1]))
	assert.NotNil(t, got.BodySectPr())
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read([]byte("not a docx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMalformedInput))
}

func TestSaveAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "L0001.docx")
	p := New()
	p.AppendBlock(NewParagraph("saved"))
	require.NoError(t, p.Save(path))

	got, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", Text(got.Blocks()[0]))

	_, err = Open(filepath.Join(t.TempDir(), "missing.docx"))
	assert.ErrorIs(t, err, types.ErrMalformedInput)
}

func TestReplaceText(t *testing.T) {
	tests := []struct {
		name       string
		runs       []string
		start, end int
		repl       string
		want       string
	}{
		{"within one run", []string{"abc：def"}, 0, 3, "xy", "xy：def"},
		{"across runs", []string{"分段路线", "上界线描述：", "值"}, 0, 9, "点上界线描述", "点上界线描述：值"},
		{"replace colon", []string{"标签", ":", "值"}, 2, 3, "：", "标签：值"},
		{"insert at end", []string{"ab"}, 2, 2, "c", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := multiRun(tt.runs...)
			ReplaceText(p, tt.start, tt.end, tt.repl)
			assert.Equal(t, tt.want, Text(p))
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(NewParagraph("")))
	assert.True(t, IsEmpty(NewParagraph("   ")))
	assert.False(t, IsEmpty(NewParagraph("x")))
	assert.False(t, IsEmpty(NewPageBreak()))
	assert.False(t, IsEmpty(NewSectionBreak(New().BodySectPr())))
	assert.False(t, IsEmpty(etree.NewElement("w:tbl")))
}

func TestSections(t *testing.T) {
	p := New()
	body := p.BodySectPr()
	SetColumns(body, 2)

	p.AppendBlock(NewParagraph("one"))
	brk := NewSectionBreak(body)
	p.AppendBlock(brk)
	p.AppendBlock(NewParagraph("two"))
	SetColumns(body, 1)

	secs := reopen(t, p).Sections()
	require.Len(t, secs, 2)
	assert.Equal(t, 0, secs[0].Start)
	assert.Equal(t, 2, secs[0].End)
	assert.Equal(t, 2, Columns(secs[0].Props))
	assert.Equal(t, 1, Columns(secs[1].Props))
	assert.Equal(t, StartNextPage, SectionStart(secs[1].Props))

	assert.Same(t, p.Sections()[0].Props, p.SectionAt(0).Props)
	assert.Same(t, p.BodySectPr(), p.SectionAt(2).Props)
}

func TestSetSectionStartKeepsSchemaOrder(t *testing.T) {
	sp := New().BodySectPr()
	SetSectionStart(sp, StartContinuous)
	SetFooter(sp, "rId9")

	var tags []string
	for _, c := range sp.ChildElements() {
		tags = append(tags, c.FullTag())
	}
	assert.Equal(t, []string{"w:footerReference", "w:type", "w:pgSz", "w:pgMar", "w:cols"}, tags)
	assert.Equal(t, StartContinuous, SectionStart(sp))
}

func TestImagesAndExtent(t *testing.T) {
	data := testPNG(t, 200, 100, color.Black)
	cx, cy, err := PNGExtent(data, 6*types.EMUPerInch)
	require.NoError(t, err)
	assert.Equal(t, int64(6*types.EMUPerInch), cx)
	assert.Equal(t, int64(3*types.EMUPerInch), cy)

	p := New()
	id := p.AddImage(data, ".png")
	p.AppendBlock(p.NewPictureParagraph(id, "sketch", cx, cy))

	got := reopen(t, p)
	imgs := got.Images()
	require.Len(t, imgs, 1)
	assert.Equal(t, Fingerprint(data), Fingerprint(imgs[0].Data))
	assert.True(t, HasDrawing(got.Blocks()[0]))

	n := got.ResizeImages(65 * types.EMUPerCm / 10)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(65*types.EMUPerCm/10/2), Extent(got.Blocks()[0]))
}

func TestPNGExtentRejectsNonPNG(t *testing.T) {
	_, _, err := PNGExtent([]byte("GIF89a"), 100)
	assert.ErrorIs(t, err, types.ErrMalformedInput)
}

func TestImportCopiesImagesAndStyles(t *testing.T) {
	src := New()
	data := testPNG(t, 10, 10, color.White)
	id := src.AddImage(data, "png")
	pic := src.NewPictureParagraph(id, "a", 100, 100)
	src.AppendBlock(pic)
	_, err := src.EnsureParagraphStyle(StyleDef{ID: "FieldNote", Name: "Field Note", OutlineLevel: -1})
	require.NoError(t, err)
	note := NewParagraph("note")
	SetStyle(note, "FieldNote")
	src.AppendBlock(note)
	src = reopen(t, src)

	dst := New()
	dst.AddImage([]byte("occupies image1"), "png")
	copies, err := dst.Import(src, src.Blocks())
	require.NoError(t, err)
	for _, c := range copies {
		dst.AppendBlock(c)
	}

	got := reopen(t, dst)
	imgs := got.Images()
	require.Len(t, imgs, 1)
	assert.Equal(t, data, imgs[0].Data)
	assert.NotEqual(t, "media/image1.png", imgs[0].Target)
	assert.Equal(t, "FieldNote", got.FindStyleID("Field Note"))
}

func TestImportDropsHeaderReferences(t *testing.T) {
	src := New()
	sp := src.BodySectPr().Copy()
	ref := etree.NewElement("w:headerReference")
	ref.CreateAttr("r:id", "rId1")
	sp.InsertChildAt(0, ref)
	src.AppendBlock(NewSectionBreak(sp))

	dst := New()
	copies, err := dst.Import(src, src.Blocks())
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Nil(t, copies[0].FindElement(".//w:headerReference"))
}

func TestHeadingLevel(t *testing.T) {
	p := New()
	h1 := NewParagraph("L0001")
	SetStyle(h1, p.FindStyleID(Heading1Names...))
	h2 := NewParagraph("路线自检：")
	SetStyle(h2, "Heading2")
	outline := NewParagraph("outline")
	SetOutlineLevel(outline, 1)

	assert.Equal(t, 1, p.HeadingLevel(h1))
	assert.Equal(t, 2, p.HeadingLevel(h2))
	assert.Equal(t, 2, p.HeadingLevel(outline))
	assert.Equal(t, 0, p.HeadingLevel(NewParagraph("body")))
}

func TestEnsureParagraphStyleReusesLocalizedName(t *testing.T) {
	p := New()
	d, err := p.stylesDoc()
	require.NoError(t, err)
	s := d.Root().FindElement("w:style[@w:styleId='Heading1']")
	require.NotNil(t, s)
	s.CreateAttr("w:styleId", "1")
	s.SelectElement("w:name").CreateAttr("w:val", "标题 1")

	id, err := p.EnsureParagraphStyle(Heading1Style(Font{EastAsia: "黑体", Size: 32, Bold: true}))
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

func TestPageRefAndUpdateFields(t *testing.T) {
	p := New()
	entry := NewPageRefParagraph("L0459", "route_L0459", 7, "TOC1")
	p.AppendBlock(entry)
	require.NoError(t, p.SetUpdateFieldsOnOpen())

	got := reopen(t, p)
	assert.Equal(t, map[string]string{"route_L0459": "7"}, FieldResults(got.Body(), "PAGEREF"))
	assert.True(t, got.UpdateFieldsOnOpen())
	assert.False(t, New().UpdateFieldsOnOpen())
}

func TestPageNumberFooter(t *testing.T) {
	p := New()
	id := p.AddPageNumberFooter()
	sp := p.BodySectPr()
	SetFooter(sp, id)
	SetPageNumberStart(sp, 1)

	got := reopen(t, p)
	rel, ok := got.Relationship(id)
	require.True(t, ok)
	assert.Equal(t, RelFooter, rel.Type)
	footer, ok := got.Part(partName(rel.Target))
	require.True(t, ok)
	assert.Contains(t, string(footer), "PAGE")

	ClearPageNumbering(got.BodySectPr())
	assert.Nil(t, got.BodySectPr().SelectElement("w:pgNumType"))
	assert.Nil(t, got.BodySectPr().SelectElement("w:footerReference"))
}

func TestAddBookmark(t *testing.T) {
	p := NewParagraph("title")
	SetStyle(p, "Heading1")
	AddBookmark(p, "route_L1", 3)

	kids := p.ChildElements()
	require.Len(t, kids, 4)
	assert.Equal(t, "w:pPr", kids[0].FullTag())
	assert.Equal(t, "w:bookmarkStart", kids[1].FullTag())
	assert.Equal(t, "route_L1", kids[1].SelectAttrValue("w:name", ""))
	assert.Equal(t, "w:bookmarkEnd", kids[3].FullTag())
}
