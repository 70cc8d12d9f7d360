// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/internal/harvest"
	"github.com/pdiddy/fieldbook/pkg/types"
)

func testPNG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.SetGray(x, 0, color.Gray{Y: shade})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// twoColumnReport builds a normalized-looking report whose self-check
// heading is followed by one body paragraph and a closing note heading.
func twoColumnReport(t *testing.T, anchors int) *docx.Package {
	t.Helper()
	p := docx.New()
	h2, err := p.EnsureParagraphStyle(docx.Heading2Style(docx.Font{Bold: true}))
	require.NoError(t, err)

	add := func(text string, heading bool) {
		para := docx.NewParagraph(text)
		if heading {
			docx.SetStyle(para, h2)
		}
		p.AppendBlock(para)
	}
	add("路线编号：L0459", false)
	add("点间路线描述：沿沟谷向北", true)
	add("灰白色中粒花岗岩", false)
	for i := 0; i < anchors; i++ {
		add("路线自检：合格", true)
		add("已复核", false)
	}
	add("路线小结：完成", true)
	docx.SetColumns(p.BodySectPr(), 2)
	return p
}

func sketchDoc(t *testing.T, images ...[]byte) *docx.Package {
	t.Helper()
	var sketches []harvest.Sketch
	for i, data := range images {
		sketches = append(sketches, harvest.Sketch{Path: filepath.Join("s", string(rune('a'+i))+".png"), Data: data})
	}
	p, err := harvest.Build(types.Route{ID: "L0459"}, sketches, types.DefaultPatterns().Caption, types.EMUPerInch)
	require.NoError(t, err)
	return p
}

func matcher(t *testing.T) AnchorMatcher {
	t.Helper()
	m, err := NewPhraseMatcher(types.DefaultPatterns().Anchors)
	require.NoError(t, err)
	return m
}

func TestPhraseMatcher(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"路线自检：合格", true},
		{"五、路线自检", true},
		{"3. 路线自检:合格", true},
		{"路 线 自 检：", true},
		{"路线自检情况：合格", false},
		{"本路线已完成路线自检", false},
	}
	m := matcher(t)
	for _, tt := range tests {
		p := docx.New()
		p.AppendBlock(docx.NewParagraph(tt.text))
		assert.Equal(t, tt.want, len(m.Match(p)) == 1, tt.text)
	}
}

func TestNewPhraseMatcherRejectsEmpty(t *testing.T) {
	_, err := NewPhraseMatcher([]string{" "})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestLocate(t *testing.T) {
	m := matcher(t)

	at, err := Locate(twoColumnReport(t, 1), m)
	require.NoError(t, err)
	assert.Equal(t, 3, at)

	_, err = Locate(twoColumnReport(t, 0), m)
	assert.ErrorIs(t, err, types.ErrMissingAnchor)
	assert.ErrorIs(t, err, types.ErrAnchor)

	_, err = Locate(twoColumnReport(t, 2), m)
	assert.ErrorIs(t, err, types.ErrAmbiguousAnchor)
	assert.ErrorIs(t, err, types.ErrAnchor)
}

func TestExtentStopsAtHeading(t *testing.T) {
	p := twoColumnReport(t, 1)
	assert.Equal(t, 5, Extent(p, 3))
}

func TestExtentIncludesSectionBreak(t *testing.T) {
	p := twoColumnReport(t, 1)
	p.InsertBlocks(5, docx.NewSectionBreak(p.BodySectPr()))
	p.InsertBlocks(5, docx.NewParagraph("附注"))
	assert.Equal(t, 7, Extent(p, 3))
}

func TestAssembleDocumentLayout(t *testing.T) {
	report := twoColumnReport(t, 1)
	res, err := AssembleDocument(report, sketchDoc(t, testPNG(t, 10), testPNG(t, 20)), matcher(t), "L0459素描图")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Len(t, res.Fingerprints, 2)

	secs := report.Sections()
	require.Len(t, secs, 3)
	assert.Equal(t, []int{2, 1, 2}, []int{
		docx.Columns(secs[0].Props),
		docx.Columns(secs[1].Props),
		docx.Columns(secs[2].Props),
	})
	assert.Equal(t, docx.StartNextPage, docx.SectionStart(secs[1].Props))
	assert.Equal(t, docx.StartContinuous, docx.SectionStart(secs[2].Props))

	blocks := report.Blocks()
	assert.Equal(t, "已复核", docx.Text(blocks[secs[0].End-2]))
	assert.Equal(t, "L0459素描图", docx.Text(blocks[secs[1].Start]))
	assert.Zero(t, report.HeadingLevel(blocks[secs[1].Start]))
	assert.Equal(t, "Route L0459 sketch map 1", docx.Text(blocks[secs[1].Start+1]))
	assert.Equal(t, "路线小结：完成", docx.Text(blocks[secs[2].Start]))
	assert.Len(t, report.Images(), 2)

	// The result must survive a save and reload with its images intact.
	data, err := report.Bytes()
	require.NoError(t, err)
	again, err := docx.Read(data)
	require.NoError(t, err)
	assert.Len(t, again.Images(), 2)
}

func TestAssembleDocumentSkipsDuplicates(t *testing.T) {
	a, b := testPNG(t, 10), testPNG(t, 20)
	report := twoColumnReport(t, 1)
	_, err := AssembleDocument(report, sketchDoc(t, a), matcher(t), "")
	require.NoError(t, err)

	res, err := AssembleDocument(report, sketchDoc(t, a, b, b), matcher(t), "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Duplicates)
	assert.Len(t, report.Images(), 2)
}

func TestAssembleDocumentAllDuplicatesLeavesReport(t *testing.T) {
	a := testPNG(t, 10)
	report := twoColumnReport(t, 1)
	_, err := AssembleDocument(report, sketchDoc(t, a), matcher(t), "")
	require.NoError(t, err)
	before, err := report.Bytes()
	require.NoError(t, err)

	res, err := AssembleDocument(report, sketchDoc(t, a), matcher(t), "")
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	after, err := report.Bytes()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAssembleDocumentWithoutHeading(t *testing.T) {
	report := twoColumnReport(t, 1)
	_, err := AssembleDocument(report, sketchDoc(t, testPNG(t, 10)), matcher(t), "")
	require.NoError(t, err)

	secs := report.Sections()
	require.Len(t, secs, 3)
	assert.Equal(t, "Route L0459 sketch map 1", docx.Text(report.Blocks()[secs[1].Start]))
}

func TestFiguresGroupsCaptionWithPicture(t *testing.T) {
	figs := Figures(sketchDoc(t, testPNG(t, 1), testPNG(t, 2)))
	require.Len(t, figs, 2)
	for _, f := range figs {
		assert.Len(t, f.Blocks, 2)
		assert.Len(t, f.Fingerprints, 1)
	}
}

func assembleConfig(t *testing.T) types.AssembleConfig {
	t.Helper()
	cfg := types.DefaultPipelineConfig(t.TempDir()).AssembleStage()
	for _, dir := range []string{cfg.ReportsDir, cfg.SketchesDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return cfg
}

func TestAssembleAll(t *testing.T) {
	cfg := assembleConfig(t)
	save := func(p *docx.Package, path string) {
		t.Helper()
		require.NoError(t, p.Save(path))
	}
	save(twoColumnReport(t, 1), filepath.Join(cfg.ReportsDir, "L1.docx"))
	save(sketchDoc(t, testPNG(t, 1)), filepath.Join(cfg.SketchesDir, "L1.docx"))
	save(twoColumnReport(t, 1), filepath.Join(cfg.ReportsDir, "L2.docx"))
	save(twoColumnReport(t, 2), filepath.Join(cfg.ReportsDir, "L3.docx"))
	save(sketchDoc(t, testPNG(t, 3)), filepath.Join(cfg.SketchesDir, "L3.docx"))

	// L3 output from an earlier run must not survive a failed merge.
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, "L3.docx"), []byte("old"), 0o644))

	var buf bytes.Buffer
	summary, err := AssembleAll(context.Background(), cfg, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())

	out := buf.String()
	assert.Contains(t, out, "assembled: L1 (1 sketches inserted)")
	assert.Contains(t, out, "assembled: L2 (no sketches, copied)")
	assert.Contains(t, out, "failed:  L3")
	assert.Contains(t, out, "Batch summary: 2 assembled, 0 skipped, 1 failed (total: 3)")

	in, err := os.ReadFile(filepath.Join(cfg.ReportsDir, "L2.docx"))
	require.NoError(t, err)
	copied, err := os.ReadFile(filepath.Join(cfg.OutputDir, "L2.docx"))
	require.NoError(t, err)
	assert.Equal(t, in, copied)

	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "L3.docx"))

	merged, err := docx.Open(filepath.Join(cfg.OutputDir, "L1.docx"))
	require.NoError(t, err)
	assert.Len(t, merged.Images(), 1)
}

func TestAssembleAllIsIdempotent(t *testing.T) {
	cfg := assembleConfig(t)
	require.NoError(t, twoColumnReport(t, 1).Save(filepath.Join(cfg.ReportsDir, "L1.docx")))
	require.NoError(t, sketchDoc(t, testPNG(t, 1), testPNG(t, 2)).Save(filepath.Join(cfg.SketchesDir, "L1.docx")))

	count := func() int {
		t.Helper()
		_, err := AssembleAll(context.Background(), cfg, &bytes.Buffer{})
		require.NoError(t, err)
		p, err := docx.Open(filepath.Join(cfg.OutputDir, "L1.docx"))
		require.NoError(t, err)
		return len(p.Images())
	}
	assert.Equal(t, 2, count())
	assert.Equal(t, 2, count())
}
