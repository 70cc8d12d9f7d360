// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package volume

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/pkg/types"
)

func sizes(rs []Range) []int {
	var out []int
	for _, r := range rs {
		out = append(out, r.Len())
	}
	return out
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		policy types.PartitionPolicy
		want   []int
		err    error
	}{
		{"remainder goes to first volumes", 10, types.TotalVolumes(3), []int{4, 4, 2}, nil},
		{"later volumes keep a route", 9, types.TotalVolumes(4), []int{3, 3, 2, 1}, nil},
		{"two volumes", 5, types.TotalVolumes(2), []int{3, 2}, nil},
		{"even split", 12, types.TotalVolumes(3), []int{4, 4, 4}, nil},
		{"fixed twelve", 25, types.DefaultPolicy(), []int{12, 12, 1}, nil},
		{"exact multiple", 24, types.RoutesPerVolume(12), []int{12, 12}, nil},
		{"one route per volume", 5, types.TotalVolumes(5), []int{1, 1, 1, 1, 1}, nil},
		{"fewer routes than K", 3, types.RoutesPerVolume(12), []int{3}, nil},
		{"more volumes than routes", 3, types.TotalVolumes(4), nil, types.ErrTooManyVolumes},
		{"empty route set", 0, types.DefaultPolicy(), nil, types.ErrEmptyRouteSet},
		{"zero K", 5, types.RoutesPerVolume(0), nil, types.ErrInvalidPolicy},
		{"unknown mode", 5, types.PartitionPolicy{Mode: "halves", Value: 2}, nil, types.ErrInvalidPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Partition(tt.n, tt.policy)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.ErrorIs(t, err, types.ErrConfiguration)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sizes(got))
		})
	}
}

func TestPartitionCoversEveryRouteOnce(t *testing.T) {
	for n := 1; n <= 40; n++ {
		var policies []types.PartitionPolicy
		for k := 1; k <= n+2; k++ {
			policies = append(policies, types.RoutesPerVolume(k))
		}
		for v := 1; v <= n; v++ {
			policies = append(policies, types.TotalVolumes(v))
		}
		for _, p := range policies {
			rs, err := Partition(n, p)
			require.NoError(t, err, "n=%d %s", n, p)
			next := 0
			for _, r := range rs {
				require.Equal(t, next, r.Start, "n=%d %s", n, p)
				require.Positive(t, r.Len(), "n=%d %s", n, p)
				next = r.End
			}
			require.Equal(t, n, next, "n=%d %s", n, p)
			if p.Mode == types.PolicyTotalVolumes {
				require.Len(t, rs, p.Value)
			}
		}
	}
}

func estimator(t *testing.T) *Estimator {
	t.Helper()
	e, err := NewEstimator(types.DefaultPageEstimate())
	require.NoError(t, err)
	return e
}

func lines(n int) *docx.Package {
	p := docx.New()
	for i := 0; i < n; i++ {
		p.AppendBlock(docx.NewParagraph("短行"))
	}
	return p
}

func TestEstimatorPages(t *testing.T) {
	e := estimator(t)
	per := types.DefaultPageEstimate().LinesPerColumn

	assert.Equal(t, 1, e.Pages(docx.New()))
	assert.Equal(t, 1, e.Pages(lines(per)))
	assert.Equal(t, 2, e.Pages(lines(per+1)))

	twoCol := lines(2 * per)
	docx.SetColumns(twoCol.BodySectPr(), 2)
	assert.Equal(t, 1, e.Pages(twoCol))

	broken := lines(1)
	broken.AppendBlock(docx.NewPageBreak())
	broken.AppendBlock(docx.NewParagraph("下一页"))
	assert.Equal(t, 2, e.Pages(broken))

	sections := lines(1)
	sections.AppendBlock(docx.NewSectionBreak(sections.BodySectPr()))
	sections.AppendBlock(docx.NewParagraph("新节"))
	assert.Equal(t, 2, e.Pages(sections))
	docx.SetSectionStart(sections.BodySectPr(), docx.StartContinuous)
	assert.Equal(t, 1, e.Pages(sections))
}

func TestEstimatorCountsLongParagraphsAndImages(t *testing.T) {
	e := estimator(t)
	cfg := types.DefaultPageEstimate()

	long := docx.New()
	long.AppendBlock(docx.NewParagraph(strings.Repeat("岩", cfg.CharsPerLine*cfg.LinesPerColumn+1)))
	assert.Equal(t, 2, e.Pages(long))

	tall := docx.New()
	tall.AppendBlock(tall.NewPictureParagraph("rId9", "sketch", types.EMUPerInch, cfg.PageHeight))
	tall.AppendBlock(docx.NewParagraph("图后"))
	assert.Equal(t, 2, e.Pages(tall))
}

func TestNewEstimatorRejectsZero(t *testing.T) {
	cfg := types.DefaultPageEstimate()
	cfg.LinesPerColumn = 0
	_, err := NewEstimator(cfg)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestPlanIsContinuous(t *testing.T) {
	members := []Member{
		{Route: types.Route{ID: "L1"}, Pages: 2},
		{Route: types.Route{ID: "L2"}, Pages: 1},
		{Route: types.Route{ID: "L3"}, Pages: 3},
	}
	plan := NewPlan(1, members, estimator(t))
	require.NoError(t, plan.Check())

	assert.Equal(t, 2, plan.TOCStart)
	assert.Equal(t, 1, plan.TOCPages)
	var starts []int
	for _, e := range plan.Entries {
		starts = append(starts, e.Start)
	}
	assert.Equal(t, []int{3, 5, 6}, starts)
	assert.Equal(t, 8, plan.LastPage())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, plan.Pagination())

	plan.Entries[1].Start++
	assert.Error(t, plan.Check())
}

func TestTOCPages(t *testing.T) {
	e := estimator(t)
	per := types.DefaultPageEstimate().TOCEntriesPerPage
	assert.Equal(t, 1, e.TOCPages(0))
	assert.Equal(t, 1, e.TOCPages(per))
	assert.Equal(t, 2, e.TOCPages(per+1))
}

// memberDoc builds an assembled report with its own page numbering, which
// binding must discard.
func memberDoc(t *testing.T, title string, body ...string) *docx.Package {
	t.Helper()
	p := docx.New()
	h := docx.NewParagraph(title)
	docx.SetStyle(h, "Heading1")
	docx.SetRunFonts(h, docx.Font{Color: "FF0000"})
	p.AppendBlock(h)
	for _, s := range body {
		p.AppendBlock(docx.NewParagraph(s))
	}
	footer := p.AddPageNumberFooter()
	docx.SetFooter(p.BodySectPr(), footer)
	docx.SetPageNumberStart(p.BodySectPr(), 5)
	docx.SetColumns(p.BodySectPr(), 2)
	return p
}

func member(t *testing.T, id, title string, pkg *docx.Package) Member {
	t.Helper()
	return Member{Route: types.Route{ID: id}, Pkg: pkg, Title: title, Pages: estimator(t).Pages(pkg)}
}

func TestBuild(t *testing.T) {
	m1 := memberDoc(t, "L1 (D1-D2)", "第一条路线")
	caption := docx.NewParagraph("Route L1 sketch map 1")
	docx.SetStyle(caption, "Caption")
	m1.AppendBlock(caption)
	m2 := memberDoc(t, "L2", "第二条路线")

	members := []Member{member(t, "L1", Title(m1), m1), member(t, "L2", Title(m2), m2)}
	plan := NewPlan(1, members, estimator(t))
	front := Front{CoverTitle: "野外手图", TOCTitle: "目录", Typography: types.DefaultTypography()}

	out, err := Build(plan, members, front)
	require.NoError(t, err)
	data, err := out.Bytes()
	require.NoError(t, err)
	got, err := docx.Read(data)
	require.NoError(t, err)

	texts := func() []string {
		var s []string
		for _, b := range got.Blocks()[:3] {
			s = append(s, docx.Text(b))
		}
		return s
	}
	assert.Equal(t, []string{"野外手图", "第1册", "L1-L2"}, texts())

	assert.Equal(t, map[string]string{"route_L1": "3", "route_L2": "4"}, docx.FieldResults(got.Body(), "PAGEREF"))
	assert.True(t, got.UpdateFieldsOnOpen())

	secs := got.Sections()
	require.Len(t, secs, 4)
	footer := got.PageNumberFooter(secs[0].Props)
	require.NotEmpty(t, footer)
	for i, s := range secs {
		assert.Equal(t, footer, got.PageNumberFooter(s.Props), "section %d", i)
		pg := s.Props.SelectElement("w:pgNumType")
		if i == 0 {
			require.NotNil(t, pg)
			assert.Equal(t, "1", pg.SelectAttrValue("w:start", ""))
			continue
		}
		assert.Nil(t, pg, "section %d keeps its own numbering", i)
	}
	assert.Equal(t, 1, docx.Columns(secs[1].Props))
	assert.Equal(t, 2, docx.Columns(secs[2].Props))
	assert.Equal(t, 2, docx.Columns(secs[3].Props))
	assert.Equal(t, docx.StartNextPage, docx.SectionStart(secs[3].Props))

	mark := got.Body().FindElement(".//w:bookmarkStart[@w:name='route_L2']")
	require.NotNil(t, mark)
	assert.Equal(t, "L2", docx.Text(mark.Parent()))

	for _, b := range got.Blocks() {
		switch {
		case docx.StyleID(b) == "Caption":
			assert.Equal(t, "left", b.FindElement("w:pPr/w:jc").SelectAttrValue("w:val", ""))
			assert.NotNil(t, b.FindElement(".//w:rPr/w:b"))
		case got.HeadingLevel(b) == 1:
			c := b.FindElement(".//w:rPr/w:color")
			require.NotNil(t, c)
			assert.Equal(t, "000000", c.SelectAttrValue("w:val", ""))
		}
	}
}

func TestBuildRejectsMismatchedPlan(t *testing.T) {
	m := memberDoc(t, "L1")
	plan := NewPlan(1, []Member{member(t, "L1", "L1", m)}, estimator(t))
	_, err := Build(plan, nil, Front{})
	assert.Error(t, err)
}

func partitionConfig(t *testing.T) types.PartitionConfig {
	t.Helper()
	cfg := types.DefaultPipelineConfig(t.TempDir()).PartitionStage()
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))
	return cfg
}

func TestPartitionAll(t *testing.T) {
	cfg := partitionConfig(t)
	cfg.Policy = types.TotalVolumes(2)
	for _, id := range []string{"L1", "L2", "L10", "L3", "L4"} {
		require.NoError(t, memberDoc(t, id, "正文").Save(filepath.Join(cfg.InputDir, id+".docx")))
	}
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "L6.docx"), []byte("corrupt"), 0o644))
	stale := filepath.Join(cfg.OutputDir, "volume-09_L1-L2.docx")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	other := filepath.Join(cfg.OutputDir, "notes.docx")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0o644))

	var buf bytes.Buffer
	summary, err := PartitionAll(context.Background(), cfg, &buf)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, "L6", summary.Failures()[0].Route.ID)
	assert.Contains(t, buf.String(), "bound: L1 (volume 1, page 3)")
	assert.Contains(t, buf.String(), "Batch summary: 5 bound, 0 skipped, 1 failed (total: 6)")

	first := filepath.Join(cfg.OutputDir, "volume-01_L1-L3.docx")
	second := filepath.Join(cfg.OutputDir, "volume-02_L4-L10.docx")
	assert.Equal(t, []string{first, second}, summary.Outputs)
	assert.FileExists(t, first)
	assert.FileExists(t, second)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, other)

	vol, err := docx.Open(second)
	require.NoError(t, err)
	assert.Len(t, docx.FieldResults(vol.Body(), "PAGEREF"), 2)
}

func TestPartitionAllEmptySetKeepsOldVolumes(t *testing.T) {
	cfg := partitionConfig(t)
	old := filepath.Join(cfg.OutputDir, "volume-01_L1-L2.docx")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))

	_, err := PartitionAll(context.Background(), cfg, &bytes.Buffer{})
	assert.ErrorIs(t, err, types.ErrEmptyRouteSet)
	assert.FileExists(t, old)
}

func TestPartitionAllTooManyVolumes(t *testing.T) {
	cfg := partitionConfig(t)
	cfg.Policy = types.TotalVolumes(3)
	for _, id := range []string{"L1", "L2"} {
		require.NoError(t, memberDoc(t, id).Save(filepath.Join(cfg.InputDir, id+".docx")))
	}
	_, err := PartitionAll(context.Background(), cfg, &bytes.Buffer{})
	assert.ErrorIs(t, err, types.ErrTooManyVolumes)
	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
