// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// HeadingRule promotes paragraphs whose text matches Pattern (a regular
// expression) to the given heading level (1 or 2).
type HeadingRule struct {
	Pattern string `json:"pattern" yaml:"pattern" mapstructure:"pattern"`
	Level   int    `json:"level" yaml:"level" mapstructure:"level"`
}

// Substitution rewrites a whole field label. A paragraph's label is the
// text before its first colon.
type Substitution struct {
	From string `json:"from" yaml:"from" mapstructure:"from"`
	To   string `json:"to" yaml:"to" mapstructure:"to"`
}

// ReorderRule emits a Second chunk before the First chunk it immediately follows.
type ReorderRule struct {
	First  string `json:"first" yaml:"first" mapstructure:"first"`
	Second string `json:"second" yaml:"second" mapstructure:"second"`
}

// SpacerRule inserts a blank paragraph before every chunk of kind Chunk.
// With SkipFirst the first such chunk gets no spacer.
type SpacerRule struct {
	Chunk     string `json:"chunk" yaml:"chunk" mapstructure:"chunk"`
	SkipFirst bool   `json:"skip_first" yaml:"skip_first" mapstructure:"skip_first"`
}

// Patterns holds every text pattern the pipeline matches against. None of
// these are compiled in; the config file can override each table.
type Patterns struct {
	// RouteName matches file and folder names. The whole match, upper-cased,
	// is the route id and the first group is its number.
	RouteName string `json:"route_name" yaml:"route_name" mapstructure:"route_name"`

	// RouteCode and PointCode find codes inside report text.
	RouteCode string `json:"route_code" yaml:"route_code" mapstructure:"route_code"`
	PointCode string `json:"point_code" yaml:"point_code" mapstructure:"point_code"`

	// RouteChunk and PointChunk name the chunks the codes are read from.
	RouteChunk string `json:"route_chunk" yaml:"route_chunk" mapstructure:"route_chunk"`
	PointChunk string `json:"point_chunk" yaml:"point_chunk" mapstructure:"point_chunk"`

	// Chunks is the vocabulary of chunk-starting labels, in match priority.
	Chunks []string `json:"chunks" yaml:"chunks" mapstructure:"chunks"`

	Headings      []HeadingRule  `json:"headings" yaml:"headings" mapstructure:"headings"`
	Substitutions []Substitution `json:"substitutions" yaml:"substitutions" mapstructure:"substitutions"`
	Reorder       []ReorderRule  `json:"reorder" yaml:"reorder" mapstructure:"reorder"`
	Spacers       []SpacerRule   `json:"spacers" yaml:"spacers" mapstructure:"spacers"`

	// LineSpacers puts a blank paragraph before any paragraph containing
	// one of these phrases.
	LineSpacers []string `json:"line_spacers" yaml:"line_spacers" mapstructure:"line_spacers"`

	// Anchors are the labels of the self-check section.
	Anchors []string `json:"anchors" yaml:"anchors" mapstructure:"anchors"`

	// Caption is the sketch caption template. {route} and {n} are replaced.
	Caption string `json:"caption" yaml:"caption" mapstructure:"caption"`

	// SketchHeading opens the sketch section of an assembled report.
	// {route} is replaced; empty leaves the section without one.
	SketchHeading string `json:"sketch_heading" yaml:"sketch_heading" mapstructure:"sketch_heading"`

	// Title is the synthesized route title. {route}, {first} and {last} are
	// replaced; TitleNoPoints is used when the report lists no points.
	Title         string `json:"title" yaml:"title" mapstructure:"title"`
	TitleNoPoints string `json:"title_no_points" yaml:"title_no_points" mapstructure:"title_no_points"`
}

// DefaultPatterns returns the vocabulary of the DGSS field-report export.
func DefaultPatterns() Patterns {
	return Patterns{
		RouteName:  `^[Ll](\d+)`,
		RouteCode:  `[Ll]\d+`,
		PointCode:  `[Dd]\d+`,
		RouteChunk: "路线编号",
		PointChunk: "地质点号",
		Chunks: []string{
			"点间路线描述",
			"分段路线上界线描述",
			"路线编号",
			"路线描述",
			"目标任务",
			"图幅编号",
			"地质点号",
			"路线小结",
			"路线自检",
		},
		Headings: []HeadingRule{
			{Pattern: `^点上界线描述[：:]`, Level: 2},
			{Pattern: `^点间路线描述[：:]`, Level: 2},
			{Pattern: `^路线小结[：:]`, Level: 2},
			{Pattern: `^路线自检[：:]`, Level: 2},
		},
		Substitutions: []Substitution{
			{From: "分段路线上界线描述", To: "点上界线描述"},
		},
		Reorder: []ReorderRule{
			{First: "点间路线描述", Second: "分段路线上界线描述"},
		},
		Spacers: []SpacerRule{
			{Chunk: "地质点号", SkipFirst: true},
			{Chunk: "点间路线描述"},
			{Chunk: "分段路线上界线描述"},
		},
		LineSpacers:   []string{"照片点坐标"},
		Anchors:       []string{"路线自检"},
		Caption:       "Route {route} sketch map {n}",
		SketchHeading: "{route}素描图",
		Title:         "{route} ({first}-{last})",
		TitleNoPoints: "{route}",
	}
}
