// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"log/slog"
	"path/filepath"
)

// Working-root subdirectories. Each stage reads the previous stage's
// directory and writes its own.
const (
	RawReportsDir        = "raw-reports"
	NormalizedReportsDir = "normalized-reports"
	HarvestedSketchesDir = "harvested-sketches"
	AssembledReportsDir  = "assembled-reports"
	VolumesDir           = "volumes"
	LedgerDir            = ".fieldbook"
)

// WorkspaceDirs lists the directories `fieldbook init` creates.
var WorkspaceDirs = []string{
	RawReportsDir,
	NormalizedReportsDir,
	HarvestedSketchesDir,
	AssembledReportsDir,
	VolumesDir,
	LedgerDir,
}

// Length units used by the document layer.
const (
	EMUPerInch = 914400
	EMUPerCm   = 360000
)

// WorkspaceConfig locates the working root and the external project folders.
type WorkspaceConfig struct {
	// WorkDir is the working root holding the stage directories.
	WorkDir string `json:"work_dir" yaml:"work_dir" mapstructure:"work_dir"`

	// ProjectsDir holds the per-route project folders read by the harvester
	// (default: the parent of WorkDir, as field exports are laid out).
	ProjectsDir string `json:"projects_dir" yaml:"projects_dir" mapstructure:"projects_dir"`
}

// Typography holds the fixed formatting targets applied by the normalizer.
// Sizes are in half-points, as Word stores them.
type Typography struct {
	LatinFont    string `json:"latin_font" yaml:"latin_font" mapstructure:"latin_font"`
	EastAsiaFont string `json:"east_asia_font" yaml:"east_asia_font" mapstructure:"east_asia_font"`
	BodySize     int    `json:"body_size" yaml:"body_size" mapstructure:"body_size"`

	Heading1Font string `json:"heading1_font" yaml:"heading1_font" mapstructure:"heading1_font"`
	Heading1Size int    `json:"heading1_size" yaml:"heading1_size" mapstructure:"heading1_size"`
	Heading2Font string `json:"heading2_font" yaml:"heading2_font" mapstructure:"heading2_font"`
	Heading2Size int    `json:"heading2_size" yaml:"heading2_size" mapstructure:"heading2_size"`

	// LineSpacing is in 240ths of a line (240 = single).
	LineSpacing int `json:"line_spacing" yaml:"line_spacing" mapstructure:"line_spacing"`

	// Columns is the body column count of a normalized report.
	Columns int `json:"columns" yaml:"columns" mapstructure:"columns"`

	// MaxImageWidth is the widest an inline image may be, in EMU.
	MaxImageWidth int64 `json:"max_image_width" yaml:"max_image_width" mapstructure:"max_image_width"`
}

// DefaultTypography returns the house style of the field handbook.
func DefaultTypography() Typography {
	return Typography{
		LatinFont:     "Times New Roman",
		EastAsiaFont:  "宋体",
		BodySize:      21,
		Heading1Font:  "黑体",
		Heading1Size:  32,
		Heading2Font:  "宋体",
		Heading2Size:  21,
		LineSpacing:   240,
		Columns:       2,
		MaxImageWidth: 65 * EMUPerCm / 10,
	}
}

// NormalizeConfig holds settings for the normalize stage.
type NormalizeConfig struct {
	InputDir   string     `json:"input_dir" yaml:"input_dir" mapstructure:"input_dir"`
	OutputDir  string     `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	Patterns   Patterns   `json:"patterns" yaml:"patterns" mapstructure:"patterns"`
	Typography Typography `json:"typography" yaml:"typography" mapstructure:"typography"`

	Logger   *slog.Logger `json:"-" yaml:"-" mapstructure:"-"`
	Progress ProgressFunc `json:"-" yaml:"-" mapstructure:"-"`
}

// HarvestConfig holds settings for the harvest stage.
type HarvestConfig struct {
	ProjectsDir string `json:"projects_dir" yaml:"projects_dir" mapstructure:"projects_dir"`
	OutputDir   string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// SketchDir is the fixed name of the sketch subfolder in each route folder.
	SketchDir string `json:"sketch_dir" yaml:"sketch_dir" mapstructure:"sketch_dir"`

	// ImageWidth is the rendered width of each sketch, in EMU (default 6in).
	ImageWidth int64 `json:"image_width" yaml:"image_width" mapstructure:"image_width"`

	Patterns Patterns `json:"patterns" yaml:"patterns" mapstructure:"patterns"`

	Logger   *slog.Logger `json:"-" yaml:"-" mapstructure:"-"`
	Progress ProgressFunc `json:"-" yaml:"-" mapstructure:"-"`
}

// AssembleConfig holds settings for the assemble stage.
type AssembleConfig struct {
	ReportsDir  string   `json:"reports_dir" yaml:"reports_dir" mapstructure:"reports_dir"`
	SketchesDir string   `json:"sketches_dir" yaml:"sketches_dir" mapstructure:"sketches_dir"`
	OutputDir   string   `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	Patterns    Patterns `json:"patterns" yaml:"patterns" mapstructure:"patterns"`

	Logger   *slog.Logger `json:"-" yaml:"-" mapstructure:"-"`
	Progress ProgressFunc `json:"-" yaml:"-" mapstructure:"-"`
}

// PageEstimate tunes the page-count estimate used for TOC page numbers.
// Word recomputes the real numbers when it refreshes fields.
type PageEstimate struct {
	// CharsPerLine is how many CJK characters fit one full-width line. A
	// column of an n-column section holds CharsPerLine/n.
	CharsPerLine int `json:"chars_per_line" yaml:"chars_per_line" mapstructure:"chars_per_line"`

	// LinesPerColumn is how many body lines fit one column.
	LinesPerColumn int `json:"lines_per_column" yaml:"lines_per_column" mapstructure:"lines_per_column"`

	// PageHeight is the usable page height in EMU, used to size images.
	PageHeight int64 `json:"page_height" yaml:"page_height" mapstructure:"page_height"`

	// TOCEntriesPerPage is how many route entries fit one TOC page.
	TOCEntriesPerPage int `json:"toc_entries_per_page" yaml:"toc_entries_per_page" mapstructure:"toc_entries_per_page"`
}

// DefaultPageEstimate matches A4 with 2.54cm margins at 10.5pt.
func DefaultPageEstimate() PageEstimate {
	return PageEstimate{
		CharsPerLine:      40,
		LinesPerColumn:    48,
		PageHeight:        2470 * EMUPerCm / 100,
		TOCEntriesPerPage: 30,
	}
}

// PartitionConfig holds settings for the partition stage.
type PartitionConfig struct {
	InputDir  string          `json:"input_dir" yaml:"input_dir" mapstructure:"input_dir"`
	OutputDir string          `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	Policy    PartitionPolicy `json:"policy" yaml:"policy" mapstructure:"policy"`

	// CoverTitle heads every cover page; the volume number and route range
	// are printed beneath it.
	CoverTitle string `json:"cover_title" yaml:"cover_title" mapstructure:"cover_title"`

	// TOCTitle heads the table of contents.
	TOCTitle string `json:"toc_title" yaml:"toc_title" mapstructure:"toc_title"`

	// FilePrefix starts every volume file name.
	FilePrefix string `json:"file_prefix" yaml:"file_prefix" mapstructure:"file_prefix"`

	Estimate PageEstimate `json:"estimate" yaml:"estimate" mapstructure:"estimate"`
	Patterns Patterns     `json:"patterns" yaml:"patterns" mapstructure:"patterns"`

	// Typography sets the caption font applied to sketch captions.
	Typography Typography `json:"-" yaml:"-" mapstructure:"-"`

	Logger   *slog.Logger `json:"-" yaml:"-" mapstructure:"-"`
	Progress ProgressFunc `json:"-" yaml:"-" mapstructure:"-"`
}

// PipelineConfig groups all stage configurations for a pipeline run.
type PipelineConfig struct {
	Workspace  WorkspaceConfig `json:"workspace" yaml:"workspace" mapstructure:"workspace"`
	Patterns   Patterns        `json:"patterns" yaml:"patterns" mapstructure:"patterns"`
	Typography Typography      `json:"typography" yaml:"typography" mapstructure:"typography"`
	Harvest    HarvestConfig   `json:"harvest" yaml:"harvest" mapstructure:"harvest"`
	Partition  PartitionConfig `json:"partition" yaml:"partition" mapstructure:"partition"`

	Logger   *slog.Logger `json:"-" yaml:"-" mapstructure:"-"`
	Progress ProgressFunc `json:"-" yaml:"-" mapstructure:"-"`
}

// DefaultPipelineConfig returns a configuration rooted at workDir with the
// built-in pattern tables and house style.
func DefaultPipelineConfig(workDir string) PipelineConfig {
	return PipelineConfig{
		Workspace: WorkspaceConfig{
			WorkDir:     workDir,
			ProjectsDir: filepath.Dir(filepath.Clean(workDir)),
		},
		Patterns:   DefaultPatterns(),
		Typography: DefaultTypography(),
		Harvest: HarvestConfig{
			SketchDir:  "素描图",
			ImageWidth: 6 * EMUPerInch,
		},
		Partition: PartitionConfig{
			Policy:     DefaultPolicy(),
			CoverTitle: "野外手图",
			TOCTitle:   "目录",
			FilePrefix: "volume",
			Estimate:   DefaultPageEstimate(),
		},
	}
}

// NormalizeStage derives the normalize stage configuration.
func (c PipelineConfig) NormalizeStage() NormalizeConfig {
	return NormalizeConfig{
		InputDir:   filepath.Join(c.Workspace.WorkDir, RawReportsDir),
		OutputDir:  filepath.Join(c.Workspace.WorkDir, NormalizedReportsDir),
		Patterns:   c.Patterns,
		Typography: c.Typography,
		Logger:     c.Logger,
		Progress:   c.Progress,
	}
}

// HarvestStage derives the harvest stage configuration.
func (c PipelineConfig) HarvestStage() HarvestConfig {
	h := c.Harvest
	if h.ProjectsDir == "" {
		h.ProjectsDir = c.Workspace.ProjectsDir
	}
	h.OutputDir = filepath.Join(c.Workspace.WorkDir, HarvestedSketchesDir)
	h.Patterns = c.Patterns
	h.Logger = c.Logger
	h.Progress = c.Progress
	return h
}

// AssembleStage derives the assemble stage configuration.
func (c PipelineConfig) AssembleStage() AssembleConfig {
	return AssembleConfig{
		ReportsDir:  filepath.Join(c.Workspace.WorkDir, NormalizedReportsDir),
		SketchesDir: filepath.Join(c.Workspace.WorkDir, HarvestedSketchesDir),
		OutputDir:   filepath.Join(c.Workspace.WorkDir, AssembledReportsDir),
		Patterns:    c.Patterns,
		Logger:      c.Logger,
		Progress:    c.Progress,
	}
}

// PartitionStage derives the partition stage configuration.
func (c PipelineConfig) PartitionStage() PartitionConfig {
	p := c.Partition
	p.InputDir = filepath.Join(c.Workspace.WorkDir, AssembledReportsDir)
	p.OutputDir = filepath.Join(c.Workspace.WorkDir, VolumesDir)
	p.Patterns = c.Patterns
	p.Typography = c.Typography
	p.Logger = c.Logger
	p.Progress = c.Progress
	return p
}
