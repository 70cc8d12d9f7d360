// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fieldbook/pkg/types"
)

const configFileName = "fieldbook.yaml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the working-root directory layout",
	Long: `Init creates the stage directories under the working root and writes a
fieldbook.yaml holding the default pattern tables, unless one exists.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root := cfg.Workspace.WorkDir
	for _, d := range types.WorkspaceDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}

	path := filepath.Join(root, configFileName)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Initialized %s (kept existing %s)\n", root, configFileName)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	data, err := yaml.Marshal(configTemplate(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Initialized %s\n", root)
	return nil
}

// configTemplate is the part of the configuration worth editing. Stage
// directories follow from the working root and are left out.
func configTemplate(cfg types.PipelineConfig) map[string]any {
	return map[string]any{
		"patterns":   cfg.Patterns,
		"typography": cfg.Typography,
		"harvest": map[string]any{
			"sketch_dir":  cfg.Harvest.SketchDir,
			"image_width": cfg.Harvest.ImageWidth,
		},
		"partition": map[string]any{
			"policy":      cfg.Partition.Policy,
			"cover_title": cfg.Partition.CoverTitle,
			"toc_title":   cfg.Partition.TOCTitle,
			"file_prefix": cfg.Partition.FilePrefix,
			"estimate":    cfg.Partition.Estimate,
		},
	}
}
