// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fieldbook CLI.
// Each pipeline stage is a subcommand; run executes all of them in order.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fieldbook/internal/ledger"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the fieldbook CLI.
var rootCmd = &cobra.Command{
	Use:   "fieldbook",
	Short: "Turn geological field-report exports into bound handbook volumes",
	Long: `fieldbook processes per-route field reports exported as .docx files.

The pipeline has four stages, each a subcommand reading the previous stage's
directory under the working root:

  normalize   raw-reports/        -> normalized-reports/
  harvest     <route>/素描图/*.png -> harvested-sketches/
  assemble    normalized + sketch -> assembled-reports/
  partition   assembled-reports/  -> volumes/

Every stage run is recorded in .fieldbook/ledger.db; see status and export.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fieldbook.yaml or ~/.config/fieldbook/fieldbook.yaml)")
	rootCmd.PersistentFlags().String("work-dir", "", "working root holding the stage directories (default: current directory)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log diagnostics to stderr")

	viper.BindPFlag("workspace.work_dir", rootCmd.PersistentFlags().Lookup("work-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fieldbook")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fieldbook"))
		}
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindEnv maps nested keys to FIELDBOOK_ variables, so workspace.work_dir
// is read from FIELDBOOK_WORKSPACE_WORK_DIR.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("FIELDBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig builds the pipeline configuration: built-in defaults, then the
// config file and environment, then command-line flags.
func loadConfig() (types.PipelineConfig, error) {
	workDir := viper.GetString("workspace.work_dir")
	if workDir == "" {
		workDir = "."
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return types.PipelineConfig{}, fmt.Errorf("resolving work dir: %w", err)
	}

	cfg := types.DefaultPipelineConfig(abs)
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: reading config: %v", types.ErrConfiguration, err)
	}
	cfg.Workspace.WorkDir = abs
	if cfg.Workspace.ProjectsDir == "" {
		cfg.Workspace.ProjectsDir = filepath.Dir(abs)
	}

	log := slog.Default()
	cfg.Logger = log
	cfg.Progress = func(p types.Progress) {
		log.Debug("progress", "stage", p.Stage, "route", p.Route.ID, "index", p.Index, "total", p.Total, "status", p.Status)
	}
	return cfg, nil
}

// openLedger opens the run ledger under the working root.
func openLedger(cfg types.PipelineConfig) (*ledger.Ledger, error) {
	return ledger.Open(filepath.Join(cfg.Workspace.WorkDir, types.LedgerDir))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
