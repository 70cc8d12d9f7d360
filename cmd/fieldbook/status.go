// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fieldbook/internal/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest outcome of every route in every stage",
	Long: `Status reads the run ledger and prints, for each stage that has run, the
latest run's counts and the status of every route it handled.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	runs, err := l.Status(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	formatStatus(os.Stdout, runs)
	return nil
}

func formatStatus(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No stage has run yet.")
		return
	}
	for i, r := range runs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
			stageStyle.Render(fmt.Sprintf("%-10s", r.Stage)),
			detailStyle.Render(r.FinishedAt.Local().Format(time.DateTime)),
			succeededStyle.Render(fmt.Sprintf("%d succeeded", r.Succeeded)),
			skippedStyle.Render(fmt.Sprintf("%d skipped", r.Skipped)),
			failedStyle.Render(fmt.Sprintf("%d failed", r.Failed)),
		)
		if r.Fatal != "" {
			fmt.Fprintf(w, "  %s %s\n", failedStyle.Render("stopped:"), r.Fatal)
		}
		fmt.Fprintln(w, "  "+strings.Repeat("-", 60))
		for _, rt := range r.Routes {
			note := rt.Detail
			if rt.Reason != "" {
				note = rt.Reason
			}
			fmt.Fprintf(w, "  %-10s %s %s\n",
				rt.Route.ID,
				statusStyle(rt.Status).Render(fmt.Sprintf("%-10s", rt.Status)),
				detailStyle.Render(note),
			)
		}
	}
}
