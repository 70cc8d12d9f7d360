// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/fieldbook/pkg/types"
)

var (
	stageStyle     = lipgloss.NewStyle().Bold(true)
	succeededStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

func statusStyle(s types.RouteStatus) lipgloss.Style {
	switch s {
	case types.StatusSucceeded:
		return succeededStyle
	case types.StatusFailed:
		return failedStyle
	default:
		return skippedStyle
	}
}

// renderSummary formats the end-of-stage counts and lists every failed
// route with its reason.
func renderSummary(s types.StageSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s  %s\n",
		stageStyle.Render(fmt.Sprintf("%-10s", s.Stage)),
		succeededStyle.Render(fmt.Sprintf("%d succeeded", s.Succeeded())),
		skippedStyle.Render(fmt.Sprintf("%d skipped", s.Skipped())),
		failedStyle.Render(fmt.Sprintf("%d failed", s.Failed())),
	)
	for _, f := range s.Failures() {
		fmt.Fprintf(&b, "  %s %s\n", failedStyle.Render(f.Route.ID), detailStyle.Render(f.Reason))
	}
	for _, out := range s.Outputs {
		fmt.Fprintf(&b, "  %s\n", detailStyle.Render(out))
	}
	return b.String()
}

func printSummaries(w io.Writer, summaries ...types.StageSummary) {
	fmt.Fprintln(w)
	for _, s := range summaries {
		fmt.Fprint(w, renderSummary(s))
	}
}

// failureError turns route failures into the command's error so the
// process exits non-zero.
func failureError(summaries ...types.StageSummary) error {
	failed := 0
	for _, s := range summaries {
		failed += s.Failed()
	}
	if failed > 0 {
		return fmt.Errorf("%d route(s) failed", failed)
	}
	return nil
}
