package main

import (
	"fmt"
	"strings"
	"time"

	"libpack/internal/core/app"
	"libpack/internal/data/history"
	"libpack/internal/engine/classifier"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	moduleStyle = lipgloss.NewStyle().Width(32)
)

func renderSummary(r *app.Report) string {
	var sb strings.Builder
	sb.WriteString(successStyle.Render("Build complete"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  modules:   %d (esm + cjs)\n", len(r.Files))
	fmt.Fprintf(&sb, "  manifests: %d\n", len(r.Manifests))
	if len(r.Assets) > 0 {
		fmt.Fprintf(&sb, "  assets:    %s\n", strings.Join(r.Assets, ", "))
	} else {
		sb.WriteString("  assets:    none\n")
	}
	fmt.Fprintf(&sb, "  output:    %s\n", r.OutputDir)
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  took %s", r.Duration.Round(time.Millisecond))))
	return sb.String()
}

func renderDiscovery(cls *classifier.Classifier, files []classifier.File) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%d eligible files", len(files))))
	for _, f := range files {
		sb.WriteString("\n  ")
		sb.WriteString(moduleStyle.Render(f.ModuleName))
		sb.WriteString(" ")
		sb.WriteString(f.Rel)
		sb.WriteString(statusStyle.Render(" -> " + cls.OutputRel(f)))
	}
	return sb.String()
}

func renderDrift(drift []string) string {
	if len(drift) == 0 {
		return successStyle.Render("manifests up to date")
	}
	var sb strings.Builder
	sb.WriteString(failureStyle.Render(fmt.Sprintf("%d manifest differences", len(drift))))
	for _, line := range drift {
		sb.WriteString("\n  ")
		sb.WriteString(line)
	}
	return sb.String()
}

func renderRuns(runs []history.Run) string {
	if len(runs) == 0 {
		return statusStyle.Render("no recorded runs")
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Recent runs"))
	for _, run := range runs {
		status := successStyle.Render(run.Status)
		if run.Status != history.StatusSucceeded {
			status = failureStyle.Render(run.Status)
		}
		fmt.Fprintf(&sb, "\n  %s  %-11s %-9s %3d files  %s",
			run.StartedAt.Local().Format(time.DateTime), run.Mode, status, run.FileCount, statusStyle.Render(run.ID))
		if run.Error != "" {
			sb.WriteString("\n    ")
			sb.WriteString(failureStyle.Render(run.Error))
		}
	}
	return sb.String()
}

func renderCompiles(runID string, compiles []history.CompileRecord) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Run %s: %d compiles", runID, len(compiles))))
	for _, rec := range compiles {
		fmt.Fprintf(&sb, "\n  %-3s %s %s", rec.Format, rec.Path, statusStyle.Render(rec.Duration.Round(time.Millisecond).String()))
		if rec.Error != "" {
			sb.WriteString("\n    ")
			sb.WriteString(failureStyle.Render(rec.Error))
		}
	}
	return sb.String()
}
