package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jakechorley/legacy-migrator/pkg/core/importer"
	"github.com/jakechorley/legacy-migrator/pkg/core/services"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// RenderReport writes the migration report to w as tables or JSON
func RenderReport(w io.Writer, report *services.MigrationReport, format string) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatTable, "":
		renderTables(w, report)
		return nil
	default:
		return fmt.Errorf("unknown report format %q (want %s or %s)", format, FormatTable, FormatJSON)
	}
}

// WriteReportFile saves the report as JSON
func WriteReportFile(path string, report *services.MigrationReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func renderTables(w io.Writer, report *services.MigrationReport) {
	mode := "live"
	if report.DryRun {
		mode = "dry run"
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleRounded)
	summary.SetTitle(fmt.Sprintf("Migration %s (%s) - %s", report.RunID, mode, report.State))
	summary.AppendHeader(table.Row{"Kind", "Processed", "Created", "Skipped", "Failed"})
	for _, row := range []struct {
		name  string
		stats importer.KindStats
	}{
		{"Users", report.Stats.Users},
		{"Shift types", report.Stats.ShiftTypes},
		{"Shifts", report.Stats.Shifts},
		{"Signups", report.Stats.Signups},
	} {
		summary.AppendRow(table.Row{row.name, row.stats.Processed, row.stats.Created, row.stats.Skipped, row.stats.Failed})
	}
	summary.Render()
	fmt.Fprintf(w, "Duration %s, shift times from %s\n",
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond), report.ShiftTimePolicy)

	if len(report.Errors) > 0 {
		errs := table.NewWriter()
		errs.SetOutputMirror(w)
		errs.SetStyle(table.StyleRounded)
		errs.SetTitle(fmt.Sprintf("%d record errors", len(report.Errors)))
		errs.AppendHeader(table.Row{"Kind", "Legacy ID", "Message"})
		for _, e := range report.Errors {
			errs.AppendRow(table.Row{e.Kind, e.LegacyID, e.Message})
		}
		errs.Render()
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintf(w, "\n⚠️  %d warnings:\n", len(report.Warnings))
		for _, warning := range report.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}

	if report.FatalError != "" {
		fmt.Fprintf(w, "\n✗ Migration failed: %s\n", report.FatalError)
	}
}
