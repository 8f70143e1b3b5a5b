package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/legacy-migrator/internal/config"
	"github.com/jakechorley/legacy-migrator/pkg/core/importer"
	"github.com/jakechorley/legacy-migrator/pkg/core/services"
)

func sampleReport() *services.MigrationReport {
	started := time.Date(2025, 10, 19, 9, 30, 0, 0, time.UTC)
	return &services.MigrationReport{
		RunID:           "run-1",
		State:           services.StateDone,
		DryRun:          true,
		StartedAt:       started,
		FinishedAt:      started.Add(42 * time.Second),
		ShiftTimePolicy: "drop-in-roster@2025.2",
		Stats: importer.Stats{
			Users:   importer.KindStats{Processed: 3, Created: 2, Failed: 1},
			Signups: importer.KindStats{Processed: 1, Skipped: 1},
		},
		Errors: []importer.RecordError{
			{Kind: "user", LegacyID: "u3", Message: "invalid email \"nope\""},
		},
		Warnings: []string{"photo for b@x.com (/storage/b): unexpected status 404"},
	}
}

func TestRenderReport_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, sampleReport(), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "Shift types")
	assert.Contains(t, out, "u3")
	assert.Contains(t, out, "1 warnings")
	assert.Contains(t, out, "drop-in-roster@2025.2")
	assert.NotContains(t, out, "Migration failed")
}

func TestRenderReport_TableShowsFatalError(t *testing.T) {
	report := sampleReport()
	report.State = services.StateFailed
	report.FatalError = "authentication failed (status 302): invalid credentials"

	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, report, FormatTable))
	assert.Contains(t, buf.String(), "Migration failed: authentication failed")
}

func TestRenderReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, sampleReport(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["runId"])
	assert.Equal(t, "DONE", decoded["state"])
	assert.NotContains(t, decoded, "fatalError")
}

func TestRenderReport_UnknownFormat(t *testing.T) {
	err := RenderReport(&bytes.Buffer{}, sampleReport(), "xml")
	assert.ErrorContains(t, err, "unknown report format")
}

func TestWriteReportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, WriteReportFile(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded services.MigrationReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Stats.Users.Created)
	assert.Len(t, decoded.Errors, 1)
}

func TestMigrateOptions_FromConfig(t *testing.T) {
	cfg := &config.Config{
		Legacy:   config.LegacyConfig{PageSize: 0},
		Database: config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"},
	}
	config.ApplyDefaults(cfg)

	opts, err := (&AppContext{Cfg: cfg}).migrateOptions()
	require.NoError(t, err)

	assert.Equal(t, 100, opts.PageSize)
	assert.True(t, opts.SkipExistingUsers)
	assert.True(t, opts.MarkAsMigrated)
	assert.Equal(t, "UTC", opts.Location.String())
	assert.Equal(t, 4, opts.ImportConcurrency)
}
