package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order_sheets_sync/internal/render"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for key := range defaults {
		t.Setenv(strings.ToUpper(key), "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("SUPABASE_URL", "https://db.example.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "credentials.json", cfg.CredentialsFile)
	assert.Equal(t, render.ImageFormula, cfg.ImageMode)
	assert.True(t, cfg.FormatEnabled)
	assert.False(t, cfg.ClearStaleCells)
	assert.False(t, cfg.DedupeTabCreate)
	assert.Empty(t, cfg.PickupPoints)
	assert.Equal(t, "Yes", cfg.TrueLabel)
	assert.Equal(t, "No", cfg.FalseLabel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 60*time.Second, cfg.SyncTimeout)
	assert.Equal(t, "https://db.example.co", cfg.StorageBaseURL, "storage defaults to the record source host")
	assert.False(t, cfg.UsesSQLite())
	assert.Equal(t, DefaultResilienceConfig, cfg.Resilience)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RECORDS_SQLITE_PATH", "orders.db")
	t.Setenv("STORAGE_BASE_URL", "https://cdn.example.co")
	t.Setenv("IMAGE_MODE", "URL")
	t.Setenv("FORMAT_ENABLED", "false")
	t.Setenv("CLEAR_STALE_CELLS", "true")
	t.Setenv("PICKUP_POINTS", "Store, Warehouse,,Courier ")
	t.Setenv("SYNC_TIMEOUT", "15s")
	t.Setenv("NTFY_ENABLED", "true")
	t.Setenv("NTFY_TOPIC", "alerts")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.UsesSQLite())
	assert.Equal(t, "https://cdn.example.co", cfg.StorageBaseURL)
	assert.Equal(t, render.ImageURL, cfg.ImageMode)
	assert.False(t, cfg.FormatEnabled)
	assert.True(t, cfg.ClearStaleCells)
	assert.Equal(t, []string{"Store", "Warehouse", "Courier"}, cfg.PickupPoints)
	assert.Equal(t, 15*time.Second, cfg.SyncTimeout)
	assert.True(t, cfg.Ntfy.Enabled)
	assert.Equal(t, "alerts", cfg.Ntfy.Topic)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	yaml := `records_sqlite_path: local.db
pickup_points:
  - Store
  - Locker
bool_true_label: "✓"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("BOOL_FALSE_LABEL", "✗")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "local.db", cfg.RecordsSQLitePath)
	assert.Equal(t, []string{"Store", "Locker"}, cfg.PickupPoints)
	assert.Equal(t, "✓", cfg.TrueLabel)
	assert.Equal(t, "✗", cfg.FalseLabel)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	t.Setenv("RECORDS_SQLITE_PATH", "orders.db")
	_, err := Load("nope.yaml")
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no record source", map[string]string{}},
		{"rest without key", map[string]string{"SUPABASE_URL": "https://db"}},
		{"bad image mode", map[string]string{"RECORDS_SQLITE_PATH": "x.db", "IMAGE_MODE": "inline"}},
		{"bad timeout", map[string]string{"RECORDS_SQLITE_PATH": "x.db", "SYNC_TIMEOUT": "soon"}},
		{"zero timeout", map[string]string{"RECORDS_SQLITE_PATH": "x.db", "SYNC_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestWarningsFlagMissingPickupPoints(t *testing.T) {
	cfg := &Config{FormatEnabled: true}
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "PICKUP_POINTS")

	cfg.PickupPoints = []string{"Store"}
	assert.Empty(t, cfg.Warnings())

	cfg = &Config{FormatEnabled: false}
	assert.Empty(t, cfg.Warnings(), "no drop-down is expected when formatting is off")
}

func TestLoadLogsPickupPointWarning(t *testing.T) {
	isolate(t)
	t.Setenv("RECORDS_SQLITE_PATH", "orders.db")

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	_, err := Load("")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "PICKUP_POINTS is empty")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestRequireSpreadsheet(t *testing.T) {
	cfg := &Config{CredentialsFile: "credentials.json"}
	assert.Error(t, cfg.RequireSpreadsheet())

	cfg.SpreadsheetID = "sheet"
	assert.NoError(t, cfg.RequireSpreadsheet())

	cfg.CredentialsFile = ""
	assert.Error(t, cfg.RequireSpreadsheet())
}
