package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/config"
)

// newDefaultTarget returns a Config with known non-zero values so tests can
// verify that absent overlay keys leave the original values intact.
func newDefaultTarget() *config.Config {
	return &config.Config{
		Output:  config.OutputConfig{DefaultFormat: "table", Precision: 2, Unit: "kg"},
		Logging: config.LoggingConfig{Level: "info", Format: "console"},
		Data:    config.DataConfig{HistoryBackend: "file", HistoryPath: "/tmp/history.json"},
		Server: config.ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Goals: config.GoalsConfig{ReductionPercent: 20, TrendDays: 30},
	}
}

func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestShallowMergeYAML_SingleKeyOverride(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, `
output:
  default_format: json
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, "json", target.Output.DefaultFormat)
	assert.Zero(t, target.Output.Precision, "the whole section is replaced")
	assert.Equal(t, "info", target.Logging.Level)
	assert.Equal(t, "/tmp/history.json", target.Data.HistoryPath)
}

func TestShallowMergeYAML_SliceReplaced(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, `
server:
  addr: 0.0.0.0:9000
  allowed_origins: ["https://carbon.example"]
  write_timeout: 3m
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, "0.0.0.0:9000", target.Server.Addr)
	assert.Equal(t, []string{"https://carbon.example"}, target.Server.AllowedOrigins)
	assert.Equal(t, 3*time.Minute, target.Server.WriteTimeout)
}

func TestShallowMergeYAML_UnknownKeysIgnored(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, `
plugins:
  aws: {}
goals:
  reduction_percent: 35
  trend_days: 14
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.InDelta(t, 35.0, target.Goals.ReductionPercent, 1e-9)
	assert.Equal(t, 14, target.Goals.TrendDays)
}

func TestShallowMergeYAML_EmptyFile(t *testing.T) {
	target := newDefaultTarget()
	require.NoError(t, config.ShallowMergeYAML(target, writeOverlay(t, "# nothing here\n")))
	assert.Equal(t, newDefaultTarget(), target)
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	require.Error(t, config.ShallowMergeYAML(nil, "x.yaml"))
	require.Error(t, config.ShallowMergeYAML(newDefaultTarget(), filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, config.ShallowMergeYAML(newDefaultTarget(), writeOverlay(t, "output: [")))
	require.Error(t, config.ShallowMergeYAML(newDefaultTarget(), writeOverlay(t, "goals:\n  trend_days: many\n")))
}
