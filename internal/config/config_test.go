package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 70.0, cfg.Thresholds.WinRate.Excellent)
	assert.Equal(t, 50.0, cfg.Thresholds.WinRate.Good)
	assert.Equal(t, 40.0, cfg.Thresholds.WinRate.Poor)
	assert.Equal(t, 1000.0, cfg.Thresholds.PnL.SignificantProfit)
	assert.Equal(t, -500.0, cfg.Thresholds.PnL.SignificantLoss)
	assert.Equal(t, int64(50*1024*1024), cfg.Limits.MaxBytes())
	assert.Equal(t, 60*time.Second, cfg.Limits.GetTimeout())
	assert.Equal(t, time.Hour, cfg.Server.GetSessionTTL())
	assert.Equal(t, "realized_pnl", cfg.Vocabulary.PnL[0])
	assert.Contains(t, cfg.Vocabulary.Exclusions, "transferencia")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "analyzer.toml", `
[limits]
max_file_mb = 5
timeout = "10s"

[thresholds.pnl]
significant_profit = 250.0

[vocabulary]
type = ["side"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Limits.MaxFileMB)
	assert.Equal(t, 10*time.Second, cfg.Limits.GetTimeout())
	assert.Equal(t, 250.0, cfg.Thresholds.PnL.SignificantProfit)
	assert.Equal(t, -500.0, cfg.Thresholds.PnL.SignificantLoss)
	assert.Equal(t, []string{"side"}, cfg.Vocabulary.Type)
	assert.NotEmpty(t, cfg.Vocabulary.Asset)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "analyzer.yaml", `
thresholds:
  win_rate:
    excellent: 80
    good: 55
    poor: 35
sheets:
  exclude: ["Summary"]
  auto_detect: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Thresholds.WinRate.Excellent)
	assert.Equal(t, 35.0, cfg.Thresholds.WinRate.Poor)
	assert.Equal(t, []string{"Summary"}, cfg.Sheets.Exclude)
	assert.True(t, cfg.Sheets.AutoDetect)
}

func TestLoad_SkipsMissingFiles(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ANALYZER_PORT", "9090")
	t.Setenv("ANALYZER_MAX_ROWS", "500")
	t.Setenv("ANALYZER_GCS_BUCKET", "exports")
	t.Setenv("ANALYZER_TRACING", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 500, cfg.Limits.MaxRows)
	assert.Equal(t, "exports", cfg.Storage.Bucket)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeFile(t, "broken.toml", "[limits\nmax_file_mb = ")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero file size", func(c *Config) { c.Limits.MaxFileMB = 0 }},
		{"zero rows", func(c *Config) { c.Limits.MaxRows = 0 }},
		{"bad timeout", func(c *Config) { c.Limits.Timeout = "soon" }},
		{"unordered win rates", func(c *Config) { c.Thresholds.WinRate.Poor = 90 }},
		{"positive loss threshold", func(c *Config) { c.Thresholds.PnL.SignificantLoss = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestServerConfig_DurationFallbacks(t *testing.T) {
	srv := ServerConfig{ReadTimeout: "nonsense", WriteTimeout: "-5s", SessionTTL: "10m"}

	assert.Equal(t, 15*time.Second, srv.GetReadTimeout())
	assert.Equal(t, 90*time.Second, srv.GetWriteTimeout())
	assert.Equal(t, 10*time.Minute, srv.GetSessionTTL())
}
