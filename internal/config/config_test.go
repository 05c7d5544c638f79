package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 0.50, cfg.Remediation.CryptoMaxMissing)
	assert.Equal(t, 0.60, cfg.Remediation.EquityMaxMissing)
	assert.Equal(t, 0.60, cfg.Remediation.ETFMaxMissing)
	assert.Equal(t, 30, cfg.Features.Window)
	assert.Equal(t, 252, cfg.Features.TradingDays)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, int64(0x41535349), cfg.Database.AdvisoryLockKey)
	assert.Equal(t, 10*time.Second, cfg.Notify.Telegram.Timeout)
	assert.Equal(t, "data/enriched.csv", cfg.Output.Path)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
input:
  path: prices.xlsx
  sheet: Prix
  date_layouts: "02.01.2006,2006-01-02"
remediation:
  crypto_max_missing: 0.4
pipeline:
  workers: 3
`)
	t.Setenv("ASSETINSIGHTS_FEATURES_WINDOW", "20")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prices.xlsx", cfg.Input.Path)
	assert.Equal(t, []string{"02.01.2006", "2006-01-02"}, cfg.Input.DateLayouts)
	assert.Equal(t, 0.4, cfg.Remediation.CryptoMaxMissing)
	assert.Equal(t, 20, cfg.Features.Window)
	assert.Equal(t, 3, cfg.ResolveWorkers(0))
	assert.Equal(t, 8, cfg.ResolveWorkers(8))
}

func TestValidate(t *testing.T) {
	_, err := Load(writeConfig(t, "remediation:\n  equity_max_missing: 1.5\n"))
	assert.ErrorContains(t, err, "remediation.equity_max_missing")

	_, err = Load(writeConfig(t, "features:\n  window: 1\n"))
	assert.ErrorContains(t, err, "features.window")

	_, err = Load(writeConfig(t, "notify:\n  enabled: true\n  telegram:\n    enabled: true\n"))
	assert.ErrorContains(t, err, "bot_token")
}
