package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadWithEnv(t *testing.T, env map[string]string) *Config {
	t.Helper()

	// Point the data dir at a temp location so Load can create it
	t.Setenv("COINWATCH_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	for key, value := range env {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadWithEnv(t, nil)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 5*time.Minute, cfg.ImportInterval)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.Backup.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	cfg := loadWithEnv(t, map[string]string{
		"PORT":                    "9090",
		"LOG_LEVEL":               "debug",
		"DEV_MODE":                "true",
		"IMPORT_INTERVAL_MINUTES": "15",
	})

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 15*time.Minute, cfg.ImportInterval)
}

func TestEnvironmentSelectsUpstreamEndpoint(t *testing.T) {
	local := loadWithEnv(t, nil)
	assert.Equal(t, "https://api.coingecko.com/api/v3", local.CoinGeckoBaseURL())
	assert.Equal(t, "x-cg-demo-api-key", local.CoinGeckoAuthHeader())

	production := loadWithEnv(t, map[string]string{"APP_ENV": "production"})
	assert.True(t, production.IsProduction())
	assert.Equal(t, "https://pro-api.coingecko.com/api/v3", production.CoinGeckoBaseURL())
	assert.Equal(t, "x-cg-pro-api-key", production.CoinGeckoAuthHeader())
}

func TestBackupEnabledRequiresAllCredentials(t *testing.T) {
	partial := loadWithEnv(t, map[string]string{
		"R2_ACCOUNT_ID":    "acct",
		"R2_ACCESS_KEY_ID": "key",
	})
	assert.False(t, partial.Backup.Enabled())

	full := loadWithEnv(t, map[string]string{
		"R2_ACCOUNT_ID":        "acct",
		"R2_ACCESS_KEY_ID":     "key",
		"R2_SECRET_ACCESS_KEY": "secret",
		"R2_BUCKET_NAME":       "backups",
	})
	assert.True(t, full.Backup.Enabled())
}

func TestDataDirResolvedToAbsolutePath(t *testing.T) {
	cfg := loadWithEnv(t, nil)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}
