package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	t.Setenv(config.EnvPostgresDSN, "")
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, config.StoreJSON, cfg.Store)
	assert.Equal(t, config.UnitPercent, cfg.PercentUnit)
	assert.Equal(t, 30, cfg.LiquidityLockDays)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.NotEmpty(t, cfg.ListenAddr)
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.Set("default_wallet", "deployer"))
	require.NoError(t, cfg.Set("percent_unit", "bps"))
	require.NoError(t, cfg.Set("liquidity_lock_days", "90"))
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "deployer", reloaded.DefaultWallet)
	assert.Equal(t, config.UnitBps, reloaded.PercentUnit)
	assert.Equal(t, 90, reloaded.LiquidityLockDays)
}

func TestLoadUsesEnvDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fromenv")
	t.Setenv(config.EnvConfigDir, dir)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
	assert.Equal(t, filepath.Join(dir, "issuances.json"), cfg.IssuancesPath())
}

func TestPostgresDSNFromEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"store":"postgres"}`), 0o600))

	t.Setenv(config.EnvPostgresDSN, "")
	_, err := config.Load(dir)
	assert.Error(t, err)

	t.Setenv(config.EnvPostgresDSN, "postgres://u:p@localhost/db")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.PostgresDSN)
}

func TestLoadCorruptConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Get / Set
// ---------------------------------------------------------------------------

func TestSetRejectsInvalidValues(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	for key, value := range map[string]string{
		"store":               "sqlite",
		"percent_unit":        "permille",
		"liquidity_lock_days": "soon",
		"log_level":           "loud",
		"log_format":          "xml",
		"nope":                "x",
	} {
		assert.Error(t, cfg.Set(key, value), key)
	}
	assert.Equal(t, config.StoreJSON, cfg.Store)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestGetEveryKey(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	for _, key := range config.Keys {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
	v, err := cfg.Get("liquidity_lock_days")
	require.NoError(t, err)
	assert.Equal(t, "30", v)

	_, err = cfg.Get("nope")
	assert.Error(t, err)
}
