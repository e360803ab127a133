package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("RATE_RPS", "")
	t.Setenv("RATE_IP_RPS", "")
	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 100, cfg.RateRPS)
	assert.Equal(t, 1000, cfg.IPRateRPS)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.False(t, cfg.Migrate)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("RATE_RPS", "7")
	t.Setenv("APP_MIGRATE", "true")
	t.Setenv("JWT_ACCESS_TTL", "2m")
	cfg := Load()
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, 7, cfg.RateRPS)
	assert.True(t, cfg.Migrate)
	assert.Equal(t, 2*time.Minute, cfg.AccessTTL)
}

func TestLoadConsoleMissingFile(t *testing.T) {
	c, err := LoadConsole(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConsole(), c)
}

func TestLoadConsoleFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: http://api:9000\nledger: stock\npage_size: 50\nsearch_debounce: 150ms\n"), 0o600))
	t.Setenv("POINTSCTL_PAGE_SIZE", "5")

	c, err := LoadConsole(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api:9000", c.APIURL)
	assert.Equal(t, "stock", c.Ledger)
	assert.Equal(t, 5, c.PageSize)
	assert.Equal(t, 150*time.Millisecond, c.SearchDebounce)
}

func TestSaveConsoleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	c := defaultConsole()
	c.Token = "abc"
	require.NoError(t, SaveConsole(path, c))

	got, err := LoadConsole(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Token)
}
