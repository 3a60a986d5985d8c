package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidaycal/internal/model"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", cfg.Timezone)
	assert.Equal(t, 1, cfg.YearsAhead)
	assert.Len(t, cfg.Floating, 3)
	require.NoError(t, cfg.Validate())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output: /srv/www/china.ics
years_ahead: 2
floating:
  - name: 劳动者日
    month: 9
    weekday: Monday
    occurrence: last
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/www/china.ics", cfg.Output)
	assert.Equal(t, "0 3 * * *", cfg.RefreshCron)

	rules, err := cfg.FloatingRules()
	require.NoError(t, err)
	assert.Equal(t, []model.FloatingRule{
		{Title: "劳动者日", Month: time.September, Weekday: time.Monday, Occurrence: model.LastOccurrence},
	}, rules)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("years_ahead: [1\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"timezone":     func(c *Config) { c.Timezone = "Mars/Olympus" },
		"years":        func(c *Config) { c.YearsAhead = 51 },
		"url template": func(c *Config) { c.Statutory.URLTemplate = "https://example.com/2024.json" },
		"timeout":      func(c *Config) { c.Statutory.Timeout = "soon" },
		"cron":         func(c *Config) { c.RefreshCron = "every day" },
		"weekday":      func(c *Config) { c.Floating[0].Weekday = "funday" },
		"occurrence":   func(c *Config) { c.Floating[0].Occurrence = "second" },
		"basic auth":   func(c *Config) { c.BasicAuth = &BasicAuthConfig{Username: "admin"} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestYears(t *testing.T) {
	cfg := DefaultConfig()
	// 2024-12-31 17:00 UTC is already 2025 in Shanghai.
	now := time.Date(2024, time.December, 31, 17, 0, 0, 0, time.UTC)
	years, err := cfg.Years(now)
	require.NoError(t, err)
	assert.Equal(t, []int{2025, 2026}, years)

	cfg.StartYear = 2020
	cfg.YearsAhead = 2
	years, err = cfg.Years(now)
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2021, 2022}, years)
}

func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HOLIDAYCAL_OUTPUT=/tmp/from-dotenv.ics\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(EnvOutput) })
	t.Setenv(EnvListen, ":9090")
	t.Setenv(EnvBasicAuthUser, "alice")
	t.Setenv(EnvBasicAuthPassword, "secret")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(envFile))
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "/tmp/from-dotenv.ics", cfg.Output)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "alice", cfg.BasicAuth.Username)
	assert.Equal(t, "secret", cfg.BasicAuth.Password)

	// A missing .env is not an error.
	assert.NoError(t, DefaultConfig().ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))
}
