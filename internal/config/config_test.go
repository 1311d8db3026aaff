package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://oauth.reddit.com", cfg.Reddit.BaseURL)
	assert.Equal(t, 3, cfg.Reddit.MaxTermsPerCommunity)
	assert.Equal(t, 300, cfg.Reddit.RefreshMarginSecs)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 50, cfg.Pipeline.BudgetSecs)
	assert.Equal(t, 10, cfg.Pipeline.BatchSize)
	assert.Equal(t, 7, cfg.Pipeline.AcceptanceThreshold)
	assert.Equal(t, 500, cfg.Pipeline.BodyExcerptChars)
	assert.Equal(t, "passthrough", cfg.Pipeline.DegradeMode)
	assert.Equal(t, 60, cfg.Scheduler.TickSecs)
	assert.Equal(t, 5, cfg.Resilience.CircuitFailureThreshold)
	assert.InDelta(t, 2.0, cfg.Resilience.RetryMultiplier, 0.001)
	assert.InDelta(t, 0.5, cfg.Monitoring.DegradedRateThreshold, 0.001)
	assert.Equal(t, "https://login.salesforce.com", cfg.Export.Salesforce.LoginURL)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  degrade_mode: heuristic
  batch_size: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "heuristic", cfg.Pipeline.DegradeMode)
	assert.Equal(t, 5, cfg.Pipeline.BatchSize)
	// Defaults still apply for unset values
	assert.Equal(t, 50, cfg.Pipeline.BudgetSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADRADAR_STORE_DRIVER", "postgres")
	t.Setenv("LEADRADAR_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEADRADAR_SERVER_PORT=4000\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("LEADRADAR_SERVER_PORT") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADRADAR_SERVER_PORT", "3000")
	t.Setenv("LEADRADAR_PIPELINE_BUDGET_SECS", "20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Pipeline.BudgetSecs)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.Reddit.ClientID = "id"
	cfg.Reddit.ClientSecret = "secret"
	cfg.Reddit.MaxTermsPerCommunity = 3
	cfg.Pipeline.BudgetSecs = 50
	cfg.Pipeline.BatchSize = 10
	cfg.Pipeline.AcceptanceThreshold = 7
	cfg.Pipeline.DegradeMode = "passthrough"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateDiscover_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("discover"))
}

func TestValidateDiscover_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	cfg.Reddit.ClientID = ""
	cfg.Reddit.ClientSecret = ""

	err := cfg.Validate("discover")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "reddit.client_id is required")
	assert.Contains(t, err.Error(), "reddit.client_secret is required")
}

func TestValidateStore_SQLiteNeedsNoURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = ""

	assert.NoError(t, cfg.Validate("store"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidatePipelineBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.BatchSize = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size must be between 1 and 50")

	cfg.Pipeline.BatchSize = 10
	cfg.Pipeline.AcceptanceThreshold = 11
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acceptance_threshold")

	cfg.Pipeline.AcceptanceThreshold = 7
	cfg.Pipeline.DegradeMode = "drop"
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "degrade_mode")

	cfg.Pipeline.DegradeMode = "heuristic"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateExportNotion(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("export.notion")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.notion.token is required")

	cfg.Export.Notion.Token = "ntn_token"
	cfg.Export.Notion.LeadDB = "lead-db-id"
	assert.NoError(t, cfg.Validate("export.notion"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
