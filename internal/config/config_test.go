package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "migrate.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "contacts", cfg.Cleanse.ObjectType)
	assert.Equal(t, 500, cfg.Cleanse.BatchSize)
	assert.Equal(t, 100, cfg.Cleanse.CheckpointEvery)
	assert.Equal(t, []string{"email"}, cfg.Cleanse.DedupKeys)
	assert.Equal(t, 4, cfg.Cleanse.MaxConcurrentJobs)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.InDelta(t, 5.0, cfg.Salesforce.RateLimit, 0.001)
	assert.Empty(t, cfg.Monitoring.WebhookURL)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.InDelta(t, 80.0, cfg.Monitoring.MinOverallQuality, 0.001)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/migrate
log:
  level: debug
  format: console
server:
  port: 9090
cleanse:
  object_type: leads
  dedup_keys: [email, phone]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/migrate", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "leads", cfg.Cleanse.ObjectType)
	assert.Equal(t, []string{"email", "phone"}, cfg.Cleanse.DedupKeys)
	// Defaults still apply for unset values
	assert.Equal(t, 500, cfg.Cleanse.BatchSize)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [broken"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MIGRATE_STORE_DRIVER", "postgres")
	t.Setenv("MIGRATE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("MIGRATE_SERVER_PORT", "3000")
	t.Setenv("MIGRATE_CLEANSE_BATCH_SIZE", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Cleanse.BatchSize)
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
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "migrate.db"
	cfg.Cleanse.BatchSize = 500
	cfg.Cleanse.CheckpointEvery = 100
	cfg.Cleanse.MaxConcurrentJobs = 4
	cfg.Retry.MaxAttempts = 3
	cfg.Server.Port = 8080
	cfg.Monitoring.LookbackWindowHours = 24
	cfg.Monitoring.FailureRateThreshold = 0.25
	cfg.Monitoring.MinOverallQuality = 80
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "cleanse ok", mode: "cleanse"},
		{name: "jobs ok", mode: "jobs"},
		{name: "map ok", mode: "map"},
		{name: "serve ok", mode: "serve"},
		{
			name:    "unknown driver",
			mode:    "cleanse",
			mutate:  func(c *Config) { c.Store.Driver = "mysql" },
			wantErr: "must be sqlite or postgres",
		},
		{
			name:    "missing database url",
			mode:    "jobs",
			mutate:  func(c *Config) { c.Store.DatabaseURL = "" },
			wantErr: "store.database_url is required",
		},
		{
			name:    "zero batch size",
			mode:    "cleanse",
			mutate:  func(c *Config) { c.Cleanse.BatchSize = 0 },
			wantErr: "cleanse.batch_size must be > 0",
		},
		{
			name:    "zero checkpoint interval",
			mode:    "cleanse",
			mutate:  func(c *Config) { c.Cleanse.CheckpointEvery = 0 },
			wantErr: "cleanse.checkpoint_every must be > 0",
		},
		{
			name:    "too many jobs",
			mode:    "cleanse",
			mutate:  func(c *Config) { c.Cleanse.MaxConcurrentJobs = 33 },
			wantErr: "max_concurrent_jobs must be between 1 and 32",
		},
		{
			name:    "invalid port",
			mode:    "serve",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port must be > 0",
		},
		{
			name:   "map ignores store",
			mode:   "map",
			mutate: func(c *Config) { c.Store.Driver = "" },
		},
		{
			name:    "negative retries",
			mode:    "serve",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = -1 },
			wantErr: "retry.max_attempts must be >= 0",
		},
		{name: "stats ok", mode: "stats"},
		{
			name:    "stats bad lookback",
			mode:    "stats",
			mutate:  func(c *Config) { c.Monitoring.LookbackWindowHours = 0 },
			wantErr: "monitoring.lookback_window_hours must be > 0",
		},
		{
			name:    "stats bad failure rate",
			mode:    "stats",
			mutate:  func(c *Config) { c.Monitoring.FailureRateThreshold = 1.5 },
			wantErr: "failure_rate_threshold must be between 0 and 1",
		},
		{
			name:   "serve without webhook ignores store",
			mode:   "serve",
			mutate: func(c *Config) { c.Store.Driver = "" },
		},
		{
			name: "serve with webhook needs store",
			mode: "serve",
			mutate: func(c *Config) {
				c.Monitoring.WebhookURL = "https://hooks.example.com/x"
				c.Store.Driver = ""
			},
			wantErr: "must be sqlite or postgres",
		},
		{
			name:    "unknown mode",
			mode:    "unknown",
			wantErr: "unknown mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSalesforceEnabled(t *testing.T) {
	cfg := validDefaults()
	assert.False(t, cfg.SalesforceEnabled())

	cfg.Salesforce.ClientID = "abc"
	assert.False(t, cfg.SalesforceEnabled())

	cfg.Salesforce.KeyPath = "server.key"
	assert.True(t, cfg.SalesforceEnabled())
}
