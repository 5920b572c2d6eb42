package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Cleanse    CleanseConfig    `yaml:"cleanse" mapstructure:"cleanse"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CleanseConfig configures cleansing jobs.
type CleanseConfig struct {
	ObjectType        string   `yaml:"object_type" mapstructure:"object_type"`
	BatchSize         int      `yaml:"batch_size" mapstructure:"batch_size"`
	CheckpointEvery   int      `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	DedupKeys         []string `yaml:"dedup_keys" mapstructure:"dedup_keys"`
	RulesPath         string   `yaml:"rules_path" mapstructure:"rules_path"`
	LexiconPath       string   `yaml:"lexicon_path" mapstructure:"lexicon_path"`
	MaxConcurrentJobs int      `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
}

// RetryConfig configures retries of store writes.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures job health checks and alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinOverallQuality    float64 `yaml:"min_overall_quality" mapstructure:"min_overall_quality"`
	MaxDuplicateRate     float64 `yaml:"max_duplicate_rate" mapstructure:"max_duplicate_rate"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "migrate.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 5)
	v.SetDefault("cleanse.object_type", "contacts")
	v.SetDefault("cleanse.batch_size", 500)
	v.SetDefault("cleanse.checkpoint_every", 100)
	v.SetDefault("cleanse.dedup_keys", []string{"email"})
	v.SetDefault("cleanse.max_concurrent_jobs", 4)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 50)
	v.SetDefault("retry.max_backoff_ms", 2000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.min_overall_quality", 80)
	v.SetDefault("monitoring.max_duplicate_rate", 0.1)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "cleanse", "map", "jobs", "stats" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "cleanse":
		errs = append(errs, c.validateStore()...)
		if c.Cleanse.BatchSize < 1 {
			errs = append(errs, "cleanse.batch_size must be > 0")
		}
		if c.Cleanse.CheckpointEvery < 1 {
			errs = append(errs, "cleanse.checkpoint_every must be > 0")
		}
		if c.Cleanse.MaxConcurrentJobs < 1 || c.Cleanse.MaxConcurrentJobs > 32 {
			errs = append(errs, "cleanse.max_concurrent_jobs must be between 1 and 32")
		}
	case "jobs":
		errs = append(errs, c.validateStore()...)
	case "map":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Monitoring.WebhookURL != "" {
			errs = append(errs, c.validateStore()...)
			errs = append(errs, c.validateMonitoring()...)
		}
	case "stats":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateMonitoring()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, "retry.max_attempts must be >= 0")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: invalid for %s: %s", mode, strings.Join(errs, "; ")))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return []string{fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver)}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
	}
	return nil
}

func (c *Config) validateMonitoring() []string {
	var errs []string
	if c.Monitoring.LookbackWindowHours < 1 {
		errs = append(errs, "monitoring.lookback_window_hours must be > 0")
	}
	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
	}
	if c.Monitoring.MinOverallQuality < 0 || c.Monitoring.MinOverallQuality > 100 {
		errs = append(errs, "monitoring.min_overall_quality must be between 0 and 100")
	}
	return errs
}

// SalesforceEnabled reports whether Salesforce credentials are configured.
func (c *Config) SalesforceEnabled() bool {
	return c.Salesforce.ClientID != "" && c.Salesforce.KeyPath != ""
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
