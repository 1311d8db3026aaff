package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Reddit     RedditConfig     `yaml:"reddit" mapstructure:"reddit"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" mapstructure:"scheduler"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RedditConfig holds content search API settings.
type RedditConfig struct {
	ClientID             string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret         string  `yaml:"client_secret" mapstructure:"client_secret"`
	UserAgent            string  `yaml:"user_agent" mapstructure:"user_agent"`
	BaseURL              string  `yaml:"base_url" mapstructure:"base_url"`
	AuthURL              string  `yaml:"auth_url" mapstructure:"auth_url"`
	TimeoutSecs          int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit            float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxTermsPerCommunity int     `yaml:"max_terms_per_community" mapstructure:"max_terms_per_community"`
	ResultLimit          int     `yaml:"result_limit" mapstructure:"result_limit"`
	RefreshMarginSecs    int     `yaml:"refresh_margin_secs" mapstructure:"refresh_margin_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig configures the per-product discovery run.
type PipelineConfig struct {
	BudgetSecs          int    `yaml:"budget_secs" mapstructure:"budget_secs"`
	BatchSize           int    `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelayMs        int    `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	AcceptanceThreshold int    `yaml:"acceptance_threshold" mapstructure:"acceptance_threshold"`
	BodyExcerptChars    int    `yaml:"body_excerpt_chars" mapstructure:"body_excerpt_chars"`
	DegradeMode         string `yaml:"degrade_mode" mapstructure:"degrade_mode"`
}

// SchedulerConfig configures the background job poll loop.
type SchedulerConfig struct {
	TickSecs       int `yaml:"tick_secs" mapstructure:"tick_secs"`
	JobTimeoutSecs int `yaml:"job_timeout_secs" mapstructure:"job_timeout_secs"`
}

// RedisConfig configures the optional job lease backend.
type RedisConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	LeaseTTLSecs int    `yaml:"lease_ttl_secs" mapstructure:"lease_ttl_secs"`
}

// ResilienceConfig configures the circuit breaker around the AI provider
// and the retry policy for credential refresh.
type ResilienceConfig struct {
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
	RetryMaxAttempts        int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialBackoffMs   int     `yaml:"retry_initial_backoff_ms" mapstructure:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs       int     `yaml:"retry_max_backoff_ms" mapstructure:"retry_max_backoff_ms"`
	RetryMultiplier         float64 `yaml:"retry_multiplier" mapstructure:"retry_multiplier"`
	RetryJitterFraction     float64 `yaml:"retry_jitter_fraction" mapstructure:"retry_jitter_fraction"`
}

// MonitoringConfig configures health alerting.
type MonitoringConfig struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	ErrorJobsThreshold    int     `yaml:"error_jobs_threshold" mapstructure:"error_jobs_threshold"`
	DegradedRateThreshold float64 `yaml:"degraded_rate_threshold" mapstructure:"degraded_rate_threshold"`
}

// ExportConfig holds credentials for the lead export sinks.
type ExportConfig struct {
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("reddit.user_agent", "lead-radar/1.0")
	v.SetDefault("reddit.base_url", "https://oauth.reddit.com")
	v.SetDefault("reddit.auth_url", "https://www.reddit.com/api/v1/access_token")
	v.SetDefault("reddit.timeout_secs", 15)
	v.SetDefault("reddit.rate_limit", 1.0)
	v.SetDefault("reddit.max_terms_per_community", 3)
	v.SetDefault("reddit.result_limit", 25)
	v.SetDefault("reddit.refresh_margin_secs", 300)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.timeout_secs", 20)
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("pipeline.budget_secs", 50)
	v.SetDefault("pipeline.batch_size", 10)
	v.SetDefault("pipeline.batch_delay_ms", 500)
	v.SetDefault("pipeline.acceptance_threshold", 7)
	v.SetDefault("pipeline.body_excerpt_chars", 500)
	v.SetDefault("pipeline.degrade_mode", "passthrough")
	v.SetDefault("scheduler.tick_secs", 60)
	v.SetDefault("scheduler.job_timeout_secs", 60)
	v.SetDefault("redis.lease_ttl_secs", 120)
	v.SetDefault("resilience.circuit_failure_threshold", 5)
	v.SetDefault("resilience.circuit_reset_secs", 30)
	v.SetDefault("resilience.retry_max_attempts", 2)
	v.SetDefault("resilience.retry_initial_backoff_ms", 250)
	v.SetDefault("resilience.retry_max_backoff_ms", 2000)
	v.SetDefault("resilience.retry_multiplier", 2.0)
	v.SetDefault("resilience.retry_jitter_fraction", 0.25)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.error_jobs_threshold", 3)
	v.SetDefault("monitoring.degraded_rate_threshold", 0.5)
	v.SetDefault("export.salesforce.login_url", "https://login.salesforce.com")

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

// Validate checks that the keys a command mode depends on are present and
// that numeric settings are within range.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "store":
		errs = append(errs, c.requireDatabase()...)
	case "discover", "serve":
		errs = append(errs, c.requireDatabase()...)
		if c.Reddit.ClientID == "" {
			errs = append(errs, "reddit.client_id is required")
		}
		if c.Reddit.ClientSecret == "" {
			errs = append(errs, "reddit.client_secret is required")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		errs = append(errs, c.validatePipeline()...)
	case "export.notion":
		if c.Export.Notion.Token == "" {
			errs = append(errs, "export.notion.token is required")
		}
		if c.Export.Notion.LeadDB == "" {
			errs = append(errs, "export.notion.lead_db is required")
		}
	case "export.salesforce":
		if c.Export.Salesforce.ClientID == "" {
			errs = append(errs, "export.salesforce.client_id is required")
		}
		if c.Export.Salesforce.Username == "" {
			errs = append(errs, "export.salesforce.username is required")
		}
		if c.Export.Salesforce.KeyPath == "" {
			errs = append(errs, "export.salesforce.key_path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) requireDatabase() []string {
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
	}
	return nil
}

func (c *Config) validatePipeline() []string {
	var errs []string
	p := c.Pipeline
	if p.BudgetSecs <= 0 {
		errs = append(errs, "pipeline.budget_secs must be > 0")
	}
	if p.BatchSize < 1 || p.BatchSize > 50 {
		errs = append(errs, "pipeline.batch_size must be between 1 and 50")
	}
	if p.AcceptanceThreshold < 0 || p.AcceptanceThreshold > 10 {
		errs = append(errs, "pipeline.acceptance_threshold must be between 0 and 10")
	}
	switch p.DegradeMode {
	case "passthrough", "heuristic":
	default:
		errs = append(errs, fmt.Sprintf("pipeline.degrade_mode %q must be passthrough or heuristic", p.DegradeMode))
	}
	if c.Reddit.MaxTermsPerCommunity < 1 {
		errs = append(errs, "reddit.max_terms_per_community must be > 0")
	}
	return errs
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
