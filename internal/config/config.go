// Package config loads the control plane's configuration from a YAML file
// plus environment-variable overrides, following the two-phase Load /
// LoadFromEnv split this codebase has always used: Load parses the file and
// applies in-code defaults, LoadFromEnv additionally loads a .env file (via
// godotenv) and lets real environment variables win over both.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/coldroute/coldroute/internal/domain"
)

// Config holds all configuration for the coldroute control plane.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	CampaignDB CampaignDBConfig `yaml:"campaign_db"`
	Nodes     []domain.NodeConfig `yaml:"nodes"`
	Redis     RedisConfig      `yaml:"redis"`
	Telegram  TelegramConfig   `yaml:"telegram"`
	Webhook   WebhookConfig    `yaml:"webhook"`
	Scheduler SchedulerConfig  `yaml:"scheduler"`
	Warmup    WarmupConfig     `yaml:"warmup"`
	RBL       RBLConfig        `yaml:"rbl"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, honoring a container-runtime override.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig is the core Postgres connection (tenants, ips, warmup_*,
// blacklist_events, events).
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call query timeout as a duration.
func (c DatabaseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CampaignDBConfig is the campaign manager's relational store connection,
// including the host-failover target used when the primary host is a
// container-runtime alias that can't be resolved.
type CampaignDBConfig struct {
	DSN             string `yaml:"dsn"`
	Host            string `yaml:"host"`
	FailoverHost    string `yaml:"failover_host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
}

// Timeout returns the per-call timeout as a duration (≤30s per §5).
func (c CampaignDBConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConnectTimeout returns the connect timeout as a duration (≤10s per §5).
func (c CampaignDBConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// RedisConfig configures the distributed lock and counter cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TelegramConfig configures the alert sink.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// WebhookConfig configures the inbound webhook HTTP surface.
type WebhookConfig struct {
	HMACSecret        string   `yaml:"hmac_secret"`
	RateLimitPerMin   int      `yaml:"rate_limit_per_min"`
	AllowedSourceIPs  []string `yaml:"allowed_source_ips"`
}

// SchedulerConfig overrides the default job cadences from §4.9.
type SchedulerConfig struct {
	HealthProbeSeconds       int `yaml:"health_probe_seconds"`
	MetricsRefreshSeconds    int `yaml:"metrics_refresh_seconds"`
	RetryDrainSeconds        int `yaml:"retry_drain_seconds"`
	BlacklistSweepHours      int `yaml:"blacklist_sweep_hours"`
	QuarantineReleaseHourUTC int `yaml:"quarantine_release_hour_utc"`
	ConsolidateHourUTC       int `yaml:"consolidate_hour_utc"`
	ConsolidateMinuteUTC     int `yaml:"consolidate_minute_utc"`
	WarmupTickHourUTC        int `yaml:"warmup_tick_hour_utc"`
	RotationDayOfMonth       int `yaml:"rotation_day_of_month"`
	RotationHourUTC          int `yaml:"rotation_hour_utc"`
}

// WarmupConfig overrides the default thresholds from §4.5.
type WarmupConfig struct {
	EmergencyBounceRate float64 `yaml:"emergency_bounce_rate"`
	EmergencySpamRate   float64 `yaml:"emergency_spam_rate"`
	MaxBounceRate7d     float64 `yaml:"max_bounce_rate_7d"`
	MaxSpamRate7d       float64 `yaml:"max_spam_rate_7d"`
	RestDays            int     `yaml:"rest_days"`
}

// RBLConfig overrides the fixed DNS blacklist zone list.
type RBLConfig struct {
	Zones []string `yaml:"zones"`
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.TimeoutSeconds == 0 {
		cfg.Database.TimeoutSeconds = 10
	}
	if cfg.CampaignDB.TimeoutSeconds == 0 {
		cfg.CampaignDB.TimeoutSeconds = 30
	}
	if cfg.CampaignDB.ConnectTimeoutSeconds == 0 {
		cfg.CampaignDB.ConnectTimeoutSeconds = 10
	}
	if cfg.CampaignDB.Port == 0 {
		cfg.CampaignDB.Port = 5432
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Webhook.RateLimitPerMin == 0 {
		cfg.Webhook.RateLimitPerMin = 200
	}
	if cfg.Scheduler.HealthProbeSeconds == 0 {
		cfg.Scheduler.HealthProbeSeconds = 300
	}
	if cfg.Scheduler.MetricsRefreshSeconds == 0 {
		cfg.Scheduler.MetricsRefreshSeconds = 60
	}
	if cfg.Scheduler.RetryDrainSeconds == 0 {
		cfg.Scheduler.RetryDrainSeconds = 120
	}
	if cfg.Scheduler.BlacklistSweepHours == 0 {
		cfg.Scheduler.BlacklistSweepHours = 4
	}
	if cfg.Scheduler.QuarantineReleaseHourUTC == 0 {
		cfg.Scheduler.QuarantineReleaseHourUTC = 4
	}
	if cfg.Scheduler.ConsolidateHourUTC == 0 {
		cfg.Scheduler.ConsolidateHourUTC = 0
	}
	if cfg.Scheduler.ConsolidateMinuteUTC == 0 {
		cfg.Scheduler.ConsolidateMinuteUTC = 30
	}
	if cfg.Scheduler.WarmupTickHourUTC == 0 {
		cfg.Scheduler.WarmupTickHourUTC = 1
	}
	if cfg.Scheduler.RotationDayOfMonth == 0 {
		cfg.Scheduler.RotationDayOfMonth = 1
	}
	if cfg.Scheduler.RotationHourUTC == 0 {
		cfg.Scheduler.RotationHourUTC = 3
	}
	if cfg.Warmup.EmergencyBounceRate == 0 {
		cfg.Warmup.EmergencyBounceRate = 0.05
	}
	if cfg.Warmup.EmergencySpamRate == 0 {
		cfg.Warmup.EmergencySpamRate = 0.001
	}
	if cfg.Warmup.MaxBounceRate7d == 0 {
		cfg.Warmup.MaxBounceRate7d = 0.02
	}
	if cfg.Warmup.MaxSpamRate7d == 0 {
		cfg.Warmup.MaxSpamRate7d = 0.0003
	}
	if cfg.Warmup.RestDays == 0 {
		cfg.Warmup.RestDays = 14
	}
	if len(cfg.RBL.Zones) == 0 {
		cfg.RBL.Zones = []string{
			"zen.spamhaus.org",
			"b.barracudacentral.org",
			"bl.spamcop.net",
			"dnsbl.sorbs.net",
			"cbl.abuseat.org",
			"dnsbl-1.uceprotect.net",
			"psbl.surriel.com",
			"dyna.spamrats.com",
		}
	}
}

// LoadFromEnv loads configuration with environment variable overrides. It
// loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CAMPAIGN_DB_DSN"); v != "" {
		cfg.CampaignDB.DSN = v
	}
	if v := os.Getenv("CAMPAIGN_DB_HOST"); v != "" {
		cfg.CampaignDB.Host = v
	}
	if v := os.Getenv("CAMPAIGN_DB_FAILOVER_HOST"); v != "" {
		cfg.CampaignDB.FailoverHost = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
		cfg.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("WEBHOOK_HMAC_SECRET"); v != "" {
		cfg.Webhook.HMACSecret = v
	}

	return cfg, nil
}
