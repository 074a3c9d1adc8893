package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/rewired-gh/pulsegauge/internal/gauge"
	"github.com/rewired-gh/pulsegauge/internal/models"
	"github.com/rewired-gh/pulsegauge/internal/monitor"
	"github.com/rewired-gh/pulsegauge/internal/sentiment"
)

// EnvPrefix prefixes every environment override, e.g. PULSEGAUGE_TELEGRAM_BOT_TOKEN.
const EnvPrefix = "PULSEGAUGE"

// Config represents the complete application configuration
type Config struct {
	Gauges    GaugesConfig    `mapstructure:"gauges"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Feeds     FeedsConfig     `mapstructure:"feeds"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// GaugesConfig holds the gauge update pipeline configuration
type GaugesConfig struct {
	SmoothingFactor   float64               `mapstructure:"smoothing_factor"`
	MaxHistoryPoints  int                   `mapstructure:"max_history_points"`
	HistoryRetention  time.Duration         `mapstructure:"history_retention"`
	TrendWindow       int                   `mapstructure:"trend_window"`
	TrendThreshold    float64               `mapstructure:"trend_threshold"`
	HoldEmptyBaseline bool                  `mapstructure:"hold_empty_baseline"`
	BaselineSchedule  string                `mapstructure:"baseline_schedule"`
	SubscriberBuffer  int                   `mapstructure:"subscriber_buffer"`
	Categories        []models.CategorySpec `mapstructure:"categories"`
}

// SentimentConfig holds the article analyzer configuration. Empty tables
// select the built-in ones.
type SentimentConfig struct {
	MaxGroupShare     float64                    `mapstructure:"max_group_share"`
	Workers           int                        `mapstructure:"workers"`
	TemporalOffsets   []sentiment.TemporalOffset `mapstructure:"temporal_offsets"`
	CulturalRules     []sentiment.CulturalRule   `mapstructure:"cultural_rules"`
	RegionalBaselines map[string]float64         `mapstructure:"regional_baselines"`
}

// MonitorConfig holds shift detection configuration
type MonitorConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	DeviationThreshold float64       `mapstructure:"deviation_threshold"`
	MinConfidence      float64       `mapstructure:"min_confidence"`
	MinTrendStrength   float64       `mapstructure:"min_trend_strength"`
	Cooldown           time.Duration `mapstructure:"cooldown"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken          string        `mapstructure:"bot_token"`
	ChatID            string        `mapstructure:"chat_id"`
	Enabled           bool          `mapstructure:"enabled"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
	MessagesPerMinute int           `mapstructure:"messages_per_minute"`
}

// StorageConfig holds gauge persistence configuration
type StorageConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DBPath          string `mapstructure:"db_path"`
	PersistSchedule string `mapstructure:"persist_schedule"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Path       string `mapstructure:"path"`
}

// FeedsConfig holds upstream HTTP feed polling configuration. Polling is off
// when URLs is empty.
type FeedsConfig struct {
	URLs           []string      `mapstructure:"urls"`
	Schedule       string        `mapstructure:"schedule"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	d := gauge.DefaultConfig()

	// Gauge defaults
	v.SetDefault("gauges.smoothing_factor", d.SmoothingFactor)
	v.SetDefault("gauges.max_history_points", d.MaxHistoryPoints)
	v.SetDefault("gauges.history_retention", d.HistoryRetention)
	v.SetDefault("gauges.trend_window", d.TrendWindow)
	v.SetDefault("gauges.trend_threshold", d.TrendThreshold)
	v.SetDefault("gauges.hold_empty_baseline", false)
	v.SetDefault("gauges.baseline_schedule", "@every 60s")
	v.SetDefault("gauges.subscriber_buffer", d.SubscriberBuffer)

	// Sentiment defaults
	v.SetDefault("sentiment.max_group_share", 0.4)
	v.SetDefault("sentiment.workers", 8)

	// Monitor defaults
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.deviation_threshold", 0.15)
	v.SetDefault("monitor.min_confidence", 0.5)
	v.SetDefault("monitor.min_trend_strength", 0.2)
	v.SetDefault("monitor.cooldown", "1h")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")
	v.SetDefault("telegram.messages_per_minute", 20)

	// Storage defaults
	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.db_path", "./data/pulsegauge.db")
	v.SetDefault("storage.persist_schedule", "@every 5m")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9090")
	v.SetDefault("metrics.path", "/metrics")

	// Feed defaults
	v.SetDefault("feeds.urls", []string{})
	v.SetDefault("feeds.schedule", "@every 1m")
	v.SetDefault("feeds.timeout", "30s")
	v.SetDefault("feeds.max_retries", 3)
	v.SetDefault("feeds.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Gauges config
	if c.Gauges.SmoothingFactor <= 0.0 || c.Gauges.SmoothingFactor > 1.0 {
		return fmt.Errorf("gauges.smoothing_factor must be in (0.0, 1.0]")
	}
	if c.Gauges.MaxHistoryPoints < 1 {
		return fmt.Errorf("gauges.max_history_points must be at least 1")
	}
	if c.Gauges.HistoryRetention < time.Hour {
		return fmt.Errorf("gauges.history_retention must be at least 1 hour")
	}
	if c.Gauges.TrendWindow < 2 {
		return fmt.Errorf("gauges.trend_window must be at least 2")
	}
	if c.Gauges.TrendWindow > c.Gauges.MaxHistoryPoints {
		return fmt.Errorf("gauges.trend_window must not exceed gauges.max_history_points")
	}
	if c.Gauges.TrendThreshold <= 0 {
		return fmt.Errorf("gauges.trend_threshold must be positive")
	}
	if c.Gauges.SubscriberBuffer < 1 {
		return fmt.Errorf("gauges.subscriber_buffer must be at least 1")
	}
	if err := validateSchedule("gauges.baseline_schedule", c.Gauges.BaselineSchedule); err != nil {
		return err
	}
	for _, spec := range c.Gauges.Categories {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("gauges.categories: %w", err)
		}
	}

	// Validate Sentiment config
	if c.Sentiment.MaxGroupShare <= 0.0 || c.Sentiment.MaxGroupShare > 1.0 {
		return fmt.Errorf("sentiment.max_group_share must be in (0.0, 1.0]")
	}
	if c.Sentiment.Workers < 1 {
		return fmt.Errorf("sentiment.workers must be at least 1")
	}
	for _, o := range c.Sentiment.TemporalOffsets {
		if o.StartHour < 0 || o.EndHour > 24 || o.StartHour >= o.EndHour {
			return fmt.Errorf("sentiment.temporal_offsets: invalid hours [%d, %d)", o.StartHour, o.EndHour)
		}
	}
	for _, r := range c.Sentiment.CulturalRules {
		if r.Language == "" || r.Region == "" {
			return fmt.Errorf("sentiment.cultural_rules: language and region are required")
		}
		if r.PositiveFactor < 0 || r.NegativeFactor < 0 {
			return fmt.Errorf("sentiment.cultural_rules: factors must not be negative")
		}
	}

	// Validate Monitor config
	if c.Monitor.DeviationThreshold <= 0.0 || c.Monitor.DeviationThreshold > 1.0 {
		return fmt.Errorf("monitor.deviation_threshold must be in (0.0, 1.0]")
	}
	if c.Monitor.MinConfidence < 0.0 || c.Monitor.MinConfidence > 1.0 {
		return fmt.Errorf("monitor.min_confidence must be between 0.0 and 1.0")
	}
	if c.Monitor.MinTrendStrength < 0.0 || c.Monitor.MinTrendStrength > 1.0 {
		return fmt.Errorf("monitor.min_trend_strength must be between 0.0 and 1.0")
	}
	if c.Monitor.Cooldown < 0 {
		return fmt.Errorf("monitor.cooldown must not be negative")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.Enabled {
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path is required when storage is enabled")
		}
		if err := validateSchedule("storage.persist_schedule", c.Storage.PersistSchedule); err != nil {
			return err
		}
	}

	// Validate Metrics config
	if c.Metrics.Enabled {
		if c.Metrics.ListenAddr == "" {
			return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /")
		}
	}

	// Validate Feeds config
	if len(c.Feeds.URLs) > 0 {
		for _, u := range c.Feeds.URLs {
			if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
				return fmt.Errorf("feeds.urls: %q is not an http(s) URL", u)
			}
		}
		if err := validateSchedule("feeds.schedule", c.Feeds.Schedule); err != nil {
			return err
		}
		if c.Feeds.Timeout <= 0 {
			return fmt.Errorf("feeds.timeout must be positive")
		}
		if c.Feeds.MaxRetries < 1 {
			return fmt.Errorf("feeds.max_retries must be at least 1")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

func validateSchedule(key, spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%s is not a valid schedule: %w", key, err)
	}
	return nil
}

// GaugeConfig returns the gauge pipeline settings
func (c *Config) GaugeConfig() gauge.Config {
	return gauge.Config{
		SmoothingFactor:   c.Gauges.SmoothingFactor,
		MaxHistoryPoints:  c.Gauges.MaxHistoryPoints,
		HistoryRetention:  c.Gauges.HistoryRetention,
		TrendWindow:       c.Gauges.TrendWindow,
		TrendThreshold:    c.Gauges.TrendThreshold,
		HoldEmptyBaseline: c.Gauges.HoldEmptyBaseline,
		SubscriberBuffer:  c.Gauges.SubscriberBuffer,
	}
}

// SentimentOptions returns the analyzer settings
func (c *Config) SentimentOptions() sentiment.Options {
	return sentiment.Options{
		MaxGroupShare:     c.Sentiment.MaxGroupShare,
		Workers:           c.Sentiment.Workers,
		CulturalRules:     c.Sentiment.CulturalRules,
		RegionalBaselines: c.Sentiment.RegionalBaselines,
		TemporalOffsets:   c.Sentiment.TemporalOffsets,
	}
}

// MonitorThresholds returns the shift detection settings
func (c *Config) MonitorThresholds() monitor.Config {
	return monitor.Config{
		DeviationThreshold: c.Monitor.DeviationThreshold,
		MinConfidence:      c.Monitor.MinConfidence,
		MinTrendStrength:   c.Monitor.MinTrendStrength,
		Cooldown:           c.Monitor.Cooldown,
	}
}
