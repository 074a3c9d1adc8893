package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/pulsegauge/internal/models"
	"github.com/rewired-gh/pulsegauge/internal/sentiment"
)

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
gauges:
  smoothing_factor: 0.5
  trend_window: 12
  baseline_schedule: "@every 30s"
  categories:
    - name: climate
      min: -50
      max: 50

sentiment:
  workers: 4
  temporal_offsets:
    - start_hour: 6
      end_hour: 12
      offset: 0.1
  cultural_rules:
    - language: en
      region: uk
      positive_factor: 0.9
      negative_factor: 1.1
      offset: 0.02

monitor:
  deviation_threshold: 0.2
  cooldown: 30m

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

storage:
  db_path: "./data/test.db"

feeds:
  urls:
    - "http://collector.local/feed"

logging:
  level: "debug"
  format: "text"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Test Load
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify values
	if cfg.Gauges.SmoothingFactor != 0.5 {
		t.Errorf("Unexpected smoothing factor: %f", cfg.Gauges.SmoothingFactor)
	}
	if cfg.Gauges.MaxHistoryPoints != 1000 {
		t.Errorf("Expected default max history 1000, got %d", cfg.Gauges.MaxHistoryPoints)
	}
	if cfg.Gauges.HistoryRetention != 30*24*time.Hour {
		t.Errorf("Unexpected retention: %v", cfg.Gauges.HistoryRetention)
	}
	if len(cfg.Gauges.Categories) != 1 || cfg.Gauges.Categories[0].Min != -50 {
		t.Errorf("Unexpected categories: %+v", cfg.Gauges.Categories)
	}
	if len(cfg.Sentiment.TemporalOffsets) != 1 || cfg.Sentiment.TemporalOffsets[0].EndHour != 12 {
		t.Errorf("Unexpected temporal offsets: %+v", cfg.Sentiment.TemporalOffsets)
	}
	if len(cfg.Sentiment.CulturalRules) != 1 || cfg.Sentiment.CulturalRules[0].NegativeFactor != 1.1 {
		t.Errorf("Unexpected cultural rules: %+v", cfg.Sentiment.CulturalRules)
	}
	if cfg.Sentiment.MaxGroupShare != 0.4 {
		t.Errorf("Expected default max group share 0.4, got %f", cfg.Sentiment.MaxGroupShare)
	}
	if cfg.Monitor.Cooldown != 30*time.Minute {
		t.Errorf("Unexpected cooldown: %v", cfg.Monitor.Cooldown)
	}
	if cfg.Telegram.RetryDelayBase != time.Second {
		t.Errorf("Unexpected retry delay: %v", cfg.Telegram.RetryDelayBase)
	}
	if len(cfg.Feeds.URLs) != 1 || cfg.Feeds.Timeout != 30*time.Second {
		t.Errorf("Unexpected feeds: %+v", cfg.Feeds)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Unexpected metrics path: %s", cfg.Metrics.Path)
	}

	// Test Validate
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	gc := cfg.GaugeConfig()
	if gc.TrendWindow != 12 || gc.SmoothingFactor != 0.5 {
		t.Errorf("Unexpected gauge config: %+v", gc)
	}
	if mc := cfg.MonitorThresholds(); mc.DeviationThreshold != 0.2 || mc.Cooldown != 30*time.Minute {
		t.Errorf("Unexpected monitor config: %+v", mc)
	}
	if so := cfg.SentimentOptions(); so.Workers != 4 || len(so.CulturalRules) != 1 {
		t.Errorf("Unexpected sentiment options: %+v", so)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PULSEGAUGE_TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("PULSEGAUGE_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telegram.ChatID != "-100123" {
		t.Errorf("Expected chat ID from environment, got %q", cfg.Telegram.ChatID)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected level from environment, got %q", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	if err := LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
		t.Errorf("Missing .env should not fail: %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PULSEGAUGE_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PULSEGAUGE_TEST_DOTENV") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("PULSEGAUGE_TEST_DOTENV"); got != "loaded" {
		t.Errorf("Expected variable from .env, got %q", got)
	}
}

func validConfig() *Config {
	return &Config{
		Gauges: GaugesConfig{
			SmoothingFactor:  0.3,
			MaxHistoryPoints: 1000,
			HistoryRetention: 30 * 24 * time.Hour,
			TrendWindow:      10,
			TrendThreshold:   0.01,
			BaselineSchedule: "@every 60s",
			SubscriberBuffer: 64,
		},
		Sentiment: SentimentConfig{
			MaxGroupShare: 0.4,
			Workers:       8,
		},
		Monitor: MonitorConfig{
			DeviationThreshold: 0.15,
			MinConfidence:      0.5,
			MinTrendStrength:   0.2,
			Cooldown:           time.Hour,
		},
		Storage: StorageConfig{
			Enabled:         true,
			DBPath:          "./data/test.db",
			PersistSchedule: "*/5 * * * *",
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
			Path:       "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing telegram token when enabled", func(c *Config) {
			c.Telegram = TelegramConfig{Enabled: true, ChatID: "1"}
		}, true},
		{"missing telegram chat when enabled", func(c *Config) {
			c.Telegram = TelegramConfig{Enabled: true, BotToken: "token"}
		}, true},
		{"zero smoothing factor", func(c *Config) { c.Gauges.SmoothingFactor = 0 }, true},
		{"smoothing factor above one", func(c *Config) { c.Gauges.SmoothingFactor = 1.5 }, true},
		{"trend window of one", func(c *Config) { c.Gauges.TrendWindow = 1 }, true},
		{"trend window beyond history", func(c *Config) { c.Gauges.MaxHistoryPoints = 5 }, true},
		{"short retention", func(c *Config) { c.Gauges.HistoryRetention = time.Minute }, true},
		{"invalid baseline schedule", func(c *Config) { c.Gauges.BaselineSchedule = "sometimes" }, true},
		{"inverted category range", func(c *Config) {
			c.Gauges.Categories = []models.CategorySpec{{Name: "climate", Min: 10, Max: 0}}
		}, true},
		{"invalid threshold", func(c *Config) { c.Monitor.DeviationThreshold = 1.5 }, true},
		{"negative cooldown", func(c *Config) { c.Monitor.Cooldown = -time.Second }, true},
		{"zero workers", func(c *Config) { c.Sentiment.Workers = 0 }, true},
		{"bad temporal offset", func(c *Config) {
			c.Sentiment.TemporalOffsets = []sentiment.TemporalOffset{{StartHour: 12, EndHour: 6}}
		}, true},
		{"storage without path", func(c *Config) { c.Storage.DBPath = "" }, true},
		{"storage disabled without path", func(c *Config) {
			c.Storage = StorageConfig{Enabled: false}
		}, false},
		{"metrics path without slash", func(c *Config) { c.Metrics.Path = "metrics" }, true},
		{"feed url without scheme", func(c *Config) {
			c.Feeds = FeedsConfig{URLs: []string{"collector/feed"}, Schedule: "@every 1m", Timeout: time.Second, MaxRetries: 1}
		}, true},
		{"feed without timeout", func(c *Config) {
			c.Feeds = FeedsConfig{URLs: []string{"https://collector/feed"}, Schedule: "@every 1m", MaxRetries: 1}
		}, true},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
