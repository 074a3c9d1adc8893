package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/pulsegauge/internal/config"
	"github.com/rewired-gh/pulsegauge/internal/feed"
	"github.com/rewired-gh/pulsegauge/internal/gauge"
	"github.com/rewired-gh/pulsegauge/internal/ingest"
	"github.com/rewired-gh/pulsegauge/internal/jobs"
	"github.com/rewired-gh/pulsegauge/internal/logger"
	"github.com/rewired-gh/pulsegauge/internal/metrics"
	"github.com/rewired-gh/pulsegauge/internal/models"
	"github.com/rewired-gh/pulsegauge/internal/monitor"
	"github.com/rewired-gh/pulsegauge/internal/sentiment"
	"github.com/rewired-gh/pulsegauge/internal/storage"
	"github.com/rewired-gh/pulsegauge/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath  = flag.String("config", "configs/config.yaml", "Path to configuration file")
	envPath     = flag.String("env", ".env", "Path to optional .env file")
	ingestStdin = flag.Bool("ingest-stdin", false, "Read JSON-lines messages from stdin")
)

func main() {
	flag.Parse()

	// Environment overrides must be in place before viper reads them
	if err := config.LoadDotEnv(*envPath); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()
	logger.Info("Configuration loaded from %s", *configPath)

	// Category registry: built-ins plus configured extensions
	registry := models.NewRegistry()
	for _, spec := range cfg.Gauges.Categories {
		if err := registry.Register(spec); err != nil {
			logger.Fatal("Failed to register category: %v", err)
		}
		logger.Debug("Registered category %s [%g, %g]", spec.Name, spec.Min, spec.Max)
	}

	store := gauge.NewStore(registry, cfg.GaugeConfig())

	// Initialize storage and restore the last snapshot
	var db *storage.Storage
	if cfg.Storage.Enabled {
		db, err = storage.New(cfg.Storage.DBPath)
		if err != nil {
			logger.Fatal("Failed to initialize storage: %v", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
		restoreGauges(db, store)
	} else {
		logger.Debug("Gauge persistence disabled")
	}

	analyzer := sentiment.NewAnalyzer(cfg.SentimentOptions())
	exporter := metrics.New(nil)

	opts := []monitor.Option{
		monitor.WithAnalysisObserver(exporter.ObserveAnalysis),
		monitor.WithShiftObserver(exporter.ObserveShift),
	}

	// Initialize Telegram client
	if cfg.Telegram.Enabled {
		telegramClient, err := telegram.NewClient(
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries,
			cfg.Telegram.RetryDelayBase,
			cfg.Telegram.MessagesPerMinute,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		opts = append(opts, monitor.WithNotifiers(telegramClient))
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	mon := monitor.New(store, analyzer, cfg.MonitorThresholds(), opts...)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Every committed gauge state feeds the exporter and the shift detector
	gaugeUpdates, cancelGaugeUpdates := store.Subscribe(cfg.Gauges.SubscriberBuffer)
	defer cancelGaugeUpdates()
	g.Go(func() error {
		exporter.Run(gctx, gaugeUpdates)
		return nil
	})
	for _, gd := range store.GetAllGauges() {
		exporter.SeedGauge(gd)
	}

	if cfg.Monitor.Enabled {
		shiftUpdates, cancelShiftUpdates := store.Subscribe(cfg.Gauges.SubscriberBuffer)
		defer cancelShiftUpdates()
		g.Go(func() error {
			return ignoreCanceled(mon.Run(gctx, shiftUpdates))
		})
		logger.Info("Shift detection enabled (deviation: %.2f, min_confidence: %.2f, min_trend_strength: %.2f, cooldown: %v)",
			cfg.Monitor.DeviationThreshold, cfg.Monitor.MinConfidence, cfg.Monitor.MinTrendStrength, cfg.Monitor.Cooldown)
	} else {
		logger.Debug("Shift detection disabled")
	}

	if cfg.Metrics.Enabled {
		startMetricsServer(gctx, g, cfg.Metrics, exporter)
	}

	// Schedule maintenance sweeps
	scheduler := jobs.New(store)
	if err := scheduler.AddBaselineSweep(cfg.Gauges.BaselineSchedule); err != nil {
		logger.Fatal("Failed to schedule baseline sweep: %v", err)
	}
	if db != nil {
		if err := scheduler.AddPersistSweep(cfg.Storage.PersistSchedule, db); err != nil {
			logger.Fatal("Failed to schedule persistence: %v", err)
		}
	}
	if len(cfg.Feeds.URLs) > 0 {
		client := feed.NewClient(cfg.Feeds.Timeout, cfg.Feeds.MaxRetries, cfg.Feeds.RetryDelayBase)
		poller := feed.NewPoller(client, cfg.Feeds.URLs, mon)
		if err := scheduler.AddFeedPoll(cfg.Feeds.Schedule, poller); err != nil {
			logger.Fatal("Failed to schedule feed polling: %v", err)
		}
	}
	scheduler.Start()

	// Not part of the group: a read on stdin cannot be interrupted, so shutdown
	// must not wait for it.
	if *ingestStdin {
		go func() {
			stats, err := ingest.Run(gctx, os.Stdin, mon)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ingest stopped: %v", err)
			}
			logger.Info("Ingest finished: %d lines, %d values, %d batches (%d articles), %d skipped",
				stats.Lines, stats.Values, stats.Batches, stats.Articles, stats.Skipped)
		}()
	}

	logger.Info("Service started with %d categories", len(store.Categories()))

	<-gctx.Done()
	logger.Info("Shutdown signal received, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if db != nil {
		if err := scheduler.Persist(shutdownCtx, db); err != nil {
			logger.Error("Final persistence failed: %v", err)
		} else {
			logger.Info("Final gauge snapshot saved")
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error: %v", err)
		return
	}
	logger.Info("Service stopped")
}

// restoreGauges loads the last saved snapshot into store. Failures are logged
// and the affected categories start cold.
func restoreGauges(db *storage.Storage, store *gauge.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	saved, err := db.LoadGauges(ctx)
	if err != nil {
		logger.Warn("Failed to load saved gauges, starting cold: %v", err)
		return
	}

	restored := 0
	for category, gd := range saved {
		if err := store.Restore(gd); err != nil {
			logger.Warn("Failed to restore gauge %s: %v", category, err)
			continue
		}
		restored++
	}

	if savedAt, ok, err := db.SavedAt(ctx); err == nil && ok {
		logger.Info("Restored %d gauges saved at %s", restored, savedAt.Format(time.RFC3339))
	} else if restored > 0 {
		logger.Info("Restored %d gauges", restored)
	}
}

func startMetricsServer(ctx context.Context, g *errgroup.Group, cfg config.MetricsConfig, exporter *metrics.Exporter) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, exporter.Handler())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("Serving metrics on %s%s", cfg.ListenAddr, cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown: %v", err)
		}
		return nil
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
