// Package main provides the entry point for the edge scanner daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/edge-scanner/internal/arbitrage"
	"github.com/yourusername/edge-scanner/internal/book"
	"github.com/yourusername/edge-scanner/internal/config"
	"github.com/yourusername/edge-scanner/internal/database"
	"github.com/yourusername/edge-scanner/internal/execution"
	"github.com/yourusername/edge-scanner/internal/feed"
	"github.com/yourusername/edge-scanner/internal/health"
	"github.com/yourusername/edge-scanner/internal/logger"
	"github.com/yourusername/edge-scanner/internal/metrics"
	"github.com/yourusername/edge-scanner/internal/models"
	"github.com/yourusername/edge-scanner/internal/repository"
	"github.com/yourusername/edge-scanner/internal/scanner"
	"github.com/yourusername/edge-scanner/internal/scheduler"
	"github.com/yourusername/edge-scanner/internal/validator"
	"github.com/yourusername/edge-scanner/internal/value"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
}

var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Run the market discrepancy scanner daemon",
	Long:  `Continuously scans configured games for arbitrage and value opportunities, validates them, and dispatches high-value signals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		secretsCtx, cancelSecrets := context.WithTimeout(context.Background(), 10*time.Second)
		err := config.LoadSecretsFromAWS(secretsCtx, cfg, region, secretName)
		cancelSecrets()
		if err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
		"build_date":  BuildDate,
	}).Info("Edge scanner starting")

	metrics.InitRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence is optional; without it signals are only logged.
	var (
		db    *database.DB
		repos *repository.Repositories
	)
	if cfg.Database.Enabled {
		db, err = database.Initialize(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		repos, err = repository.NewRepositories(db)
		if err != nil {
			return fmt.Errorf("failed to initialize repositories: %w", err)
		}
		appLog.Info("Database connection established")
	} else {
		appLog.Info("Database disabled; signals will be logged only")
	}

	scanLog := logger.NewScanLogger(appLog)

	registry := book.NewRegistry(cfg.Books.Profiles, appLog)
	scanLog.LogProfileReload(registry.Len(), "config")

	clientCfg := feed.DefaultHTTPClientConfig()
	clientCfg.Timeout = cfg.Feed.RequestTimeout
	clientCfg.MaxRetries = cfg.Feed.RetryMax
	clientCfg.RateLimit = cfg.Feed.RateLimitPerSecond
	clientCfg.RateBurst = cfg.Feed.RateBurst

	httpFeed := feed.NewOddsAPIFeed(feed.OddsAPIConfig{
		BaseURL: cfg.Feed.BaseURL,
		APIKey:  cfg.Feed.APIKey,
		Client:  clientCfg,
	}, appLog)

	// The websocket stream, when configured, serves scan quotes and acts
	// as the freshness oracle. Re-checks still go through HTTP so a
	// dispatch decision rests on a live fetch.
	scanFeed := feed.OddsFeed(httpFeed)
	var oracle feed.LatencyOracle
	var stream *feed.StreamFeed
	if cfg.Feed.StreamURL != "" {
		stream = feed.NewStreamFeed(cfg.Feed.StreamURL, cfg.Feed.APIKey, appLog)
		if err := stream.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect odds stream: %w", err)
		}
		if err := stream.Subscribe(cfg.Scanner.Games, cfg.Scanner.Pipeline().MarketTypes); err != nil {
			return fmt.Errorf("failed to subscribe odds stream: %w", err)
		}
		go func() {
			if err := stream.Listen(ctx); err != nil && ctx.Err() == nil {
				appLog.WithError(err).Error("Odds stream listener stopped")
			}
		}()
		scanFeed = stream
		oracle = stream
		appLog.WithField("stream_url", cfg.Feed.StreamURL).Info("Odds stream connected")
	}

	var cross feed.CrossValidationSignal
	if cfg.Feed.CrossValidationURL != "" {
		crossClient := feed.NewCrossValidatorClient(cfg.Feed.CrossValidationURL, cfg.Feed.APIKey, clientCfg, appLog)
		defer crossClient.Close()
		cross = crossClient
	}

	signalValidator := validator.NewValidator(cfg.Validation, oracle, cross, appLog)
	costModel := execution.NewCostModel(cfg.Execution, appLog)
	arbEngine := arbitrage.NewEngine(cfg.Arbitrage, appLog)
	detector := value.NewDetector(cfg.Value, appLog)

	scn := scanner.NewScanner(
		cfg.Scanner.Pipeline(),
		scanFeed,
		registry,
		costModel,
		arbEngine,
		detector,
		signalValidator,
		appLog,
	)

	sink := buildSink(repos)
	dispatcher := scanner.NewDispatcher(cfg.Dispatch, signalValidator, httpFeed, sink, appLog)

	healthSrv := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        strconv.Itoa(cfg.Schedule.HealthPort),
		Logger:      appLog,
	})
	if db != nil {
		healthSrv.RegisterCheck("database", health.PingFunc(db.Ping))
	}
	if stream != nil {
		healthSrv.RegisterCheck("odds_stream", health.PingFunc(func(ctx context.Context) error {
			if time.Since(stream.LastMessageTime()) > 2*time.Minute {
				return fmt.Errorf("no stream message in over 2 minutes")
			}
			return nil
		}))
	}
	if err := healthSrv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.WithError(err).Error("Metrics server stopped")
			}
		}()
		appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server started")
	}

	sched := scheduler.NewScheduler(appLog)
	err = sched.ScheduleScanCycle(cfg.Schedule.ScanCron, "scan-cycle", func(jobCtx context.Context) {
		report, opportunities := scn.Scan(jobCtx, cfg.Scanner.Games)

		dispatcher.Dispatch(jobCtx, opportunities)

		if repos != nil {
			if err := repos.ScanReport.Create(jobCtx, report); err != nil {
				appLog.WithError(err).Error("Failed to persist scan report")
			}
		}
		healthSrv.RecordScan(time.Now())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule scan cycle: %w", err)
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	healthSrv.SetReady(true)

	appLog.WithFields(logrus.Fields{
		"scan_cron": cfg.Schedule.ScanCron,
		"games":     len(cfg.Scanner.Games),
		"books":     registry.Len(),
		"next_run":  sched.NextRun(),
	}).Info("Edge scanner running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthSrv.SetReady(false)
	cancel()

	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Error stopping scheduler")
	}
	if metricsSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Error stopping metrics server")
		}
		cancelShutdown()
	}
	if err := healthSrv.Shutdown(); err != nil {
		appLog.WithError(err).Error("Error stopping health server")
	}

	appLog.Info("Edge scanner shut down successfully")
	return nil
}

// buildSink persists verified signals when the database is enabled. The
// dispatcher writes the audit log either way.
func buildSink(repos *repository.Repositories) scanner.SignalSink {
	return scanner.SinkFunc(func(ctx context.Context, signal *models.HighValueSignal) error {
		if repos == nil {
			return nil
		}
		return repos.Signal.Create(ctx, signal)
	})
}
