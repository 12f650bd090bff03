// Package main provides a one-shot scan command for ad-hoc inspection.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/edge-scanner/internal/arbitrage"
	"github.com/yourusername/edge-scanner/internal/book"
	"github.com/yourusername/edge-scanner/internal/config"
	"github.com/yourusername/edge-scanner/internal/execution"
	"github.com/yourusername/edge-scanner/internal/feed"
	"github.com/yourusername/edge-scanner/internal/logger"
	"github.com/yourusername/edge-scanner/internal/metrics"
	"github.com/yourusername/edge-scanner/internal/models"
	"github.com/yourusername/edge-scanner/internal/scanner"
	"github.com/yourusername/edge-scanner/internal/validator"
	"github.com/yourusername/edge-scanner/internal/value"
)

var (
	configFile string
	timeout    time.Duration
	dispatch   bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Overall scan timeout")
	rootCmd.Flags().BoolVar(&dispatch, "dispatch", false, "Run pre-dispatch validation re-checks on detected opportunities")
}

var rootCmd = &cobra.Command{
	Use:   "scan [gameID...]",
	Short: "Run a single scan cycle and print the results as JSON",
	Long:  `Scans the given games (or the configured game list) once and prints the scan report and detected opportunities to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// scanOutput is the JSON document printed to stdout
type scanOutput struct {
	Report        *models.ScanReport        `json:"report"`
	Opportunities []*models.Opportunity     `json:"opportunities"`
	Signals       []*models.HighValueSignal `json:"signals,omitempty"`
}

func runScan(games []string) error {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(games) == 0 {
		games = cfg.Scanner.Games
	}
	if len(games) == 0 {
		return fmt.Errorf("no games to scan: pass game IDs or configure scanner.games")
	}

	// Diagnostics go to stderr so stdout stays parseable JSON.
	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.SetOutput(os.Stderr)

	metrics.InitRegistry()

	clientCfg := feed.DefaultHTTPClientConfig()
	clientCfg.Timeout = cfg.Feed.RequestTimeout
	clientCfg.MaxRetries = cfg.Feed.RetryMax
	clientCfg.RateLimit = cfg.Feed.RateLimitPerSecond
	clientCfg.RateBurst = cfg.Feed.RateBurst

	oddsFeed := feed.NewOddsAPIFeed(feed.OddsAPIConfig{
		BaseURL: cfg.Feed.BaseURL,
		APIKey:  cfg.Feed.APIKey,
		Client:  clientCfg,
	}, appLog)

	var cross feed.CrossValidationSignal
	if cfg.Feed.CrossValidationURL != "" {
		crossClient := feed.NewCrossValidatorClient(cfg.Feed.CrossValidationURL, cfg.Feed.APIKey, clientCfg, appLog)
		defer crossClient.Close()
		cross = crossClient
	}

	signalValidator := validator.NewValidator(cfg.Validation, nil, cross, appLog)
	scn := scanner.NewScanner(
		cfg.Scanner.Pipeline(),
		oddsFeed,
		book.NewRegistry(cfg.Books.Profiles, appLog),
		execution.NewCostModel(cfg.Execution, appLog),
		arbitrage.NewEngine(cfg.Arbitrage, appLog),
		value.NewDetector(cfg.Value, appLog),
		signalValidator,
		appLog,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, opportunities := scn.Scan(ctx, games)
	output := scanOutput{Report: report, Opportunities: opportunities}

	if dispatch {
		sink := scanner.SinkFunc(func(ctx context.Context, signal *models.HighValueSignal) error {
			return nil
		})
		d := scanner.NewDispatcher(cfg.Dispatch, signalValidator, oddsFeed, sink, appLog)
		output.Signals = d.Dispatch(ctx, opportunities)
	}

	appLog.WithFields(logrus.Fields{
		"games":         len(games),
		"opportunities": len(opportunities),
		"duration":      report.Duration().String(),
	}).Info("Scan complete")

	encoded, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}
