package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/price-tracker/internal/config"
	"github.com/ogulcanaydogan/price-tracker/pkg/alerts"
	"github.com/ogulcanaydogan/price-tracker/pkg/extractor"
	"github.com/ogulcanaydogan/price-tracker/pkg/fetcher"
	"github.com/ogulcanaydogan/price-tracker/pkg/storage"
	"github.com/ogulcanaydogan/price-tracker/pkg/tracker"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pricetracker",
	Short: "Price Tracker - periodic product price monitoring with alerts",
	Long: `Price Tracker polls product pages on a fixed interval, records every
observed price to a local history database, and raises an alert when a
product drops to or below its target price.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.pricetracker/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Storage, error) {
	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// initNotifiers creates alert notifiers from config. The log notifier is
// always present so every alert leaves a trace.
func initNotifiers(cfg *config.Config, logger *slog.Logger) []alerts.Notifier {
	notifiers := []alerts.Notifier{alerts.NewLogNotifier(logger)}

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// initTracker creates a fully wired tracker.
func initTracker(cfg *config.Config, logger *slog.Logger) (*tracker.Tracker, storage.Storage, error) {
	store, err := initStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	f := fetcher.NewHTTP(fetcher.Options{
		Timeout:      cfg.Fetcher.Timeout,
		UserAgent:    cfg.Fetcher.UserAgent,
		MaxBodyBytes: cfg.Fetcher.MaxBodyBytes,
	})
	alertMgr := tracker.NewAlertManager(initNotifiers(cfg, logger), logger)

	t := tracker.NewTracker(store, f, extractor.NewHTML(), alertMgr, logger, tracker.Options{
		ProductIDs: cfg.Tracker.ProductIDs,
		Interval:   cfg.Tracker.Interval,
	})
	return t, store, nil
}

// seedProducts registers the configured initial product set.
func seedProducts(ctx context.Context, cfg *config.Config, t *tracker.Tracker) (int, error) {
	products, err := cfg.SeedProducts()
	if err != nil {
		return 0, err
	}
	for i := range products {
		if err := t.Track(ctx, &products[i]); err != nil {
			return i, err
		}
	}
	return len(products), nil
}
