package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ogulcanaydogan/price-tracker/pkg/catalog"
	"github.com/ogulcanaydogan/price-tracker/pkg/fetcher"
	"github.com/ogulcanaydogan/price-tracker/pkg/model"
)

// Config holds all price tracker configuration.
type Config struct {
	Storage      StorageConfig   `mapstructure:"storage"`
	Tracker      TrackerConfig   `mapstructure:"tracker"`
	Fetcher      FetcherConfig   `mapstructure:"fetcher"`
	Server       ServerConfig    `mapstructure:"server"`
	Alerts       AlertsConfig    `mapstructure:"alerts"`
	Logging      LoggingConfig   `mapstructure:"logging"`
	Products     []catalog.Entry `mapstructure:"products"`
	ProductsFile string          `mapstructure:"products_file"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// TrackerConfig defines the polling loop.
type TrackerConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	ProductIDs []string      `mapstructure:"product_ids"`
}

// FetcherConfig defines how product pages are retrieved.
type FetcherConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// ServerConfig defines the read-only API server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".pricetracker"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".pricetracker", "prices.db"))
	v.SetDefault("tracker.interval", "10s")
	v.SetDefault("tracker.product_ids", []string{})
	v.SetDefault("fetcher.timeout", fetcher.DefaultTimeout.String())
	v.SetDefault("fetcher.user_agent", fetcher.DefaultUserAgent)
	v.SetDefault("fetcher.max_body_bytes", fetcher.DefaultMaxBodyBytes)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("alerts.slack.channel", "#price-alerts")
	v.SetDefault("products_file", "")

	// Environment variables
	v.SetEnvPrefix("PRICETRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Storage.Path = expandHome(cfg.Storage.Path, home)
	cfg.ProductsFile = expandHome(cfg.ProductsFile, home)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandHome resolves a leading "~/" against home; viper leaves it literal.
func expandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return path
}

func (c *Config) validate() error {
	if c.Tracker.Interval <= 0 {
		return fmt.Errorf("tracker.interval must be positive, got %s", c.Tracker.Interval)
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be positive, got %s", c.Fetcher.Timeout)
	}
	if c.Alerts.Slack.Enabled && c.Alerts.Slack.WebhookURL == "" {
		return errors.New("alerts.slack.webhook_url is required when slack is enabled")
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		return errors.New("alerts.webhook.url is required when the webhook is enabled")
	}
	return nil
}

// SeedProducts returns the configured initial product set: the inline
// products list followed by the products file, if any. A product defined
// in both places keeps the file's definition.
func (c *Config) SeedProducts() ([]model.TrackedProduct, error) {
	products, err := catalog.Products(c.Products)
	if err != nil {
		return nil, fmt.Errorf("config products: %w", err)
	}

	if c.ProductsFile == "" {
		return products, nil
	}

	fromFile, err := catalog.Load(c.ProductsFile)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}
	for _, p := range fromFile {
		if i, ok := index[p.ID]; ok {
			products[i] = p
			continue
		}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	return products, nil
}
