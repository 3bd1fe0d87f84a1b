package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fintrack-labs/budgetguard/internal/config"
	"github.com/fintrack-labs/budgetguard/pkg/alerts"
	"github.com/fintrack-labs/budgetguard/pkg/model"
	"github.com/fintrack-labs/budgetguard/pkg/storage"
	"github.com/fintrack-labs/budgetguard/pkg/tracker"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "budgetguard",
	Short: "BudgetGuard - category budget tracking with threshold alerts",
	Long: `BudgetGuard tracks spending against per-user category budgets.
When a budget crosses its alert threshold it publishes a single notification
per cooldown window, with retries and dead-letter routing on failure.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.budgetguard/config.yaml)")
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

// initStore creates a storage backend from config.
func initStore(cfg *config.Config) (storage.Store, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initDispatcher creates the alert dispatcher, or nil when no publish
// transport is configured.
func initDispatcher(cfg *config.Config, logger *slog.Logger) tracker.Dispatcher {
	if !cfg.Alerts.Webhook.Enabled || cfg.Alerts.Webhook.URL == "" {
		return nil
	}

	policy := alerts.RetryPolicy{
		MaxAttempts: cfg.Alerts.Retry.MaxAttempts,
		BaseDelay:   config.Duration(cfg.Alerts.Retry.BaseDelay, alerts.DefaultRetryPolicy().BaseDelay),
		MaxDelay:    config.Duration(cfg.Alerts.Retry.MaxDelay, alerts.DefaultRetryPolicy().MaxDelay),
	}

	publisher := alerts.NewWebhookPublisher(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret)
	return alerts.NewDispatcher(publisher, policy,
		config.Duration(cfg.Alerts.PublishTimeout, alerts.DefaultPublishTimeout),
		cfg.Alerts.DeadLetterURL, logger)
}

// initManager creates a fully wired budget manager.
func initManager(cfg *config.Config) (*tracker.Manager, storage.Store, error) {
	logger := newLogger(cfg)

	store, err := initStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	dispatcher := initDispatcher(cfg, logger)
	cooldown := config.Duration(cfg.Alerts.Cooldown, model.DefaultAlertCooldown)
	manager := tracker.NewManager(store, dispatcher, cooldown, logger)

	return manager, store, nil
}
