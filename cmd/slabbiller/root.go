package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/config"
	"github.com/bher20/slabbiller/internal/estimate"
	"github.com/bher20/slabbiller/internal/logging"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "slabbiller",
	Short: "Estimate monthly electricity bills under slab tariffs",
	Long: `slabbiller prices monthly electricity consumption under tiered (slab) tariffs.
Consumption can be given directly in units (kWh) or derived from appliance usage.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
}

// loadConfig loads the configuration file and SLABBILLER_* environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger. One-shot commands stay quiet unless
// --log-level is given so their stdout output is not interleaved with logs.
func newLogger(cfg *config.Config, quiet bool) (*zap.Logger, error) {
	level := cfg.Log.Level
	if quiet && logLevel == "" {
		level = "warn"
	}
	log, err := logging.New(level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

// newService builds the estimate service from config
func newService(cfg *config.Config, log *zap.Logger) (*estimate.Service, error) {
	list, err := cfg.Tariffs()
	if err != nil {
		return nil, fmt.Errorf("loading tariffs: %w", err)
	}
	svc, err := estimate.NewService(estimate.Config{
		DefaultTariff: cfg.Tariff,
		Tariffs:       list,
		Schedule:      cfg.Schedule,
		Catalog:       cfg.Catalog(),
		DaysPerMonth:  cfg.DaysPerMonth,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("creating estimate service: %w", err)
	}
	return svc, nil
}

// setup is the common prologue of every command.
func setup(quiet bool) (*config.Config, *zap.Logger, *estimate.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := newLogger(cfg, quiet)
	if err != nil {
		return nil, nil, nil, err
	}
	svc, err := newService(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, err
	}
	return cfg, log, svc, nil
}
