package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/alerting"
	"github.com/bher20/slabbiller/internal/api"
	"github.com/bher20/slabbiller/internal/cron"
	"github.com/bher20/slabbiller/internal/publisher"
	"github.com/bher20/slabbiller/internal/report"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Serves the estimate API, Prometheus metrics, health probes and API docs over HTTP.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, svc, err := setup(false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	pub, err := publisher.New(cfg.MQTT, log)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	alerter := alerting.New(cfg.Alert, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(svc, pub, alerter, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Report.Schedule != "" {
		reporter, err := report.New(cfg.Report, svc, pub, alerter, log)
		if err != nil {
			return fmt.Errorf("creating report: %w", err)
		}
		worker, err := cron.NewWorker(report.JobName, cfg.Report.Schedule, reporter.Run, log)
		if err != nil {
			return fmt.Errorf("creating report worker: %w", err)
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("report worker stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("slabbiller listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("default_tariff", cfg.Tariff),
			zap.Bool("mqtt", pub.Enabled()),
			zap.Bool("alerts", cfg.Alert.WebhookURL != "" || cfg.Alert.EmailTo != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
