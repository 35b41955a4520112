package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bher20/slabbiller/internal/alerting"
	"github.com/bher20/slabbiller/internal/publisher"
	"github.com/bher20/slabbiller/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the configured household report once",
	Long: `Computes the household estimate described by the report section of the config,
publishes it over MQTT when enabled and sends a high usage alert when usage reaches alert.min_units.
'slabbiller serve' runs the same report on report.schedule.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, log, svc, err := setup(false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pub, err := publisher.New(cfg.MQTT, log)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	reporter, err := report.New(cfg.Report, svc, pub, alerting.New(cfg.Alert, log), log)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	return reporter.Run(cmd.Context())
}
