package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/alerting"
	"github.com/bher20/slabbiller/internal/estimate"
	"github.com/bher20/slabbiller/internal/publisher"
	"github.com/bher20/slabbiller/internal/usage"
)

var (
	estimateUse            []string
	estimateDefaultProfile bool
	estimateTariff         string
	estimateJSON           bool
	estimatePublish        bool
	estimateAlert          bool
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate a monthly bill from appliance usage",
	Long: `Derives monthly units from appliance usage and prices them under a tariff.

Each --use value is NAME[:QUANTITY[:HOURS_PER_DAY]], e.g. --use Fan:2:8 --use "Water Pump:1:1".
Without --use the reference household profile is used.`,
	Example: `  slabbiller estimate --use Fan:2:8 --use Light:4:6
  slabbiller estimate --default-profile --use AC:1:4 --json`,
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().StringArrayVar(&estimateUse, "use", nil, "appliance usage NAME[:QUANTITY[:HOURS]] (repeatable)")
	estimateCmd.Flags().BoolVar(&estimateDefaultProfile, "default-profile", false, "include the reference household profile")
	estimateCmd.Flags().StringVar(&estimateTariff, "tariff", "", "tariff key (default from config)")
	estimateCmd.Flags().BoolVar(&estimateJSON, "json", false, "print the estimate as JSON")
	estimateCmd.Flags().BoolVar(&estimatePublish, "publish", false, "publish the estimate to the configured MQTT broker")
	estimateCmd.Flags().BoolVar(&estimateAlert, "alert", false, "send a high usage alert (webhook and/or e-mail) if usage reaches alert.min_units")
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, log, svc, err := setup(true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	req := estimate.Request{
		Tariff:         estimateTariff,
		DefaultProfile: estimateDefaultProfile || len(estimateUse) == 0,
	}
	for _, raw := range estimateUse {
		entry, err := usage.ParseEntry(raw)
		if err != nil {
			return fmt.Errorf("parsing --use %q: %w", raw, err)
		}
		req.Usage = append(req.Usage, entry)
	}

	est, err := svc.Estimate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("computing estimate: %w", err)
	}

	if estimatePublish {
		if !cfg.MQTT.Enabled {
			return fmt.Errorf("MQTT is not enabled in config")
		}
		pub, err := publisher.New(cfg.MQTT, log)
		if err != nil {
			return fmt.Errorf("creating publisher: %w", err)
		}
		defer pub.Close()
		if err := pub.Publish(cmd.Context(), est); err != nil {
			return fmt.Errorf("publishing estimate: %w", err)
		}
		log.Info("estimate published", zap.String("id", est.ID))
	}

	if estimateAlert {
		alerter := alerting.New(cfg.Alert, log)
		if alerter == nil {
			return fmt.Errorf("no alert channel is configured (alert.webhook_url or alert.email_to)")
		}
		if _, err := alerter.Notify(cmd.Context(), est); err != nil {
			return fmt.Errorf("sending alert: %w", err)
		}
	}

	if estimateJSON {
		return writeJSON(cmd.OutOrStdout(), est)
	}
	return renderEstimate(cmd.OutOrStdout(), est)
}
