// Package alerting posts high-consumption alerts to a chat or generic
// webhook and, optionally, by e-mail through SendGrid.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/config"
	"github.com/bher20/slabbiller/internal/estimate"
	"github.com/bher20/slabbiller/internal/metrics"
	"github.com/bher20/slabbiller/internal/usage"
)

// Alerter sends alerts to the configured webhook and e-mail recipient.
type Alerter struct {
	url       string
	kind      string
	threshold float64
	client    *http.Client
	mail      *mailer
	log       *zap.Logger
}

// New returns nil when neither a webhook nor an e-mail recipient is
// configured; a nil *Alerter is safe to call and never sends anything.
func New(cfg config.AlertConfig, log *zap.Logger) *Alerter {
	if cfg.WebhookURL == "" && cfg.EmailTo == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	a := &Alerter{
		url:       cfg.WebhookURL,
		threshold: cfg.MinUnits,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
	if cfg.WebhookURL != "" {
		a.kind = webhookType(cfg.WebhookType, cfg.WebhookURL)
	}
	if cfg.EmailTo != "" {
		a.mail = newMailer(cfg)
	}
	return a
}

// webhookType auto-detects the payload format from the URL when unset.
func webhookType(kind, url string) string {
	if kind != "" {
		return strings.ToLower(kind)
	}
	switch {
	case strings.Contains(url, "slack.com"):
		return "slack"
	case strings.Contains(url, "discord.com"):
		return "discord"
	default:
		return "generic"
	}
}

// Notify alerts every configured channel when the estimate's monthly units
// reach the threshold. It reports whether at least one channel delivered;
// failures of individual channels are joined into the returned error.
func (a *Alerter) Notify(ctx context.Context, est *estimate.Estimate) (bool, error) {
	if a == nil || est == nil {
		return false, nil
	}
	if est.MonthlyUnits < a.threshold {
		a.log.Debug("alerting: below threshold, skipping",
			zap.Float64("monthly_units", est.MonthlyUnits),
			zap.Float64("threshold", a.threshold),
		)
		return false, nil
	}

	var sent bool
	var errs []error
	if a.url != "" {
		if err := a.sendWebhook(ctx, est); err != nil {
			errs = append(errs, err)
		} else {
			sent = true
		}
	}
	if a.mail != nil {
		err := a.mail.send(ctx, est, a.threshold)
		a.record("email", err)
		if err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		} else {
			sent = true
		}
	}

	if sent {
		a.log.Info("alerting: sent high usage alert",
			zap.String("id", est.ID),
			zap.Float64("monthly_units", est.MonthlyUnits),
		)
	}
	return sent, errors.Join(errs...)
}

func (a *Alerter) sendWebhook(ctx context.Context, est *estimate.Estimate) error {
	var payload []byte
	var err error
	switch a.kind {
	case "slack":
		payload, err = a.buildSlackPayload(est)
	case "discord":
		payload, err = a.buildDiscordPayload(est)
	default:
		payload, err = a.buildGenericPayload(est)
	}
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	err = a.post(ctx, payload)
	a.record("webhook", err)
	return err
}

func (a *Alerter) record(channel string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "error"
	}
	metrics.AlertsTotal.WithLabelValues(channel, outcome).Inc()
}

func (a *Alerter) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (a *Alerter) buildSlackPayload(est *estimate.Estimate) ([]byte, error) {
	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": ":zap: High electricity usage",
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Monthly units:*\n%s kWh", estimate.FormatUnits(est.MonthlyUnits))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Estimated bill:*\n%s", estimate.FormatMoney(est.Currency, est.TotalCost))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Tariff:*\n%s", est.Tariff)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Computed:*\n%s", est.ComputedAt.Format(time.RFC3339))},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": est.Insight.Message,
				},
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildDiscordPayload(est *estimate.Estimate) ([]byte, error) {
	color := 16776960 // Yellow
	if est.Insight.Level == usage.LevelHigh {
		color = 16711680 // Red
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       "High electricity usage",
				"description": est.Insight.Message,
				"color":       color,
				"fields": []map[string]interface{}{
					{"name": "Monthly units", "value": estimate.FormatUnits(est.MonthlyUnits) + " kWh", "inline": true},
					{"name": "Estimated bill", "value": estimate.FormatMoney(est.Currency, est.TotalCost), "inline": true},
					{"name": "Tariff", "value": est.Tariff, "inline": true},
				},
				"timestamp": est.ComputedAt.Format(time.RFC3339),
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildGenericPayload(est *estimate.Estimate) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type":    "high_usage",
		"estimate_id":   est.ID,
		"tariff":        est.Tariff,
		"monthly_units": est.MonthlyUnits,
		"total_cost":    est.TotalCost,
		"currency":      est.Currency,
		"level":         est.Insight.Level,
		"threshold":     a.threshold,
		"timestamp":     est.ComputedAt.Format(time.RFC3339),
	}

	return json.Marshal(payload)
}
