package alerting

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bher20/slabbiller/internal/config"
	"github.com/bher20/slabbiller/internal/estimate"
)

const sendgridEndpoint = "/v3/mail/send"

// mailer delivers alert e-mails through the SendGrid v3 API.
type mailer struct {
	client *sendgrid.Client
	from   *mail.Email
	to     *mail.Email
}

func newMailer(cfg config.AlertConfig) *mailer {
	// An empty host selects the public SendGrid API.
	req := sendgrid.GetRequest(cfg.SendgridAPIKey, sendgridEndpoint, cfg.SendgridHost)
	req.Method = "POST"
	return &mailer{
		client: &sendgrid.Client{Request: req},
		from:   mail.NewEmail(cfg.EmailFromName, cfg.EmailFrom),
		to:     mail.NewEmail("", cfg.EmailTo),
	}
}

func (m *mailer) send(ctx context.Context, est *estimate.Estimate, threshold float64) error {
	subject := fmt.Sprintf("High electricity usage: %s kWh this month", estimate.FormatUnits(est.MonthlyUnits))
	plain := emailBody(est, threshold)
	message := mail.NewSingleEmail(m.from, subject, m.to, plain, htmlBody(plain))

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func emailBody(est *estimate.Estimate, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Monthly units: %s kWh (alert threshold %s)\n",
		estimate.FormatUnits(est.MonthlyUnits), estimate.FormatUnits(threshold))
	fmt.Fprintf(&b, "Estimated bill: %s\n", estimate.FormatMoney(est.Currency, est.TotalCost))
	fmt.Fprintf(&b, "Tariff: %s\n", est.Tariff)
	fmt.Fprintf(&b, "Computed: %s\n", est.ComputedAt.Format(time.RFC3339))
	if est.Insight.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", est.Insight.Message)
	}
	return b.String()
}

func htmlBody(plain string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(strings.TrimSpace(plain)), "\n", "<br>") + "</p>"
}
