package alerting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/slabbiller/internal/config"
	"github.com/bher20/slabbiller/internal/estimate"
	"github.com/bher20/slabbiller/internal/usage"
)

func highEstimate() *estimate.Estimate {
	return &estimate.Estimate{
		ID:           "est-1",
		Tariff:       "pk-residential",
		Currency:     "Rs.",
		MonthlyUnits: 591.6,
		TotalCost:    23580,
		Insight:      usage.Assess(591.6),
		ComputedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func webhook(t *testing.T, status int) (*httptest.Server, <-chan []byte) {
	t.Helper()
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		bodies <- b
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, bodies
}

func TestNew_DisabledWithoutURL(t *testing.T) {
	a := New(config.AlertConfig{}, nil)
	assert.Nil(t, a)

	sent, err := a.Notify(context.Background(), highEstimate())
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestNotify_Generic(t *testing.T) {
	srv, bodies := webhook(t, http.StatusOK)
	a := New(config.AlertConfig{WebhookURL: srv.URL, MinUnits: 300}, nil)

	sent, err := a.Notify(context.Background(), highEstimate())
	require.NoError(t, err)
	assert.True(t, sent)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(<-bodies, &payload))
	assert.Equal(t, "high_usage", payload["alert_type"])
	assert.Equal(t, "est-1", payload["estimate_id"])
	assert.Equal(t, 591.6, payload["monthly_units"])
	assert.Equal(t, "high", payload["level"])
}

func TestNotify_BelowThreshold(t *testing.T) {
	srv, bodies := webhook(t, http.StatusOK)
	a := New(config.AlertConfig{WebhookURL: srv.URL, MinUnits: 1000}, nil)

	sent, err := a.Notify(context.Background(), highEstimate())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, bodies)
}

func TestNotify_WebhookError(t *testing.T) {
	srv, _ := webhook(t, http.StatusInternalServerError)
	a := New(config.AlertConfig{WebhookURL: srv.URL}, nil)

	sent, err := a.Notify(context.Background(), highEstimate())
	require.Error(t, err)
	assert.False(t, sent)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNotify_SlackAndDiscordPayloads(t *testing.T) {
	for _, kind := range []string{"slack", "discord"} {
		t.Run(kind, func(t *testing.T) {
			srv, bodies := webhook(t, http.StatusNoContent)
			a := New(config.AlertConfig{WebhookURL: srv.URL, WebhookType: kind}, nil)

			_, err := a.Notify(context.Background(), highEstimate())
			require.NoError(t, err)

			body := string(<-bodies)
			assert.Contains(t, body, "Rs. 23,580.00")
			if kind == "slack" {
				assert.Contains(t, body, `"blocks"`)
			} else {
				assert.Contains(t, body, `"embeds"`)
				assert.Contains(t, body, "16711680")
			}
		})
	}
}

type sentMail struct {
	auth string
	body map[string]interface{}
}

func sendgridAPI(t *testing.T, status int) (*httptest.Server, <-chan sentMail) {
	t.Helper()
	mails := make(chan sentMail, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mails <- sentMail{auth: r.Header.Get("Authorization"), body: body}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, mails
}

func emailConfig(host string) config.AlertConfig {
	return config.AlertConfig{
		MinUnits:       300,
		EmailTo:        "ops@example.org",
		EmailFrom:      "billing@example.org",
		EmailFromName:  "slabbiller",
		SendgridAPIKey: "SG.test",
		SendgridHost:   host,
	}
}

func TestNotify_Email(t *testing.T) {
	srv, mails := sendgridAPI(t, http.StatusAccepted)
	a := New(emailConfig(srv.URL), nil)
	require.NotNil(t, a)

	sent, err := a.Notify(context.Background(), highEstimate())
	require.NoError(t, err)
	assert.True(t, sent)

	m := <-mails
	assert.Equal(t, "Bearer SG.test", m.auth)
	assert.Equal(t, "High electricity usage: 591.6 kWh this month", m.body["subject"])
	from := m.body["from"].(map[string]interface{})
	assert.Equal(t, "billing@example.org", from["email"])
	raw, _ := json.Marshal(m.body)
	assert.Contains(t, string(raw), "ops@example.org")
	assert.Contains(t, string(raw), "Rs. 23,580.00")
}

func TestNotify_EmailBelowThreshold(t *testing.T) {
	srv, mails := sendgridAPI(t, http.StatusAccepted)
	cfg := emailConfig(srv.URL)
	cfg.MinUnits = 1000

	sent, err := New(cfg, nil).Notify(context.Background(), highEstimate())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, mails)
}

func TestNotify_EmailErrorKeepsWebhook(t *testing.T) {
	hook, bodies := webhook(t, http.StatusOK)
	api, _ := sendgridAPI(t, http.StatusUnauthorized)
	cfg := emailConfig(api.URL)
	cfg.WebhookURL = hook.URL

	sent, err := New(cfg, nil).Notify(context.Background(), highEstimate())
	assert.True(t, sent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sendgrid error: 401")
	assert.NotEmpty(t, <-bodies)
}

func TestWebhookType(t *testing.T) {
	assert.Equal(t, "slack", webhookType("", "https://hooks.slack.com/services/a/b"))
	assert.Equal(t, "discord", webhookType("", "https://discord.com/api/webhooks/1"))
	assert.Equal(t, "generic", webhookType("", "https://example.org/hook"))
	assert.Equal(t, "slack", webhookType("Slack", "https://example.org/hook"))
}
