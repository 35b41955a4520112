package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/slabbiller/internal/tariffs"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, tariffs.DefaultKey, cfg.Tariff)
	assert.Equal(t, 30, cfg.DaysPerMonth)
	assert.True(t, cfg.Schedule.IsZero())
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "electric_bill", cfg.MQTT.TopicPrefix)
	assert.Empty(t, cfg.Alert.WebhookURL)
	assert.Equal(t, 300.0, cfg.Alert.MinUnits)
	assert.Equal(t, 10*time.Second, cfg.Alert.Timeout)
}

func TestLoad_AlertEnv(t *testing.T) {
	t.Setenv("SLABBILLER_ALERT_WEBHOOK_URL", "https://hooks.slack.com/services/x")
	t.Setenv("SLABBILLER_ALERT_MIN_UNITS", "450")
	t.Setenv("SLABBILLER_ALERT_TIMEOUT", "3s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.slack.com/services/x", cfg.Alert.WebhookURL)
	assert.Equal(t, 450.0, cfg.Alert.MinUnits)
	assert.Equal(t, 3*time.Second, cfg.Alert.Timeout)
}

func TestLoad_AlertEmailEnv(t *testing.T) {
	t.Setenv("SLABBILLER_ALERT_EMAIL_TO", "ops@example.org")
	t.Setenv("SLABBILLER_ALERT_EMAIL_FROM", "billing@example.org")
	t.Setenv("SLABBILLER_ALERT_SENDGRID_API_KEY", "SG.key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.org", cfg.Alert.EmailTo)
	assert.Equal(t, "billing@example.org", cfg.Alert.EmailFrom)
	assert.Equal(t, "slabbiller", cfg.Alert.EmailFromName)
	assert.Equal(t, "SG.key", cfg.Alert.SendgridAPIKey)
}

func TestLoad_AlertEmailRequiresSender(t *testing.T) {
	t.Setenv("SLABBILLER_ALERT_EMAIL_TO", "ops@example.org")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alert.sendgrid_api_key")
}

func TestLoad_ScheduleEnv(t *testing.T) {
	t.Setenv("SLABBILLER_SCHEDULE_BOUNDARIES", "50")
	t.Setenv("SLABBILLER_SCHEDULE_RATES", "1,2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []float64{50}, cfg.Schedule.Boundaries)
	assert.Equal(t, []float64{1, 2}, cfg.Schedule.Rates)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SLABBILLER_SERVER_ADDR", ":9090")
	t.Setenv("SLABBILLER_LOG_LEVEL", "debug")
	t.Setenv("SLABBILLER_DAYS_PER_MONTH", "31")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 31, cfg.DaysPerMonth)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
server:
  addr: ":7000"
schedule:
  boundaries: [50, 50]
  rates: [5, 10, 15]
appliances:
  - name: Heater
    watts: 2000
  - name: Freezer
    watts: 150
    always_on: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, []float64{50, 50}, cfg.Schedule.Boundaries)
	assert.Equal(t, []float64{5, 10, 15}, cfg.Schedule.Rates)

	cat := cfg.Catalog()
	a, ok := cat.Lookup("freezer")
	require.True(t, ok)
	assert.True(t, a.AlwaysOn)
	_, ok = cat.Lookup("Fan")
	assert.True(t, ok, "defaults are kept")
}

func TestLoad_InvalidSchedule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schedule:\n  boundaries: [100]\n  rates: [1]\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_MQTTNeedsBroker(t *testing.T) {
	cfg := Config{DaysPerMonth: 30, MQTT: MQTTConfig{Enabled: true}}
	require.Error(t, cfg.Validate())
}

func TestTariffs_FileMergesWithDefaults(t *testing.T) {
	t.Setenv("SLABBILLER_TARIFFS_JSON", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "tariffs.yaml")
	doc := `tariffs:
  - key: pk-residential
    name: Revised
    boundaries: [100]
    rates: [10, 20]
  - key: commercial
    name: Commercial
    boundaries: []
    rates: [60]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg := &Config{TariffFile: path}
	list, err := cfg.Tariffs()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Revised", list[0].Name)
	assert.Equal(t, "commercial", list[1].Key)
}

func TestLoad_Report(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
report:
  schedule: "*/30 * * * *"
  usage:
    - "Fan:2:8"
    - "Refrigerator"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "*/30 * * * *", cfg.Report.Schedule)
	assert.Equal(t, []string{"Fan:2:8", "Refrigerator"}, cfg.Report.Usage)
}

func TestValidate_Report(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Report.Schedule = "every now and then"
	assert.Error(t, cfg.Validate())

	cfg.Report.Schedule = "600"
	cfg.Report.Usage = []string{"Fan:two"}
	assert.Error(t, cfg.Validate())
}
