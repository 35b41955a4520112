package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bher20/slabbiller/internal/cron"
	"github.com/bher20/slabbiller/internal/tariffs"
	"github.com/bher20/slabbiller/internal/usage"
	"github.com/bher20/slabbiller/pkg/slab"
)

const envPrefix = "SLABBILLER"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	MQTT   MQTTConfig   `mapstructure:"mqtt"`
	Alert  AlertConfig  `mapstructure:"alert"`
	Report ReportConfig `mapstructure:"report"`

	// Tariff is the default tariff key.
	Tariff string `mapstructure:"tariff"`
	// TariffFile optionally points at a YAML file of extra tariffs.
	TariffFile string `mapstructure:"tariff_file"`
	// Schedule, when set, replaces the schedule of the default tariff.
	Schedule     slab.ScheduleConfig `mapstructure:"schedule"`
	DaysPerMonth int                 `mapstructure:"days_per_month"`
	// Appliances are added to (or replace entries of) the default catalog.
	Appliances []usage.Appliance `mapstructure:"appliances"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MQTTConfig controls publication of estimates to an MQTT broker.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// AlertConfig controls high-usage webhook alerts. Alerts are off while
// WebhookURL is empty.
type AlertConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	// WebhookType is "slack", "discord" or "generic"; detected from the URL
	// when empty.
	WebhookType string `mapstructure:"webhook_type"`
	// MinUnits is the monthly consumption at which an alert fires.
	MinUnits float64       `mapstructure:"min_units"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// EmailTo enables e-mail alerts through SendGrid.
	EmailTo        string `mapstructure:"email_to"`
	EmailFrom      string `mapstructure:"email_from"`
	EmailFromName  string `mapstructure:"email_from_name"`
	SendgridAPIKey string `mapstructure:"sendgrid_api_key"`
	// SendgridHost overrides the API host, e.g. the EU region endpoint.
	SendgridHost string `mapstructure:"sendgrid_host"`
}

// ReportConfig schedules a recurring household estimate that the server
// publishes and checks against the alert threshold.
type ReportConfig struct {
	// Schedule is a number of seconds or a cron expression; empty disables
	// the report.
	Schedule       string   `mapstructure:"schedule"`
	Tariff         string   `mapstructure:"tariff"`
	DefaultProfile bool     `mapstructure:"default_profile"`
	Usage          []string `mapstructure:"usage"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("tariff", tariffs.DefaultKey)
	v.SetDefault("tariff_file", "")
	v.SetDefault("days_per_month", usage.DaysPerMonth)
	v.SetDefault("schedule.boundaries", []float64{})
	v.SetDefault("schedule.rates", []float64{})
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "slabbiller")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "electric_bill")
	v.SetDefault("alert.webhook_url", "")
	v.SetDefault("alert.webhook_type", "")
	v.SetDefault("alert.min_units", 300)
	v.SetDefault("alert.timeout", "10s")
	v.SetDefault("alert.email_to", "")
	v.SetDefault("alert.email_from", "")
	v.SetDefault("alert.email_from_name", "slabbiller")
	v.SetDefault("alert.sendgrid_api_key", "")
	v.SetDefault("alert.sendgrid_host", "")
	v.SetDefault("report.schedule", "")
	v.SetDefault("report.tariff", "")
	v.SetDefault("report.default_profile", false)
}

// Load builds a Config from defaults, an optional config file and
// SLABBILLER_* environment variables (SLABBILLER_SERVER_ADDR, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	if c.DaysPerMonth <= 0 {
		return fmt.Errorf("config: days_per_month must be positive, got %d", c.DaysPerMonth)
	}
	if !c.Schedule.IsZero() {
		if _, err := c.Schedule.Schedule(); err != nil {
			return fmt.Errorf("config: schedule: %w", err)
		}
	}
	for _, a := range c.Appliances {
		if strings.TrimSpace(a.Name) == "" || a.Watts < 0 {
			return fmt.Errorf("config: invalid appliance %+v", a)
		}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("config: mqtt.broker is required when mqtt is enabled")
	}
	if c.Report.Schedule != "" {
		if _, err := cron.ParseSchedule(c.Report.Schedule); err != nil {
			return fmt.Errorf("config: report.schedule: %w", err)
		}
	}
	for _, raw := range c.Report.Usage {
		if _, err := usage.ParseEntry(raw); err != nil {
			return fmt.Errorf("config: report.usage: %w", err)
		}
	}
	if c.Alert.MinUnits < 0 {
		return fmt.Errorf("config: alert.min_units must not be negative")
	}
	if c.Alert.EmailTo != "" && (c.Alert.SendgridAPIKey == "" || c.Alert.EmailFrom == "") {
		return fmt.Errorf("config: alert.email_to requires alert.email_from and alert.sendgrid_api_key")
	}
	return nil
}

// Catalog returns the default appliance catalog extended with configured
// appliances.
func (c *Config) Catalog() *usage.Catalog {
	cat := usage.DefaultCatalog()
	for _, a := range c.Appliances {
		cat.Register(a)
	}
	return cat
}

// Tariffs returns the built-in tariffs plus any from TariffFile. File
// entries replace built-ins with the same key.
func (c *Config) Tariffs() ([]tariffs.Descriptor, error) {
	list := tariffs.All()
	if c.TariffFile == "" {
		return list, nil
	}
	extra, err := tariffs.LoadFile(c.TariffFile)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]int, len(list))
	for i, d := range list {
		byKey[d.Key] = i
	}
	for _, d := range extra {
		if i, ok := byKey[d.Key]; ok {
			list[i] = d
			continue
		}
		byKey[d.Key] = len(list)
		list = append(list, d)
	}
	return list, nil
}
