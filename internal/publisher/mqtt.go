// Package publisher sends bill estimates to an MQTT broker, e.g. for a Home
// Assistant sensor.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/config"
	"github.com/bher20/slabbiller/internal/estimate"
	"github.com/bher20/slabbiller/internal/metrics"
)

const publishTimeout = 10 * time.Second

// client is the subset of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher publishes estimates. A Publisher built from a disabled config
// does nothing.
type Publisher struct {
	client      client
	topicPrefix string
	log         *zap.Logger
}

// New connects to the configured broker.
func New(cfg config.MQTTConfig, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		return &Publisher{log: log}, nil
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "slabbiller"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	log.Info("connected to MQTT broker", zap.String("broker", cfg.Broker), zap.String("client_id", clientID))

	return newWithClient(c, cfg.TopicPrefix, log), nil
}

func newWithClient(c client, prefix string, log *zap.Logger) *Publisher {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "electric_bill"
	}
	return &Publisher{client: c, topicPrefix: prefix, log: log}
}

// Enabled reports whether estimates are actually sent anywhere.
func (p *Publisher) Enabled() bool {
	return p.client != nil
}

// Publish sends the full estimate as retained JSON to <prefix>/estimate and
// the total cost to <prefix>/total_cost.
func (p *Publisher) Publish(ctx context.Context, est *estimate.Estimate) error {
	if !p.Enabled() {
		return nil
	}
	payload, err := json.Marshal(est)
	if err != nil {
		return fmt.Errorf("marshaling estimate: %w", err)
	}

	msgs := []struct {
		topic   string
		payload []byte
	}{
		{p.topicPrefix + "/estimate", payload},
		{p.topicPrefix + "/total_cost", []byte(strconv.FormatFloat(est.TotalCost, 'f', 2, 64))},
	}
	for _, m := range msgs {
		if err := p.publish(ctx, m.topic, m.payload); err != nil {
			metrics.PublishFailuresTotal.Inc()
			return err
		}
	}
	p.log.Info("published estimate", zap.String("id", est.ID), zap.String("topic_prefix", p.topicPrefix))
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, true, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	case <-time.After(publishTimeout):
		return fmt.Errorf("publishing to %s: timed out after %s", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}
