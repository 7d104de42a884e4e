/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/friendsincode/timegate/internal/events"
	"github.com/rs/zerolog"
)

// MQTTBus mirrors events to an MQTT broker. Besides the event stream it keeps
// a retained "<topic>/state" message with the current blocking state so home
// automation sees it on connect.
type MQTTBus struct {
	*relay
	client mqtt.Client
	topic  string
	qos    byte
}

// MQTTConfig contains MQTT connection configuration.
type MQTTConfig struct {
	Broker         string
	Topic          string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
}

// DefaultMQTTConfig returns default MQTT configuration.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:         "tcp://127.0.0.1:1883",
		Topic:          "timegate",
		QoS:            1,
		ConnectTimeout: 5 * time.Second,
	}
}

// NewMQTTBus connects to the broker. The paho client reconnects on its own,
// so an unreachable broker at startup only delays remote delivery.
func NewMQTTBus(cfg MQTTConfig, nodeID string, logger zerolog.Logger) (*MQTTBus, error) {
	topic := strings.TrimSuffix(cfg.Topic, "/")
	if topic == "" {
		topic = "timegate"
	}
	mb := &MQTTBus{
		relay: newRelay("mqtt", nodeID, logger),
		topic: topic,
		qos:   cfg.QoS,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("timegate-" + nodeID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetWill(mb.stateTopic(), "offline", 1, true)
	opts.OnConnect = func(c mqtt.Client) {
		logger.Info().Str("broker", cfg.Broker).Msg("connected to MQTT broker")
		if token := c.Subscribe(mb.eventTopic("#"), mb.qos, func(_ mqtt.Client, m mqtt.Message) {
			mb.deliver(m.Payload())
		}); token.WaitTimeout(cfg.ConnectTimeout) && token.Error() != nil {
			logger.Warn().Err(token.Error()).Msg("MQTT subscribe failed")
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	}

	mb.client = mqtt.NewClient(opts)
	token := mb.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		logger.Warn().Str("broker", cfg.Broker).Msg("MQTT broker not reachable yet, retrying in background")
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", err)
	}

	mb.start(mb.send)
	return mb, nil
}

func (mb *MQTTBus) eventTopic(suffix string) string {
	return mb.topic + "/events/" + suffix
}

func (mb *MQTTBus) stateTopic() string {
	return mb.topic + "/state"
}

// stateFor maps transition events onto the retained state value.
func stateFor(t events.EventType) (string, bool) {
	switch t {
	case events.EventBlockingStarted:
		return "blocking", true
	case events.EventBlockingEnded:
		return "idle", true
	default:
		return "", false
	}
}

func (mb *MQTTBus) send(ctx context.Context, msg *message, data []byte) error {
	if !mb.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt not connected")
	}

	if err := mb.wait(ctx, mb.client.Publish(mb.eventTopic(string(msg.EventType)), mb.qos, false, data)); err != nil {
		return err
	}
	if state, ok := stateFor(msg.EventType); ok {
		return mb.wait(ctx, mb.client.Publish(mb.stateTopic(), 1, true, state))
	}
	return nil
}

func (mb *MQTTBus) wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close publishes the offline state and disconnects.
func (mb *MQTTBus) Close() error {
	mb.stop()
	if mb.client.IsConnectionOpen() {
		mb.client.Publish(mb.stateTopic(), 1, true, "offline").WaitTimeout(time.Second)
	}
	mb.client.Disconnect(250)
	mb.logger.Info().Msg("MQTT event bus closed")
	return nil
}
