/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const natsSubjectPrefix = "timegate.events."

// NATSBus mirrors events over NATS core subjects.
type NATSBus struct {
	*relay
	conn *nats.Conn
	sub  *nats.Subscription
}

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string

	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewNATSBus connects to NATS. An unreachable server leaves the bus in
// local-only mode; the client keeps retrying in the background.
func NewNATSBus(cfg NATSConfig, nodeID string, logger zerolog.Logger) (*NATSBus, error) {
	nb := &NATSBus{relay: newRelay("nats", nodeID, logger)}

	opts := []nats.Option{
		nats.Name("timegate-" + nodeID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		logger.Warn().Err(err).Str("url", cfg.URL).Msg("NATS unavailable, events stay local")
		nb.start(func(context.Context, *message, []byte) error {
			return errors.New("nats not connected")
		})
		return nb, nil
	}
	nb.conn = conn

	sub, err := conn.Subscribe(natsSubjectPrefix+">", func(m *nats.Msg) {
		nb.deliver(m.Data)
	})
	if err != nil {
		conn.Close()
		nb.stop()
		return nil, err
	}
	nb.sub = sub

	nb.start(nb.send)
	logger.Info().Str("url", cfg.URL).Str("node_id", nodeID).Msg("NATS event bus initialized")
	return nb, nil
}

func (nb *NATSBus) send(_ context.Context, msg *message, data []byte) error {
	return nb.conn.Publish(natsSubjectPrefix+string(msg.EventType), data)
}

// Close drains the subscription and closes the connection.
func (nb *NATSBus) Close() error {
	nb.stop()
	if nb.conn == nil {
		return nil
	}
	if nb.sub != nil {
		_ = nb.sub.Unsubscribe()
	}
	nb.conn.Close()
	nb.logger.Info().Msg("NATS event bus closed")
	return nil
}
