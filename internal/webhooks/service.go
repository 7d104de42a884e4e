/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package webhooks posts watcher events to operator supplied HTTP endpoints.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/timegate/internal/events"
	"github.com/friendsincode/timegate/internal/telemetry"
)

// Payload is the body sent to webhook endpoints.
type Payload struct {
	Event     events.EventType `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
	Data      events.Payload   `json:"data"`
}

// EventSource is the subset of the event bus the service listens on.
type EventSource interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
}

// Config selects targets and events.
type Config struct {
	URLs    []string
	Secret  string
	Events  []string
	Timeout time.Duration
}

// Service handles webhook delivery.
type Service struct {
	urls   []string
	secret string
	events []events.EventType
	bus    EventSource
	logger zerolog.Logger
	client *http.Client
}

// NewService creates a new webhook service. Unknown event names are ignored
// with a warning.
func NewService(cfg Config, bus EventSource, logger zerolog.Logger) *Service {
	logger = logger.With().Str("component", "webhooks").Logger()

	var types []events.EventType
	for _, name := range cfg.Events {
		t := events.EventType(name)
		if !slices.Contains(events.AllEventTypes, t) {
			logger.Warn().Str("event", name).Msg("ignoring unknown webhook event")
			continue
		}
		types = append(types, t)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Service{
		urls:   cfg.URLs,
		secret: cfg.Secret,
		events: types,
		bus:    bus,
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether there is anything to deliver.
func (s *Service) Enabled() bool {
	return len(s.urls) > 0 && len(s.events) > 0
}

// Run delivers subscribed events until ctx is cancelled. Deliveries happen
// one at a time; events of the same type arrive in publish order.
func (s *Service) Run(ctx context.Context) error {
	if !s.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}

	type delivery struct {
		eventType events.EventType
		payload   events.Payload
	}
	queue := make(chan delivery, 32)

	subs := make([]events.Subscriber, len(s.events))
	for i, t := range s.events {
		subs[i] = s.bus.Subscribe(t)
	}
	defer func() {
		for i, t := range s.events {
			s.bus.Unsubscribe(t, subs[i])
		}
	}()

	for i, t := range s.events {
		go func(t events.EventType, sub events.Subscriber) {
			for {
				select {
				case <-ctx.Done():
					return
				case p, ok := <-sub:
					if !ok {
						return
					}
					select {
					case queue <- delivery{eventType: t, payload: p}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(t, subs[i])
	}

	s.logger.Info().Int("targets", len(s.urls)).Int("events", len(s.events)).Msg("webhook service started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-queue:
			s.fire(ctx, d.eventType, d.payload)
		}
	}
}

func (s *Service) fire(ctx context.Context, eventType events.EventType, data events.Payload) {
	body, err := json.Marshal(Payload{Event: eventType, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		s.logger.Error().Err(err).Str("event", string(eventType)).Msg("failed to marshal webhook payload")
		return
	}
	for _, url := range s.urls {
		if err := s.send(ctx, url, eventType, body); err != nil {
			telemetry.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Str("url", url).Str("event", string(eventType)).Msg("webhook delivery failed")
			continue
		}
		telemetry.WebhookDeliveriesTotal.WithLabelValues("success").Inc()
		s.logger.Debug().Str("url", url).Str("event", string(eventType)).Msg("webhook delivered")
	}
}

func (s *Service) send(ctx context.Context, url string, eventType events.EventType, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "timegate-webhook/1.0")
	req.Header.Set("X-Timegate-Event", string(eventType))
	req.Header.Set("X-Timegate-Delivery", uuid.NewString())
	req.Header.Set("X-Timegate-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	if s.secret != "" {
		req.Header.Set("X-Timegate-Signature", Sign(body, s.secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the HMAC-SHA256 signature header value for body.
func Sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
