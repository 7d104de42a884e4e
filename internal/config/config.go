/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// ActionKind selects what happens when a blocking window begins.
type ActionKind string

const (
	ActionShutdown ActionKind = "shutdown"
	ActionCommand  ActionKind = "command"
	ActionLog      ActionKind = "log"
)

// EventBusBackend selects where watcher events are fanned out.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusRedis  EventBusBackend = "redis"
	EventBusNATS   EventBusBackend = "nats"
	EventBusMQTT   EventBusBackend = "mqtt"
)

// MinTickInterval is the finest evaluation granularity supported.
const MinTickInterval = time.Second

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	DBBackend   DatabaseBackend
	DBDSN       string

	// Watcher
	TickInterval      time.Duration
	SkipColdStart     bool
	CarryOverMidnight bool

	// Action dispatch
	Action        ActionKind
	ActionCommand string
	ActionTimeout time.Duration

	// HTTP API
	HTTPEnabled   bool
	HTTPBind      string
	HTTPPort      int
	JWTSigningKey string

	// Event fan-out
	EventBus      EventBusBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string
	MQTTBroker    string
	MQTTTopic     string
	InstanceID    string

	// Outbound webhooks
	WebhookURLs    []string
	WebhookSecret  string
	WebhookEvents  []string
	WebhookTimeout time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads a .env file when present, then environment variables, applies
// defaults, and validates the result. Variables already set in the process
// environment win over the .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := &Config{
		Environment: getEnvAny([]string{"TIMEGATE_ENV"}, "development"),
		DBBackend:   DatabaseBackend(strings.ToLower(getEnvAny([]string{"TIMEGATE_DB_BACKEND"}, string(DatabaseSQLite)))),
		DBDSN:       getEnvAny([]string{"TIMEGATE_DB_DSN", "DATABASE_URL"}, "timegate.sqlite"),

		TickInterval:      getEnvDurationAny([]string{"TIMEGATE_TICK_INTERVAL"}, time.Second),
		SkipColdStart:     getEnvBoolAny([]string{"TIMEGATE_SKIP_COLD_START"}, false),
		CarryOverMidnight: getEnvBoolAny([]string{"TIMEGATE_CARRY_OVER_MIDNIGHT"}, false),

		Action:        ActionKind(strings.ToLower(getEnvAny([]string{"TIMEGATE_ACTION"}, string(ActionShutdown)))),
		ActionCommand: getEnvAny([]string{"TIMEGATE_ACTION_COMMAND"}, ""),
		ActionTimeout: getEnvDurationAny([]string{"TIMEGATE_ACTION_TIMEOUT"}, 30*time.Second),

		HTTPEnabled:   getEnvBoolAny([]string{"TIMEGATE_HTTP_ENABLED"}, true),
		HTTPBind:      getEnvAny([]string{"TIMEGATE_HTTP_BIND"}, "127.0.0.1"),
		HTTPPort:      getEnvIntAny([]string{"TIMEGATE_HTTP_PORT"}, 7420),
		JWTSigningKey: getEnvAny([]string{"TIMEGATE_JWT_SIGNING_KEY"}, ""),

		EventBus:      EventBusBackend(strings.ToLower(getEnvAny([]string{"TIMEGATE_EVENT_BUS"}, string(EventBusMemory)))),
		RedisAddr:     getEnvAny([]string{"TIMEGATE_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"TIMEGATE_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"TIMEGATE_REDIS_DB"}, 0),
		NATSURL:       getEnvAny([]string{"TIMEGATE_NATS_URL"}, "nats://127.0.0.1:4222"),
		MQTTBroker:    getEnvAny([]string{"TIMEGATE_MQTT_BROKER"}, "tcp://127.0.0.1:1883"),
		MQTTTopic:     getEnvAny([]string{"TIMEGATE_MQTT_TOPIC"}, "timegate"),
		InstanceID:    getEnvAny([]string{"TIMEGATE_INSTANCE_ID"}, ""),

		WebhookURLs:    splitList(getEnvAny([]string{"TIMEGATE_WEBHOOK_URLS"}, "")),
		WebhookSecret:  getEnvAny([]string{"TIMEGATE_WEBHOOK_SECRET"}, ""),
		WebhookEvents:  splitList(getEnvAny([]string{"TIMEGATE_WEBHOOK_EVENTS"}, "blocking.started,blocking.ended,action.triggered,action.failed,schedules.reload_failed")),
		WebhookTimeout: getEnvDurationAny([]string{"TIMEGATE_WEBHOOK_TIMEOUT"}, 5*time.Second),

		TracingEnabled:    getEnvBoolAny([]string{"TIMEGATE_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"TIMEGATE_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"TIMEGATE_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite:
	default:
		return fmt.Errorf("unsupported database backend %q", c.DBBackend)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("TIMEGATE_DB_DSN must be provided")
	}

	if c.TickInterval < MinTickInterval {
		return fmt.Errorf("TIMEGATE_TICK_INTERVAL must be at least %s, got %s", MinTickInterval, c.TickInterval)
	}

	switch c.Action {
	case ActionShutdown, ActionLog:
	case ActionCommand:
		if strings.TrimSpace(c.ActionCommand) == "" {
			return fmt.Errorf("TIMEGATE_ACTION_COMMAND is required when TIMEGATE_ACTION=command")
		}
	default:
		return fmt.Errorf("unsupported action %q", c.Action)
	}
	if c.ActionTimeout <= 0 {
		return fmt.Errorf("TIMEGATE_ACTION_TIMEOUT must be positive")
	}

	switch c.EventBus {
	case EventBusMemory, EventBusRedis, EventBusNATS, EventBusMQTT:
	default:
		return fmt.Errorf("unsupported event bus %q", c.EventBus)
	}

	for _, raw := range c.WebhookURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid webhook URL %q", raw)
		}
	}
	if len(c.WebhookURLs) > 0 && c.WebhookTimeout <= 0 {
		return fmt.Errorf("TIMEGATE_WEBHOOK_TIMEOUT must be positive")
	}

	if c.HTTPEnabled && (c.HTTPPort <= 0 || c.HTTPPort > 65535) {
		return fmt.Errorf("TIMEGATE_HTTP_PORT out of range: %d", c.HTTPPort)
	}

	if c.IsProduction() && c.HTTPEnabled && !isLoopback(c.HTTPBind) && c.JWTSigningKey == "" {
		return fmt.Errorf("TIMEGATE_JWT_SIGNING_KEY must be set when the API listens on %s in production", c.HTTPBind)
	}

	return nil
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// HTTPAddr is the listen address of the API server.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTPBind, strconv.Itoa(c.HTTPPort))
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// splitList splits a comma separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny accepts Go duration strings ("90s", "1m") or a bare
// number of seconds.
func getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
