package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite || cfg.DBDSN != "timegate.sqlite" {
		t.Fatalf("unexpected database defaults: %s %q", cfg.DBBackend, cfg.DBDSN)
	}
	if cfg.TickInterval != time.Second {
		t.Fatalf("tick interval = %s, want 1s", cfg.TickInterval)
	}
	if cfg.Action != ActionShutdown {
		t.Fatalf("action = %q, want shutdown", cfg.Action)
	}
	if cfg.HTTPAddr() != "127.0.0.1:7420" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr())
	}
	if cfg.SkipColdStart || cfg.CarryOverMidnight {
		t.Fatal("cold start and carry-over must default to false")
	}
}

func TestLoadReadsEnvKeys(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TIMEGATE_DB_BACKEND", "Postgres")
	t.Setenv("TIMEGATE_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("TIMEGATE_TICK_INTERVAL", "5")
	t.Setenv("TIMEGATE_ACTION", "command")
	t.Setenv("TIMEGATE_ACTION_COMMAND", "loginctl lock-session")
	t.Setenv("TIMEGATE_ACTION_TIMEOUT", "2m")
	t.Setenv("TIMEGATE_SKIP_COLD_START", "yes")
	t.Setenv("TIMEGATE_EVENT_BUS", "mqtt")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabasePostgres {
		t.Fatalf("backend = %q", cfg.DBBackend)
	}
	if cfg.TickInterval != 5*time.Second {
		t.Fatalf("tick interval = %s, want 5s", cfg.TickInterval)
	}
	if cfg.ActionTimeout != 2*time.Minute {
		t.Fatalf("action timeout = %s", cfg.ActionTimeout)
	}
	if !cfg.SkipColdStart {
		t.Fatal("expected skip cold start")
	}
	if cfg.EventBus != EventBusMQTT {
		t.Fatalf("event bus = %q", cfg.EventBus)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".env", "TIMEGATE_HTTP_PORT=9100\nTIMEGATE_ACTION=log\n")
	t.Setenv("TIMEGATE_ACTION", "shutdown")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != 9100 {
		t.Fatalf("http port = %d, want value from .env", cfg.HTTPPort)
	}
	if cfg.Action != ActionShutdown {
		t.Fatalf("process env must win over .env, got %q", cfg.Action)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"backend", map[string]string{"TIMEGATE_DB_BACKEND": "oracle"}, "database backend"},
		{"sub-second tick", map[string]string{"TIMEGATE_TICK_INTERVAL": "500ms"}, "TICK_INTERVAL"},
		{"action", map[string]string{"TIMEGATE_ACTION": "hibernate"}, "unsupported action"},
		{"command without command", map[string]string{"TIMEGATE_ACTION": "command"}, "ACTION_COMMAND"},
		{"bus", map[string]string{"TIMEGATE_EVENT_BUS": "kafka"}, "event bus"},
		{"port", map[string]string{"TIMEGATE_HTTP_PORT": "70000"}, "HTTP_PORT"},
		{"webhook scheme", map[string]string{"TIMEGATE_WEBHOOK_URLS": "ftp://hooks.local/x"}, "webhook URL"},
		{
			"production public api without key",
			map[string]string{"TIMEGATE_ENV": "production", "TIMEGATE_HTTP_BIND": "0.0.0.0"},
			"JWT_SIGNING_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestProductionLoopbackNeedsNoKey(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TIMEGATE_ENV", "production")
	t.Setenv("TIMEGATE_HTTP_BIND", "localhost")

	if _, err := Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}
}

func TestLoadWebhookSettings(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TIMEGATE_WEBHOOK_URLS", " https://hooks.example.com/a , ,http://127.0.0.1:9000/b")
	t.Setenv("TIMEGATE_WEBHOOK_EVENTS", "blocking.started")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.WebhookURLs) != 2 || cfg.WebhookURLs[0] != "https://hooks.example.com/a" {
		t.Fatalf("unexpected webhook urls: %q", cfg.WebhookURLs)
	}
	if len(cfg.WebhookEvents) != 1 || cfg.WebhookEvents[0] != "blocking.started" {
		t.Fatalf("unexpected webhook events: %q", cfg.WebhookEvents)
	}
	if cfg.WebhookTimeout != 5*time.Second {
		t.Fatalf("unexpected webhook timeout: %s", cfg.WebhookTimeout)
	}
}
