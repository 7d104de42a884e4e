/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/timegate/internal/action"
	"github.com/friendsincode/timegate/internal/api"
	"github.com/friendsincode/timegate/internal/config"
	"github.com/friendsincode/timegate/internal/db"
	"github.com/friendsincode/timegate/internal/eventbus"
	"github.com/friendsincode/timegate/internal/repository"
	"github.com/friendsincode/timegate/internal/schedule"
	"github.com/friendsincode/timegate/internal/scheduler"
	schedulerstate "github.com/friendsincode/timegate/internal/scheduler/state"
	"github.com/friendsincode/timegate/internal/telemetry"
	"github.com/friendsincode/timegate/internal/webhooks"
)

const connectionMetricsInterval = 30 * time.Second

// Server bundles the watcher, its supporting services and the HTTP API.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db         *gorm.DB
	repo       *repository.Repository
	store      *schedulerstate.Store
	bus        eventbus.Bus
	dispatcher *action.Dispatcher
	watcher    *scheduler.Service
	reloader   *scheduler.Reloader
	api        *api.API
	webhooks   *webhooks.Service

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New wires every component. It fails if the schedules cannot be loaded:
// the watcher never starts with an empty or partial schedule set.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(accessLog(logger))
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("timegate-api"))
	router.Use(telemetry.MetricsMiddleware)
	// The events WebSocket is long-lived; everything else gets a deadline.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("database migrate: %w", err)
	}

	s.repo = repository.New(database, s.logger)

	store, err := scheduler.LoadStore(context.Background(), s.repo, time.Now())
	if err != nil {
		return err
	}
	s.store = store

	bus, err := eventbus.New(s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	s.bus = bus
	s.DeferClose(bus.Close)

	executor, err := action.Select(s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("action: %w", err)
	}
	s.dispatcher = action.NewDispatcher(executor, s.cfg.ActionTimeout, bus, s.logger)
	s.DeferClose(func() error {
		s.dispatcher.Close()
		return nil
	})

	mode := schedule.MatchSameDay
	if s.cfg.CarryOverMidnight {
		mode = schedule.MatchCarryOver
	}
	s.watcher = scheduler.New(store, s.dispatcher, s.logger,
		scheduler.WithInterval(s.cfg.TickInterval),
		scheduler.WithEvaluator(schedule.Evaluator{Mode: mode}),
		scheduler.WithPublisher(bus),
		scheduler.WithSkipColdStart(s.cfg.SkipColdStart),
	)
	s.reloader = scheduler.NewReloader(store, s.repo, bus, s.logger)

	var secret []byte
	if s.cfg.JWTSigningKey != "" {
		secret = []byte(s.cfg.JWTSigningKey)
	} else if s.cfg.HTTPEnabled {
		s.logger.Warn().Msg("TIMEGATE_JWT_SIGNING_KEY not set: API reload endpoint disabled")
	}
	s.api = api.New(store, s.watcher, bus, secret, s.logger)

	s.webhooks = webhooks.NewService(webhooks.Config{
		URLs:    s.cfg.WebhookURLs,
		Secret:  s.cfg.WebhookSecret,
		Events:  s.cfg.WebhookEvents,
		Timeout: s.cfg.WebhookTimeout,
	}, bus, s.logger)

	snap := store.Snapshot()
	s.logger.Info().
		Int("schedules", len(snap.Schedules())).
		Int("windows", snap.WindowCount()).
		Str("action", executor.Name()).
		Str("match_mode", mode.String()).
		Dur("interval", s.cfg.TickInterval).
		Msg("schedules loaded")

	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}

// Router exposes the HTTP handler tree.
func (s *Server) Router() http.Handler {
	return s.router
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Store exposes the shared schedule store.
func (s *Server) Store() *schedulerstate.Store {
	return s.store
}

// Watcher exposes the watcher loop.
func (s *Server) Watcher() *scheduler.Service {
	return s.watcher
}

// RequestReload asks the reloader to refresh schedules from storage.
func (s *Server) RequestReload() {
	s.store.RequestReload()
}

// Run starts the background workers and, when enabled, the HTTP listener.
// It blocks until ctx is cancelled or the listener fails, then shuts
// everything down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	if s.cfg.HTTPEnabled {
		ln, err := net.Listen("tcp", s.httpServer.Addr)
		if err != nil {
			_ = s.Close()
			return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
		}
		go func() {
			s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
			if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	s.startBackgroundWorkers()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	s.logger.Info().Msg("shutting down gracefully...")

	if s.cfg.HTTPEnabled {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		cancel()
	}

	if err := s.Close(); err != nil {
		s.logger.Error().Err(err).Msg("shutdown cleanup failed")
	}
	return runErr
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("watcher loop exited")
		}
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.reloader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("reloader exited")
		}
	}()

	if s.webhooks.Enabled() {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.webhooks.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("webhook service exited")
			}
		}()
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(connectionMetricsInterval)
		defer ticker.Stop()
		for {
			db.UpdateConnectionMetrics(s.db)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}
