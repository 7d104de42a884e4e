/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/friendsincode/timegate/internal/auth"
	"github.com/friendsincode/timegate/internal/events"
	"github.com/friendsincode/timegate/internal/scheduler"
	"github.com/friendsincode/timegate/internal/scheduler/state"
)

// StatusSource reports the watcher's most recent evaluation.
type StatusSource interface {
	Status() scheduler.Status
}

// EventSource is the subset of the event bus the API streams from.
type EventSource interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
}

// API exposes the local control surface: status, the loaded schedules,
// reload requests and a live event stream.
type API struct {
	store     *state.Store
	watcher   StatusSource
	bus       EventSource
	jwtSecret []byte
	logger    zerolog.Logger

	reloadLimit int
}

// New creates the API router wrapper.
func New(store *state.Store, watcher StatusSource, bus EventSource, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		store:       store,
		watcher:     watcher,
		bus:         bus,
		jwtSecret:   jwtSecret,
		logger:      logger.With().Str("component", "api").Logger(),
		reloadLimit: 6,
	}
}

// Routes mounts API routes on provided router.
//
// Without a signing key the read endpoints are open and every mutating
// endpoint answers 403. With a key, reads need the read scope and reloads
// need the reload scope.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			if a.authEnabled() {
				pr.Use(auth.Middleware(a.jwtSecret))
				pr.Use(auth.RequireScope(auth.ScopeRead))
			}
			pr.Get("/status", a.handleStatus)
			pr.Get("/schedules", a.handleSchedules)
			pr.Get("/events", a.handleEvents)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(httprate.LimitByIP(a.reloadLimit, time.Minute))
			if a.authEnabled() {
				pr.Use(auth.Middleware(a.jwtSecret))
				pr.Use(auth.RequireScope(auth.ScopeReload))
			} else {
				pr.Use(a.mutationsDisabled)
			}
			pr.Post("/reload", a.handleReload)
		})
	})
}

func (a *API) authEnabled() bool {
	return len(a.jwtSecret) > 0
}

func (a *API) mutationsDisabled(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusForbidden, "mutations_disabled")
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	scheduler.Status
	Schedules       int       `json:"schedules"`
	Windows         int       `json:"windows"`
	LoadedAt        time.Time `json:"loaded_at"`
	ReloadRequested bool      `json:"reload_requested"`
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := a.store.Snapshot()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:          a.watcher.Status(),
		Schedules:       len(snap.Schedules()),
		Windows:         snap.WindowCount(),
		LoadedAt:        snap.LoadedAt(),
		ReloadRequested: snap.ReloadRequested(),
	})
}

func (a *API) handleSchedules(w http.ResponseWriter, r *http.Request) {
	snap := a.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":   snap.Version(),
		"loaded_at": snap.LoadedAt(),
		"schedules": scheduleViews(snap.Schedules()),
	})
}

func (a *API) handleReload(w http.ResponseWriter, r *http.Request) {
	a.store.RequestReload()

	evt := a.logger.Info()
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		evt = evt.Str("subject", claims.Subject)
	}
	evt.Str("remote_addr", r.RemoteAddr).Msg("schedule reload requested")

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reload_requested"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
