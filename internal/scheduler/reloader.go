/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/timegate/internal/events"
	"github.com/friendsincode/timegate/internal/schedule"
	"github.com/friendsincode/timegate/internal/scheduler/state"
	"github.com/friendsincode/timegate/internal/telemetry"
	"github.com/rs/zerolog"
)

// Loader supplies validated schedules from storage.
type Loader interface {
	LoadAllSchedules(ctx context.Context) ([]schedule.Schedule, error)
}

// LoadStore performs the startup load. A failed load returns an error and no
// store, so callers cannot start the watcher with an empty schedule set.
func LoadStore(ctx context.Context, loader Loader, now time.Time) (*state.Store, error) {
	schedules, err := loader.LoadAllSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial schedule load: %w", err)
	}
	store := state.NewStore(schedules, now)
	recordSnapshot(store.Snapshot())
	return store, nil
}

// Reloader refreshes the store when a reload is requested. Loading happens on
// the reloader's goroutine, never inside a watcher tick.
type Reloader struct {
	store     *state.Store
	loader    Loader
	publisher events.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewReloader wires a reloader. publisher may be nil.
func NewReloader(store *state.Store, loader Loader, publisher events.Publisher, logger zerolog.Logger) *Reloader {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Reloader{
		store:     store,
		loader:    loader,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With().Str("component", "reloader").Logger(),
	}
}

// Run serves reload requests until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.store.ReloadRequests():
			_ = r.Reload(ctx)
		}
	}
}

// Reload loads schedules and swaps the snapshot. On failure the previous
// snapshot stays in effect.
func (r *Reloader) Reload(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "scheduler.Reload")
	defer span.End()

	schedules, err := r.loader.LoadAllSchedules(ctx)
	if err != nil {
		r.store.ClearReloadRequest()
		telemetry.RecordError(span, err)
		prev := r.store.Snapshot()
		r.logger.Error().
			Err(err).
			Uint64("kept_version", prev.Version()).
			Int("kept_schedules", len(prev.Schedules())).
			Msg("schedule reload failed, keeping previous schedules")
		r.publisher.Publish(events.EventSchedulesReloadFailed, events.Payload{
			"error":        err.Error(),
			"kept_version": prev.Version(),
		})
		return err
	}

	snap := r.store.Replace(schedules, r.now())
	recordSnapshot(snap)

	r.logger.Info().
		Uint64("version", snap.Version()).
		Int("schedules", len(snap.Schedules())).
		Int("windows", snap.WindowCount()).
		Msg("schedules reloaded")
	r.publisher.Publish(events.EventSchedulesReloaded, events.Payload{
		"version":   snap.Version(),
		"schedules": len(snap.Schedules()),
		"windows":   snap.WindowCount(),
	})
	return nil
}

func recordSnapshot(snap *state.Snapshot) {
	telemetry.SchedulesLoaded.Set(float64(len(snap.Schedules())))
	telemetry.WindowsLoaded.Set(float64(snap.WindowCount()))
}
