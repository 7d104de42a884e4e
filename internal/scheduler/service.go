/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/friendsincode/timegate/internal/events"
	"github.com/friendsincode/timegate/internal/schedule"
	"github.com/friendsincode/timegate/internal/scheduler/state"
	"github.com/friendsincode/timegate/internal/telemetry"
	"github.com/rs/zerolog"
)

// Dispatcher performs the blocking action. Trigger must return quickly; the
// watcher calls it from its own goroutine.
type Dispatcher interface {
	Trigger()
}

// Status describes the most recent evaluation.
type Status struct {
	Running         bool       `json:"running"`
	LastTick        time.Time  `json:"last_tick"`
	Ticks           uint64     `json:"ticks"`
	Blocking        bool       `json:"blocking"`
	State           string     `json:"state"`
	Triggers        uint64     `json:"triggers"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	ScheduleID      int        `json:"schedule_id,omitempty"`
	ScheduleName    string     `json:"schedule_name,omitempty"`
	WindowID        int        `json:"window_id,omitempty"`
	WindowStart     *time.Time `json:"window_start,omitempty"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	SnapshotVersion uint64     `json:"snapshot_version"`
	MatchMode       string     `json:"match_mode"`
}

// Service is the watcher loop: once per interval it evaluates the current
// snapshot, tracks the blocking edge and fires the dispatcher on entry.
type Service struct {
	store      *state.Store
	dispatcher Dispatcher
	publisher  events.Publisher
	evaluator  schedule.Evaluator
	tracker    *Tracker
	interval   time.Duration
	now        func() time.Time
	logger     zerolog.Logger

	mu     sync.RWMutex
	status Status
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithInterval sets the evaluation period. Values below one second are ignored.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= time.Second {
			s.interval = d
		}
	}
}

// WithEvaluator selects how windows are matched.
func WithEvaluator(e schedule.Evaluator) Option {
	return func(s *Service) { s.evaluator = e }
}

// WithPublisher sends watcher events to p.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithSkipColdStart suppresses the action when the first evaluation after
// start is already inside a window.
func WithSkipColdStart(skip bool) Option {
	return func(s *Service) { s.tracker = NewTracker(skip) }
}

// New constructs the watcher.
func New(store *state.Store, dispatcher Dispatcher, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		publisher:  nopPublisher{},
		tracker:    NewTracker(false),
		interval:   time.Second,
		now:        time.Now,
		logger:     logger.With().Str("component", "watcher").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.State = s.tracker.State().String()
	s.status.MatchMode = s.evaluator.Mode.String()
	return s
}

// Run evaluates immediately and then once per interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.setRunning(true)
	defer s.setRunning(false)

	s.logger.Info().
		Dur("interval", s.interval).
		Str("match_mode", s.evaluator.Mode.String()).
		Msg("watcher loop started")

	s.tick(s.now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("watcher loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick performs one evaluation cycle. It does no I/O besides non-blocking
// publishes and the dispatcher's asynchronous Trigger.
func (s *Service) tick(now time.Time) {
	started := time.Now()
	snap := s.store.Snapshot()

	match, blocking := s.evaluator.FirstBlocking(snap.Schedules(), now)
	transition := s.tracker.Observe(blocking)

	switch transition {
	case Entered:
		s.logger.Warn().
			Int("schedule_id", match.Schedule.ID()).
			Str("schedule", match.Schedule.Name()).
			Int("window_id", match.Window.ID()).
			Time("window_end", match.End).
			Msg("blocking window started")
		telemetry.BlockingTransitionsTotal.WithLabelValues("entered").Inc()
		s.publisher.Publish(events.EventBlockingStarted, matchPayload(match, now))
		s.dispatcher.Trigger()
	case Exited:
		s.logger.Info().Msg("blocking window ended")
		telemetry.BlockingTransitionsTotal.WithLabelValues("exited").Inc()
		s.publisher.Publish(events.EventBlockingEnded, events.Payload{"at": now})
	}

	s.record(now, snap, match, blocking, transition == Entered)

	if blocking {
		telemetry.Blocking.Set(1)
	} else {
		telemetry.Blocking.Set(0)
	}
	telemetry.WatcherTicksTotal.Inc()
	telemetry.WatcherTickDuration.Observe(time.Since(started).Seconds())

	s.publisher.Publish(events.EventWatcherTick, events.Payload{"at": now, "blocking": blocking})
}

func (s *Service) record(now time.Time, snap *state.Snapshot, match schedule.Match, blocking, triggered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.status
	st.LastTick = now
	st.Ticks++
	st.Blocking = blocking
	st.State = s.tracker.State().String()
	st.SnapshotVersion = snap.Version()
	if triggered {
		st.Triggers++
		at := now
		st.LastTriggeredAt = &at
	}

	if blocking {
		start, end := match.Start, match.End
		st.ScheduleID = match.Schedule.ID()
		st.ScheduleName = match.Schedule.Name()
		st.WindowID = match.Window.ID()
		st.WindowStart = &start
		st.WindowEnd = &end
	} else {
		st.ScheduleID, st.ScheduleName, st.WindowID = 0, "", 0
		st.WindowStart, st.WindowEnd = nil, nil
	}
}

func (s *Service) setRunning(running bool) {
	s.mu.Lock()
	s.status.Running = running
	s.mu.Unlock()
}

// Status returns a copy of the latest evaluation state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func matchPayload(m schedule.Match, now time.Time) events.Payload {
	return events.Payload{
		"at":            now,
		"schedule_id":   m.Schedule.ID(),
		"schedule_name": m.Schedule.Name(),
		"window_id":     m.Window.ID(),
		"window_start":  m.Start,
		"window_end":    m.End,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.EventType, events.Payload) {}
