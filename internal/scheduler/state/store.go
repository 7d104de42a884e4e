/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package state

import (
	"sync"
	"time"

	"github.com/friendsincode/timegate/internal/schedule"
)

// Snapshot is an immutable view of the schedule set. Replacing the set
// installs a new Snapshot; existing ones are never modified.
type Snapshot struct {
	schedules       []schedule.Schedule
	reloadRequested bool
	loadedAt        time.Time
	version         uint64
}

// Schedules returns the schedules of the snapshot. The slice is shared by all
// readers of this snapshot and must not be modified.
func (s *Snapshot) Schedules() []schedule.Schedule { return s.schedules }
func (s *Snapshot) ReloadRequested() bool         { return s.reloadRequested }
func (s *Snapshot) LoadedAt() time.Time           { return s.loadedAt }
func (s *Snapshot) Version() uint64               { return s.version }

// WindowCount sums the windows of every schedule in the snapshot.
func (s *Snapshot) WindowCount() int {
	n := 0
	for _, sc := range s.schedules {
		n += sc.WindowCount()
	}
	return n
}

// Store holds the current snapshot behind a read/write lock.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	reload  chan struct{}
}

// NewStore creates a store seeded with an initial schedule set.
func NewStore(schedules []schedule.Schedule, loadedAt time.Time) *Store {
	return &Store{
		current: &Snapshot{schedules: cloneSchedules(schedules), loadedAt: loadedAt, version: 1},
		reload:  make(chan struct{}, 1),
	}
}

// Snapshot returns the current snapshot. Readers holding it keep a consistent
// view even if Replace runs concurrently.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace installs a new schedule set and clears any pending reload request.
func (s *Store) Replace(schedules []schedule.Schedule, loadedAt time.Time) *Snapshot {
	next := &Snapshot{schedules: cloneSchedules(schedules), loadedAt: loadedAt}

	s.mu.Lock()
	next.version = s.current.version + 1
	s.current = next
	s.mu.Unlock()

	return next
}

// RequestReload marks the current snapshot as stale and wakes whoever listens
// on ReloadRequests. Repeated requests before the reload runs collapse into one.
func (s *Store) RequestReload() {
	s.mu.Lock()
	if !s.current.reloadRequested {
		marked := *s.current
		marked.reloadRequested = true
		s.current = &marked
	}
	s.mu.Unlock()

	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// ClearReloadRequest drops a pending request without replacing the schedules,
// used when a reload attempt failed and the previous set stays in effect.
func (s *Store) ClearReloadRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.reloadRequested {
		cleared := *s.current
		cleared.reloadRequested = false
		s.current = &cleared
	}
}

// ReloadRequests signals once per batch of RequestReload calls.
func (s *Store) ReloadRequests() <-chan struct{} {
	return s.reload
}

func cloneSchedules(in []schedule.Schedule) []schedule.Schedule {
	out := make([]schedule.Schedule, len(in))
	copy(out, in)
	return out
}
