/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/friendsincode/timegate/internal/events"
	"github.com/friendsincode/timegate/internal/schedule"
	"github.com/rs/zerolog"
)

type fakeLoader struct {
	mu        sync.Mutex
	schedules []schedule.Schedule
	err       error
	calls     int
}

func (l *fakeLoader) LoadAllSchedules(context.Context) ([]schedule.Schedule, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.schedules, nil
}

func (l *fakeLoader) set(s []schedule.Schedule, err error) {
	l.mu.Lock()
	l.schedules, l.err = s, err
	l.mu.Unlock()
}

func (l *fakeLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestLoadStoreFailsClosed(t *testing.T) {
	loader := &fakeLoader{err: errors.New("disk on fire")}
	store, err := LoadStore(context.Background(), loader, time.Now())
	if err == nil || store != nil {
		t.Fatalf("expected failure and no store, got %v, %v", store, err)
	}

	loader.set(workHours(t), nil)
	store, err = LoadStore(context.Background(), loader, time.Now())
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	if len(store.Snapshot().Schedules()) != 1 {
		t.Fatal("expected loaded schedules in store")
	}
}

func TestReloadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	loader := &fakeLoader{schedules: workHours(t)}
	store, err := LoadStore(context.Background(), loader, time.Now())
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	pub := &recordingPublisher{}
	r := NewReloader(store, loader, pub, zerolog.Nop())

	loader.set(nil, errors.New("locked"))
	store.RequestReload()
	if err := r.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	snap := store.Snapshot()
	if len(snap.Schedules()) != 1 || snap.Version() != 1 {
		t.Fatalf("previous snapshot not kept: version %d, %d schedules", snap.Version(), len(snap.Schedules()))
	}
	if snap.ReloadRequested() {
		t.Fatal("failed reload should clear the pending request")
	}
	if pub.count(events.EventSchedulesReloadFailed) != 1 {
		t.Fatal("expected reload failure event")
	}

	loader.set(nil, nil)
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := store.Snapshot(); got.Version() != 2 || len(got.Schedules()) != 0 {
		t.Fatalf("unexpected snapshot after reload: version %d", got.Version())
	}
	if pub.count(events.EventSchedulesReloaded) != 1 {
		t.Fatal("expected reload event")
	}
}

func TestReloaderRunServesRequests(t *testing.T) {
	loader := &fakeLoader{}
	store, err := LoadStore(context.Background(), loader, time.Now())
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	r := NewReloader(store, loader, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	loader.set(workHours(t), nil)
	store.RequestReload()

	deadline := time.After(2 * time.Second)
	for store.Snapshot().Version() < 2 {
		select {
		case <-deadline:
			t.Fatal("reload request was not served")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
	if loader.callCount() != 2 {
		t.Fatalf("loader calls = %d, want 2", loader.callCount())
	}
}
