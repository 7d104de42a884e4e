/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package action

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/friendsincode/timegate/internal/events"
	"github.com/friendsincode/timegate/internal/telemetry"
	"github.com/rs/zerolog"
)

// Dispatcher runs the executor off the caller's goroutine. At most one
// execution is in flight; triggers arriving meanwhile are dropped.
type Dispatcher struct {
	executor  Executor
	timeout   time.Duration
	publisher events.Publisher
	logger    zerolog.Logger

	inFlight atomic.Bool
	runs     atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. publisher may be nil.
func NewDispatcher(executor Executor, timeout time.Duration, publisher events.Publisher, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		executor:  executor,
		timeout:   timeout,
		publisher: publisher,
		logger:    logger.With().Str("component", "dispatcher").Str("executor", executor.Name()).Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Trigger starts the action and returns immediately.
func (d *Dispatcher) Trigger() {
	if !d.inFlight.CompareAndSwap(false, true) {
		telemetry.ActionSkippedTotal.Inc()
		d.logger.Warn().Msg("action already running, trigger dropped")
		return
	}

	d.wg.Add(1)
	go d.execute()
}

func (d *Dispatcher) execute() {
	defer d.wg.Done()
	defer d.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	started := time.Now()
	err := d.safeExecute(ctx)
	d.runs.Add(1)
	elapsed := time.Since(started)

	if err != nil {
		telemetry.ActionTriggersTotal.WithLabelValues(d.executor.Name(), "error").Inc()
		d.logger.Error().Err(err).Dur("elapsed", elapsed).Msg("blocking action failed")
		d.publish(events.EventActionFailed, events.Payload{
			"executor": d.executor.Name(),
			"error":    err.Error(),
		})
		return
	}

	telemetry.ActionTriggersTotal.WithLabelValues(d.executor.Name(), "ok").Inc()
	d.logger.Info().Dur("elapsed", elapsed).Msg("blocking action executed")
	d.publish(events.EventActionTriggered, events.Payload{
		"executor": d.executor.Name(),
		"at":       started,
	})
}

func (d *Dispatcher) safeExecute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return d.executor.Execute(ctx)
}

func (d *Dispatcher) publish(t events.EventType, p events.Payload) {
	if d.publisher != nil {
		d.publisher.Publish(t, p)
	}
}

// Runs reports how many executions have finished.
func (d *Dispatcher) Runs() uint64 {
	return d.runs.Load()
}

// Wait blocks until in-flight executions finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels a running execution and waits for it.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
