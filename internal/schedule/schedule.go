/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import "time"

// Schedule is a named collection of windows that can be switched on and off as a whole.
type Schedule struct {
	id      int
	name    string
	active  bool
	windows []Window
}

// NewSchedule builds a schedule that owns a copy of windows.
// Zero-value windows are rejected since they were never validated.
func NewSchedule(id int, name string, active bool, windows []Window) (Schedule, error) {
	owned := make([]Window, len(windows))
	for i, w := range windows {
		if !w.weekday.Valid() {
			return Schedule{}, &ValidationError{Field: "window", Value: w.id, Err: ErrInvalidWeekday}
		}
		owned[i] = w
	}
	return Schedule{
		id:      id,
		name:    name,
		active:  active,
		windows: owned,
	}, nil
}

func (s Schedule) ID() int          { return s.id }
func (s Schedule) Name() string     { return s.name }
func (s Schedule) Active() bool     { return s.active }
func (s Schedule) WindowCount() int { return len(s.windows) }

// Windows returns a copy of the schedule's windows in their stored order.
func (s Schedule) Windows() []Window {
	out := make([]Window, len(s.windows))
	copy(out, s.windows)
	return out
}

// Blocks reports whether an active window of s contains now.
func (s Schedule) Blocks(now time.Time) bool {
	return Evaluator{}.ScheduleBlocks(s, now)
}
