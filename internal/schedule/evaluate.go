/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import "time"

// MatchMode selects how windows that run past midnight are evaluated.
type MatchMode int

const (
	// MatchSameDay compares now only against the window started on now's own date,
	// so a window stops matching at midnight even if its duration runs longer.
	MatchSameDay MatchMode = iota

	// MatchCarryOver additionally compares now against the window started the previous day.
	MatchCarryOver
)

func (m MatchMode) String() string {
	switch m {
	case MatchCarryOver:
		return "carry_over"
	default:
		return "same_day"
	}
}

// Evaluator decides whether moments fall inside blocking windows.
// The zero value uses MatchSameDay.
type Evaluator struct {
	Mode MatchMode
}

// Match identifies the window responsible for a blocking decision.
type Match struct {
	Schedule Schedule
	Window   Window
	Start    time.Time
	End      time.Time
}

// WindowMatches reports whether now lies strictly between the window's start and end.
func (e Evaluator) WindowMatches(w Window, now time.Time) bool {
	_, _, ok := e.windowBounds(w, now)
	return ok
}

func (e Evaluator) windowBounds(w Window, now time.Time) (time.Time, time.Time, bool) {
	if ISOWeekday(now) == w.weekday {
		start, end := w.Bounds(now)
		if within(now, start, end) {
			return start, end, true
		}
	}

	if e.Mode == MatchCarryOver {
		yesterday := now.AddDate(0, 0, -1)
		if ISOWeekday(yesterday) == w.weekday {
			start, end := w.Bounds(yesterday)
			if within(now, start, end) {
				return start, end, true
			}
		}
	}

	return time.Time{}, time.Time{}, false
}

// ScheduleBlocks reports whether s is active and any of its windows matches now.
func (e Evaluator) ScheduleBlocks(s Schedule, now time.Time) bool {
	_, ok := e.firstMatch(s, now)
	return ok
}

// AnyBlocks reports whether any schedule blocks now.
func (e Evaluator) AnyBlocks(schedules []Schedule, now time.Time) bool {
	_, ok := e.FirstBlocking(schedules, now)
	return ok
}

// FirstBlocking returns the first schedule and window, in stored order, that block now.
func (e Evaluator) FirstBlocking(schedules []Schedule, now time.Time) (Match, bool) {
	for _, s := range schedules {
		if m, ok := e.firstMatch(s, now); ok {
			return m, true
		}
	}
	return Match{}, false
}

func (e Evaluator) firstMatch(s Schedule, now time.Time) (Match, bool) {
	if !s.active {
		return Match{}, false
	}
	for _, w := range s.windows {
		if start, end, ok := e.windowBounds(w, now); ok {
			return Match{Schedule: s, Window: w, Start: start, End: end}, true
		}
	}
	return Match{}, false
}

// AnyBlocks reports whether any schedule blocks now using MatchSameDay.
func AnyBlocks(schedules []Schedule, now time.Time) bool {
	return Evaluator{}.AnyBlocks(schedules, now)
}

// Both bounds are exclusive.
func within(now, start, end time.Time) bool {
	return now.After(start) && now.Before(end)
}
