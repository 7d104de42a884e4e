/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"
	"math"
	"time"
)

// Weekday numbers days the ISO way: 1 = Monday .. 7 = Sunday.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Valid reports whether d is within Monday..Sunday.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return time.Weekday(int(d) % 7).String()
}

// ISOWeekday returns the weekday of t in its own location.
func ISOWeekday(t time.Time) Weekday {
	return Weekday((int(t.Weekday())+6)%7 + 1)
}

// Window is a recurring weekly interval during which blocking is in effect.
type Window struct {
	id       int
	weekday  Weekday
	start    TimeOfDay
	duration time.Duration
}

const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// NewWindow validates the stored representation of a window.
func NewWindow(id, weekday int, startTime string, durationSeconds int) (Window, error) {
	day := Weekday(weekday)
	if !day.Valid() {
		return Window{}, &ValidationError{Field: "weekday", Value: weekday, Err: ErrInvalidWeekday}
	}

	start, err := ParseTimeOfDay(startTime)
	if err != nil {
		return Window{}, &ValidationError{Field: "start_time", Value: startTime, Err: err}
	}

	if durationSeconds < 0 || int64(durationSeconds) > maxDurationSeconds {
		return Window{}, &ValidationError{Field: "duration", Value: durationSeconds, Err: ErrInvalidDuration}
	}

	return Window{
		id:       id,
		weekday:  day,
		start:    start,
		duration: time.Duration(durationSeconds) * time.Second,
	}, nil
}

func (w Window) ID() int                 { return w.id }
func (w Window) Weekday() Weekday        { return w.weekday }
func (w Window) StartTime() TimeOfDay    { return w.start }
func (w Window) Duration() time.Duration { return w.duration }

// Bounds returns the window's interval as started on the calendar date of day.
// The end may fall on a later date.
func (w Window) Bounds(day time.Time) (start, end time.Time) {
	start = w.start.On(day)
	return start, start.Add(w.duration)
}

// Matches reports whether now lies strictly inside the window started today.
func (w Window) Matches(now time.Time) bool {
	return Evaluator{}.WindowMatches(w, now)
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s +%s", w.weekday, w.start, w.duration)
}
