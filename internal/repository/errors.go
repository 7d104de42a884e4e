/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package repository

import (
	"errors"
	"fmt"

	"github.com/friendsincode/timegate/internal/schedule"
)

var (
	// ErrScheduleNotFound indicates no schedule row has the requested id.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrWindowNotFound indicates no window row has the requested id.
	ErrWindowNotFound = errors.New("window not found")
)

// LoadErrorKind classifies why a schedule load failed.
type LoadErrorKind string

const (
	LoadErrorStorage LoadErrorKind = "storage"
	LoadErrorNumeric LoadErrorKind = "numeric"
	LoadErrorTime    LoadErrorKind = "time"
	LoadErrorUnknown LoadErrorKind = "unknown"
)

// LoadError aborts a schedule load. ScheduleID and WindowID are zero when the
// failure is not tied to a row.
type LoadError struct {
	Kind       LoadErrorKind
	ScheduleID int
	WindowID   int
	Err        error
}

func (e *LoadError) Error() string {
	switch {
	case e.WindowID != 0:
		return fmt.Sprintf("load schedules: %s error in schedule %d window %d: %v", e.Kind, e.ScheduleID, e.WindowID, e.Err)
	case e.ScheduleID != 0:
		return fmt.Sprintf("load schedules: %s error in schedule %d: %v", e.Kind, e.ScheduleID, e.Err)
	default:
		return fmt.Sprintf("load schedules: %s error: %v", e.Kind, e.Err)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// classify maps a domain construction error to its load error kind.
func classify(err error) LoadErrorKind {
	switch {
	case errors.Is(err, schedule.ErrInvalidWeekday), errors.Is(err, schedule.ErrInvalidDuration):
		return LoadErrorNumeric
	case errors.Is(err, schedule.ErrInvalidStartTime):
		return LoadErrorTime
	default:
		return LoadErrorUnknown
	}
}
