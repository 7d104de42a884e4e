/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWeekday is returned when a weekday falls outside 1 (Monday) .. 7 (Sunday).
	ErrInvalidWeekday = errors.New("weekday out of range")

	// ErrInvalidStartTime is returned when a start time is not a valid HH:MM:SS time of day.
	ErrInvalidStartTime = errors.New("invalid start time")

	// ErrInvalidDuration is returned for negative or unrepresentable durations.
	ErrInvalidDuration = errors.New("invalid duration")
)

// ValidationError describes a rejected field during construction of a domain value.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
