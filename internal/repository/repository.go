/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/friendsincode/timegate/internal/models"
	"github.com/friendsincode/timegate/internal/schedule"
	"github.com/friendsincode/timegate/internal/telemetry"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Repository reads and writes schedules and their windows.
type Repository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a repository over an open database.
func New(db *gorm.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With().Str("component", "repository").Logger(),
	}
}

// LoadAllSchedules reads every schedule with its windows and converts them to
// validated domain values. Any invalid row aborts the whole load with a
// *LoadError; a partial set is never returned.
func (r *Repository) LoadAllSchedules(ctx context.Context) ([]schedule.Schedule, error) {
	ctx, span := telemetry.StartSpan(ctx, "repository.LoadAllSchedules")
	defer span.End()

	rows, err := r.ListSchedules(ctx)
	if err != nil {
		loadErr := &LoadError{Kind: LoadErrorStorage, Err: err}
		telemetry.RecordError(span, loadErr)
		telemetry.ScheduleLoadsTotal.WithLabelValues(string(LoadErrorStorage)).Inc()
		return nil, loadErr
	}

	out := make([]schedule.Schedule, 0, len(rows))
	windowCount := 0
	for _, row := range rows {
		s, err := toDomain(row)
		if err != nil {
			var loadErr *LoadError
			errors.As(err, &loadErr)
			telemetry.RecordError(span, err)
			telemetry.ScheduleLoadsTotal.WithLabelValues(string(loadErr.Kind)).Inc()
			return nil, err
		}
		windowCount += s.WindowCount()
		out = append(out, s)
	}

	telemetry.AddSpanAttributes(span, map[string]any{
		"schedules": len(out),
		"windows":   windowCount,
	})
	telemetry.ScheduleLoadsTotal.WithLabelValues("ok").Inc()

	r.logger.Debug().Int("schedules", len(out)).Int("windows", windowCount).Msg("schedules loaded")
	return out, nil
}

func toDomain(row models.Schedule) (schedule.Schedule, error) {
	windows := make([]schedule.Window, 0, len(row.Blockers))
	for _, b := range row.Blockers {
		w, err := schedule.NewWindow(b.ID, b.Weekday, b.StartTime, b.Duration)
		if err != nil {
			return schedule.Schedule{}, &LoadError{Kind: classify(err), ScheduleID: row.ID, WindowID: b.ID, Err: err}
		}
		windows = append(windows, w)
	}

	s, err := schedule.NewSchedule(row.ID, row.Name, row.Active, windows)
	if err != nil {
		return schedule.Schedule{}, &LoadError{Kind: classify(err), ScheduleID: row.ID, Err: err}
	}
	return s, nil
}

// ListSchedules returns the stored rows, windows included, ordered by id.
func (r *Repository) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	var rows []models.Schedule
	err := r.db.WithContext(ctx).
		Preload("Blockers", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	return rows, nil
}

// GetSchedule returns one schedule row with its windows.
func (r *Repository) GetSchedule(ctx context.Context, id int) (*models.Schedule, error) {
	var row models.Schedule
	err := r.db.WithContext(ctx).
		Preload("Blockers", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	return &row, nil
}

// CreateSchedule stores a new schedule without windows.
func (r *Repository) CreateSchedule(ctx context.Context, name string, active bool) (*models.Schedule, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("schedule name is required")
	}

	row := &models.Schedule{Name: name, Active: active}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	r.logger.Info().Int("schedule_id", row.ID).Str("name", name).Bool("active", active).Msg("schedule created")
	return row, nil
}

// SetActive enables or disables a schedule.
func (r *Repository) SetActive(ctx context.Context, id int, active bool) error {
	if _, err := r.findSchedule(ctx, r.db, id); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ?", id).
		Update("active", active).Error
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}

	r.logger.Info().Int("schedule_id", id).Bool("active", active).Msg("schedule updated")
	return nil
}

// DeleteSchedule removes a schedule together with its windows.
func (r *Repository) DeleteSchedule(ctx context.Context, id int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.findSchedule(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Where("schedule_id = ?", id).Delete(&models.Blocker{}).Error; err != nil {
			return fmt.Errorf("delete windows: %w", err)
		}
		if err := tx.Delete(&models.Schedule{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info().Int("schedule_id", id).Msg("schedule deleted")
	return nil
}

// AddWindow validates and stores a window on an existing schedule.
func (r *Repository) AddWindow(ctx context.Context, scheduleID, weekday int, startTime string, durationSeconds int) (*models.Blocker, error) {
	w, err := schedule.NewWindow(0, weekday, startTime, durationSeconds)
	if err != nil {
		return nil, err
	}
	if _, err := r.findSchedule(ctx, r.db, scheduleID); err != nil {
		return nil, err
	}

	row := blockerFromWindow(scheduleID, w)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	r.logger.Info().
		Int("schedule_id", scheduleID).
		Int("window_id", row.ID).
		Str("window", w.String()).
		Msg("window added")
	return row, nil
}

// DeleteWindow removes one window.
func (r *Repository) DeleteWindow(ctx context.Context, id int) error {
	res := r.db.WithContext(ctx).Delete(&models.Blocker{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete window: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWindowNotFound
	}

	r.logger.Info().Int("window_id", id).Msg("window deleted")
	return nil
}

// ScheduleInput is one schedule to store through Import.
type ScheduleInput struct {
	Name    string
	Active  bool
	Windows []WindowInput
}

// WindowInput is one window to store through Import.
type WindowInput struct {
	Weekday         int
	StartTime       string
	DurationSeconds int
}

// Import stores schedules in a single transaction. Every window is validated
// before anything is written. With replace set, existing schedules are removed
// first.
func (r *Repository) Import(ctx context.Context, inputs []ScheduleInput, replace bool) (int, error) {
	rows := make([]models.Schedule, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return 0, fmt.Errorf("schedule %d: name is required", i+1)
		}
		row := models.Schedule{Name: name, Active: in.Active}
		for j, wi := range in.Windows {
			w, err := schedule.NewWindow(0, wi.Weekday, wi.StartTime, wi.DurationSeconds)
			if err != nil {
				return 0, fmt.Errorf("schedule %q window %d: %w", name, j+1, err)
			}
			row.Blockers = append(row.Blockers, *blockerFromWindow(0, w))
		}
		rows = append(rows, row)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replace {
			if err := tx.Where("1 = 1").Delete(&models.Blocker{}).Error; err != nil {
				return fmt.Errorf("clear windows: %w", err)
			}
			if err := tx.Where("1 = 1").Delete(&models.Schedule{}).Error; err != nil {
				return fmt.Errorf("clear schedules: %w", err)
			}
		}
		for i := range rows {
			if err := tx.Create(&rows[i]).Error; err != nil {
				return fmt.Errorf("create schedule %q: %w", rows[i].Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info().Int("schedules", len(rows)).Bool("replace", replace).Msg("schedules imported")
	return len(rows), nil
}

func (r *Repository) findSchedule(ctx context.Context, db *gorm.DB, id int) (*models.Schedule, error) {
	var row models.Schedule
	if err := db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	return &row, nil
}

func blockerFromWindow(scheduleID int, w schedule.Window) *models.Blocker {
	return &models.Blocker{
		ScheduleID: scheduleID,
		Weekday:    int(w.Weekday()),
		StartTime:  w.StartTime().String(),
		Duration:   int(w.Duration().Seconds()),
	}
}
