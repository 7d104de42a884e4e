package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/timegate/internal/models"
	"github.com/friendsincode/timegate/internal/schedule"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.Schedule{}, &models.Blocker{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB, rows ...models.Schedule) {
	t.Helper()
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestLoadAllSchedulesMapsRows(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db,
		models.Schedule{Name: "Work Hours", Active: true, Blockers: []models.Blocker{
			{Weekday: 3, StartTime: "09:00:00", Duration: 28800},
			{Weekday: 4, StartTime: "09:00:00", Duration: 28800},
		}},
		models.Schedule{Name: "Paused", Active: false},
	)

	repo := New(db, zerolog.Nop())
	got, err := repo.LoadAllSchedules(context.Background())
	if err != nil {
		t.Fatalf("LoadAllSchedules: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("schedules = %d, want 2", len(got))
	}
	if got[0].Name() != "Work Hours" || !got[0].Active() || got[0].WindowCount() != 2 {
		t.Fatalf("unexpected first schedule: %+v", got[0])
	}
	if got[1].Active() || got[1].WindowCount() != 0 {
		t.Fatalf("unexpected second schedule: %+v", got[1])
	}

	w := got[0].Windows()[0]
	if w.Weekday() != schedule.Wednesday || w.StartTime().String() != "09:00:00" || w.Duration() != 8*time.Hour {
		t.Fatalf("unexpected window: %s", w)
	}

	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	if !schedule.AnyBlocks(got, now) {
		t.Fatal("loaded schedules should block Wednesday 10:00")
	}
}

func TestLoadAllSchedulesClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		blocker models.Blocker
		kind    LoadErrorKind
		target  error
	}{
		{"weekday", models.Blocker{Weekday: 8, StartTime: "09:00:00", Duration: 60}, LoadErrorNumeric, schedule.ErrInvalidWeekday},
		{"duration", models.Blocker{Weekday: 1, StartTime: "09:00:00", Duration: -1}, LoadErrorNumeric, schedule.ErrInvalidDuration},
		{"time", models.Blocker{Weekday: 1, StartTime: "25:00:00", Duration: 60}, LoadErrorTime, schedule.ErrInvalidStartTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			seed(t, db,
				models.Schedule{Name: "Good", Active: true, Blockers: []models.Blocker{{Weekday: 1, StartTime: "08:00:00", Duration: 60}}},
				models.Schedule{Name: "Bad", Active: true, Blockers: []models.Blocker{tt.blocker}},
			)

			got, err := New(db, zerolog.Nop()).LoadAllSchedules(context.Background())
			if got != nil {
				t.Fatalf("expected no partial result, got %d schedules", len(got))
			}
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *LoadError, got %T: %v", err, err)
			}
			if loadErr.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", loadErr.Kind, tt.kind)
			}
			if loadErr.ScheduleID != 2 || loadErr.WindowID == 0 {
				t.Fatalf("unexpected row reference: schedule %d window %d", loadErr.ScheduleID, loadErr.WindowID)
			}
			if !errors.Is(err, tt.target) {
				t.Fatalf("error %v does not wrap %v", err, tt.target)
			}
		})
	}
}

func TestLoadAllSchedulesStorageFailure(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrator().DropTable(&models.Blocker{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	seed(t, db, models.Schedule{Name: "Work", Active: true})

	_, err := New(db, zerolog.Nop()).LoadAllSchedules(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Kind != LoadErrorStorage {
		t.Fatalf("expected storage load error, got %v", err)
	}
}

func TestClassifyUnknown(t *testing.T) {
	if got := classify(errors.New("other")); got != LoadErrorUnknown {
		t.Fatalf("classify = %s, want unknown", got)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := New(setupTestDB(t), zerolog.Nop())

	if _, err := repo.CreateSchedule(ctx, "  ", true); err == nil {
		t.Fatal("expected empty name to be rejected")
	}

	s, err := repo.CreateSchedule(ctx, "Evenings", true)
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	w, err := repo.AddWindow(ctx, s.ID, 5, "9:30:00", 3600)
	if err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	if w.StartTime != "09:30:00" {
		t.Fatalf("start time stored as %q, want normalized 09:30:00", w.StartTime)
	}

	if _, err := repo.AddWindow(ctx, s.ID, 0, "09:00:00", 60); !errors.Is(err, schedule.ErrInvalidWeekday) {
		t.Fatalf("expected weekday validation error, got %v", err)
	}
	if _, err := repo.AddWindow(ctx, 999, 1, "09:00:00", 60); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}

	if err := repo.SetActive(ctx, s.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	got, err := repo.GetSchedule(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.Active {
		t.Fatal("schedule should be inactive")
	}
	if len(got.Blockers) != 1 {
		t.Fatalf("windows = %d, want 1", len(got.Blockers))
	}
	if err := repo.SetActive(ctx, 999, true); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}

	if err := repo.DeleteWindow(ctx, w.ID); err != nil {
		t.Fatalf("DeleteWindow: %v", err)
	}
	if err := repo.DeleteWindow(ctx, w.ID); !errors.Is(err, ErrWindowNotFound) {
		t.Fatalf("expected ErrWindowNotFound, got %v", err)
	}

	if _, err := repo.AddWindow(ctx, s.ID, 1, "08:00:00", 60); err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	if err := repo.DeleteSchedule(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if _, err := repo.GetSchedule(ctx, s.ID); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}
	rows, err := repo.ListSchedules(ctx)
	if err != nil || len(rows) != 0 {
		t.Fatalf("ListSchedules = %d, %v", len(rows), err)
	}
	if err := repo.DeleteSchedule(ctx, s.ID); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := New(db, zerolog.Nop())
	seed(t, db, models.Schedule{Name: "Old", Active: true, Blockers: []models.Blocker{{Weekday: 1, StartTime: "08:00:00", Duration: 60}}})

	inputs := []ScheduleInput{
		{Name: "Work", Active: true, Windows: []WindowInput{
			{Weekday: 1, StartTime: "09:00:00", DurationSeconds: 28800},
			{Weekday: 2, StartTime: "09:00:00", DurationSeconds: 28800},
		}},
		{Name: "Night", Active: false},
	}

	n, err := repo.Import(ctx, inputs, false)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	rows, _ := repo.ListSchedules(ctx)
	if len(rows) != 3 {
		t.Fatalf("schedules after append = %d, want 3", len(rows))
	}

	if _, err := repo.Import(ctx, inputs, true); err != nil {
		t.Fatalf("Import replace: %v", err)
	}
	rows, _ = repo.ListSchedules(ctx)
	if len(rows) != 2 || rows[0].Name != "Work" || len(rows[0].Blockers) != 2 {
		t.Fatalf("unexpected rows after replace: %+v", rows)
	}
	if rows[1].Active {
		t.Fatal("inactive schedule imported as active")
	}

	bad := []ScheduleInput{{Name: "Broken", Active: true, Windows: []WindowInput{{Weekday: 1, StartTime: "noon", DurationSeconds: 60}}}}
	if _, err := repo.Import(ctx, bad, true); !errors.Is(err, schedule.ErrInvalidStartTime) {
		t.Fatalf("expected start time error, got %v", err)
	}
	rows, _ = repo.ListSchedules(ctx)
	if len(rows) != 2 {
		t.Fatalf("failed import must not touch stored schedules, got %d", len(rows))
	}
}
