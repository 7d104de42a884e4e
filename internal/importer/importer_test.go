package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
schedules:
  - name: Work hours
    windows:
      - day: monday
        start: "09:00"
        duration: 8h
      - day: 2
        start: "09:00:00"
        duration: 28800
  - name: Weekend
    active: false
    windows:
      - day: Sun
        start: "22:30"
        duration: 90m
`

func TestReadAndInputs(t *testing.T) {
	doc, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	inputs, err := doc.Inputs()
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(inputs))
	}

	work := inputs[0]
	if !work.Active || work.Name != "Work hours" || len(work.Windows) != 2 {
		t.Fatalf("unexpected work schedule: %+v", work)
	}
	for _, w := range work.Windows {
		if w.StartTime != "09:00:00" || w.DurationSeconds != 8*3600 {
			t.Fatalf("unexpected window: %+v", w)
		}
	}
	if work.Windows[0].Weekday != 1 || work.Windows[1].Weekday != 2 {
		t.Fatalf("unexpected weekdays: %+v", work.Windows)
	}

	weekend := inputs[1]
	if weekend.Active {
		t.Fatal("expected weekend to be inactive")
	}
	if got := weekend.Windows[0]; got.Weekday != 7 || got.StartTime != "22:30:00" || got.DurationSeconds != 5400 {
		t.Fatalf("unexpected weekend window: %+v", got)
	}
}

func TestReadRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "empty",
			doc:     "",
			wantErr: "empty schedule file",
		},
		{
			name:    "no schedules",
			doc:     "schedules: []\n",
			wantErr: "Schedules",
		},
		{
			name:    "missing name",
			doc:     "schedules:\n  - windows: []\n",
			wantErr: "Name is required",
		},
		{
			name:    "weekday out of range",
			doc:     "schedules:\n  - name: x\n    windows:\n      - day: 8\n        start: \"09:00\"\n        duration: 60\n",
			wantErr: "out of range",
		},
		{
			name:    "bad start",
			doc:     "schedules:\n  - name: x\n    windows:\n      - day: 1\n        start: \"25:00\"\n        duration: 60\n",
			wantErr: "not a time of day",
		},
		{
			name:    "negative duration",
			doc:     "schedules:\n  - name: x\n    windows:\n      - day: 1\n        start: \"09:00\"\n        duration: -5\n",
			wantErr: "out of range",
		},
		{
			name:    "unknown day name",
			doc:     "schedules:\n  - name: x\n    windows:\n      - day: funday\n        start: \"09:00\"\n        duration: 60\n",
			wantErr: "unknown day",
		},
		{
			name:    "fractional duration",
			doc:     "schedules:\n  - name: x\n    windows:\n      - day: 1\n        start: \"09:00\"\n        duration: 1500ms\n",
			wantErr: "whole number of seconds",
		},
		{
			name:    "unknown field",
			doc:     "schedules:\n  - name: x\n    colour: red\n",
			wantErr: "colour",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(doc.Schedules) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(doc.Schedules))
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseHelpers(t *testing.T) {
	days := map[string]int{"monday": 1, "Tue": 2, " 7 ": 7, "SUNDAY": 7}
	for in, want := range days {
		got, err := ParseDay(in)
		if err != nil || got != want {
			t.Fatalf("ParseDay(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	if _, err := ParseDay("someday"); err == nil {
		t.Fatal("expected error for unknown day")
	}

	durations := map[string]int{"3600": 3600, "1h30m": 5400, "0": 0}
	for in, want := range durations {
		got, err := ParseDuration(in)
		if err != nil || got != want {
			t.Fatalf("ParseDuration(%q) = %d, %v; want %d", in, got, err, want)
		}
	}

	start, err := ParseStart("07:05")
	if err != nil || start.String() != "07:05:00" {
		t.Fatalf("ParseStart = %v, %v", start, err)
	}
}
