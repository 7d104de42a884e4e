/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package importer reads schedule definitions from YAML files.
//
// A file looks like:
//
//	schedules:
//	  - name: Work hours
//	    active: true
//	    windows:
//	      - day: monday
//	        start: "09:00"
//	        duration: 8h
//	      - day: 2
//	        start: "09:00:00"
//	        duration: 28800
package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/timegate/internal/repository"
	"github.com/friendsincode/timegate/internal/schedule"
)

// File is the top level document.
type File struct {
	Schedules []Schedule `yaml:"schedules" validate:"required,min=1,dive"`
}

// Schedule is one schedule record.
type Schedule struct {
	Name    string   `yaml:"name" validate:"required,max=200"`
	Active  *bool    `yaml:"active"`
	Windows []Window `yaml:"windows" validate:"dive"`
}

// Window is one blocking window record.
type Window struct {
	Day      Day      `yaml:"day" validate:"min=1,max=7"`
	Start    string   `yaml:"start" validate:"required,timeofday"`
	Duration Duration `yaml:"duration" validate:"min=0"`
}

// Day accepts an ISO weekday number (1 = Monday) or an English day name.
type Day int

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Day) UnmarshalYAML(node *yaml.Node) error {
	n, err := ParseDay(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Day(n)
	return nil
}

// ParseDay parses an ISO weekday number or an English day name, full or
// abbreviated to three letters. Numbers are returned unchecked so range
// errors surface from validation.
func ParseDay(s string) (int, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n, nil
	}
	name := strings.ToLower(strings.TrimSpace(s))
	for wd := schedule.Monday; wd <= schedule.Sunday; wd++ {
		full := strings.ToLower(wd.String())
		if name == full || name == full[:3] {
			return int(wd), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// Duration accepts whole seconds or a Go duration string such as "1h30m".
// It holds seconds.
type Duration int

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	n, err := ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(n)
	return nil
}

// ParseDuration returns whole seconds from either a bare integer or a Go
// duration string.
func ParseDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if parsed%time.Second != 0 {
		return 0, fmt.Errorf("duration %q is not a whole number of seconds", s)
	}
	return int(parsed / time.Second), nil
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("timeofday", validateTimeOfDay)
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := ParseStart(fl.Field().String())
	return err == nil
}

// ParseStart accepts HH:MM as a shorthand for HH:MM:00.
func ParseStart(s string) (schedule.TimeOfDay, error) {
	if strings.Count(s, ":") == 1 {
		s += ":00"
	}
	return schedule.ParseTimeOfDay(s)
}

// ReadFile parses and validates the YAML file at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses and validates a YAML document.
func Read(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc File
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty schedule file")
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, formatValidationErrors(err)
	}
	return &doc, nil
}

// Inputs converts the records into repository inputs. Schedules without an
// explicit active flag are active.
func (f *File) Inputs() ([]repository.ScheduleInput, error) {
	out := make([]repository.ScheduleInput, 0, len(f.Schedules))
	for _, s := range f.Schedules {
		in := repository.ScheduleInput{Name: s.Name, Active: s.Active == nil || *s.Active}
		for _, w := range s.Windows {
			start, err := ParseStart(w.Start)
			if err != nil {
				return nil, fmt.Errorf("schedule %q: %w", s.Name, err)
			}
			in.Windows = append(in.Windows, repository.WindowInput{
				Weekday:         int(w.Day),
				StartTime:       start.String(),
				DurationSeconds: int(w.Duration),
			})
		}
		out = append(out, in)
	}
	return out, nil
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "File.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "timeofday":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a time of day", field, fe.Value()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s %v out of range (%s %s)", field, fe.Value(), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("invalid schedule file: %s", strings.Join(msgs, ", "))
}
