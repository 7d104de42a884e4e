/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/timegate/internal/importer"
	"github.com/friendsincode/timegate/internal/models"
	"github.com/friendsincode/timegate/internal/schedule"
)

var schedulesCmd = &cobra.Command{
	Use:     "schedules",
	Aliases: []string{"schedule"},
	Short:   "Manage stored schedules",
}

var schedulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules and their windows",
	Args:  cobra.NoArgs,
	RunE:  runSchedulesList,
}

var schedulesAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulesAdd,
}

var schedulesEnableCmd = &cobra.Command{
	Use:   "enable ID",
	Short: "Mark a schedule active",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setActive(cmd, args[0], true) },
}

var schedulesDisableCmd = &cobra.Command{
	Use:   "disable ID",
	Short: "Mark a schedule inactive",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setActive(cmd, args[0], false) },
}

var schedulesRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Delete a schedule and its windows",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulesRemove,
}

var windowsCmd = &cobra.Command{
	Use:     "windows",
	Aliases: []string{"window"},
	Short:   "Manage blocking windows",
}

var windowsAddCmd = &cobra.Command{
	Use:   "add SCHEDULE_ID",
	Short: "Add a weekly blocking window to a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runWindowsAdd,
}

var windowsRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Delete a blocking window",
	Args:  cobra.ExactArgs(1),
	RunE:  runWindowsRemove,
}

var (
	scheduleInactive bool
	windowDay        string
	windowStart      string
	windowDuration   string
)

func init() {
	rootCmd.AddCommand(schedulesCmd)
	schedulesCmd.AddCommand(schedulesListCmd, schedulesAddCmd, schedulesEnableCmd, schedulesDisableCmd, schedulesRemoveCmd)
	schedulesAddCmd.Flags().BoolVar(&scheduleInactive, "inactive", false, "Create the schedule disabled")

	rootCmd.AddCommand(windowsCmd)
	windowsCmd.AddCommand(windowsAddCmd, windowsRemoveCmd)
	windowsAddCmd.Flags().StringVar(&windowDay, "day", "", "Weekday: 1-7 (1 = Monday) or a day name (required)")
	windowsAddCmd.Flags().StringVar(&windowStart, "start", "", "Start time, HH:MM or HH:MM:SS (required)")
	windowsAddCmd.Flags().StringVar(&windowDuration, "duration", "", "Length: seconds or a duration such as 1h30m (required)")
	_ = windowsAddCmd.MarkFlagRequired("day")
	_ = windowsAddCmd.MarkFlagRequired("start")
	_ = windowsAddCmd.MarkFlagRequired("duration")
}

func runSchedulesList(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	repo, closeFn, err := openRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	rows, err := repo.ListSchedules(cmd.Context())
	if err != nil {
		return err
	}
	printSchedules(cmd.OutOrStdout(), rows)
	return nil
}

func printSchedules(out io.Writer, rows []models.Schedule) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "no schedules")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tACTIVE\tWINDOW\tDAY\tSTART\tDURATION")
	for _, s := range rows {
		if len(s.Blockers) == 0 {
			fmt.Fprintf(tw, "%d\t%s\t%t\t-\t\t\t\n", s.ID, s.Name, s.Active)
			continue
		}
		for i, b := range s.Blockers {
			id, name, active := strconv.Itoa(s.ID), s.Name, strconv.FormatBool(s.Active)
			if i > 0 {
				id, name, active = "", "", ""
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				id, name, active, b.ID, schedule.Weekday(b.Weekday), b.StartTime,
				time.Duration(b.Duration)*time.Second)
		}
	}
	_ = tw.Flush()
}

func runSchedulesAdd(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	repo, closeFn, err := openRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	row, err := repo.CreateSchedule(cmd.Context(), args[0], !scheduleInactive)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created schedule %d %q\n", row.ID, row.Name)
	notifyReload(cmd.Context())
	return nil
}

func setActive(cmd *cobra.Command, rawID string, active bool) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	if err := loadConfig(); err != nil {
		return err
	}
	repo, closeFn, err := openRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := repo.SetActive(cmd.Context(), id, active); err != nil {
		return err
	}
	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schedule %d %s\n", id, state)
	notifyReload(cmd.Context())
	return nil
}

func runSchedulesRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := loadConfig(); err != nil {
		return err
	}
	repo, closeFn, err := openRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := repo.DeleteSchedule(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schedule %d removed\n", id)
	notifyReload(cmd.Context())
	return nil
}

func runWindowsAdd(cmd *cobra.Command, args []string) error {
	scheduleID, err := parseID(args[0])
	if err != nil {
		return err
	}
	day, err := importer.ParseDay(windowDay)
	if err != nil {
		return fmt.Errorf("--day: %w", err)
	}
	start, err := importer.ParseStart(windowStart)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	seconds, err := importer.ParseDuration(windowDuration)
	if err != nil {
		return fmt.Errorf("--duration: %w", err)
	}

	if err := loadConfig(); err != nil {
		return err
	}
	repo, closeFn, err := openRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	row, err := repo.AddWindow(cmd.Context(), scheduleID, day, start.String(), seconds)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added window %d to schedule %d: %s %s for %s\n",
		row.ID, scheduleID, schedule.Weekday(row.Weekday), row.StartTime, time.Duration(row.Duration)*time.Second)
	notifyReload(cmd.Context())
	return nil
}

func runWindowsRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := loadConfig(); err != nil {
		return err
	}
	repo, closeFn, err := openRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := repo.DeleteWindow(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "window %d removed\n", id)
	notifyReload(cmd.Context())
	return nil
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
